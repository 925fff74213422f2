package route

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// document mirrors Data with open-ended slices so the decoder can reject
// files carrying the wrong number of channels instead of silently padding or
// truncating them.
type document struct {
	Robot        string `json:"robot"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Version      int    `json:"version"`
	Role         string `json:"role"`
	TimeSpacing  int    `json:"timeSpacing"`
	LastModified int64  `json:"lastModified"`

	Analog         [][]float64 `json:"analog"`
	AnalogSpacing  [][]int     `json:"analogSpacing"`
	Digital        [][]bool    `json:"digital"`
	DigitalSpacing [][]int     `json:"digitalSpacing"`
}

// Encode serializes route data to its on-disk JSON form.
func Encode(d *Data) ([]byte, error) {
	c := d.clone()
	c.allocate()
	out, err := json.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("encode route %s: %w", c.Identity().Name(), err)
	}
	return out, nil
}

// Decode parses a route document. Comments and trailing commas are accepted
// so route files can be annotated by hand. A timeSpacing below
// MinTimeSpacing is clamped. Any deviation from the expected shape is
// reported as ErrDecode.
func Decode(raw []byte) (*Data, error) {
	var doc document
	if err := json.Unmarshal(jsonc.ToJSON(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}

	d := &Data{
		Robot:        doc.Robot,
		Title:        doc.Title,
		Description:  doc.Description,
		Version:      doc.Version,
		Role:         doc.Role,
		TimeSpacing:  max(doc.TimeSpacing, MinTimeSpacing),
		LastModified: doc.LastModified,
	}
	copy(d.Analog[:], doc.Analog)
	copy(d.AnalogSpacing[:], doc.AnalogSpacing)
	copy(d.Digital[:], doc.Digital)
	copy(d.DigitalSpacing[:], doc.DigitalSpacing)
	d.allocate()
	return d, nil
}

func (doc *document) validate() error {
	switch {
	case doc.Robot == "":
		return fmt.Errorf("%w: missing robot", ErrDecode)
	case doc.Title == "":
		return fmt.Errorf("%w: missing title", ErrDecode)
	case doc.Version < 1:
		return fmt.Errorf("%w: version %d below 1", ErrDecode, doc.Version)
	case len(doc.Analog) != AnalogChannels || len(doc.AnalogSpacing) != AnalogChannels:
		return fmt.Errorf("%w: want %d analog channels, got %d values and %d spacings",
			ErrDecode, AnalogChannels, len(doc.Analog), len(doc.AnalogSpacing))
	case len(doc.Digital) != DigitalChannels || len(doc.DigitalSpacing) != DigitalChannels:
		return fmt.Errorf("%w: want %d digital channels, got %d values and %d spacings",
			ErrDecode, DigitalChannels, len(doc.Digital), len(doc.DigitalSpacing))
	}

	for ch := range doc.Analog {
		if len(doc.Analog[ch]) != len(doc.AnalogSpacing[ch]) {
			return fmt.Errorf("%w: analog channel %d has %d values but %d spacings",
				ErrDecode, ch, len(doc.Analog[ch]), len(doc.AnalogSpacing[ch]))
		}
	}
	for ch := range doc.Digital {
		if len(doc.Digital[ch]) != len(doc.DigitalSpacing[ch]) {
			return fmt.Errorf("%w: digital channel %d has %d values but %d spacings",
				ErrDecode, ch, len(doc.Digital[ch]), len(doc.DigitalSpacing[ch]))
		}
	}
	return nil
}
