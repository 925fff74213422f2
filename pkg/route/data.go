// Package route stores recorded joystick timelines as versioned route files.
//
// A route holds six analog and ten digital channel timelines. Each channel
// keeps a value sequence and a parallel spacing sequence recording the
// milliseconds elapsed since the previous sample on that channel. Routes are
// persisted one per file as JSON with the ".route" extension, named after the
// route's canonical name.
package route

const (
	// AnalogChannels is the number of analog (axis) channels per route.
	AnalogChannels = 6
	// DigitalChannels is the number of digital (button) channels per route.
	DigitalChannels = 10

	// MinTimeSpacing is the smallest sample spacing, in milliseconds, that
	// gives usable measurements. Smaller values are clamped up to it.
	MinTimeSpacing = 30

	// Extension is the file extension of persisted routes, without the dot.
	Extension = "route"
)

// Data is the serialized form of a route. Field names match the on-disk
// document.
type Data struct {
	Robot        string `json:"robot"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Version      int    `json:"version"`
	Role         string `json:"role"`
	TimeSpacing  int    `json:"timeSpacing"`
	LastModified int64  `json:"lastModified"`

	Analog         [AnalogChannels][]float64 `json:"analog"`
	AnalogSpacing  [AnalogChannels][]int     `json:"analogSpacing"`
	Digital        [DigitalChannels][]bool   `json:"digital"`
	DigitalSpacing [DigitalChannels][]int    `json:"digitalSpacing"`
}

// Identity returns the identity fields of the data.
func (d *Data) Identity() Identity {
	return Identity{Robot: d.Robot, Title: d.Title, Role: d.Role, Version: d.Version}
}

func (d *Data) setIdentity(id Identity) {
	d.Robot = id.Robot
	d.Title = id.Title
	d.Role = id.Role
	d.Version = id.Version
}

// allocate replaces nil timelines with empty ones so they encode as [] and
// never as null.
func (d *Data) allocate() {
	for i := range d.Analog {
		if d.Analog[i] == nil {
			d.Analog[i] = []float64{}
		}
		if d.AnalogSpacing[i] == nil {
			d.AnalogSpacing[i] = []int{}
		}
	}
	for i := range d.Digital {
		if d.Digital[i] == nil {
			d.Digital[i] = []bool{}
		}
		if d.DigitalSpacing[i] == nil {
			d.DigitalSpacing[i] = []int{}
		}
	}
}

// clone returns a deep copy of the data.
func (d *Data) clone() Data {
	c := *d
	for i := range d.Analog {
		c.Analog[i] = append([]float64{}, d.Analog[i]...)
		c.AnalogSpacing[i] = append([]int{}, d.AnalogSpacing[i]...)
	}
	for i := range d.Digital {
		c.Digital[i] = append([]bool{}, d.Digital[i]...)
		c.DigitalSpacing[i] = append([]int{}, d.DigitalSpacing[i]...)
	}
	return c
}
