package route

import "fmt"

func checkAnalog(ch int) {
	if ch < 0 || ch >= AnalogChannels {
		panic(fmt.Sprintf("route: analog channel %d out of range [0,%d)", ch, AnalogChannels))
	}
}

func checkDigital(ch int) {
	if ch < 0 || ch >= DigitalChannels {
		panic(fmt.Sprintf("route: digital channel %d out of range [0,%d)", ch, DigitalChannels))
	}
}

// AnalogLen returns the number of samples on an analog channel.
func (s *Store) AnalogLen(ch int) int {
	checkAnalog(ch)
	return len(s.data.Analog[ch])
}

// DigitalLen returns the number of samples on a digital channel.
func (s *Store) DigitalLen(ch int) int {
	checkDigital(ch)
	return len(s.data.Digital[ch])
}

// AnalogAt returns sample i of an analog channel. ok is false when i is
// outside the timeline.
func (s *Store) AnalogAt(ch, i int) (v float64, ok bool) {
	checkAnalog(ch)
	tl := s.data.Analog[ch]
	if i < 0 || i >= len(tl) {
		return 0, false
	}
	return tl[i], true
}

// DigitalAt returns sample i of a digital channel. ok is false when i is
// outside the timeline.
func (s *Store) DigitalAt(ch, i int) (v bool, ok bool) {
	checkDigital(ch)
	tl := s.data.Digital[ch]
	if i < 0 || i >= len(tl) {
		return false, false
	}
	return tl[i], true
}

// Analog returns a copy of an analog channel's values.
func (s *Store) Analog(ch int) []float64 {
	checkAnalog(ch)
	return append([]float64{}, s.data.Analog[ch]...)
}

// AnalogSpacing returns a copy of an analog channel's spacings.
func (s *Store) AnalogSpacing(ch int) []int {
	checkAnalog(ch)
	return append([]int{}, s.data.AnalogSpacing[ch]...)
}

// Digital returns a copy of a digital channel's values.
func (s *Store) Digital(ch int) []bool {
	checkDigital(ch)
	return append([]bool{}, s.data.Digital[ch]...)
}

// DigitalSpacing returns a copy of a digital channel's spacings.
func (s *Store) DigitalSpacing(ch int) []int {
	checkDigital(ch)
	return append([]int{}, s.data.DigitalSpacing[ch]...)
}

// AppendAnalog appends a value and the milliseconds since the channel's
// previous sample.
func (s *Store) AppendAnalog(ch int, v float64, spacingMs int) {
	checkAnalog(ch)
	s.data.Analog[ch] = append(s.data.Analog[ch], v)
	s.data.AnalogSpacing[ch] = append(s.data.AnalogSpacing[ch], spacingMs)
	s.touch()
}

// AppendDigital appends a value and the milliseconds since the channel's
// previous sample.
func (s *Store) AppendDigital(ch int, v bool, spacingMs int) {
	checkDigital(ch)
	s.data.Digital[ch] = append(s.data.Digital[ch], v)
	s.data.DigitalSpacing[ch] = append(s.data.DigitalSpacing[ch], spacingMs)
	s.touch()
}

// SetAnalog overwrites sample i of an analog channel.
func (s *Store) SetAnalog(ch, i int, v float64) error {
	checkAnalog(ch)
	if i < 0 || i >= len(s.data.Analog[ch]) {
		return fmt.Errorf("set analog %d sample %d: %w", ch, i, ErrInvalidArgument)
	}
	s.data.Analog[ch][i] = v
	s.touch()
	return nil
}

// SetAnalogSpacing overwrites spacing i of an analog channel.
func (s *Store) SetAnalogSpacing(ch, i, spacingMs int) error {
	checkAnalog(ch)
	if i < 0 || i >= len(s.data.AnalogSpacing[ch]) {
		return fmt.Errorf("set analog %d spacing %d: %w", ch, i, ErrInvalidArgument)
	}
	s.data.AnalogSpacing[ch][i] = spacingMs
	s.touch()
	return nil
}

// SetDigital overwrites sample i of a digital channel.
func (s *Store) SetDigital(ch, i int, v bool) error {
	checkDigital(ch)
	if i < 0 || i >= len(s.data.Digital[ch]) {
		return fmt.Errorf("set digital %d sample %d: %w", ch, i, ErrInvalidArgument)
	}
	s.data.Digital[ch][i] = v
	s.touch()
	return nil
}

// SetDigitalSpacing overwrites spacing i of a digital channel.
func (s *Store) SetDigitalSpacing(ch, i, spacingMs int) error {
	checkDigital(ch)
	if i < 0 || i >= len(s.data.DigitalSpacing[ch]) {
		return fmt.Errorf("set digital %d spacing %d: %w", ch, i, ErrInvalidArgument)
	}
	s.data.DigitalSpacing[ch][i] = spacingMs
	s.touch()
	return nil
}
