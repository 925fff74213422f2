package robot

// MotorCalibration holds calibration data for a single motor.
type MotorCalibration struct {
	ID           int `toml:"id"`
	DriveMode    int `toml:"drive_mode"`
	HomingOffset int `toml:"homing_offset"`
	RangeMin     int `toml:"range_min"`
	RangeMax     int `toml:"range_max"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c MotorCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*2*PositionRange - PositionRange
}

// Denormalize converts a normalized value [-100, 100] to a raw servo position.
func (c MotorCalibration) Denormalize(norm float64) int {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+PositionRange)/(2*PositionRange)*rangeSize) + c.RangeMin
}

// MotorIDs returns the servo IDs for all motors in the calibration.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllMotors() to ensure consistent ordering
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns motor name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorName, MotorCalibration, bool) {
	for name, mc := range c {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}

// Complete reports whether every SO-101 motor has a usable range.
func (c Calibration) Complete() bool {
	for _, name := range AllMotors() {
		mc, ok := c[name]
		if !ok || mc.RangeMax <= mc.RangeMin {
			return false
		}
	}
	return true
}
