// Package robot provides SO-101 arm access and maps the arm's joints onto
// phantom route channels.
package robot

// MotorName identifies a motor in the arm.
type MotorName string

// Motor names for the SO-101 arm.
const (
	ShoulderPan  MotorName = "shoulder_pan"
	ShoulderLift MotorName = "shoulder_lift"
	ElbowFlex    MotorName = "elbow_flex"
	WristFlex    MotorName = "wrist_flex"
	WristRoll    MotorName = "wrist_roll"
	Gripper      MotorName = "gripper"
)

// AllMotors returns all motor names in order (matching servo IDs 1-6).
// A motor's position in this list is the analog route channel it records
// to.
func AllMotors() []MotorName {
	return []MotorName{
		ShoulderPan,
		ShoulderLift,
		ElbowFlex,
		WristFlex,
		WristRoll,
		Gripper,
	}
}

// Channel returns the analog channel of a motor, or -1 for an unknown name.
func Channel(name MotorName) int {
	for i, m := range AllMotors() {
		if m == name {
			return i
		}
	}
	return -1
}

// PositionRange is the magnitude of normalized motor positions, which span
// [-PositionRange, PositionRange]. Route axes span [-1, 1].
const PositionRange = 100.0

// PositionToAxis converts a normalized motor position to a joystick axis.
func PositionToAxis(pos float64) float64 {
	return clamp(pos/PositionRange, -1, 1)
}

// AxisToPosition converts a joystick axis to a normalized motor position.
func AxisToPosition(axis float64) float64 {
	return clamp(axis, -1, 1) * PositionRange
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
