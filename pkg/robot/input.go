package robot

import (
	"github.com/gwillem/phantom/pkg/route"
)

// Snapshot is one control cycle's joystick reading: the leader arm's joints
// as analog axes plus the operator's digital buttons. It satisfies
// phantom.Input.
type Snapshot struct {
	Axes    [route.AnalogChannels]float64
	Buttons [route.DigitalChannels]bool
}

// SnapshotFromPositions maps normalized motor positions onto axes. Motors
// missing from positions read as centered.
func SnapshotFromPositions(positions map[MotorName]float64, buttons [route.DigitalChannels]bool) Snapshot {
	s := Snapshot{Buttons: buttons}
	for name, pos := range positions {
		if ch := Channel(name); ch >= 0 {
			s.Axes[ch] = PositionToAxis(pos)
		}
	}
	return s
}

// Positions maps the snapshot's axes back onto normalized motor positions.
func (s Snapshot) Positions() map[MotorName]float64 {
	motors := AllMotors()
	positions := make(map[MotorName]float64, len(motors))
	for ch, name := range motors {
		positions[name] = AxisToPosition(s.Axes[ch])
	}
	return positions
}

func (s Snapshot) Axis(ch int) float64 { return s.Axes[ch] }
func (s Snapshot) Button(ch int) bool  { return s.Buttons[ch] }
