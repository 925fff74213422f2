// Package phantom records joystick routes on an SO-101 arm and replays them
// as autonomous programs.
//
// A route is a timeline of six analog axes and ten digital buttons sampled
// at a fixed spacing. The leader arm's joints are the axes; the follower
// arm replays them.
//
// # Installation
//
//	go install github.com/gwillem/phantom/cmd/phantom@latest
//
// # Usage
//
// First, run setup to detect and calibrate your robot arms:
//
//	phantom setup
//
// Then record a route and play it back:
//
//	phantom record --route napalm_pick
//	phantom play --route napalm_pick
//
// Routes can also be managed from the interactive console:
//
//	phantom console
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/phantom: CLI with setup, create, list, console, record and play commands
//   - pkg/route: Route files, identities and channel timelines
//   - pkg/phantom: Route registry with the record and playback state machine
//   - pkg/teleop: Control loop driving the arms and owning the registry
//   - pkg/console: Interactive route console
//   - pkg/config: TOML configuration
//   - pkg/robot: Arm control and calibration
package phantom
