// Package teleop runs the control loop that drives a follower arm from a
// leader arm and records or replays phantom routes along the way.
//
// The Controller goroutine owns the phantom.Registry. Other goroutines reach
// it only through Do, which runs a function between control cycles.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gwillem/phantom/pkg/phantom"
	"github.com/gwillem/phantom/pkg/robot"
	"github.com/gwillem/phantom/pkg/route"
)

// Leader is the arm moved by hand.
type Leader interface {
	ReadPositions(ctx context.Context) (map[robot.MotorName]float64, error)
	Disable(ctx context.Context) error
}

// Follower is the arm driven by the controller.
type Follower interface {
	WritePositions(ctx context.Context, positions map[robot.MotorName]float64) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// State is published after every control cycle.
type State struct {
	Positions map[robot.MotorName]float64
	Buttons   [route.DigitalChannels]bool
	Mode      phantom.State
	Route     string
	// Index is the playback timeline index, or -1 outside playback.
	Index int
	// Recorded is true when this cycle appended a sample.
	Recorded  bool
	Timestamp time.Time
	Error     error
}

// Config holds configuration for the controller.
type Config struct {
	Registry *phantom.Registry
	// Leader may be nil when only replaying.
	Leader Leader
	// Follower may be nil when only recording.
	Follower Follower
	Hz       int
	Mirror   bool // Invert positions for shoulder_pan (servo 1) and wrist_roll (servo 5)
	Logger   *slog.Logger
}

type request struct {
	fn    func(c *Controller) error
	reply chan error
}

// Controller manages the teleoperation control loop.
type Controller struct {
	reg      *phantom.Registry
	leader   Leader
	follower Follower
	hz       int
	mirror   bool
	logger   *slog.Logger

	buttons  [route.DigitalChannels]bool
	requests chan request
	stateCh  chan State
}

// NewController creates a new teleoperation controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Registry == nil {
		return nil, errors.New("teleop: registry is required")
	}
	if cfg.Leader == nil && cfg.Follower == nil {
		return nil, errors.New("teleop: need a leader or a follower arm")
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		reg:      cfg.Registry,
		leader:   cfg.Leader,
		follower: cfg.Follower,
		hz:       cfg.Hz,
		mirror:   cfg.Mirror,
		logger:   cfg.Logger,
		requests: make(chan request),
		stateCh:  make(chan State, 1),
	}, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Do runs fn against the registry on the control loop goroutine and
// returns its error. It blocks until the loop picks the request up or ctx
// ends.
func (c *Controller) Do(ctx context.Context, fn func(reg *phantom.Registry) error) error {
	return c.call(ctx, func(c *Controller) error { return fn(c.reg) })
}

// Live reports that registry operations run between control cycles.
func (c *Controller) Live() bool { return true }

// ToggleButton flips digital channel ch of the live input.
func (c *Controller) ToggleButton(ctx context.Context, ch int) error {
	if ch < 0 || ch >= route.DigitalChannels {
		return fmt.Errorf("button %d: %w", ch, route.ErrInvalidArgument)
	}
	return c.call(ctx, func(c *Controller) error {
		c.buttons[ch] = !c.buttons[ch]
		return nil
	})
}

func (c *Controller) call(ctx context.Context, fn func(c *Controller) error) error {
	req := request{fn: fn, reply: make(chan error, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the control loop until ctx ends. A recording in progress is
// ended and saved on the way out.
func (c *Controller) Start(ctx context.Context) error {
	if c.leader != nil {
		if err := c.leader.Disable(ctx); err != nil {
			c.logger.Warn("failed to disable leader", "error", err)
		} else {
			c.logger.Info("leader arm torque disabled (passive mode)")
		}
	}
	if c.follower != nil {
		if err := c.follower.Enable(ctx); err != nil {
			c.logger.Warn("failed to enable follower", "error", err)
		} else {
			c.logger.Info("follower arm torque enabled")
		}
	}

	c.logger.Info("control loop started", "hz", c.hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case req := <-c.requests:
			req.reply <- req.fn(c)
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) step(ctx context.Context) {
	state := State{Index: -1, Timestamp: time.Now()}
	state.Route, _ = c.reg.Active()

	var positions map[robot.MotorName]float64
	if c.reg.State() == phantom.Playing {
		positions = c.replay(&state)
	} else {
		var err error
		positions, err = c.teleoperate(ctx, &state)
		if err != nil {
			c.logger.Warn("read error", "error", err)
			state.Error = err
			state.Mode = c.reg.State()
			c.sendState(state)
			return
		}
	}

	if c.follower != nil && positions != nil {
		if err := c.follower.WritePositions(ctx, c.mirrored(positions)); err != nil {
			c.logger.Warn("write error", "error", err)
			state.Error = err
		}
	}

	state.Positions = positions
	state.Mode = c.reg.State()
	c.sendState(state)
}

// teleoperate reads the leader and, while recording, feeds the reading to
// the registry.
func (c *Controller) teleoperate(ctx context.Context, state *State) (map[robot.MotorName]float64, error) {
	state.Buttons = c.buttons
	if c.leader == nil {
		return nil, nil
	}
	positions, err := c.leader.ReadPositions(ctx)
	if err != nil {
		return nil, err
	}

	snap := robot.SnapshotFromPositions(positions, c.buttons)
	recorded, err := c.reg.RecordTick(snap)
	if err != nil {
		return nil, err
	}
	state.Recorded = recorded
	return positions, nil
}

// replay reads the active route at the current playback time. When the
// route runs out the registry drops back to idle and nil is returned so
// the follower holds its last position.
func (c *Controller) replay(state *State) map[robot.MotorName]float64 {
	state.Index = c.reg.PlaybackIndex()

	var snap robot.Snapshot
	for ch := range route.AnalogChannels {
		snap.Axes[ch] = c.reg.Axis(ch)
	}
	for ch := range route.DigitalChannels {
		snap.Buttons[ch] = c.reg.Button(ch)
	}
	state.Buttons = snap.Buttons

	if c.reg.State() != phantom.Playing {
		c.logger.Info("playback finished", "route", state.Route)
		state.Index = -1
		return nil
	}
	return snap.Positions()
}

// mirrored inverts shoulder_pan and wrist_roll when mirroring is enabled.
func (c *Controller) mirrored(positions map[robot.MotorName]float64) map[robot.MotorName]float64 {
	if !c.mirror {
		return positions
	}
	out := make(map[robot.MotorName]float64, len(positions))
	for name, pos := range positions {
		if name == robot.ShoulderPan || name == robot.WristRoll {
			out[name] = -pos
		} else {
			out[name] = pos
		}
	}
	return out
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	if err := c.reg.EndRecording(); err != nil {
		c.logger.Error("failed to save recording", "error", err)
	}
	c.reg.EndPlayback()

	if c.follower != nil {
		if err := c.follower.Disable(context.Background()); err != nil {
			c.logger.Warn("failed to disable follower", "error", err)
		} else {
			c.logger.Info("follower arm torque disabled")
		}
	}
	c.logger.Info("control loop stopped")
}
