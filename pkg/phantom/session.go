package phantom

import (
	"fmt"
	"time"

	"github.com/gwillem/phantom/pkg/route"
)

// BeginRecording starts recording into the active route, clearing its
// timelines first when reset is true.
func (r *Registry) BeginRecording(reset bool) error {
	if r.state != Idle {
		return fmt.Errorf("begin recording while %s: %w", r.state, route.ErrInvalidState)
	}
	s, err := r.activeStore()
	if err != nil {
		return err
	}
	if reset {
		s.Clear()
	}
	r.session.restart()
	r.state = Recording
	r.logger.Info("recording started", "route", s.Name(), "reset", reset)
	return nil
}

// RecordTick samples in once the route's time spacing has elapsed since the
// previous sample. It reports whether a sample was appended. Calls outside a
// recording do nothing.
func (r *Registry) RecordTick(in Input) (bool, error) {
	if r.state != Recording {
		return false, nil
	}
	s, err := r.activeStore()
	if err != nil {
		return false, err
	}

	elapsed := r.session.elapsed()
	if TimeIndex(elapsed, s.TimeSpacing()) < 1 {
		return false, nil
	}

	spacing := int(elapsed.Milliseconds())
	for ch := range route.AnalogChannels {
		s.AppendAnalog(ch, in.Axis(ch), spacing)
	}
	for ch := range route.DigitalChannels {
		s.AppendDigital(ch, in.Button(ch), spacing)
	}
	r.session.reset()
	r.logger.Debug("recorded sample", "route", s.Name(), "spacing_ms", spacing)
	return true, nil
}

// EndRecording stops recording and saves the active route. It does nothing
// when not recording.
func (r *Registry) EndRecording() error {
	if r.state != Recording {
		return nil
	}
	r.session.stop()
	r.state = Idle

	s, err := r.activeStore()
	if err != nil {
		return err
	}
	r.logger.Info("recording stopped", "route", s.Name(), "samples", s.AnalogLen(0))
	return s.Save()
}

// BeginPlayback starts replaying the active route from its first sample.
func (r *Registry) BeginPlayback() error {
	if r.state != Idle {
		return fmt.Errorf("begin playback while %s: %w", r.state, route.ErrInvalidState)
	}
	s, err := r.activeStore()
	if err != nil {
		return err
	}
	r.session.restart()
	r.state = Playing
	r.logger.Info("playback started", "route", s.Name())
	return nil
}

// EndPlayback stops playback. It does nothing when not playing.
func (r *Registry) EndPlayback() {
	if r.state != Playing {
		return
	}
	elapsed := r.session.elapsed()
	r.session.stop()
	r.state = Idle

	if s, err := r.activeStore(); err == nil {
		expected := time.Duration(s.TimeSpacing()*s.AnalogLen(0)) * time.Millisecond
		r.logger.Info("playback stopped", "route", s.Name(), "elapsed", elapsed, "expected", expected)
	}
}

// PlaybackIndex returns the timeline index playback reads at this instant,
// or -1 when not playing.
func (r *Registry) PlaybackIndex() int {
	if r.state != Playing {
		return -1
	}
	s, err := r.activeStore()
	if err != nil {
		return -1
	}
	return TimeIndex(r.session.elapsed(), s.TimeSpacing())
}

// Axis returns the recorded value of analog channel ch at the current
// playback time. Running past the end of the channel stops playback. Outside
// playback it returns 0.
func (r *Registry) Axis(ch int) float64 {
	checkChannel(ch, route.AnalogChannels, "analog")
	s, ok := r.playing()
	if !ok {
		return 0
	}
	v, ok := s.AnalogAt(ch, TimeIndex(r.session.elapsed(), s.TimeSpacing()))
	if !ok {
		r.EndPlayback()
		return 0
	}
	return v
}

// Button returns the recorded value of digital channel ch at the current
// playback time. Running past the end of the channel stops playback. Outside
// playback it returns false.
func (r *Registry) Button(ch int) bool {
	checkChannel(ch, route.DigitalChannels, "digital")
	s, ok := r.playing()
	if !ok {
		return false
	}
	v, ok := s.DigitalAt(ch, TimeIndex(r.session.elapsed(), s.TimeSpacing()))
	if !ok {
		r.EndPlayback()
		return false
	}
	return v
}

func (r *Registry) playing() (*route.Store, bool) {
	if r.state != Playing {
		return nil, false
	}
	s, err := r.activeStore()
	if err != nil {
		return nil, false
	}
	return s, true
}

func checkChannel(ch, n int, kind string) {
	if ch < 0 || ch >= n {
		panic(fmt.Sprintf("phantom: %s channel %d out of range [0,%d)", kind, ch, n))
	}
}
