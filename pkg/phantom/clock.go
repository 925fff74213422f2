package phantom

import "time"

// Clock abstracts the wall clock so sessions can be driven deterministically
// in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock returns a Clock backed by time.Now.
func RealClock() Clock { return realClock{} }

// sessionClock measures time since the last reset while running. A stopped
// clock reads zero.
type sessionClock struct {
	clock   Clock
	start   time.Time
	running bool
}

func (c *sessionClock) restart() {
	c.start = c.clock.Now()
	c.running = true
}

func (c *sessionClock) reset() {
	c.start = c.clock.Now()
}

func (c *sessionClock) stop() {
	c.running = false
	c.start = time.Time{}
}

func (c *sessionClock) elapsed() time.Duration {
	if !c.running {
		return 0
	}
	return c.clock.Now().Sub(c.start)
}

// TimeIndex quantizes elapsed session time into a timeline index by
// truncating elapsed/spacing. With 100ms spacing, 127ms maps to index 1.
func TimeIndex(elapsed time.Duration, spacingMs int) int {
	if spacingMs <= 0 || elapsed < 0 {
		return 0
	}
	return int(elapsed.Milliseconds() / int64(spacingMs))
}
