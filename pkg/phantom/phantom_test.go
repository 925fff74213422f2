package phantom

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/phantom/pkg/route"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) AdvanceMs(ms int)        { c.Advance(time.Duration(ms) * time.Millisecond) }

type fakeInput struct {
	axes    [route.AnalogChannels]float64
	buttons [route.DigitalChannels]bool
}

func (in *fakeInput) Axis(ch int) float64 { return in.axes[ch] }
func (in *fakeInput) Button(ch int) bool  { return in.buttons[ch] }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRegistry(t *testing.T, dir string) (*Registry, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	r, err := New(Config{SearchRoot: dir, SaveFolder: dir, Clock: clk, Logger: quietLogger()})
	require.NoError(t, err)
	return r, clk
}

// newActiveRegistry returns a registry with one active, empty route at
// 100ms spacing.
func newActiveRegistry(t *testing.T) (*Registry, *fakeClock, string) {
	t.Helper()
	dir := t.TempDir()
	r, clk := newRegistry(t, dir)
	name, err := r.Create("Left Side", "Napalm Bot", "baseline run", "Driver", 100)
	require.NoError(t, err)
	require.NoError(t, r.SetActive(name))
	return r, clk, name
}

// record appends n samples, the i-th with axis 0 = i and button 0 = i%2==0.
func record(t *testing.T, r *Registry, clk *fakeClock, n int) {
	t.Helper()
	in := &fakeInput{}
	require.NoError(t, r.BeginRecording(true))
	for i := range n {
		in.axes[0] = float64(i)
		in.buttons[0] = i%2 == 0
		clk.AdvanceMs(100)
		ok, err := r.RecordTick(in)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, r.EndRecording())
}

func TestTimeIndex(t *testing.T) {
	tests := []struct {
		elapsedMs int
		want      int
	}{
		{127, 1},
		{1000, 10},
		{99, 0},
		{0, 0},
		{-5, 0},
	}
	for _, tt := range tests {
		got := TimeIndex(time.Duration(tt.elapsedMs)*time.Millisecond, 100)
		assert.Equal(t, tt.want, got, "elapsed %dms", tt.elapsedMs)
	}
	assert.Equal(t, 0, TimeIndex(time.Second, 0))
}

func TestRecordTick_Gate(t *testing.T) {
	r, clk, name := newActiveRegistry(t)
	in := &fakeInput{}
	in.axes[2] = 0.75
	in.buttons[9] = true

	require.NoError(t, r.BeginRecording(false))
	assert.Equal(t, Recording, r.State())

	clk.AdvanceMs(50)
	ok, err := r.RecordTick(in)
	require.NoError(t, err)
	assert.False(t, ok)
	empty, err := r.IsEmpty(name)
	require.NoError(t, err)
	assert.True(t, empty)

	clk.AdvanceMs(51)
	ok, err = r.RecordTick(in)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := r.Data(name)
	require.NoError(t, err)
	for ch := range route.AnalogChannels {
		assert.Len(t, data.Analog[ch], 1)
		assert.Equal(t, []int{101}, data.AnalogSpacing[ch])
	}
	for ch := range route.DigitalChannels {
		assert.Len(t, data.Digital[ch], 1)
		assert.Equal(t, []int{101}, data.DigitalSpacing[ch])
	}
	assert.Equal(t, 0.75, data.Analog[2][0])
	assert.True(t, data.Digital[9][0])

	// The accumulator restarts after a sample.
	clk.AdvanceMs(50)
	ok, err = r.RecordTick(in)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordTick_OutsideRecording(t *testing.T) {
	r, clk, name := newActiveRegistry(t)
	clk.AdvanceMs(500)
	ok, err := r.RecordTick(&fakeInput{})
	require.NoError(t, err)
	assert.False(t, ok)

	empty, _ := r.IsEmpty(name)
	assert.True(t, empty)
}

func TestEndRecording_Saves(t *testing.T) {
	r, clk, name := newActiveRegistry(t)
	record(t, r, clk, 3)
	assert.Equal(t, Idle, r.State())

	data, err := r.Data(name)
	require.NoError(t, err)

	loaded, err := route.Load(mustPath(t, r, name))
	require.NoError(t, err)
	assert.Equal(t, data, loaded.Data())
	assert.Equal(t, []float64{0, 1, 2}, loaded.Analog(0))
}

func mustPath(t *testing.T, r *Registry, name string) string {
	t.Helper()
	s, err := r.lookup(name)
	require.NoError(t, err)
	return s.Path()
}

func TestBeginRecording_ResetClears(t *testing.T) {
	r, clk, name := newActiveRegistry(t)
	record(t, r, clk, 3)

	require.NoError(t, r.BeginRecording(false))
	data, _ := r.Data(name)
	assert.Len(t, data.Analog[0], 3, "append mode keeps samples")
	require.NoError(t, r.EndRecording())

	require.NoError(t, r.BeginRecording(true))
	empty, _ := r.IsEmpty(name)
	assert.True(t, empty)
}

func TestPlayback(t *testing.T) {
	r, clk, _ := newActiveRegistry(t)
	record(t, r, clk, 5)

	require.NoError(t, r.BeginPlayback())
	assert.Equal(t, Playing, r.State())
	assert.Equal(t, 0.0, r.Axis(0))
	assert.True(t, r.Button(0))

	clk.AdvanceMs(127)
	assert.Equal(t, 1, r.PlaybackIndex())
	assert.Equal(t, 1.0, r.Axis(0))
	assert.False(t, r.Button(0))

	clk.AdvanceMs(372) // 499ms, index 4
	assert.Equal(t, 4.0, r.Axis(0))
	assert.Equal(t, Playing, r.State())
}

func TestPlayback_StopsPastEnd(t *testing.T) {
	r, clk, _ := newActiveRegistry(t)
	record(t, r, clk, 5)

	require.NoError(t, r.BeginPlayback())
	clk.AdvanceMs(500) // index 5 on a 5-sample timeline

	assert.Equal(t, 0.0, r.Axis(0))
	assert.Equal(t, Idle, r.State())
	assert.Equal(t, -1, r.PlaybackIndex())

	// Further reads keep returning defaults until playback restarts.
	assert.False(t, r.Button(0))
	assert.Equal(t, 0.0, r.Axis(3))

	require.NoError(t, r.BeginPlayback())
	assert.Equal(t, 0.0, r.Axis(0))
	assert.True(t, r.Button(0))
}

func TestPlayback_EmptyRouteStopsImmediately(t *testing.T) {
	r, _, _ := newActiveRegistry(t)
	require.NoError(t, r.BeginPlayback())
	assert.False(t, r.Button(4))
	assert.Equal(t, Idle, r.State())
}

func TestStateExclusivity(t *testing.T) {
	r, clk, name := newActiveRegistry(t)
	record(t, r, clk, 2)
	before, _ := r.Data(name)

	require.NoError(t, r.BeginPlayback())
	err := r.BeginRecording(true)
	assert.ErrorIs(t, err, route.ErrInvalidState)
	assert.Equal(t, Playing, r.State())
	after, _ := r.Data(name)
	assert.Equal(t, before, after)

	assert.ErrorIs(t, r.SetActive(name), route.ErrInvalidState)
	assert.ErrorIs(t, r.ClearActive(), route.ErrInvalidState)
	assert.ErrorIs(t, r.Delete(name), route.ErrInvalidState)
	r.EndPlayback()

	require.NoError(t, r.BeginRecording(false))
	assert.ErrorIs(t, r.BeginPlayback(), route.ErrInvalidState)
	assert.Equal(t, Recording, r.State())

	// Ending the other kind of session is a no-op.
	r.EndPlayback()
	assert.Equal(t, Recording, r.State())
	require.NoError(t, r.EndRecording())
	require.NoError(t, r.EndRecording())
	assert.Equal(t, Idle, r.State())
}

func TestNoActiveRoute(t *testing.T) {
	r, _ := newRegistry(t, t.TempDir())

	_, err := r.Active()
	assert.ErrorIs(t, err, route.ErrNotFound)
	assert.ErrorIs(t, r.BeginRecording(false), route.ErrNotFound)
	assert.ErrorIs(t, r.BeginPlayback(), route.ErrNotFound)
	assert.ErrorIs(t, r.SetActive("nope"), route.ErrNotFound)
	assert.Equal(t, Idle, r.State())
}

func TestChannelOutOfRangePanics(t *testing.T) {
	r, _, _ := newActiveRegistry(t)
	assert.Panics(t, func() { r.Axis(route.AnalogChannels) })
	assert.Panics(t, func() { r.Button(-1) })
}

func TestCreate_Idempotent(t *testing.T) {
	r, _, name := newActiveRegistry(t)
	again, err := r.Create("left side", "napalm bot", "other", "driver", 300)
	require.NoError(t, err)
	assert.Equal(t, name, again)
	assert.Equal(t, 1, r.Len())

	data, _ := r.Data(name)
	assert.Equal(t, 100, data.TimeSpacing)
}

func TestCreate_KeepsRegisteredRoute(t *testing.T) {
	root := t.TempDir()
	search, save := filepath.Join(root, "search"), filepath.Join(root, "save")

	y, err := route.Create(search, route.NewIdentity("bot", "y", "", 1), route.Metadata{TimeSpacing: 100})
	require.NoError(t, err)
	require.NoError(t, y.Save())
	// bot_x.route in the save folder actually holds bot_y.
	stray, err := route.Create(save, route.NewIdentity("bot", "y", "", 1), route.Metadata{TimeSpacing: 100})
	require.NoError(t, err)
	require.NoError(t, stray.Save())
	require.NoError(t, os.Rename(stray.Path(), filepath.Join(save, "bot_x."+route.Extension)))

	r, err := New(Config{SearchRoot: search, SaveFolder: save, Logger: quietLogger()})
	require.NoError(t, err)
	before := mustPath(t, r, "bot_y")

	_, err = r.Create("x", "bot", "", "", 100)
	assert.ErrorIs(t, err, route.ErrDecode)
	assert.Equal(t, []string{"bot_y"}, r.Names())
	assert.Equal(t, before, mustPath(t, r, "bot_y"))
}

func TestDump(t *testing.T) {
	r, clk, name := newActiveRegistry(t)
	record(t, r, clk, 2)

	out, err := r.Dump(name)
	require.NoError(t, err)
	assert.Contains(t, out, "analog 0: [0 1]")
	assert.Contains(t, out, "analog 0 spacing: [100 100]")
	assert.Contains(t, out, "digital 0: [true false]")

	_, err = r.Dump("missing")
	assert.ErrorIs(t, err, route.ErrNotFound)
}

func TestCopy(t *testing.T) {
	r, clk, name := newActiveRegistry(t)
	record(t, r, clk, 2)

	copied, err := r.Copy(name)
	require.NoError(t, err)
	assert.Equal(t, "napalm_bot_driver_left_side_v2", copied)
	assert.Equal(t, []string{name, copied}, r.Names())

	src, _ := r.Data(name)
	dst, _ := r.Data(copied)
	assert.Equal(t, 1, src.Version)
	assert.Equal(t, 2, dst.Version)
	assert.Equal(t, src.Description, dst.Description)
	assert.Equal(t, src.Analog, dst.Analog)

	_, err = r.Copy(name)
	assert.ErrorIs(t, err, route.ErrInvalidArgument)

	_, err = r.Copy("missing")
	assert.ErrorIs(t, err, route.ErrNotFound)
}

func TestDelete(t *testing.T) {
	r, clk, name := newActiveRegistry(t)
	record(t, r, clk, 1)
	path := mustPath(t, r, name)

	require.NoError(t, r.Delete(name))
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 0, r.Len())

	_, err = r.Active()
	assert.ErrorIs(t, err, route.ErrNotFound)
	assert.ErrorIs(t, r.Delete(name), route.ErrNotFound)
}

func TestDelete_UnsavedRoute(t *testing.T) {
	r, _, name := newActiveRegistry(t)
	require.NoError(t, r.Delete(name))
	assert.Equal(t, 0, r.Len())
}

func TestNew_DiscoversRoutes(t *testing.T) {
	dir := t.TempDir()
	for _, title := range []string{"a", "b"} {
		s, err := route.Create(filepath.Join(dir, "nested"), route.NewIdentity("bot", title, "", 1),
			route.Metadata{TimeSpacing: 50})
		require.NoError(t, err)
		require.NoError(t, s.Save())
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.route"), []byte("[]"), 0o644))

	r, err := New(Config{SearchRoot: dir, SaveFolder: dir, Logger: quietLogger()})
	assert.ErrorIs(t, err, route.ErrDecode)
	require.NotNil(t, r)
	assert.Equal(t, []string{"bot_a", "bot_b"}, r.Names())

	name, err := r.NameAt(1)
	require.NoError(t, err)
	assert.Equal(t, "bot_b", name)
	_, err = r.NameAt(2)
	assert.ErrorIs(t, err, route.ErrNotFound)
}

func TestSaveAllAndClearActive(t *testing.T) {
	r, clk, name := newActiveRegistry(t)
	other, err := r.Create("right", "napalm bot", "", "", 100)
	require.NoError(t, err)
	record(t, r, clk, 2)

	require.NoError(t, r.SaveAll())
	_, err = os.Stat(mustPath(t, r, other))
	require.NoError(t, err)

	require.NoError(t, r.ClearActive())
	loaded, err := route.Load(mustPath(t, r, name))
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}

func TestOverviews(t *testing.T) {
	r, _, name := newActiveRegistry(t)
	out := r.Overviews()
	assert.Contains(t, out, "# Phantom Routes #")
	assert.Contains(t, out, "| #0")
	assert.Contains(t, out, name)

	one, err := r.Overview(name)
	require.NoError(t, err)
	assert.Contains(t, out, one)
}
