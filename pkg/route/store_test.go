package route

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a time source that advances only when told to.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func newTestStore(t *testing.T, dir string) (*Store, *fixedClock) {
	t.Helper()
	clk := &fixedClock{t: time.UnixMilli(1_700_000_000_123)}
	s, err := Create(dir, NewIdentity("Napalm Bot", "Left Side", "Driver", 1),
		Metadata{Description: "baseline to high goal", TimeSpacing: 100}, WithClock(clk.now))
	require.NoError(t, err)
	return s, clk
}

func fill(s *Store, samples int) {
	for i := range samples {
		for ch := range AnalogChannels {
			s.AppendAnalog(ch, float64(i)+float64(ch)/10, 100+i)
		}
		for ch := range DigitalChannels {
			s.AppendDigital(ch, (i+ch)%2 == 0, 100+i)
		}
	}
}

func TestCreate_NewRoute(t *testing.T) {
	dir := t.TempDir()
	s, clk := newTestStore(t, dir)

	assert.Equal(t, "napalm_bot_driver_left_side", s.Name())
	assert.Equal(t, filepath.Join(dir, "napalm_bot_driver_left_side.route"), s.Path())
	assert.Equal(t, 100, s.TimeSpacing())
	assert.Equal(t, clk.t.UnixMilli(), s.LastModified().UnixMilli())
	assert.True(t, s.IsEmpty())

	_, err := os.Stat(s.Path())
	assert.ErrorIs(t, err, os.ErrNotExist, "create must not persist")
}

func TestCreate_ClampsTimeSpacing(t *testing.T) {
	s, err := Create(t.TempDir(), NewIdentity("bot", "x", "", 1), Metadata{TimeSpacing: 5})
	require.NoError(t, err)
	assert.Equal(t, MinTimeSpacing, s.TimeSpacing())
}

func TestCreate_RequiresRobotAndTitle(t *testing.T) {
	_, err := Create(t.TempDir(), NewIdentity("", "x", "", 1), Metadata{TimeSpacing: 100})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCreate_LoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	s, _ := newTestStore(t, dir)
	fill(s, 3)
	require.NoError(t, s.Save())

	again, err := Create(dir, NewIdentity("napalm bot", "left side", "driver", 1),
		Metadata{Description: "ignored", TimeSpacing: 500})
	require.NoError(t, err)

	assert.Equal(t, "baseline to high goal", again.Description())
	assert.Equal(t, 100, again.TimeSpacing())
	assert.Equal(t, 3, again.AnalogLen(0))
}

func TestCreate_RejectsMismatchedFile(t *testing.T) {
	dir := t.TempDir()
	other, err := Create(dir, NewIdentity("bot", "y", "", 1), Metadata{TimeSpacing: 100})
	require.NoError(t, err)
	require.NoError(t, other.Save())
	require.NoError(t, os.Rename(other.Path(), filepath.Join(dir, "bot_x."+Extension)))

	_, err = Create(dir, NewIdentity("bot", "x", "", 1), Metadata{TimeSpacing: 100})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, _ := newTestStore(t, dir)
	fill(s, 7)
	require.NoError(t, s.Save())
	require.NoError(t, s.Save(), "save must be repeatable")

	loaded, err := Load(s.Path())
	require.NoError(t, err)
	assert.Equal(t, s.Data(), loaded.Data())
	assert.Equal(t, s.Name(), loaded.Name())
	assert.Equal(t, s.LastModified().UnixMilli(), loaded.LastModified().UnixMilli())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.route"))
	assert.ErrorIs(t, err, ErrNotFound)

	bad := filepath.Join(dir, "bad.route")
	require.NoError(t, os.WriteFile(bad, []byte(`{"robot": "bot", "title": `), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	s, clk := newTestStore(t, dir)
	fill(s, 2)
	before := s.Data()

	clk.t = clk.t.Add(time.Minute)
	c := s.Copy()

	assert.Equal(t, 2, c.Identity().Version)
	assert.Equal(t, "napalm_bot_driver_left_side_v2", c.Name())
	assert.Equal(t, filepath.Join(dir, "napalm_bot_driver_left_side_v2.route"), c.Path())
	assert.Equal(t, s.Description(), c.Description())
	assert.Equal(t, s.Identity().Role, c.Identity().Role)
	assert.Equal(t, clk.t.UnixMilli(), c.LastModified().UnixMilli())
	assert.Equal(t, 2, c.AnalogLen(3))

	c.AppendAnalog(0, 9, 100)
	assert.Equal(t, before, s.Data(), "source must be unmodified")

	_, err := os.Stat(c.Path())
	assert.ErrorIs(t, err, os.ErrNotExist, "copy must not persist")
}

func TestClear(t *testing.T) {
	s, clk := newTestStore(t, t.TempDir())
	fill(s, 4)
	require.False(t, s.IsEmpty())

	clk.t = clk.t.Add(time.Second)
	s.Clear()

	assert.True(t, s.IsEmpty())
	assert.Equal(t, clk.t.UnixMilli(), s.LastModified().UnixMilli())
	assert.Equal(t, "napalm_bot_driver_left_side", s.Name())
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t, t.TempDir())
	require.NoError(t, s.Save())
	require.NoError(t, s.Delete())

	_, err := os.Stat(s.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, s.Save(), ErrInvalidState)
}

func TestDelete_MissingFile(t *testing.T) {
	s, _ := newTestStore(t, t.TempDir())
	assert.ErrorIs(t, s.Delete(), ErrNotFound)
}

func TestSetSample(t *testing.T) {
	s, _ := newTestStore(t, t.TempDir())
	fill(s, 2)

	require.NoError(t, s.SetAnalog(1, 1, -0.5))
	require.NoError(t, s.SetDigital(9, 0, true))
	require.NoError(t, s.SetAnalogSpacing(1, 1, 42))
	require.NoError(t, s.SetDigitalSpacing(9, 0, 43))

	v, ok := s.AnalogAt(1, 1)
	assert.True(t, ok)
	assert.Equal(t, -0.5, v)
	b, ok := s.DigitalAt(9, 0)
	assert.True(t, ok)
	assert.True(t, b)
	assert.Equal(t, 42, s.AnalogSpacing(1)[1])
	assert.Equal(t, 43, s.DigitalSpacing(9)[0])

	assert.ErrorIs(t, s.SetAnalog(1, 2, 0), ErrInvalidArgument)
}

func TestChannelIndexPanics(t *testing.T) {
	s, _ := newTestStore(t, t.TempDir())
	assert.Panics(t, func() { s.AppendAnalog(AnalogChannels, 0, 0) })
	assert.Panics(t, func() { s.DigitalAt(-1, 0) })
}

func TestOverview(t *testing.T) {
	s, _ := newTestStore(t, t.TempDir())
	out := s.Overview()

	assert.Contains(t, out, `"napalm_bot_driver_left_side" (v1)`)
	assert.Contains(t, out, `Description: "baseline to high goal"`)
	assert.Contains(t, out, "Saved at "+s.Path())
	assert.Contains(t, out, "Time Spacing: 100ms")

	assert.NotContains(t, s.Copy().Overview(), "(v1)")
}
