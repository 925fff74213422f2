package console

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/phantom/pkg/phantom"
	"github.com/gwillem/phantom/pkg/route"
)

// ticked stands in for a running control loop.
type ticked struct{ Direct }

func (ticked) Live() bool { return true }

func newTestConsole(t *testing.T) (*Console, *phantom.Registry, *bytes.Buffer, string) {
	t.Helper()
	return newConsoleIn(t, t.TempDir())
}

func newConsoleIn(t *testing.T, dir string) (*Console, *phantom.Registry, *bytes.Buffer, string) {
	t.Helper()
	reg, err := phantom.New(phantom.Config{
		SearchRoot: dir,
		SaveFolder: dir,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	var out bytes.Buffer
	return New(Direct{Registry: reg}, &out, Defaults{Robot: "napalm", TimeSpacing: 100}), reg, &out, dir
}

func exec(t *testing.T, c *Console, line string) {
	t.Helper()
	require.NoError(t, c.Execute(context.Background(), line))
}

func TestSplitArgs(t *testing.T) {
	args, err := splitArgs(`create "left side" napalm "drive forward 12ft"  "" 100`)
	require.NoError(t, err)
	assert.Equal(t, []string{"create", "left side", "napalm", "drive forward 12ft", "", "100"}, args)

	args, err = splitArgs("   ")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = splitArgs(`create "oops`)
	assert.ErrorIs(t, err, route.ErrInvalidArgument)
}

func TestCreateSetGet(t *testing.T) {
	c, reg, out, _ := newTestConsole(t)

	exec(t, c, `create "Left Side" "Napalm Bot" "baseline run" driver 20`)
	assert.Contains(t, out.String(), "Time spacing raised to the 30ms minimum.")
	assert.Contains(t, out.String(), "Created route napalm_bot_driver_left_side.")

	exec(t, c, "create right")
	assert.Equal(t, []string{"napalm_bot_driver_left_side", "napalm_right"}, reg.Names())

	out.Reset()
	exec(t, c, "set 0")
	assert.Equal(t, "Active route is now napalm_bot_driver_left_side.\n", out.String())

	out.Reset()
	exec(t, c, "get")
	assert.Equal(t, "napalm_bot_driver_left_side\n", out.String())

	data, err := reg.Data("napalm_bot_driver_left_side")
	require.NoError(t, err)
	assert.Equal(t, route.MinTimeSpacing, data.TimeSpacing)
}

// savedRoute writes napalm_left with n samples on analog channel 0.
func savedRoute(t *testing.T, dir string, n int) string {
	t.Helper()
	s, err := route.Create(dir, route.NewIdentity("napalm", "left", "", 1), route.Metadata{TimeSpacing: 100})
	require.NoError(t, err)
	for range n {
		s.AppendAnalog(0, 0.5, 100)
	}
	require.NoError(t, s.Save())
	return s.Path()
}

func TestRecordToggleAndSave(t *testing.T) {
	c, reg, out, dir := newTestConsole(t)
	c.exec = ticked{Direct{Registry: reg}}
	exec(t, c, "create pick")

	exec(t, c, "record")
	assert.Equal(t, phantom.Recording, reg.State())
	exec(t, c, "record")
	assert.Equal(t, phantom.Idle, reg.State())
	assert.Contains(t, out.String(), "Recording stopped and saved.")
	assert.FileExists(t, filepath.Join(dir, "napalm_pick.route"))

	err := c.Execute(context.Background(), "record stop")
	assert.ErrorIs(t, err, route.ErrInvalidState)

	exec(t, c, "play start")
	assert.Equal(t, phantom.Playing, reg.State())
	err = c.Execute(context.Background(), "record start")
	assert.ErrorIs(t, err, route.ErrInvalidState)
	assert.Equal(t, phantom.Playing, reg.State())
	exec(t, c, "play")
	assert.Equal(t, phantom.Idle, reg.State())
}

func TestRecordAndPlayNeedLoop(t *testing.T) {
	dir := t.TempDir()
	path := savedRoute(t, dir, 5)
	c, reg, _, _ := newConsoleIn(t, dir)
	ctx := context.Background()
	exec(t, c, "set napalm_left")

	for _, line := range []string{"record start", "record append", "record", "play start", "play"} {
		err := c.Execute(ctx, line)
		assert.ErrorIs(t, err, route.ErrInvalidState, line)
		assert.Contains(t, Message(err), "--arms", line)
		assert.Equal(t, phantom.Idle, reg.State(), line)
	}
	assert.ErrorIs(t, c.Execute(ctx, "record stop"), route.ErrInvalidState)

	loaded, err := route.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.AnalogLen(0))
}

func TestDumpAndClear(t *testing.T) {
	dir := t.TempDir()
	path := savedRoute(t, dir, 2)
	c, _, out, _ := newConsoleIn(t, dir)
	exec(t, c, "set napalm_left")

	out.Reset()
	exec(t, c, "dump")
	assert.True(t, strings.HasPrefix(out.String(), `| "napalm_left" (v1)`))
	assert.Contains(t, out.String(), "analog 0: [0.5 0.5]")

	out.Reset()
	exec(t, c, "dump napalm_left")
	assert.Contains(t, out.String(), "analog 0 spacing: [100 100]")

	exec(t, c, "clear")
	loaded, err := route.Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())

	assert.ErrorIs(t, c.Execute(context.Background(), "dump missing"), route.ErrNotFound)
}

func TestCreateAndCopyRefusedDuringSession(t *testing.T) {
	c, reg, _, _ := newTestConsole(t)
	c.exec = ticked{Direct{Registry: reg}}
	ctx := context.Background()
	exec(t, c, "create pick")
	exec(t, c, "record start")

	assert.ErrorIs(t, c.Execute(ctx, "create other"), route.ErrInvalidState)
	assert.ErrorIs(t, c.Execute(ctx, "copy"), route.ErrInvalidState)
	assert.ErrorIs(t, c.Execute(ctx, "clear"), route.ErrInvalidState)
	assert.Equal(t, []string{"napalm_pick"}, reg.Names())

	active, err := reg.Active()
	require.NoError(t, err)
	assert.Equal(t, "napalm_pick", active)
}

func TestCopyDeleteOverview(t *testing.T) {
	c, reg, out, dir := newTestConsole(t)
	exec(t, c, "create pick")
	exec(t, c, "save")
	exec(t, c, "copy")
	assert.Contains(t, out.String(), "Copied route napalm_pick to route napalm_pick_v2.")

	active, err := reg.Active()
	require.NoError(t, err)
	assert.Equal(t, "napalm_pick_v2", active)

	exec(t, c, "save all")
	assert.FileExists(t, filepath.Join(dir, "napalm_pick_v2.route"))

	out.Reset()
	exec(t, c, "overview")
	assert.Contains(t, out.String(), "| #1")
	assert.Contains(t, out.String(), `"napalm_pick" (v1)`)

	out.Reset()
	exec(t, c, "overview napalm_pick_v2")
	assert.True(t, strings.HasPrefix(out.String(), `| "napalm_pick_v2"`))

	exec(t, c, "delete napalm_pick")
	_, err = os.Stat(filepath.Join(dir, "napalm_pick.route"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	exec(t, c, "delete")
	assert.Equal(t, 0, reg.Len())

	out.Reset()
	exec(t, c, "overview all")
	assert.Contains(t, out.String(), "No routes found.")
}

func TestErrors(t *testing.T) {
	c, _, _, _ := newTestConsole(t)
	ctx := context.Background()

	err := c.Execute(ctx, "launch")
	assert.ErrorIs(t, err, errUnknownCommand)
	assert.Contains(t, Message(err), "Type 'help'")

	err = c.Execute(ctx, "get")
	assert.ErrorIs(t, err, route.ErrNotFound)
	assert.True(t, strings.HasPrefix(Message(err), "Not found: "))

	err = c.Execute(ctx, "set 4")
	assert.ErrorIs(t, err, route.ErrNotFound)

	err = c.Execute(ctx, "create x bot desc role fast")
	assert.ErrorIs(t, err, route.ErrInvalidArgument)
	assert.True(t, strings.HasPrefix(Message(err), "Bad argument: "))

	err = c.Execute(ctx, "get extra")
	assert.ErrorIs(t, err, route.ErrInvalidArgument)

	assert.ErrorIs(t, c.Execute(ctx, "exit"), errExit)
}

func TestHelp(t *testing.T) {
	c, _, out, _ := newTestConsole(t)

	exec(t, c, "help record")
	assert.Contains(t, out.String(), `COMMAND "record"`)
	assert.NotContains(t, out.String(), `COMMAND "save"`)

	out.Reset()
	exec(t, c, "help")
	for _, cmd := range commands {
		assert.Contains(t, out.String(), `COMMAND "`+cmd.name+`"`)
	}
	assert.Contains(t, out.String(), "(NO ARGUMENTS)")
}

func TestRun(t *testing.T) {
	c, reg, out, _ := newTestConsole(t)
	in := strings.NewReader("create pick\nbogus\nget\nexit\ncreate never\n")

	require.NoError(t, c.Run(context.Background(), in))
	assert.Contains(t, out.String(), "'bogus' was not recognized as a command")
	assert.Contains(t, out.String(), "napalm_pick\n")
	assert.Equal(t, 1, reg.Len(), "commands after exit are not run")
}
