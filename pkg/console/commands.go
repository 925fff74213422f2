package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gwillem/phantom/pkg/phantom"
	"github.com/gwillem/phantom/pkg/route"
)

type arg struct {
	name string
	desc string
}

type command struct {
	name    string
	desc    string
	args    []arg
	maxArgs int
	run     func(ctx context.Context, c *Console, args []string) error
}

// commands is the closed command set, in help order.
var commands []command

func init() {
	commands = []command{
		{
			name: "help", desc: "Print the description of a command.", maxArgs: 1,
			args: []arg{{"command", "Name of the command to describe. Blank or 'all' for every command."}},
			run:  runHelp,
		},
		{
			name: "delete", desc: "Delete a route and its file.", maxArgs: 1,
			args: []arg{{"route", "Name of the route to delete. Defaults to the active route."}},
			run:  runDelete,
		},
		{
			name: "set", desc: "Set the active route, then print its name.", maxArgs: 1,
			args: []arg{{"route", "Name of the route, or its number from 'overview'."}},
			run:  runSet,
		},
		{
			name: "get", desc: "Print the name of the active route.",
			run: runGet,
		},
		{
			name: "create", desc: "Create a new route and make it active.", maxArgs: 5,
			args: []arg{
				{"title", "Short title, e.g. \"left side\"."},
				{"robot", "Robot the route is meant for."},
				{"description", "What the route does."},
				{"role", "Operator role, e.g. driver. May be empty (\"\")."},
				{"spacing", "Milliseconds between samples, at least 30."},
			},
			run: runCreate,
		},
		{
			name: "record", desc: "Start or stop recording into the active route.", maxArgs: 1,
			args: []arg{{"start/stop", "'start' clears and records, 'append' records onto the end, 'stop' saves. No argument toggles."}},
			run:  runRecord,
		},
		{
			name: "play", desc: "Start or stop playback of the active route.", maxArgs: 1,
			args: []arg{{"start/stop", "No argument toggles."}},
			run:  runPlay,
		},
		{
			name: "clear", desc: "Erase every sample of the active route and save it.",
			run: runClear,
		},
		{
			name: "overview", desc: "Print route overviews, each with a number usable by 'set'.", maxArgs: 1,
			args: []arg{{"route", "Name of a single route, or 'all' (default)."}},
			run:  runOverview,
		},
		{
			name: "dump", desc: "Print a route's overview followed by every channel's samples.", maxArgs: 1,
			args: []arg{{"route", "Name of the route to dump. Defaults to the active route."}},
			run:  runDump,
		},
		{
			name: "save", desc: "Save the active route.", maxArgs: 1,
			args: []arg{{"all", "Pass 'all' to save every route."}},
			run:  runSave,
		},
		{
			name: "copy", desc: "Copy a route to its next version and make the copy active.", maxArgs: 1,
			args: []arg{{"route", "Name of the route to copy. Defaults to the active route."}},
			run:  runCopy,
		},
		{
			name: "exit", desc: "Stop the console.",
			run: func(context.Context, *Console, []string) error { return errExit },
		},
	}
}

func lookup(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == strings.ToLower(name) {
			return cmd, true
		}
	}
	return command{}, false
}

func (cmd command) help() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "COMMAND %q\n", cmd.name)
	fmt.Fprintf(&sb, "\t%s\n", cmd.desc)
	if len(cmd.args) == 0 {
		sb.WriteString("\t(NO ARGUMENTS)\n")
		return sb.String()
	}
	sb.WriteString("\tARGUMENTS:\n")
	for _, a := range cmd.args {
		fmt.Fprintf(&sb, "\t[%s] - %s\n", a.name, a.desc)
	}
	return sb.String()
}

func runHelp(_ context.Context, c *Console, args []string) error {
	if len(args) == 1 && args[0] != "all" && args[0] != "a" {
		cmd, ok := lookup(args[0])
		if !ok {
			return fmt.Errorf("help %s: %w", args[0], errUnknownCommand)
		}
		c.printf("%s", cmd.help())
		return nil
	}
	for _, cmd := range commands {
		c.printf("%s", cmd.help())
	}
	return nil
}

// target returns args[0] or, without arguments, the active route.
func target(reg *phantom.Registry, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return reg.Active()
}

func runDelete(ctx context.Context, c *Console, args []string) error {
	return c.do(ctx, func(reg *phantom.Registry) error {
		name, err := target(reg, args)
		if err != nil {
			return err
		}
		if err := reg.Delete(name); err != nil {
			return err
		}
		c.printf("Removed route %s.\n", name)
		return nil
	})
}

func runSet(ctx context.Context, c *Console, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("set needs a route name or number: %w", route.ErrInvalidArgument)
	}
	return c.do(ctx, func(reg *phantom.Registry) error {
		name := args[0]
		if n, err := strconv.Atoi(name); err == nil {
			if name, err = reg.NameAt(n); err != nil {
				return err
			}
		}
		if err := reg.SetActive(name); err != nil {
			return err
		}
		c.printf("Active route is now %s.\n", name)
		return nil
	})
}

func runGet(ctx context.Context, c *Console, _ []string) error {
	return c.do(ctx, func(reg *phantom.Registry) error {
		name, err := reg.Active()
		if err != nil {
			return err
		}
		c.printf("%s\n", name)
		return nil
	})
}

func runCreate(ctx context.Context, c *Console, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("create needs a title: %w", route.ErrInvalidArgument)
	}
	title, robot, desc, role := args[0], c.defaults.Robot, "", ""
	spacing := c.defaults.TimeSpacing
	if len(args) > 1 {
		robot = args[1]
	}
	if len(args) > 2 {
		desc = args[2]
	}
	if len(args) > 3 {
		role = args[3]
	}
	if len(args) > 4 {
		n, err := strconv.Atoi(args[4])
		if err != nil {
			return fmt.Errorf("spacing %q is not a number: %w", args[4], route.ErrInvalidArgument)
		}
		spacing = n
	}
	if spacing < route.MinTimeSpacing {
		c.printf("Time spacing raised to the %dms minimum.\n", route.MinTimeSpacing)
	}

	return c.do(ctx, func(reg *phantom.Registry) error {
		// The new route becomes active, which is only allowed when idle.
		if reg.State() != phantom.Idle {
			return fmt.Errorf("create while %s: %w", reg.State(), route.ErrInvalidState)
		}
		name, err := reg.Create(title, robot, desc, role, spacing)
		if err != nil {
			return err
		}
		if err := reg.SetActive(name); err != nil {
			return err
		}
		c.printf("Created route %s. Active route is now %s.\n", name, name)
		return nil
	})
}

func runRecord(ctx context.Context, c *Console, args []string) error {
	mode := "toggle"
	if len(args) == 1 {
		mode = strings.ToLower(args[0])
	}
	return c.do(ctx, func(reg *phantom.Registry) error {
		if mode == "toggle" {
			mode = "start"
			if reg.State() == phantom.Recording {
				mode = "stop"
			}
		}
		switch mode {
		case "start", "append":
			if !c.exec.Live() {
				return errNoLoop
			}
			if err := reg.BeginRecording(mode == "start"); err != nil {
				return err
			}
			c.printf("Recording started.\n")
		case "stop":
			if reg.State() != phantom.Recording {
				return fmt.Errorf("not recording: %w", route.ErrInvalidState)
			}
			if err := reg.EndRecording(); err != nil {
				return err
			}
			c.printf("Recording stopped and saved.\n")
		default:
			return fmt.Errorf("record %s: want start, append or stop: %w", mode, route.ErrInvalidArgument)
		}
		return nil
	})
}

func runPlay(ctx context.Context, c *Console, args []string) error {
	mode := "toggle"
	if len(args) == 1 {
		mode = strings.ToLower(args[0])
	}
	return c.do(ctx, func(reg *phantom.Registry) error {
		if mode == "toggle" {
			mode = "start"
			if reg.State() == phantom.Playing {
				mode = "stop"
			}
		}
		switch mode {
		case "start":
			if !c.exec.Live() {
				return errNoLoop
			}
			if err := reg.BeginPlayback(); err != nil {
				return err
			}
			c.printf("Playback started.\n")
		case "stop":
			reg.EndPlayback()
			c.printf("Playback stopped.\n")
		default:
			return fmt.Errorf("play %s: want start or stop: %w", mode, route.ErrInvalidArgument)
		}
		return nil
	})
}

func runClear(ctx context.Context, c *Console, _ []string) error {
	return c.do(ctx, func(reg *phantom.Registry) error {
		name, err := reg.Active()
		if err != nil {
			return err
		}
		if err := reg.ClearActive(); err != nil {
			return err
		}
		c.printf("Cleared and saved %s.\n", name)
		return nil
	})
}

func runDump(ctx context.Context, c *Console, args []string) error {
	return c.do(ctx, func(reg *phantom.Registry) error {
		name, err := target(reg, args)
		if err != nil {
			return err
		}
		dump, err := reg.Dump(name)
		if err != nil {
			return err
		}
		c.printf("%s", dump)
		return nil
	})
}

func runOverview(ctx context.Context, c *Console, args []string) error {
	return c.do(ctx, func(reg *phantom.Registry) error {
		if len(args) == 0 || args[0] == "all" {
			if reg.Len() == 0 {
				c.printf("No routes found. Create a route with 'create'.\n")
				return nil
			}
			c.printf("%s", reg.Overviews())
			return nil
		}
		overview, err := reg.Overview(args[0])
		if err != nil {
			return err
		}
		c.printf("%s\n", overview)
		return nil
	})
}

func runSave(ctx context.Context, c *Console, args []string) error {
	all := len(args) == 1 && (args[0] == "all" || args[0] == "a")
	if len(args) == 1 && !all {
		return fmt.Errorf("save %s: want 'all' or nothing: %w", args[0], route.ErrInvalidArgument)
	}
	return c.do(ctx, func(reg *phantom.Registry) error {
		if all {
			if err := reg.SaveAll(); err != nil {
				return err
			}
			c.printf("Saved %d routes.\n", reg.Len())
			return nil
		}
		name, err := reg.Active()
		if err != nil {
			return err
		}
		if err := reg.Save(name); err != nil {
			return err
		}
		c.printf("Saved %s.\n", name)
		return nil
	})
}

func runCopy(ctx context.Context, c *Console, args []string) error {
	return c.do(ctx, func(reg *phantom.Registry) error {
		if reg.State() != phantom.Idle {
			return fmt.Errorf("copy while %s: %w", reg.State(), route.ErrInvalidState)
		}
		name, err := target(reg, args)
		if err != nil {
			return err
		}
		copied, err := reg.Copy(name)
		if err != nil {
			return err
		}
		if err := reg.SetActive(copied); err != nil {
			return err
		}
		c.printf("Copied route %s to route %s. Active route is now %s.\n", name, copied, copied)
		return nil
	})
}
