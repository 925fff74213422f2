// Package console implements the interactive route console: a line-oriented
// command set mapped onto registry operations.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gwillem/phantom/pkg/phantom"
	"github.com/gwillem/phantom/pkg/route"
)

// Prompt is printed before each command is read.
const Prompt = "> "

// Executor runs registry operations. A running control loop serializes them
// onto its own goroutine; Direct runs them in place.
type Executor interface {
	Do(ctx context.Context, fn func(reg *phantom.Registry) error) error
	// Live reports whether a control loop ticks the registry, which
	// recording and playback need.
	Live() bool
}

// Direct executes against a registry owned by the caller's goroutine. Nothing
// ticks the registry, so record and play are refused.
type Direct struct{ Registry *phantom.Registry }

func (d Direct) Do(_ context.Context, fn func(reg *phantom.Registry) error) error {
	return fn(d.Registry)
}

func (Direct) Live() bool { return false }

// errNoLoop is returned by record and play without a control loop.
var errNoLoop = fmt.Errorf("no control loop, run the console with --arms: %w", route.ErrInvalidState)

// Defaults fill in create arguments the operator leaves out.
type Defaults struct {
	Robot       string
	TimeSpacing int
}

// Console reads commands and writes replies.
type Console struct {
	exec     Executor
	out      io.Writer
	defaults Defaults
}

// New returns a console writing replies to out.
func New(exec Executor, out io.Writer, defaults Defaults) *Console {
	if defaults.TimeSpacing <= 0 {
		defaults.TimeSpacing = 100
	}
	return &Console{exec: exec, out: out, defaults: defaults}
}

// errExit is returned by the exit command.
var errExit = errors.New("exit")

// Run reads commands from in until exit, end of input or ctx ends. Command
// failures are reported and do not stop the console.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(c.out, "Input your command. Type 'help' to view commands. Type 'exit' to stop the console.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		err := c.Execute(ctx, scanner.Text())
		switch {
		case errors.Is(err, errExit):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			fmt.Fprintln(c.out, Message(err))
		}
	}
}

// Execute runs one command line.
func (c *Console) Execute(ctx context.Context, line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := lookup(args[0])
	if !ok {
		return fmt.Errorf("'%s' was not recognized as a command: %w", args[0], errUnknownCommand)
	}
	if len(args)-1 > cmd.maxArgs {
		return fmt.Errorf("%s takes at most %d arguments: %w", cmd.name, cmd.maxArgs, route.ErrInvalidArgument)
	}
	return cmd.run(ctx, c, args[1:])
}

func (c *Console) do(ctx context.Context, fn func(reg *phantom.Registry) error) error {
	return c.exec.Do(ctx, fn)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

var errUnknownCommand = errors.New("unknown command")

// Message renders err for the operator by kind.
func Message(err error) string {
	switch {
	case errors.Is(err, errUnknownCommand):
		return err.Error() + ". Type 'help' to view commands."
	case errors.Is(err, route.ErrNotFound):
		return "Not found: " + err.Error()
	case errors.Is(err, route.ErrDecode):
		return "Corrupt route file: " + err.Error()
	case errors.Is(err, route.ErrIO):
		return "File error: " + err.Error()
	case errors.Is(err, route.ErrInvalidState):
		return "Not now: " + err.Error()
	case errors.Is(err, route.ErrInvalidArgument):
		return "Bad argument: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

// splitArgs splits a line on whitespace, keeping double-quoted runs
// together.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote: %w", route.ErrInvalidArgument)
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}
