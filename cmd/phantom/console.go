package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gwillem/phantom/pkg/console"
	"github.com/gwillem/phantom/pkg/teleop"
)

type ConsoleCommand struct {
	Arms   bool `long:"arms" description:"Run the control loop so record and play drive the arms"`
	Hz     int  `long:"hz" description:"Control loop frequency (default from config)"`
	Mirror bool `long:"mirror" description:"Mirror mode: invert shoulder_pan and wrist_roll positions"`
}

func (c *ConsoleCommand) Execute(args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defaults := console.Defaults{Robot: a.cfg.Routes.Robot, TimeSpacing: a.cfg.Routes.TimeSpacing}

	if !c.Arms {
		// Without a control loop only route management is available.
		con := console.New(console.Direct{Registry: a.reg}, os.Stdout, defaults)
		return ignoreCanceled(con.Run(ctx, os.Stdin))
	}

	leader, follower, err := a.openArms(true, true)
	if err != nil {
		return err
	}
	defer closeArms(leader, follower)

	hz := c.Hz
	if hz <= 0 {
		hz = a.cfg.Control.Hz
	}
	ctrl, err := teleop.NewController(teleop.Config{
		Registry: a.reg,
		Leader:   leader,
		Follower: follower,
		Hz:       hz,
		Mirror:   c.Mirror || a.cfg.Control.Mirror,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}

	loopCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- ctrl.Start(loopCtx) }()

	runErr := console.New(ctrl, os.Stdout, defaults).Run(ctx, os.Stdin)
	stop()
	return errors.Join(ignoreCanceled(runErr), ignoreCanceled(<-done))
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
