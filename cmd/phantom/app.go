package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/gwillem/phantom/internal/logging"
	"github.com/gwillem/phantom/pkg/config"
	"github.com/gwillem/phantom/pkg/phantom"
	"github.com/gwillem/phantom/pkg/robot"
)

const lockFile = ".phantom.lock"

const logBufferSize = 64

// app bundles what every route command needs: configuration, a logger, the
// registry and the save folder lock.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	reg    *phantom.Registry
	lock   *flock.Flock
	// lines carries rendered log lines when logging into a TUI.
	lines <-chan string
}

// openApp loads the configuration, locks the save folder and discovers
// routes. With tui set, log lines go to app.lines instead of stderr.
func openApp(tui bool) (*app, error) {
	cfg, _, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}
	var lines <-chan string
	if tui {
		handler := logging.NewChannelHandler(logging.ParseLevel(cfg.Logging.Level), logBufferSize)
		logger = slog.New(handler)
		lines = handler.Lines()
	}

	if err := os.MkdirAll(cfg.Routes.SaveFolder, 0o755); err != nil {
		return nil, fmt.Errorf("ensure save folder: %w", err)
	}
	lockPath := filepath.Join(cfg.Routes.SaveFolder, lockFile)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another phantom session is writing routes in %s", cfg.Routes.SaveFolder)
	}

	reg, err := phantom.New(phantom.Config{
		SearchRoot: cfg.Routes.SearchRoot,
		SaveFolder: cfg.Routes.SaveFolder,
		Logger:     logger,
	})
	if err != nil {
		// Skipped files are already logged; the rest of the routes are usable.
		logger.Debug("discovery finished with errors", "error", err)
	}

	return &app{cfg: cfg, logger: logger, reg: reg, lock: lock, lines: lines}, nil
}

func (a *app) Close() {
	if err := a.lock.Unlock(); err != nil {
		a.logger.Warn("failed to release lock", "error", err)
	}
}

// openArms connects to the configured arms. A role that is not wanted, or
// not configured when optional, is returned as nil.
func (a *app) openArms(wantLeader, wantFollower bool) (leader, follower *robot.Arm, err error) {
	open := func(role string, armCfg config.ArmConfig) (*robot.Arm, error) {
		if armCfg.Port == "" || !armCfg.IsCalibrated() {
			return nil, fmt.Errorf("%s arm not configured. Run 'phantom setup' first", role)
		}
		arm, err := robot.NewArm(armCfg.Port, armCfg.Calibration)
		if err != nil {
			return nil, fmt.Errorf("connect %s arm: %w", role, err)
		}
		return arm, nil
	}

	if wantLeader {
		if leader, err = open("leader", a.cfg.Leader); err != nil {
			return nil, nil, err
		}
	}
	if wantFollower {
		if follower, err = open("follower", a.cfg.Follower); err != nil {
			if leader != nil {
				leader.Close()
			}
			return nil, nil, err
		}
	}
	return leader, follower, nil
}

// closeArms closes whichever arms are open.
func closeArms(arms ...*robot.Arm) error {
	var errs []error
	for _, arm := range arms {
		if arm == nil {
			continue
		}
		if err := arm.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
