// Package config loads and saves the phantom TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/gwillem/phantom/pkg/robot"
	"github.com/gwillem/phantom/pkg/route"
)

// DefaultConfigFile is read from the working directory when no path is given.
const DefaultConfigFile = "phantom.toml"

// Routes configures where routes are found and created.
type Routes struct {
	// SearchRoot is scanned recursively for route files at startup.
	SearchRoot string `toml:"search_root"`
	// SaveFolder receives newly created routes. It may sit below SearchRoot.
	SaveFolder string `toml:"save_folder"`
	// TimeSpacing is the default sample spacing in milliseconds.
	TimeSpacing int `toml:"time_spacing"`
	// Robot is the default robot name for new routes.
	Robot string `toml:"robot"`
}

// Control configures the control loop.
type Control struct {
	Hz     int  `toml:"hz"`
	Mirror bool `toml:"mirror"` // Invert positions for shoulder_pan (servo 1) and wrist_roll (servo 5)
}

// ArmConfig holds configuration for a single arm.
type ArmConfig struct {
	Port        string            `toml:"port"`
	Calibration robot.Calibration `toml:"calibration,omitempty"`
}

// IsCalibrated returns true if the arm has calibration data
func (a *ArmConfig) IsCalibrated() bool {
	return len(a.Calibration) > 0
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config holds the phantom configuration.
type Config struct {
	Routes   Routes    `toml:"routes"`
	Control  Control   `toml:"control"`
	Leader   ArmConfig `toml:"leader"`
	Follower ArmConfig `toml:"follower"`
	Logging  Logging   `toml:"logging"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Routes: Routes{
			SearchRoot:  ".",
			SaveFolder:  "routes",
			TimeSpacing: 100,
		},
		Control: Control{Hz: 60},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// Load reads the configuration at path, or DefaultConfigFile when path is
// empty. A missing file yields the defaults; exists reports which happened.
func Load(path string) (cfg *Config, exists bool, err error) {
	if path == "" {
		path = DefaultConfigFile
	}
	c := Default()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, false, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(&c); err != nil {
			return nil, false, fmt.Errorf("parse config %s: %w", path, err)
		}
		exists = true
	}

	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, false, err
	}
	return &c, exists, nil
}

func (c *Config) normalize() {
	c.Routes.SearchRoot = strings.TrimSpace(c.Routes.SearchRoot)
	c.Routes.SaveFolder = strings.TrimSpace(c.Routes.SaveFolder)
	if c.Routes.SearchRoot == "" {
		c.Routes.SearchRoot = "."
	}
	if c.Routes.SaveFolder == "" {
		c.Routes.SaveFolder = filepath.Join(c.Routes.SearchRoot, "routes")
	}
	if c.Routes.TimeSpacing < route.MinTimeSpacing {
		c.Routes.TimeSpacing = route.MinTimeSpacing
	}
	c.Routes.Robot = route.Normalize(c.Routes.Robot)
	if c.Control.Hz <= 0 {
		c.Control.Hz = 60
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Control.Hz > 1000 {
		errs = append(errs, fmt.Errorf("control.hz %d above 1000", c.Control.Hz))
	}
	// A control period longer than the sample spacing would drop samples.
	if period := 1000 / c.Control.Hz; period > c.Routes.TimeSpacing {
		errs = append(errs, fmt.Errorf("control period %dms exceeds routes.time_spacing %dms",
			period, c.Routes.TimeSpacing))
	}
	switch c.Logging.Format {
	case "", "text", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q unsupported", c.Logging.Format))
	}
	if c.Leader.Port != "" && c.Leader.Port == c.Follower.Port {
		errs = append(errs, fmt.Errorf("leader and follower share port %s", c.Leader.Port))
	}
	return errors.Join(errs...)
}

// Save writes the configuration to path, or DefaultConfigFile when empty.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultConfigFile
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
