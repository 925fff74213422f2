package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"phantom.toml" description:"Configuration file"`

	Setup   SetupCommand   `command:"setup" description:"Scan for arms and calibrate them"`
	Create  CreateCommand  `command:"create" description:"Create a new route"`
	List    ListCommand    `command:"list" alias:"ls" description:"List all discovered routes"`
	Console ConsoleCommand `command:"console" description:"Interactive route console"`
	Record  RecordCommand  `command:"record" alias:"rec" description:"Teleoperate and record a route"`
	Play    PlayCommand    `command:"play" description:"Replay a route on the follower arm"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Phantom - record joystick routes on an SO-101 arm and replay them as autonomous programs"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
