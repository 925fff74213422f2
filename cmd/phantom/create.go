package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/phantom/pkg/route"
)

type CreateCommand struct {
	Title       string `short:"t" long:"title" description:"Route title"`
	Robot       string `long:"robot" description:"Robot name (default from config)"`
	Role        string `long:"role" description:"Optional role, e.g. driver or operator"`
	Description string `short:"d" long:"description" description:"Free-form description"`
	TimeSpacing int    `long:"spacing" description:"Sample spacing in milliseconds (default from config)"`
}

func (c *CreateCommand) Execute(args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Robot == "" {
		c.Robot = a.cfg.Routes.Robot
	}
	if c.TimeSpacing <= 0 {
		c.TimeSpacing = a.cfg.Routes.TimeSpacing
	}
	if c.Title == "" || c.Robot == "" {
		if err := c.ask(); err != nil {
			return err
		}
	}

	name, err := a.reg.Create(c.Title, c.Robot, c.Description, c.Role, c.TimeSpacing)
	if err != nil {
		return err
	}
	if err := a.reg.Save(name); err != nil {
		return err
	}

	overview, err := a.reg.Overview(name)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("Route ready:"))
	fmt.Println(overview)
	return nil
}

// ask fills in the route fields interactively.
func (c *CreateCommand) ask() error {
	spacing := strconv.Itoa(c.TimeSpacing)
	required := func(field string) func(string) error {
		return func(s string) error {
			if route.Normalize(s) == "" {
				return fmt.Errorf("%s is required", field)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Robot").Value(&c.Robot).Validate(required("robot")),
			huh.NewInput().Title("Title").Value(&c.Title).Validate(required("title")),
			huh.NewInput().Title("Role").Description("Optional").Value(&c.Role),
			huh.NewText().Title("Description").Value(&c.Description),
			huh.NewInput().
				Title("Time spacing (ms)").
				Description(fmt.Sprintf("At least %d", route.MinTimeSpacing)).
				Value(&spacing).
				Validate(func(s string) error {
					if _, err := strconv.Atoi(s); err != nil {
						return errors.New("must be a whole number of milliseconds")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	c.TimeSpacing, _ = strconv.Atoi(spacing)
	preview := route.NewIdentity(c.Robot, c.Title, c.Role, 1).Name()
	var ok bool
	confirm := huh.NewConfirm().
		Title(fmt.Sprintf("Create %s?", preview)).
		Affirmative("Create").
		Negative("Cancel").
		Value(&ok)
	if err := confirm.Run(); err != nil {
		return err
	}
	if !ok {
		return errors.New("cancelled")
	}
	return nil
}
