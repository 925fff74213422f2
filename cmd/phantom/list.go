package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

type ListCommand struct {
	Verbose bool `short:"v" long:"verbose" description:"Print every route's full overview"`
}

func (c *ListCommand) Execute(args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Verbose {
		fmt.Println(a.reg.Overviews())
		return nil
	}

	names := a.reg.Names()
	if len(names) == 0 {
		fmt.Println(dimStyle.Render("No routes found in " + a.cfg.Routes.SearchRoot))
		return nil
	}

	rows := make([][]string, 0, len(names))
	for i, name := range names {
		data, err := a.reg.Data(name)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			name,
			strconv.Itoa(data.Version),
			fmt.Sprintf("%dms", data.TimeSpacing),
			strconv.Itoa(len(data.Analog[0])),
			humanize.Time(time.UnixMilli(data.LastModified)),
		})
	}

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "Route", "Version", "Spacing", "Samples", "Modified").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle.Padding(0, 1)
			case col == 1:
				return subHeaderStyle.Bold(false).Padding(0, 1)
			default:
				return cellStyle
			}
		})

	fmt.Println(t.Render())
	return nil
}
