package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/phantom/pkg/phantom"
	"github.com/gwillem/phantom/pkg/robot"
	"github.com/gwillem/phantom/pkg/route"
	"github.com/gwillem/phantom/pkg/teleop"
)

type RecordCommand struct {
	Route      string `short:"r" long:"route" required:"true" description:"Route to record into (created when missing)"`
	Hz         int    `long:"hz" description:"Control loop frequency (default from config)"`
	Mirror     bool   `long:"mirror" description:"Mirror mode: invert shoulder_pan and wrist_roll positions"`
	NoFollower bool   `long:"no-follower" description:"Record from the leader arm only"`
}

type PlayCommand struct {
	Route    string `short:"r" long:"route" required:"true" description:"Route to replay"`
	Hz       int    `long:"hz" description:"Control loop frequency (default from config)"`
	Mirror   bool   `long:"mirror" description:"Mirror mode: invert shoulder_pan and wrist_roll positions"`
	NoLeader bool   `long:"no-leader" description:"Replay without teleoperating between runs"`
}

const (
	headerHeight = 3 // title + status + blank line
	legendHeight = 3 // legend row + buttons row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Motor colors - distinct colors for each motor
var motorColors = map[robot.MotorName]string{
	robot.ShoulderPan:  "196", // red
	robot.ShoulderLift: "208", // orange
	robot.ElbowFlex:    "226", // yellow
	robot.WristFlex:    "46",  // green
	robot.WristRoll:    "51",  // cyan
	robot.Gripper:      "201", // magenta
}

var modeColors = map[phantom.State]string{
	phantom.Idle:      "241",
	phantom.Recording: "9",
	phantom.Playing:   "10",
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	buttonOn    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	buttonOff   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type sessionModel struct {
	ctx           context.Context
	ctrl          *teleop.Controller
	logs          <-chan string
	chart         *streamlinechart.Model
	width         int      // terminal width
	height        int      // terminal height
	lines         []string // last N log messages
	quitting      bool
	state         teleop.State
	samples       int
	lastPositions map[robot.MotorName]float64 // track previous positions to detect movement
}

func (m *sessionModel) addLog(msg string) {
	m.lines = append(m.lines, msg)
	if len(m.lines) > maxLogs {
		m.lines = m.lines[len(m.lines)-maxLogs:]
	}
}

// hasMovement checks if any motor position has changed from the last state
func (m *sessionModel) hasMovement(positions map[robot.MotorName]float64) bool {
	if m.lastPositions == nil {
		return true // first reading, consider it movement
	}
	for name, pos := range positions {
		if lastPos, ok := m.lastPositions[name]; !ok || pos != lastPos {
			return true
		}
	}
	return false
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string
type resultMsg struct{ err error }

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(lines <-chan string) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-lines)
	}
}

// do runs fn on the control loop without blocking the UI.
func (m *sessionModel) do(fn func(reg *phantom.Registry) error) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return resultMsg{err: ctrl.Do(ctx, fn)}
	}
}

func toggleRecording(reset bool) func(reg *phantom.Registry) error {
	return func(reg *phantom.Registry) error {
		if reg.State() == phantom.Recording {
			return reg.EndRecording()
		}
		return reg.BeginRecording(reset)
	}
}

func togglePlayback(reg *phantom.Registry) error {
	if reg.State() == phantom.Playing {
		reg.EndPlayback()
		return nil
	}
	return reg.BeginPlayback()
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *sessionModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *sessionModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func newSessionModel(ctx context.Context, ctrl *teleop.Controller, logs <-chan string) sessionModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-robot.PositionRange, robot.PositionRange),
	)

	for _, name := range robot.AllMotors() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[name]))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return sessionModel{
		ctx:   ctx,
		ctrl:  ctrl,
		logs:  logs,
		chart: &chart,
		state: teleop.State{Index: -1},
	}
}

func (m sessionModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.logs),
	)
}

func (m sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.samples = 0
			return m, m.do(toggleRecording(true))
		case "a":
			return m, m.do(toggleRecording(false))
		case "p":
			return m, m.do(togglePlayback)
		case "s":
			return m, m.do(func(reg *phantom.Registry) error {
				name, err := reg.Active()
				if err != nil {
					return err
				}
				return reg.Save(name)
			})
		case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
			ch := int(key[0] - '0')
			ctx, ctrl := m.ctx, m.ctrl
			return m, func() tea.Msg {
				return resultMsg{err: ctrl.ToggleButton(ctx, ch)}
			}
		}

	case resultMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.addLog(msg.err.Error())
		}
		return m, nil

	case stateMsg:
		state := teleop.State(msg)
		if state.Recorded {
			m.samples++
		}
		m.state = state
		if state.Positions != nil && m.hasMovement(state.Positions) {
			for name, pos := range state.Positions {
				m.chart.PushDataSet(string(name), pos)
			}
			m.chart.DrawAll()
			m.lastPositions = state.Positions
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.logs)
	}

	return m, nil
}

func (m sessionModel) View() string {
	if m.quitting {
		return "Session stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Phantom"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")
	sb.WriteString(renderButtons(m.state.Buttons))
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	logLines := statusStyle.Render("r record  a append  p play  s save  0-9 buttons  q quit")
	if len(m.lines) > 0 {
		logLines = strings.Join(m.lines, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m sessionModel) renderStatus() string {
	mode := m.state.Mode
	modeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(modeColors[mode]))

	status := modeStyle.Render(strings.ToUpper(mode.String()))
	if m.state.Route != "" {
		status += statusStyle.Render(" route ") + m.state.Route
	}
	switch mode {
	case phantom.Recording:
		status += statusStyle.Render(fmt.Sprintf("  %d samples", m.samples))
	case phantom.Playing:
		status += statusStyle.Render(fmt.Sprintf("  index %d", m.state.Index))
	}
	if m.state.Error != nil {
		status += "  " + lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(m.state.Error.Error())
	}
	return status
}

func renderLegend() string {
	var items []string
	for _, name := range robot.AllMotors() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(name))
	}
	return strings.Join(items, "  ")
}

func renderButtons(buttons [route.DigitalChannels]bool) string {
	items := make([]string, len(buttons))
	for i, on := range buttons {
		label := fmt.Sprintf(" %d ", i)
		if on {
			items[i] = buttonOn.Render(label)
		} else {
			items[i] = buttonOff.Render(label)
		}
	}
	return strings.Join(items, " ")
}

// sessionOptions selects the arms and the route for runSession.
type sessionOptions struct {
	route        string
	hz           int
	mirror       bool
	needLeader   bool
	needFollower bool
	// create makes the route when it does not exist yet.
	create bool
	// autoplay starts playback as soon as the loop runs.
	autoplay bool
}

func runSession(o sessionOptions) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := selectRoute(a, o.route, o.create); err != nil {
		return err
	}
	if o.hz <= 0 {
		o.hz = a.cfg.Control.Hz
	}

	leader, follower, err := a.openArms(o.needLeader, o.needFollower)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeArms(leader, follower); err != nil {
			a.logger.Warn("failed to close arms", "error", err)
		}
	}()

	tcfg := teleop.Config{
		Registry: a.reg,
		Hz:       o.hz,
		Mirror:   o.mirror || a.cfg.Control.Mirror,
		Logger:   a.logger,
	}
	// Typed nil pointers must not end up in the interfaces.
	if leader != nil {
		tcfg.Leader = leader
	}
	if follower != nil {
		tcfg.Follower = follower
	}
	ctrl, err := teleop.NewController(tcfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ctrl.Start(ctx) }()

	if o.autoplay {
		if err := ctrl.Do(ctx, togglePlayback); err != nil {
			cancel()
			<-done
			return err
		}
	}

	_, runErr := tea.NewProgram(newSessionModel(ctx, ctrl, a.lines), tea.WithAltScreen()).Run()

	// Stopping the loop ends and saves a recording in progress.
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("run session: %w", runErr)
	}
	return nil
}

// selectRoute makes name the active route, creating it first if allowed.
// With a configured robot, name may be given with or without the robot
// prefix.
func selectRoute(a *app, name string, create bool) error {
	robotName := a.cfg.Routes.Robot
	err := a.reg.SetActive(name)
	if errors.Is(err, route.ErrNotFound) && robotName != "" {
		err = a.reg.SetActive(robotName + "_" + route.Normalize(name))
	}
	if err == nil || !create || !errors.Is(err, route.ErrNotFound) {
		return err
	}

	id := route.Identity{Robot: robotName, Title: strings.TrimPrefix(route.Normalize(name), robotName+"_")}
	if robotName == "" {
		// A bare name is taken as robot_title.
		id.Robot, id.Title, _ = strings.Cut(name, "_")
	}
	created, err := a.reg.Create(id.Title, id.Robot, "", "", a.cfg.Routes.TimeSpacing)
	if err != nil {
		return err
	}
	a.logger.Info("created route", "route", created)
	return a.reg.SetActive(created)
}

func (c *RecordCommand) Execute(args []string) error {
	return runSession(sessionOptions{
		route:        c.Route,
		hz:           c.Hz,
		mirror:       c.Mirror,
		needLeader:   true,
		needFollower: !c.NoFollower,
		create:       true,
	})
}

func (c *PlayCommand) Execute(args []string) error {
	return runSession(sessionOptions{
		route:        c.Route,
		hz:           c.Hz,
		mirror:       c.Mirror,
		needLeader:   !c.NoLeader,
		needFollower: true,
		autoplay:     true,
	})
}
