// Package phantom records live joystick input into routes and plays routes
// back as if a joystick were attached.
//
// A Registry discovers every route under a search root, keeps them keyed by
// canonical name and drives recording or playback against the single active
// route. It is not safe for concurrent use: one control loop owns it and
// calls RecordTick or the playback readers once per cycle.
package phantom

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gwillem/phantom/pkg/route"
)

// State is the engine state.
type State int

const (
	Idle State = iota
	Recording
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Playing:
		return "playing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Input is a live joystick read while recording.
type Input interface {
	// Axis returns analog channel ch, 0 <= ch < route.AnalogChannels.
	Axis(ch int) float64
	// Button returns digital channel ch, 0 <= ch < route.DigitalChannels.
	Button(ch int) bool
}

// Config holds registry construction parameters.
type Config struct {
	// SearchRoot is walked recursively for route files at construction.
	SearchRoot string
	// SaveFolder receives newly created routes.
	SaveFolder string

	Clock  Clock
	Logger *slog.Logger
}

// Registry holds all known routes and the record/playback state machine.
type Registry struct {
	saveFolder string
	routes     map[string]*route.Store
	active     string
	state      State
	session    sessionClock
	logger     *slog.Logger
	storeOpts  []route.Option
}

// New builds a registry from the routes found under cfg.SearchRoot.
//
// The registry is returned even when err is non-nil; err then lists the
// route files that were skipped.
func New(cfg Config) (*Registry, error) {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Registry{
		saveFolder: cfg.SaveFolder,
		session:    sessionClock{clock: cfg.Clock},
		logger:     cfg.Logger,
		storeOpts: []route.Option{
			route.WithClock(cfg.Clock.Now),
			route.WithLogger(cfg.Logger),
		},
	}

	routes, err := route.Discover(cfg.SearchRoot, r.storeOpts...)
	r.routes = routes
	if err != nil {
		r.logger.Warn("route discovery incomplete", "root", cfg.SearchRoot, "error", err)
	}
	if len(r.routes) == 0 {
		r.logger.Info("no routes found; create a route before recording", "root", cfg.SearchRoot)
	} else {
		r.logger.Info("discovered routes", "root", cfg.SearchRoot, "count", len(r.routes))
	}
	return r, err
}

// State returns the current engine state.
func (r *Registry) State() State { return r.state }

// Len returns the number of routes held.
func (r *Registry) Len() int { return len(r.routes) }

// Names returns all route names in sorted order. The position of a name in
// this list is its ordinal used by NameAt.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameAt returns the route name at ordinal i of Names.
func (r *Registry) NameAt(i int) (string, error) {
	names := r.Names()
	if i < 0 || i >= len(names) {
		return "", fmt.Errorf("route #%d: %w", i, route.ErrNotFound)
	}
	return names[i], nil
}

func (r *Registry) lookup(name string) (*route.Store, error) {
	s, ok := r.routes[name]
	if !ok {
		return nil, fmt.Errorf("route %q: %w", name, route.ErrNotFound)
	}
	return s, nil
}

func (r *Registry) activeStore() (*route.Store, error) {
	if r.active == "" {
		return nil, fmt.Errorf("active route: %w", route.ErrNotFound)
	}
	return r.lookup(r.active)
}

// Create opens a route in the save folder and registers it. If the route is
// already registered, or a file for it already exists, the existing route
// wins and the given metadata is ignored. A file holding a different route
// is ErrDecode, so a registered route is never replaced. It returns the
// canonical name.
func (r *Registry) Create(title, robot, description, role string, timeSpacing int) (string, error) {
	id := route.NewIdentity(robot, title, role, 1)
	if _, ok := r.routes[id.Name()]; ok {
		return id.Name(), nil
	}

	s, err := route.Create(r.saveFolder, id, route.Metadata{
		Description: description,
		TimeSpacing: timeSpacing,
	}, r.storeOpts...)
	if err != nil {
		return "", err
	}
	r.routes[s.Name()] = s
	r.logger.Info("created route", "route", s.Name(), "path", s.Path())
	return s.Name(), nil
}

// SetActive selects the route targeted by recording and playback.
func (r *Registry) SetActive(name string) error {
	if r.state != Idle {
		return fmt.Errorf("set active route while %s: %w", r.state, route.ErrInvalidState)
	}
	if _, err := r.lookup(name); err != nil {
		return err
	}
	r.active = name
	return nil
}

// Active returns the active route name.
func (r *Registry) Active() (string, error) {
	s, err := r.activeStore()
	if err != nil {
		return "", err
	}
	return s.Name(), nil
}

// Copy registers the next version of the named route and returns its name.
// The copy is not saved.
func (r *Registry) Copy(name string) (string, error) {
	s, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	c := s.Copy()
	if _, ok := r.routes[c.Name()]; ok {
		return "", fmt.Errorf("copy %s: route %q already exists: %w", name, c.Name(), route.ErrInvalidArgument)
	}
	r.routes[c.Name()] = c
	r.logger.Info("copied route", "from", name, "to", c.Name())
	return c.Name(), nil
}

// Delete removes the named route's file and drops it from the registry.
func (r *Registry) Delete(name string) error {
	s, err := r.lookup(name)
	if err != nil {
		return err
	}
	if name == r.active && r.state != Idle {
		return fmt.Errorf("delete %s while %s: %w", name, r.state, route.ErrInvalidState)
	}

	// A route that was never saved has no file; dropping it is enough.
	if err := s.Delete(); err != nil && !errors.Is(err, route.ErrNotFound) {
		return err
	}
	delete(r.routes, name)
	if name == r.active {
		r.active = ""
	}
	r.logger.Info("removed route", "route", name)
	return nil
}

// ClearActive empties the active route's timelines and saves it.
func (r *Registry) ClearActive() error {
	if r.state != Idle {
		return fmt.Errorf("clear active route while %s: %w", r.state, route.ErrInvalidState)
	}
	s, err := r.activeStore()
	if err != nil {
		return err
	}
	s.Clear()
	return s.Save()
}

// Save persists the named route.
func (r *Registry) Save(name string) error {
	s, err := r.lookup(name)
	if err != nil {
		return err
	}
	return s.Save()
}

// SaveAll persists every route, continuing past failures.
func (r *Registry) SaveAll() error {
	r.logger.Info("saving routes", "count", len(r.routes))
	var errs []error
	for _, name := range r.Names() {
		if err := r.routes[name].Save(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Data returns a copy of the named route's data.
func (r *Registry) Data(name string) (route.Data, error) {
	s, err := r.lookup(name)
	if err != nil {
		return route.Data{}, err
	}
	return s.Data(), nil
}

// IsEmpty reports whether the named route has no recorded samples.
func (r *Registry) IsEmpty(name string) (bool, error) {
	s, err := r.lookup(name)
	if err != nil {
		return false, err
	}
	return s.IsEmpty(), nil
}

// Overview returns the summary of the named route.
func (r *Registry) Overview(name string) (string, error) {
	s, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	return s.Overview(), nil
}

// Dump returns the named route's overview followed by every timeline.
func (r *Registry) Dump(name string) (string, error) {
	s, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	return s.Dump(), nil
}

const overviewRule = "+------------------------------------------------------------------------+"

// Overviews returns the summaries of every route, each prefixed with its
// ordinal.
func (r *Registry) Overviews() string {
	var sb strings.Builder
	sb.WriteString(overviewRule + "\n")
	sb.WriteString("|                           # Phantom Routes #                           |\n")
	sb.WriteString(overviewRule + "\n")
	for i, name := range r.Names() {
		fmt.Fprintf(&sb, "| #%d\n", i)
		sb.WriteString(r.routes[name].Overview())
		sb.WriteString("\n" + overviewRule + "\n")
	}
	return sb.String()
}
