package route

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Metadata describes a route beyond its identity.
type Metadata struct {
	Description string
	// TimeSpacing is the nominal milliseconds between samples. Values
	// below MinTimeSpacing are clamped.
	TimeSpacing int
}

// Store owns one route's data and its backing file.
type Store struct {
	data    Data
	path    string
	deleted bool

	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used to stamp modifications.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for save and delete messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func newStore(opts []Option) *Store {
	s := &Store{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens the route with the given identity in folder. If a route file
// already exists at the computed path it is loaded and the supplied metadata
// is ignored; otherwise an empty, unsaved route is returned. A file whose
// contents name a different route than its stem is ErrDecode.
func Create(folder string, id Identity, meta Metadata, opts ...Option) (*Store, error) {
	id = id.normalized()
	if id.Robot == "" || id.Title == "" {
		return nil, fmt.Errorf("create route: robot and title are required: %w", ErrInvalidArgument)
	}

	path, err := filepath.Abs(filepath.Join(folder, id.Name()+"."+Extension))
	if err != nil {
		return nil, fmt.Errorf("resolve route folder %s: %w: %v", folder, ErrIO, err)
	}
	if _, err := os.Stat(path); err == nil {
		s, err := Load(path, opts...)
		if err != nil {
			return nil, err
		}
		if s.Name() != id.Name() {
			return nil, fmt.Errorf("load %s: %w: file holds route %s", path, ErrDecode, s.Name())
		}
		return s, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w: %v", path, ErrIO, err)
	}

	s := newStore(opts)
	s.path = path
	s.data.setIdentity(id)
	s.data.Description = meta.Description
	s.data.TimeSpacing = max(meta.TimeSpacing, MinTimeSpacing)
	s.data.LastModified = s.now().UnixMilli()
	s.data.allocate()
	return s, nil
}

// Load reads the route file at path.
func Load(path string, opts ...Option) (*Store, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w: %v", path, ErrIO, err)
	}

	data, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	data.setIdentity(data.Identity().normalized())

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	s := newStore(opts)
	s.path = abs
	s.data = *data
	return s, nil
}

// Save writes the route to its path, replacing any previous contents.
func (s *Store) Save() error {
	if s.deleted {
		return fmt.Errorf("save %s: route was deleted: %w", s.Name(), ErrInvalidState)
	}
	raw, err := Encode(&s.data)
	if err != nil {
		return fmt.Errorf("save %s: %w: %v", s.Name(), ErrIO, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("save %s: %w: %v", s.Name(), ErrIO, err)
	}

	// Write beside the target and rename so a failed write never leaves a
	// truncated route behind.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("save %s: %w: %v", s.Name(), ErrIO, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save %s: %w: %v", s.Name(), ErrIO, err)
	}

	s.logger.Info("saved route", "route", s.Name(), "path", s.path)
	return nil
}

// Copy returns the next version of this route in the same folder. The
// timelines are carried over. The copy is not saved.
func (s *Store) Copy() *Store {
	c := &Store{
		data:   s.data.clone(),
		now:    s.now,
		logger: s.logger,
	}
	c.data.setIdentity(s.data.Identity().Next())
	c.data.LastModified = c.now().UnixMilli()
	c.path = filepath.Join(s.Folder(), c.Name()+"."+Extension)
	return c
}

// Delete removes the backing file. The store must not be used afterwards.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.deleted = true
			return fmt.Errorf("delete %s: %w", s.path, ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w: %v", s.path, ErrIO, err)
	}
	s.deleted = true
	s.logger.Info("deleted route", "route", s.Name(), "path", s.path)
	return nil
}

// IsEmpty reports whether every value and spacing timeline is empty.
func (s *Store) IsEmpty() bool {
	for ch := range AnalogChannels {
		if len(s.data.Analog[ch]) != 0 || len(s.data.AnalogSpacing[ch]) != 0 {
			return false
		}
	}
	for ch := range DigitalChannels {
		if len(s.data.Digital[ch]) != 0 || len(s.data.DigitalSpacing[ch]) != 0 {
			return false
		}
	}
	return true
}

// Clear empties every timeline. Identity and metadata are kept; the route
// still has to be saved.
func (s *Store) Clear() {
	for ch := range AnalogChannels {
		s.data.Analog[ch] = s.data.Analog[ch][:0]
		s.data.AnalogSpacing[ch] = s.data.AnalogSpacing[ch][:0]
	}
	for ch := range DigitalChannels {
		s.data.Digital[ch] = s.data.Digital[ch][:0]
		s.data.DigitalSpacing[ch] = s.data.DigitalSpacing[ch][:0]
	}
	s.touch()
}

func (s *Store) touch() {
	s.data.LastModified = s.now().UnixMilli()
}

// Name returns the canonical name, which is also the file stem.
func (s *Store) Name() string { return s.data.Identity().Name() }

// Identity returns the route identity.
func (s *Store) Identity() Identity { return s.data.Identity() }

// Path returns the route file path.
func (s *Store) Path() string { return s.path }

// Folder returns the directory holding the route file.
func (s *Store) Folder() string { return filepath.Dir(s.path) }

// Description returns the route description.
func (s *Store) Description() string { return s.data.Description }

// TimeSpacing returns the nominal sample spacing in milliseconds.
func (s *Store) TimeSpacing() int { return s.data.TimeSpacing }

// LastModified returns when the timelines were last changed.
func (s *Store) LastModified() time.Time { return time.UnixMilli(s.data.LastModified) }

// Data returns a deep copy of the route data.
func (s *Store) Data() Data { return s.data.clone() }

// Overview returns a short human-readable summary of the route.
func (s *Store) Overview() string {
	versionStr := ""
	if s.data.Version == 1 {
		versionStr = " (v1)"
	}
	modified := s.LastModified()

	var sb strings.Builder
	fmt.Fprintf(&sb, "| %q%s\n", s.Name(), versionStr)
	fmt.Fprintf(&sb, "|    Description: %q\n", s.data.Description)
	fmt.Fprintf(&sb, "|    Saved at %s\n", s.path)
	fmt.Fprintf(&sb, "|    Last Modified %s (%s)\n", modified.Format("1-2-2006 15:04"), humanize.Time(modified))
	fmt.Fprintf(&sb, "|    Time Spacing: %dms", s.data.TimeSpacing)
	return sb.String()
}

// Dump returns the overview followed by every channel's timelines.
func (s *Store) Dump() string {
	var sb strings.Builder
	sb.WriteString(s.Overview())
	sb.WriteString("\n")
	for ch := range AnalogChannels {
		fmt.Fprintf(&sb, "analog %d: %v\n", ch, s.data.Analog[ch])
		fmt.Fprintf(&sb, "analog %d spacing: %v\n", ch, s.data.AnalogSpacing[ch])
	}
	for ch := range DigitalChannels {
		fmt.Fprintf(&sb, "digital %d: %v\n", ch, s.data.Digital[ch])
		fmt.Fprintf(&sb, "digital %d spacing: %v\n", ch, s.data.DigitalSpacing[ch])
	}
	return sb.String()
}
