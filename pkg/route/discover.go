package route

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Discover walks root recursively and loads every file with the route
// extension (case-insensitive), keyed by canonical name.
//
// A file that fails to load is skipped; its error is joined into the
// returned error while the remaining routes are still returned. When two
// files share a canonical name the first one in walk order is kept and the
// later one is reported as a duplicate.
func Discover(root string, opts ...Option) (map[string]*Store, error) {
	routes := make(map[string]*Store)
	var errs []error

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			errs = append(errs, fmt.Errorf("walk %s: %w: %v", path, ErrIO, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !HasExtension(path) {
			return nil
		}

		s, err := Load(path, opts...)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if prev, ok := routes[s.Name()]; ok {
			errs = append(errs, fmt.Errorf("load %s: duplicate route %q already loaded from %s: %w",
				path, s.Name(), prev.Path(), ErrInvalidArgument))
			return nil
		}
		routes[s.Name()] = s
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, fs.ErrNotExist) {
			return routes, fmt.Errorf("discover %s: %w", root, ErrNotFound)
		}
		return routes, fmt.Errorf("discover %s: %w: %v", root, ErrIO, walkErr)
	}

	return routes, errors.Join(errs...)
}

// HasExtension reports whether path names a route file.
func HasExtension(path string) bool {
	return strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), Extension)
}
