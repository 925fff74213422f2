package route

import "errors"

// Error kinds returned by route and registry operations. Callers match them
// with errors.Is; the wrapped message names the offending route or field.
var (
	ErrNotFound        = errors.New("not found")
	ErrDecode          = errors.New("malformed route data")
	ErrIO              = errors.New("route i/o failure")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
)
