package route

import (
	"strconv"
	"strings"
)

// Identity names a route. Free-text fields are normalized to lowercase with
// spaces replaced by underscores.
type Identity struct {
	Robot   string
	Title   string
	Role    string
	Version int
}

// NewIdentity builds a normalized identity. Versions below 1 become 1.
func NewIdentity(robot, title, role string, version int) Identity {
	id := Identity{Robot: robot, Title: title, Role: role, Version: version}
	return id.normalized()
}

// Normalize lowercases a free-text identity field and replaces spaces with
// underscores.
func Normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

func (id Identity) normalized() Identity {
	id.Robot = Normalize(id.Robot)
	id.Title = Normalize(id.Title)
	id.Role = Normalize(id.Role)
	if id.Version < 1 {
		id.Version = 1
	}
	return id
}

// Name returns the canonical name, e.g. "napalm_bot_driver_left_side_v2".
// The role segment is omitted when empty and the version suffix only
// appears above version 1.
func (id Identity) Name() string {
	var sb strings.Builder
	sb.WriteString(id.Robot)
	if id.Role != "" {
		sb.WriteString("_")
		sb.WriteString(id.Role)
	}
	sb.WriteString("_")
	sb.WriteString(id.Title)
	if id.Version > 1 {
		sb.WriteString("_v")
		sb.WriteString(strconv.Itoa(id.Version))
	}
	return sb.String()
}

// Next returns the identity of the following version.
func (id Identity) Next() Identity {
	id.Version++
	return id
}
