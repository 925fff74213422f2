package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ChannelHandler renders records as short "[15:04:05] message k=v" lines
// onto a buffered channel so a TUI can show them. Lines are dropped when
// the channel is full.
type ChannelHandler struct {
	ch     chan string
	level  slog.Leveler
	fixed  string
	prefix string
}

// NewChannelHandler returns a handler buffering up to size lines.
func NewChannelHandler(level slog.Leveler, size int) *ChannelHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &ChannelHandler{ch: make(chan string, size), level: level}
}

// Lines returns the channel receiving rendered lines.
func (h *ChannelHandler) Lines() <-chan string { return h.ch }

func (h *ChannelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ChannelHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] ", r.Time.Format(time.TimeOnly))
	if r.Level >= slog.LevelWarn {
		sb.WriteString(r.Level.String())
		sb.WriteString(" ")
	}
	sb.WriteString(r.Message)
	sb.WriteString(h.fixed)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, h.prefix, a)
		return true
	})

	select {
	case h.ch <- sb.String():
	default:
		// Drop if channel full
	}
	return nil
}

func writeAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	fmt.Fprintf(sb, " %s%s=%v", prefix, a.Key, a.Value.Resolve())
}

func (h *ChannelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var sb strings.Builder
	sb.WriteString(h.fixed)
	for _, a := range attrs {
		writeAttr(&sb, h.prefix, a)
	}
	c := *h
	c.fixed = sb.String()
	return &c
}

func (h *ChannelHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}
