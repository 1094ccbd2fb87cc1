package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// BusHandler is a slog.Handler that mirrors records onto the bus as
// LogEntry events so stream clients can follow along.
type BusHandler struct {
	bus   *Bus
	level slog.Level
	attrs []slog.Attr
}

// NewBusHandler creates a handler publishing records at or above level.
func NewBusHandler(bus *Bus, level slog.Level) *BusHandler {
	return &BusHandler{bus: bus, level: level}
}

func (h *BusHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *BusHandler) Handle(_ context.Context, r slog.Record) error {
	var stepID string
	var b strings.Builder
	b.WriteString(r.Message)

	appendAttr := func(a slog.Attr) {
		if a.Key == "step_id" {
			stepID = a.Value.String()
			return
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
	}

	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(a)
		return true
	})

	h.bus.Publish(NewLogEntry(levelName(r.Level), b.String(), stepID))
	return nil
}

func (h *BusHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &BusHandler{bus: h.bus, level: h.level, attrs: merged}
}

// WithGroup is accepted but groups are flattened in the streamed line.
func (h *BusHandler) WithGroup(string) slog.Handler {
	return h
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
