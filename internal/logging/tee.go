package logging

import (
	"context"
	"log/slog"
)

// multiHandler fans records out to every wrapped handler.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// Tee returns a logger that also delivers records to the extra handlers.
// Extra handlers receive records after sanitization.
func (l *Logger) Tee(extra ...slog.Handler) *Logger {
	handlers := []slog.Handler{l.Logger.Handler()}
	for _, h := range extra {
		handlers = append(handlers, NewSanitizingHandler(h, l.sanitizer))
	}
	return &Logger{
		Logger:    slog.New(&multiHandler{handlers: handlers}),
		sanitizer: l.sanitizer,
	}
}
