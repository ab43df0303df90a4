package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler writes each record to every child handler whose level admits it.
type teeHandler struct {
	children []slog.Handler
}

func newTeeHandler(handlers ...slog.Handler) slog.Handler {
	var children []slog.Handler
	for _, h := range handlers {
		if h != nil {
			children = append(children, h)
		}
	}
	switch len(children) {
	case 0:
		return NoopHandler{}
	case 1:
		return children[0]
	default:
		return &teeHandler{children: children}
	}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.children {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t.children {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		// Records share attr storage; each child gets its own copy.
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *teeHandler) each(fn func(slog.Handler) slog.Handler) *teeHandler {
	next := make([]slog.Handler, len(t.children))
	for i, h := range t.children {
		next[i] = fn(h)
	}
	return &teeHandler{children: next}
}

// TeeLogger returns a logger that writes to base and to every extra handler,
// e.g. the daemon log plus the diagnostic debug file.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	if base != nil {
		handlers = append([]slog.Handler{base.Handler()}, handlers...)
	}
	return slog.New(newTeeHandler(handlers...))
}
