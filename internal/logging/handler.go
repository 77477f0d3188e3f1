package logging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jskherman/howis/internal/redact"
)

// Filter inspects a record before it reaches a sink and may rewrite it.
// Returning false drops the record. *redact.Filter satisfies Filter.
type Filter interface {
	Apply(rec *redact.Record) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(rec *redact.Record) bool

// Apply implements Filter.
func (f FilterFunc) Apply(rec *redact.Record) bool { return f(rec) }

// FilterHandler runs every record through an ordered filter chain before
// delegating to inner. Filters are not assumed to commute: they always run
// in the order given.
type FilterHandler struct {
	inner   slog.Handler
	filters []Filter
}

var _ slog.Handler = (*FilterHandler)(nil)

// NewFilterHandler wraps inner with filters.
func NewFilterHandler(inner slog.Handler, filters ...Filter) *FilterHandler {
	return &FilterHandler{inner: inner, filters: filters}
}

// Enabled delegates to the inner handler.
func (h *FilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle filters the message, then every string-valued attribute after it
// has been resolved, and hands the rebuilt record to the inner handler.
func (h *FilterHandler) Handle(ctx context.Context, record slog.Record) error {
	rec := redact.Record{Message: record.Message}
	for _, f := range h.filters {
		if !f.Apply(&rec) {
			return nil
		}
	}

	out := slog.NewRecord(record.Time, record.Level, rec.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.filterAttr(a))
		return true
	})

	return h.inner.Handle(ctx, out)
}

// WithAttrs filters attrs once and folds them into the inner handler.
func (h *FilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	filtered := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		filtered[i] = h.filterAttr(a)
	}
	return &FilterHandler{inner: h.inner.WithAttrs(filtered), filters: h.filters}
}

// WithGroup returns a handler that nests subsequent attrs under name.
func (h *FilterHandler) WithGroup(name string) slog.Handler {
	return &FilterHandler{inner: h.inner.WithGroup(name), filters: h.filters}
}

func (h *FilterHandler) filterString(s string) string {
	rec := redact.Record{Message: s}
	for _, f := range h.filters {
		f.Apply(&rec)
	}
	return rec.Message
}

func (h *FilterHandler) filterAttr(a slog.Attr) slog.Attr {
	// Resolve LogValuers first so the value that gets written is the value
	// that gets scanned.
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindString:
		a.Value = slog.StringValue(h.filterString(a.Value.String()))
	case slog.KindGroup:
		attrs := a.Value.Group()
		filtered := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			filtered[i] = h.filterAttr(ga)
		}
		a.Value = slog.GroupValue(filtered...)
	case slog.KindAny:
		s := a.Value.String()
		if f := h.filterString(s); f != s {
			a.Value = slog.StringValue(f)
		}
	}
	return a
}

// FanoutHandler sends every record to each enabled sink.
type FanoutHandler struct {
	sinks []slog.Handler
}

var _ slog.Handler = (*FanoutHandler)(nil)

// NewFanoutHandler returns a handler writing to all sinks.
func NewFanoutHandler(sinks ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{sinks: sinks}
}

// Enabled reports whether any sink accepts level.
func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a clone of record to each enabled sink.
func (h *FanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, s := range h.sinks {
		if !s.Enabled(ctx, record.Level) {
			continue
		}
		if err := s.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = s.WithAttrs(attrs)
	}
	return &FanoutHandler{sinks: sinks}
}

// WithGroup implements slog.Handler.
func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = s.WithGroup(name)
	}
	return &FanoutHandler{sinks: sinks}
}
