// Package log wires the process-wide slog logger.
//
// Records below Warn are dropped unless they carry a "section" attribute
// matching one of enabledSections, so noisy engine tracing can stay on in
// the code and be turned on per area of interest.
package log

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
)

var enabledSections = []string{
	"types",
	"session",
}

var level = new(slog.LevelVar)

var LoggerOpts = &slog.HandlerOptions{
	AddSource: true,
	Level:     level,
	ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == "time" {
			return slog.Attr{}
		}
		return a
	},
}

var DefaultLogger = slog.New(&filteringHandler{underlying: slog.NewTextHandler(os.Stdout, LoggerOpts)})

// SetLevel adjusts the minimum level of every logger derived from DefaultLogger.
func SetLevel(l slog.Level) {
	level.Set(l)
}

var _ slog.Handler = &filteringHandler{}

type filteringHandler struct {
	underlying slog.Handler
	sections   []string
}

func (f filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return f.underlying.Enabled(ctx, level)
}

func (f filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= slog.LevelWarn {
		return f.underlying.Handle(ctx, record)
	}
	// sections bound via With() are tracked on the handler, per-record
	// attributes are inspected here
	wantSection := len(f.sections) > 0
	if !wantSection {
		record.Attrs(func(attr slog.Attr) bool {
			wantSection = wantSection || attr.Key == "section" && sectionEnabled(attr.Value.String())
			// iterate as long as we have not found our section
			return !wantSection
		})
	}
	if !wantSection {
		return nil
	}
	return f.underlying.Handle(ctx, record)
}

func (f filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sections := slices.Clone(f.sections)
	for _, attr := range attrs {
		if attr.Key == "section" && sectionEnabled(attr.Value.String()) {
			sections = append(sections, attr.Value.String())
		}
	}
	return &filteringHandler{
		underlying: f.underlying.WithAttrs(attrs),
		sections:   sections,
	}
}

func (f filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{
		underlying: f.underlying.WithGroup(name),
		sections:   f.sections,
	}
}

func sectionEnabled(section string) bool {
	return slices.ContainsFunc(enabledSections, func(enabled string) bool {
		return strings.HasPrefix(section, enabled)
	})
}
