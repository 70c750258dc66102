package logger

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
)

// NewSlogHandler returns a slog.Handler that forwards records to l.
// If l is nil, it returns nil.
func NewSlogHandler(l *Logger) slog.Handler {
	if l == nil {
		return nil
	}
	return &slogAdapter{log: l}
}

// StdLogger returns a *log.Logger that writes through l at the given
// slog level. Used for http.Server.ErrorLog.
func StdLogger(l *Logger, level slog.Level) *log.Logger {
	if l == nil {
		l = Discard()
	}
	return slog.NewLogLogger(NewSlogHandler(l), level)
}

type slogAdapter struct {
	log    *Logger
	groups []string
	attrs  []slog.Attr
}

func (h *slogAdapter) Enabled(_ context.Context, level slog.Level) bool {
	return h.log.Enabled(fromSlogLevel(level))
}

func (h *slogAdapter) Handle(_ context.Context, record slog.Record) error {
	combined := make([]slog.Attr, 0, len(h.attrs)+record.NumAttrs())
	combined = append(combined, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		combined = append(combined, attr)
		return true
	})

	message := strings.TrimRight(record.Message, "\n")
	if attrText := formatAttrs(combined, h.groups); attrText != "" {
		if message != "" {
			message = message + " " + attrText
		} else {
			message = attrText
		}
	}

	h.log.log(fromSlogLevel(record.Level), "%s", message)
	return nil
}

func (h *slogAdapter) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	newAttrs = append(newAttrs, attrs...)
	return &slogAdapter{
		log:    h.log,
		groups: append([]string(nil), h.groups...),
		attrs:  newAttrs,
	}
}

func (h *slogAdapter) WithGroup(name string) slog.Handler {
	newGroups := append([]string(nil), h.groups...)
	if name != "" {
		newGroups = append(newGroups, name)
	}
	return &slogAdapter{
		log:    h.log,
		groups: newGroups,
		attrs:  append([]slog.Attr(nil), h.attrs...),
	}
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func formatAttrs(attrs []slog.Attr, groups []string) string {
	if len(attrs) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, attr := range attrs {
		writeAttr(&builder, attr, groups)
	}
	return builder.String()
}

func writeAttr(builder *strings.Builder, attr slog.Attr, prefix []string) {
	if attr.Equal(slog.Attr{}) {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		groupPrefix := append(append([]string(nil), prefix...), attr.Key)
		for _, nested := range attr.Value.Group() {
			writeAttr(builder, nested, groupPrefix)
		}
		return
	}

	key := attr.Key
	if key == "" {
		key = "attr"
	}
	keyParts := append(append([]string(nil), prefix...), key)

	if builder.Len() > 0 {
		builder.WriteByte(' ')
	}
	fmt.Fprintf(builder, "%s=%v", strings.Join(keyParts, "."), attr.Value)
}
