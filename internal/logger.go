package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// ParseLogLevel converts a textual log level into a slog.Level. Unknown values map to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLoggingHandler initializes a slog.Handler based on the provided logging level and format options.
// Log output is written to stderr, stdout is reserved for the console user interface.
func GetLoggingHandler(level string, pretty, json bool) slog.Handler {
	return NewLoggingHandler(os.Stderr, level, pretty, json)
}

// NewLoggingHandler is like GetLoggingHandler but writes to the given writer.
func NewLoggingHandler(output io.Writer, level string, pretty, json bool) slog.Handler {
	logLevel := new(slog.LevelVar)
	logLevel.Set(ParseLogLevel(level))

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	switch {
	case json:
		return slog.NewJSONHandler(output, opts)
	case pretty:
		return NewPrettyHandler(output, opts)
	default:
		return slog.NewTextHandler(output, opts)
	}
}

// SetupLogging initializes the global logger with the given level and format
func SetupLogging(level string, pretty, json bool) {
	slog.SetDefault(slog.New(GetLoggingHandler(level, pretty, json)))
}

// PrettyHandler is a slog.Handler that formats log records in a human-readable way.
// Every record ends up on a single line: time, padded level, message and key=value attributes.
type PrettyHandler struct {
	opts      slog.HandlerOptions
	prefix    string // preformatted group names followed by a dot
	preformat string // preformatted Attrs, with an initial space

	mu *sync.Mutex
	w  io.Writer
}

const prettyTimeFormat = "2006/01/02 15:04:05"

// NewPrettyHandler creates a new PrettyHandler.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}

	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// WithGroup returns a new Handler with the given group appended to the handler's existing groups.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// WithAttrs returns a new Handler whose attributes consist of the handler's attributes followed by attrs.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var buf []byte
	for _, a := range attrs {
		buf = h.appendAttr(buf, h.prefix, a)
	}
	clone := *h
	clone.preformat = h.preformat + string(buf)
	return &clone
}

// Handle formats its argument Record as a single line of text ending in a newline.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf []byte
	if !r.Time.IsZero() {
		buf = r.Time.AppendFormat(buf, prettyTimeFormat)
		buf = append(buf, ' ')
	}

	// all levels are padded to the length of the longest one (ERROR)
	buf = append(buf, fmt.Sprintf("%-5s", r.Level.String())...)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	buf = append(buf, h.preformat...)
	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, h.prefix, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *PrettyHandler) appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() != slog.KindGroup {
		buf = append(buf, ' ')
		buf = append(buf, prefix...)
		buf = append(buf, a.Key...)
		buf = append(buf, '=')
		return fmt.Appendf(buf, "%v", a.Value.Any())
	}
	if a.Key != "" {
		prefix += a.Key + "."
	}
	for _, ga := range a.Value.Group() {
		buf = h.appendAttr(buf, prefix, ga)
	}
	return buf
}
