// Package log wraps zap with the join context every joinery log line
// carries: component, source file and join id.
package log

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Context identifies what a logger is attached to. Empty fields are omitted.
type Context struct {
	// Component names the emitting package (joiner, reconstruct, lode, ...).
	Component string
	// Source is the input file or artifact being processed.
	Source string
	// JoinID is the merged log's join id, once known.
	JoinID string
}

func (c Context) fields() []zap.Field {
	var fields []zap.Field
	for _, kv := range [...][2]string{
		{"component", c.Component},
		{"source", c.Source},
		{"join_id", c.JoinID},
	} {
		if kv[1] != "" {
			fields = append(fields, zap.String(kv[0], kv[1]))
		}
	}
	return fields
}

// Format selects the line encoding.
type Format string

const (
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
	// FormatConsole writes tab-separated human-readable lines.
	FormatConsole Format = "console"
)

// Options controls a logger's output. The zero value logs JSON at info.
type Options struct {
	Level  zapcore.Level
	Format Format
}

// ParseOptions builds Options from flag strings. Empty strings keep
// the defaults.
func ParseOptions(level, format string) (Options, error) {
	var opts Options
	if level != "" {
		l, err := zapcore.ParseLevel(level)
		if err != nil {
			return Options{}, fmt.Errorf("invalid log level %q", level)
		}
		opts.Level = l
	}
	switch Format(format) {
	case "", FormatJSON:
		opts.Format = FormatJSON
	case FormatConsole:
		opts.Format = FormatConsole
	default:
		return Options{}, fmt.Errorf("invalid log format %q (must be json or console)", format)
	}
	return opts, nil
}

// Logger is a leveled logger bound to a Context.
type Logger struct {
	zap *zap.Logger
}

// New creates a logger writing to w.
func New(ctx Context, w io.Writer, opts Options) *Logger {
	core := zapcore.NewCore(newEncoder(opts.Format), zapcore.AddSync(w), opts.Level)
	return &Logger{zap: zap.New(core).With(ctx.fields()...)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

func newEncoder(f Format) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	if f == FormatConsole {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

// With returns a child logger carrying additional context.
func (l *Logger) With(ctx Context) *Logger {
	return &Logger{zap: l.zap.With(ctx.fields()...)}
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.zap.Core().Enabled(level)
}

// Debug logs at debug level. Keys of fields become top-level keys.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, flatten(fields)...)
}

// Info logs at info level.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, flatten(fields)...)
}

// Warn logs at warn level.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, flatten(fields)...)
}

// Error logs at error level.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, flatten(fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// flatten turns a field map into zap fields in key order, so console
// output is stable.
func flatten(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
