// Package logger provides a context-aware structured logger backed by zap.
package logger

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a Logger emits.
type Level int8

const (
	LevelDebug Level = iota - 1
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps a config string to a Level. Unknown values resolve to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// LoggerInterface is the logging contract shared by every module.
// Arguments after msg are alternating key/value pairs.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// The c variants skip additional stack frames when resolving the caller.
	Debugc(ctx context.Context, caller int, msg string, args ...any)
	Infoc(ctx context.Context, caller int, msg string, args ...any)
	Warnc(ctx context.Context, caller int, msg string, args ...any)
	Errorc(ctx context.Context, caller int, msg string, args ...any)
}

// Logger implements LoggerInterface on top of a zap SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New creates a JSON logger writing to w. fields are attached to every entry.
func New(w io.Writer, level Level, service string, fields map[string]any) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level.zapLevel()),
	)

	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
	if service != "" {
		base = base.With(zap.String("service", service))
	}
	for k, v := range fields {
		base = base.With(zap.Any(k, v))
	}

	return &Logger{sugar: base.Sugar()}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 0, zapcore.DebugLevel, msg, args)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 0, zapcore.InfoLevel, msg, args)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 0, zapcore.WarnLevel, msg, args)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 0, zapcore.ErrorLevel, msg, args)
}

func (l *Logger) Debugc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller, zapcore.DebugLevel, msg, args)
}

func (l *Logger) Infoc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller, zapcore.InfoLevel, msg, args)
}

func (l *Logger) Warnc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller, zapcore.WarnLevel, msg, args)
}

func (l *Logger) Errorc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller, zapcore.ErrorLevel, msg, args)
}

func (l *Logger) write(ctx context.Context, caller int, lvl zapcore.Level, msg string, args []any) {
	s := l.sugar
	if caller > 0 {
		s = s.WithOptions(zap.AddCallerSkip(caller))
	}
	if !s.Desugar().Core().Enabled(lvl) {
		return
	}

	args = expandFields(args)

	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			args = append(args, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
		}
	}

	s.Logw(lvl, msg, args...)
}

// fieldProvider is implemented by values that carry their own log fields,
// such as *apperror.AppError.
type fieldProvider interface {
	LogFields() []any
}

// expandFields replaces key/value pairs whose value is a fieldProvider with
// the provider's fields.
func expandFields(args []any) []any {
	expanded := false
	for i := 1; i < len(args); i += 2 {
		if _, ok := args[i].(fieldProvider); ok {
			expanded = true
			break
		}
	}
	if !expanded {
		return args
	}

	out := make([]any, 0, len(args)+4)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			if fp, ok := args[i+1].(fieldProvider); ok {
				out = append(out, fp.LogFields()...)
				continue
			}
			out = append(out, args[i], args[i+1])
			continue
		}
		out = append(out, args[i])
	}
	return out
}
