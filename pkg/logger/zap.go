package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// ZapLogger adapts a *zap.Logger to the Logger interface.
type ZapLogger struct {
	zl    *zap.Logger
	level LogLevel
}

// NewZapLogger wraps zl. A nil zl yields a no-op zap logger.
func NewZapLogger(zl *zap.Logger) Logger {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &ZapLogger{zl: zl, level: Debug}
}

// LogMode returns a copy filtered at level. Zap's own level still applies.
func (z *ZapLogger) LogMode(level LogLevel) Logger {
	return &ZapLogger{zl: z.zl, level: level}
}

func (z *ZapLogger) Info(msg string, args ...any) {
	if z.level >= Info {
		z.zl.Info(msg, fields(args)...)
	}
}

func (z *ZapLogger) Warn(msg string, args ...any) {
	if z.level >= Warn {
		z.zl.Warn(msg, fields(args)...)
	}
}

func (z *ZapLogger) Error(msg string, args ...any) {
	if z.level >= Error {
		z.zl.Error(msg, fields(args)...)
	}
}

func (z *ZapLogger) Debug(msg string, args ...any) {
	if z.level >= Debug {
		z.zl.Debug(msg, fields(args)...)
	}
}

// fields turns alternating key/value args into zap fields. Errors keep
// zap's error encoding; a trailing key without value is kept as "(no value)".
func fields(args []any) []zap.Field {
	out := make([]zap.Field, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			out = append(out, zap.String(key, "(no value)"))
			break
		}
		if err, ok := args[i+1].(error); ok {
			out = append(out, zap.NamedError(key, err))
			continue
		}
		out = append(out, zap.Any(key, args[i+1]))
	}
	return out
}
