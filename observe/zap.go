package observe

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapCore builds a production-style JSON zap logger at level writing to w.
func NewZapCore(level string, w io.Writer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zapLevel(ParseLogLevel(level)),
	)
	return zap.New(core)
}

// NewZapLogger adapts a zap logger to Logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{l: l}
}

type zapLogger struct{ l *zap.Logger }

func (z zapLogger) Debug(ctx context.Context, msg string, f ...Field) { z.l.Debug(msg, zf(ctx, f)...) }
func (z zapLogger) Info(ctx context.Context, msg string, f ...Field)  { z.l.Info(msg, zf(ctx, f)...) }
func (z zapLogger) Warn(ctx context.Context, msg string, f ...Field)  { z.l.Warn(msg, zf(ctx, f)...) }
func (z zapLogger) Error(ctx context.Context, msg string, f ...Field) { z.l.Error(msg, zf(ctx, f)...) }

func (z zapLogger) WithRoute(meta RouteMeta) Logger {
	attrs := routeAttrs(meta)
	fields := make([]zap.Field, 0, len(attrs))
	for k, v := range attrs {
		fields = append(fields, zap.Any(k, v))
	}
	return zapLogger{l: z.l.With(fields...)}
}

func zf(ctx context.Context, f []Field) []zap.Field {
	span := spanAttrs(ctx)
	if len(f) == 0 && len(span) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f)+len(span))
	for k, v := range span {
		out = append(out, zap.Any(k, v))
	}
	for _, field := range f {
		out = append(out, zap.Any(field.Key, fieldValue(field)))
	}
	return out
}

func zapLevel(l LogLevel) zapcore.Level {
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

var _ Logger = zapLogger{}
