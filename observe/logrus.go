package observe

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogrusBase builds a JSON logrus logger at level writing to w.
func NewLogrusBase(level string, w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "msg",
		},
	})
	l.SetLevel(logrusLevel(ParseLogLevel(level)))
	return l
}

// NewLogrusLogger adapts a logrus logger to Logger.
func NewLogrusLogger(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.New()
		l.SetOutput(io.Discard)
	}
	return logrusLogger{e: logrus.NewEntry(l)}
}

type logrusLogger struct{ e *logrus.Entry }

func (l logrusLogger) Debug(ctx context.Context, msg string, f ...Field) { l.with(ctx, f).Debug(msg) }
func (l logrusLogger) Info(ctx context.Context, msg string, f ...Field)  { l.with(ctx, f).Info(msg) }
func (l logrusLogger) Warn(ctx context.Context, msg string, f ...Field)  { l.with(ctx, f).Warn(msg) }
func (l logrusLogger) Error(ctx context.Context, msg string, f ...Field) { l.with(ctx, f).Error(msg) }

func (l logrusLogger) WithRoute(meta RouteMeta) Logger {
	return logrusLogger{e: l.e.WithFields(logrus.Fields(routeAttrs(meta)))}
}

func (l logrusLogger) with(ctx context.Context, f []Field) *logrus.Entry {
	span := spanAttrs(ctx)
	if len(f) == 0 && len(span) == 0 {
		return l.e
	}
	fields := make(logrus.Fields, len(f)+len(span))
	for k, v := range span {
		fields[k] = v
	}
	for _, field := range f {
		fields[field.Key] = fieldValue(field)
	}
	return l.e.WithFields(fields)
}

func logrusLevel(l LogLevel) logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

var _ Logger = logrusLogger{}
