package queue

import (
	"fmt"

	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// zapLogger routes Temporal SDK logs through zap.
type zapLogger struct {
	l *zap.SugaredLogger
}

var _ log.Logger = (*zapLogger)(nil)

// NewLogger wraps l as a Temporal logger.
func NewLogger(l *zap.Logger) log.Logger {
	return &zapLogger{l: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z *zapLogger) Debug(msg string, keyvals ...interface{}) { z.l.Debugw(msg, fields(keyvals)...) }
func (z *zapLogger) Info(msg string, keyvals ...interface{})  { z.l.Infow(msg, fields(keyvals)...) }
func (z *zapLogger) Warn(msg string, keyvals ...interface{})  { z.l.Warnw(msg, fields(keyvals)...) }
func (z *zapLogger) Error(msg string, keyvals ...interface{}) { z.l.Errorw(msg, fields(keyvals)...) }

// With implements log.WithLogger.
func (z *zapLogger) With(keyvals ...interface{}) log.Logger {
	return &zapLogger{l: z.l.With(fields(keyvals)...)}
}

// fields makes keys strings so zap never reports an ignored key.
func fields(keyvals []interface{}) []interface{} {
	out := make([]interface{}, 0, len(keyvals)+1)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 >= len(keyvals) {
			out = append(out, key, "(missing)")
			break
		}
		out = append(out, key, keyvals[i+1])
	}
	return out
}
