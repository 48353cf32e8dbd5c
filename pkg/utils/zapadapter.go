package utils

import "go.uber.org/zap"

// ZapKVLogger adapts a zap.Logger to the key/value logging interfaces the
// application and interface layers declare.
type ZapKVLogger struct {
	logger *zap.Logger
}

// NewZapKVLogger wraps a zap.Logger
func NewZapKVLogger(logger *zap.Logger) *ZapKVLogger {
	return &ZapKVLogger{logger: logger}
}

func (a *ZapKVLogger) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, toZapFields(keysAndValues...)...)
}

func (a *ZapKVLogger) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, toZapFields(keysAndValues...)...)
}

func (a *ZapKVLogger) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, toZapFields(keysAndValues...)...)
}

// toZapFields pairs up the variadic arguments, skipping non-string keys
func toZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
