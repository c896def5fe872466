package simulator

import (
	"go.uber.org/zap"
)

// cronLogger routes cron's scheduler logs through zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	tickErrors.Inc()
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
