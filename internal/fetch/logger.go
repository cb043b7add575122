package fetch

import (
	"fmt"
	"log/slog"
	"strings"
)

// restyLogger forwards resty's printf-style log calls to slog.
type restyLogger struct {
	logger *slog.Logger
}

func newRestyLogger(logger *slog.Logger) *restyLogger {
	return &restyLogger{logger: logger}
}

func (l *restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(l.msg(format, v...), "component", "resty")
}

func (l *restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(l.msg(format, v...), "component", "resty")
}

func (l *restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(l.msg(format, v...), "component", "resty")
}

func (l *restyLogger) msg(format string, v ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
