package minimqtt

import "github.com/sirupsen/logrus"

// LogrusLogger adapts a logrus logger to the Logger interface.
type LogrusLogger struct {
	entry *logrus.Entry
	level LogLevel
}

// NewLogrusLogger wraps l. When l is nil the logrus standard logger is used.
// The logrus level is aligned with level.
func NewLogrusLogger(l *logrus.Logger, level LogLevel) *LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}

	lg := &LogrusLogger{entry: logrus.NewEntry(l)}
	lg.SetLevel(level)
	return lg
}

func (l *LogrusLogger) Debug(msg string, fields LogFields) {
	if l.level <= LogLevelDebug {
		l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
	}
}

func (l *LogrusLogger) Info(msg string, fields LogFields) {
	if l.level <= LogLevelInfo {
		l.entry.WithFields(logrus.Fields(fields)).Info(msg)
	}
}

func (l *LogrusLogger) Warn(msg string, fields LogFields) {
	if l.level <= LogLevelWarn {
		l.entry.WithFields(logrus.Fields(fields)).Warn(msg)
	}
}

func (l *LogrusLogger) Error(msg string, fields LogFields) {
	if l.level <= LogLevelError {
		l.entry.WithFields(logrus.Fields(fields)).Error(msg)
	}
}

// WithFields returns a logger that adds fields to every entry.
func (l *LogrusLogger) WithFields(fields LogFields) Logger {
	return &LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields(fields)),
		level: l.level,
	}
}

func (l *LogrusLogger) Level() LogLevel {
	return l.level
}

// SetLevel sets the level and the level of the underlying logrus logger.
func (l *LogrusLogger) SetLevel(level LogLevel) {
	l.level = level
	l.entry.Logger.SetLevel(toLogrusLevel(level))
}

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case LogLevelDebug:
		return logrus.DebugLevel
	case LogLevelInfo:
		return logrus.InfoLevel
	case LogLevelWarn:
		return logrus.WarnLevel
	case LogLevelError:
		return logrus.ErrorLevel
	default:
		return logrus.PanicLevel
	}
}
