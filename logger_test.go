package minimqtt

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "NONE", LogLevelNone.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"", LogLevelInfo},
		{"warning", LogLevelWarn},
		{" error ", LogLevelError},
		{"off", LogLevelNone},
	}

	for _, tt := range tests {
		level, err := ParseLogLevel(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, level)
	}

	_, err := ParseLogLevel("verbose")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()

	logger.Debug("debug", nil)
	logger.Info("info", LogFields{"key": "value"})
	logger.Warn("warn", nil)
	logger.Error("error", nil)

	assert.Same(t, logger, logger.WithFields(LogFields{"a": 1}))
	assert.Equal(t, LogLevelNone, logger.Level())

	logger.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, logger.Level())
}

func TestStdLogger(t *testing.T) {
	t.Run("filters by level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStdLogger(&buf, LogLevelWarn)

		logger.Debug("hidden debug", nil)
		logger.Info("hidden info", nil)
		logger.Warn("shown warn", nil)
		logger.Error("shown error", nil)

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "[WARN] shown warn")
		assert.Contains(t, out, "[ERROR] shown error")
	})

	t.Run("fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStdLogger(&buf, LogLevelDebug).WithFields(LogFields{LogFieldClientID: "c1"})

		logger.Info("connected", LogFields{LogFieldTopic: "a/b"})
		assert.Contains(t, buf.String(), "client_id:c1")
		assert.Contains(t, buf.String(), "topic:a/b")
	})

	t.Run("with fields does not modify parent", func(t *testing.T) {
		var buf bytes.Buffer
		parent := NewStdLogger(&buf, LogLevelInfo)
		_ = parent.WithFields(LogFields{"child": true})

		parent.Info("parent", nil)
		assert.NotContains(t, buf.String(), "child")
	})

	t.Run("set level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStdLogger(&buf, LogLevelError)
		logger.SetLevel(LogLevelNone)
		logger.Error("silenced", nil)
		assert.Empty(t, buf.String())
	})
}

func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	logger := NewLogrusLogger(base, LogLevelInfo)
	assert.Equal(t, logrus.InfoLevel, base.GetLevel())

	logger.Debug("hidden", nil)
	logger.WithFields(LogFields{LogFieldClientID: "c1"}).Info("connected", LogFields{LogFieldTopic: "a/b"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, `msg=connected`)
	assert.Contains(t, out, "client_id=c1")
	assert.Contains(t, out, "topic=a/b")

	logger.SetLevel(LogLevelNone)
	assert.Equal(t, LogLevelNone, logger.Level())
	assert.Equal(t, logrus.PanicLevel, base.GetLevel())
}

func TestLoggerInterface(_ *testing.T) {
	var _ Logger = (*NoOpLogger)(nil)
	var _ Logger = (*StdLogger)(nil)
	var _ Logger = (*LogrusLogger)(nil)
}
