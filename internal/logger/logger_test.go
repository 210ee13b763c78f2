package logger

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected logrus.Level
	}{
		{"debug level", "DEBUG", logrus.DebugLevel},
		{"info level", "INFO", logrus.InfoLevel},
		{"warn level", "WARN", logrus.WarnLevel},
		{"error level", "ERROR", logrus.ErrorLevel},
		{"unknown defaults to info", "VERBOSE", logrus.InfoLevel},
		{"empty defaults to info", "", logrus.InfoLevel},
	}

	original := Log.GetLevel()
	defer Log.SetLevel(original)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLevel(tt.level)
			assert.Equal(t, tt.expected, Log.GetLevel())
		})
	}
}

func TestWithCorrelationID(t *testing.T) {
	entry := WithCorrelationID("corr-123")

	assert.Equal(t, "corr-123", entry.Data["correlation_id"])
}

func TestGetStackTrace(t *testing.T) {
	trace := GetStackTrace(0)

	assert.Contains(t, trace, "goroutine")
	assert.Contains(t, trace, "logger")
}

func TestLogErrorWithStack_NilFields(t *testing.T) {
	assert.NotPanics(t, func() {
		LogErrorWithStack(errors.New("test error"), nil)
	})
}

func TestLogErrorWithStackAndCorrelation_NilFields(t *testing.T) {
	assert.NotPanics(t, func() {
		LogErrorWithStackAndCorrelation(errors.New("test error"), "corr-456", nil)
	})
}
