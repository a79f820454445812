package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, level logrus.Level) *bytes.Buffer {
	t.Helper()
	var buffer bytes.Buffer
	originalOutput := Log.Out
	originalLevel := Log.Level
	Log.SetOutput(&buffer)
	Log.SetLevel(level)
	t.Cleanup(func() {
		Log.SetOutput(originalOutput)
		Log.SetLevel(originalLevel)
	})
	return &buffer
}

func TestSetLevel_AllValidLevels(t *testing.T) {
	originalLevel := Log.Level
	defer Log.SetLevel(originalLevel)

	testCases := []struct {
		input    string
		expected logrus.Level
	}{
		{"DEBUG", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"WARN", logrus.WarnLevel},
		{"ERROR", logrus.ErrorLevel},
		{"debug", logrus.DebugLevel},
		{"Warn", logrus.WarnLevel},
		{"TRACE", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run("level_"+tc.input, func(t *testing.T) {
			SetLevel(tc.input)
			assert.Equal(t, tc.expected, Log.Level)
		})
	}
}

func TestWithCorrelationID(t *testing.T) {
	entry := WithCorrelationID("test-correlation-123")

	assert.NotNil(t, entry)
	assert.Equal(t, "test-correlation-123", entry.Data["correlation_id"])
}

func TestCorrelationID_RoundTripThroughContext(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "ctx-correlation")

	assert.Equal(t, "ctx-correlation", CorrelationID(ctx))
	assert.Equal(t, "ctx-correlation", FromContext(ctx).Data["correlation_id"])
}

func TestCorrelationID_Missing(t *testing.T) {
	assert.Equal(t, "", CorrelationID(context.Background()))
	assert.Equal(t, "", CorrelationID(nil))
}

func TestGetStackTrace(t *testing.T) {
	stackTrace := GetStackTrace()

	assert.Contains(t, stackTrace, "TestGetStackTrace")
	assert.Contains(t, stackTrace, "goroutine")
}

func TestLogErrorWithStack(t *testing.T) {
	buffer := captureOutput(t, logrus.ErrorLevel)

	LogErrorWithStack(errors.New("test error message"), map[string]interface{}{
		"test_field": "test_value",
		"count":      42,
	})

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &logEntry))

	assert.Equal(t, "test error message", logEntry["error"])
	assert.Equal(t, "test_value", logEntry["test_field"])
	assert.Equal(t, float64(42), logEntry["count"])
	assert.NotEmpty(t, logEntry["stack_trace"])
	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "Error occurred", logEntry["msg"])
}

func TestLogErrorWithStackAndCorrelation_NilFields(t *testing.T) {
	buffer := captureOutput(t, logrus.ErrorLevel)

	LogErrorWithStackAndCorrelation(errors.New("boom"), "test-correlation-789", nil)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &logEntry))

	assert.Equal(t, "boom", logEntry["error"])
	assert.Equal(t, "test-correlation-789", logEntry["correlation_id"])
	assert.NotEmpty(t, logEntry["stack_trace"])
}

func TestLogger_JSONFormat(t *testing.T) {
	buffer := captureOutput(t, logrus.InfoLevel)

	WithCorrelationID("integration-test-123").Info("test message")

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &logEntry))

	assert.Equal(t, "info", logEntry["level"])
	assert.Equal(t, "test message", logEntry["msg"])
	assert.Equal(t, "integration-test-123", logEntry["correlation_id"])
	assert.NotEmpty(t, logEntry["time"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcde...", Truncate("abcdefghij", 5))
	assert.Equal(t, "caf...", Truncate("café au lait", 4))
	assert.True(t, utf8.ValidString(Truncate("日本語のテキスト", 7)))
}
