package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger()

	assert.NotNil(t, logger)
	assert.Len(t, logger.Entries(), 0)
	assert.Nil(t, logger.metadata)
}

func TestTestLoggerMethods(t *testing.T) {
	logger := NewTestLogger()

	logger.Trace("Trace message", 1)
	logger.Debug("Debug message", 2)
	logger.Info("Info message", 3)
	logger.Warn("Warn message", 4)
	logger.Error("Error message", 5)

	logs := logger.Entries()
	assert.Len(t, logs, 5)

	expected := []struct {
		severity string
		message  string
		arg      int
	}{
		{"TRACE", "Trace message", 1},
		{"DEBUG", "Debug message", 2},
		{"INFO", "Info message", 3},
		{"WARNING", "Warn message", 4},
		{"ERROR", "Error message", 5},
	}
	for i, e := range expected {
		assert.Equal(t, e.severity, logs[i].Severity)
		assert.Equal(t, e.message, logs[i].Message)
		assert.Equal(t, []interface{}{e.arg}, logs[i].Arguments)
	}
}

func TestTestLoggerWith(t *testing.T) {
	logger := NewTestLogger()

	metadata := map[string]interface{}{
		"key1": "value1",
		"key2": 42,
	}

	loggerWithMetadata := logger.With(metadata)
	testLogger, ok := loggerWithMetadata.(*TestLogger)
	assert.True(t, ok)
	assert.Equal(t, metadata, testLogger.metadata)

	loggerWithMoreMetadata := loggerWithMetadata.With(map[string]interface{}{"key3": true})
	testLogger2, ok := loggerWithMoreMetadata.(*TestLogger)
	assert.True(t, ok)

	assert.Equal(t, "value1", testLogger2.metadata["key1"])
	assert.Equal(t, 42, testLogger2.metadata["key2"])
	assert.Equal(t, true, testLogger2.metadata["key3"])
	assert.NotContains(t, testLogger.metadata, "key3")
}

func TestTestLoggerSharesEntries(t *testing.T) {
	logger := NewTestLogger()
	child := logger.WithPrefix("[child]").With(map[string]interface{}{"id": "x"})

	child.Info("from child")
	logger.Info("from parent")

	logs := logger.Entries()
	assert.Len(t, logs, 2)
	assert.Equal(t, []string{"[child]"}, logs[0].Prefixes)
	assert.Equal(t, "x", logs[0].Metadata["id"])
	assert.Empty(t, logs[1].Prefixes)
}
