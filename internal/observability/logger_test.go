package observability

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(f func()) string {
	var buf bytes.Buffer
	previous := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(previous)

	f()
	return buf.String()
}

func TestLogger_MinimumLevel(t *testing.T) {
	output := captureOutput(func() {
		logger := NewLogger("catalog").WithLevel(LogLevelInfo)
		logger.Debug("Debug message", map[string]interface{}{"key": "value"})
		logger.Info("Info message", map[string]interface{}{"key": "value"})
	})

	assert.NotContains(t, output, "Debug message")
	assert.Contains(t, output, "Info message")
	assert.Contains(t, output, "[INFO] [catalog]")
}

func TestLogger_FieldsAreSorted(t *testing.T) {
	output := captureOutput(func() {
		NewLogger("catalog").Info("stored", map[string]interface{}{"b": 2, "a": 1})
	})

	assert.Contains(t, output, "stored a=1 b=2")
}

func TestLogger_WithCarriesFields(t *testing.T) {
	output := captureOutput(func() {
		logger := NewLogger("api").With(map[string]interface{}{"request_id": "r-1"})
		logger.Warn("slow request", map[string]interface{}{"ms": 900})
	})

	assert.Contains(t, output, "ms=900")
	assert.Contains(t, output, "request_id=r-1")
}

func TestLogger_WithPrefix(t *testing.T) {
	output := captureOutput(func() {
		NewLogger("parent").WithPrefix("child").Errorf("failed %d times", 3)
	})

	assert.Contains(t, output, "[ERROR] [child] failed 3 times")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel(" WARN "))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: false}, NewNoopLogger())
	assert.NoError(t, err)
	assert.NotNil(t, shutdown)
	shutdown()

	_, span := StartSpan(context.Background(), "test")
	EndSpan(span, errors.New("recorded"))
}
