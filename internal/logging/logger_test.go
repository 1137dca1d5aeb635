package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("warn line")
	l.Error("error line")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}

func TestLoggerFormatArgs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	l.Info("spawned", "pid", 3, "priority", 5)
	out := buf.String()
	assert.True(t, strings.Contains(out, "pid=3"))
	assert.True(t, strings.Contains(out, "priority=5"))
}

func TestNamedLogger(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&Config{Level: LevelDebug, Output: &buf})
	named := base.Named("disk")

	named.Info("unit ready")
	assert.Contains(t, buf.String(), "[disk]")
}

func TestDefaultLoggerIsSingleton(t *testing.T) {
	a := Default()
	b := Default()
	assert.Same(t, a, b)
}
