package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	logr := NewWithWriter(&buf, "WARN")

	logr.Info("outgoing.user.success")
	assert.Empty(t, buf.String())

	logr.Warn("outgoing.user.error", "reason", "boom")
	assert.Contains(t, buf.String(), "msg=outgoing.user.error")
	assert.Contains(t, buf.String(), "connector=customerio")
	assert.Contains(t, buf.String(), "reason=boom")
}

func TestParseLevel_DefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logr := NewWithWriter(&buf, "verbose")

	logr.Debug("hidden")
	logr.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
