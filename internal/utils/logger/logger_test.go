package logger

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestError_WrapsCause(t *testing.T) {
	SetOutput(io.Discard)
	t.Cleanup(func() { SetOutput(color.Output) })

	cause := errors.New("connection refused")
	err := New("TEST").Error("load members of %s", cause, "p1")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load members of p1: connection refused", err.Error())
}

func TestError_NilCause(t *testing.T) {
	SetOutput(io.Discard)
	t.Cleanup(func() { SetOutput(color.Output) })

	err := New("TEST").Error("catalogue %s is empty", nil, "actions.yaml")
	assert.EqualError(t, err, "catalogue actions.yaml is empty")
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	SetLevel(LevelWarn)
	t.Cleanup(func() {
		SetOutput(color.Output)
		SetLevel(LevelInfo)
	})

	log := New("TEST")
	log.Info("hidden")
	log.Warn("shown %d", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 1")
	assert.Contains(t, buf.String(), "| TEST |")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
}
