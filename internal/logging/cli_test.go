package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCLIHandler_Filtering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelWarn, false))

	logger.Info("hidden")
	logger.Warn("shown", "ein", "123456789")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown: ein=123456789")
}

func TestCLIHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelDebug, false)).
		WithGroup("resolver").
		With("tier", 2)

	logger.Debug("candidate rejected", "similarity", 0.71)

	line := strings.TrimSpace(buf.String())
	assert.Equal(t, "[resolver] candidate rejected: tier=2 similarity=0.71", line)
}

func TestCLIHandler_Color(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo, true))

	logger.Error("boom")
	assert.True(t, strings.HasPrefix(buf.String(), colorRed))

	buf.Reset()
	logger.Info("plain")
	assert.Equal(t, "plain\n", buf.String())
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), OrDefault(nil))

	l := slog.New(NewCLIHandler(&bytes.Buffer{}, slog.LevelInfo, false))
	assert.Same(t, l, OrDefault(l))
}

func TestValidLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"debug", true},
		{" WARN ", true},
		{"warning", true},
		{"error", true},
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidLevel(tt.input); got != tt.expected {
			t.Errorf("ValidLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
