package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriterText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelDebug})

	logger.Debug("hello", "component", "test")

	out := buf.String()
	if !strings.Contains(out, "hello") {
		t.Errorf("expected output to contain message, got %q", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Errorf("expected output to contain attribute, got %q", out)
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{JSON: true})

	logger.Info("event")

	out := buf.String()
	if !strings.Contains(out, `"msg":"event"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})

	logger.Info("suppressed")
	logger.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Errorf("info log should be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, "emitted") {
		t.Errorf("warn log should pass, got %q", out)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	// Must not panic and must accept all levels.
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
}
