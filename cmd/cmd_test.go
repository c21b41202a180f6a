package cmd

import (
	"log/slog"
	"os"
	"testing"
)

func TestExecuteUnknownCommand(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	os.Args = []string{"relaybot", "bogus"}
	if err := Execute(); err == nil {
		t.Error("Execute() with unknown command should fail")
	}
}

func TestExecuteHelpWithoutArgs(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	os.Args = []string{"relaybot"}
	if err := Execute(); err != nil {
		t.Errorf("Execute() without args = %v, want help and nil", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.name); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
