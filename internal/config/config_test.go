package config

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// validConfig returns a Config that passes Validate.
func validConfig() Config {
	return Config{
		DiscordToken:        "token",
		DiscordAppID:        "12345",
		OpenAIAPIKey:        "sk-test",
		Model:               DefaultModel,
		MaxCompletionTokens: DefaultMaxCompletionTokens,
		Temperature:         DefaultTemperature,
		MaxHistoryTurns:     DefaultMaxHistoryTurns,
		MaxTurnRunes:        DefaultMaxTurnRunes,
		AcquireTimeout:      5 * time.Second,
		UpstreamRPS:         2,
		UpstreamBurst:       5,
		LogLevel:            "info",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"missing discord token", func(c *Config) { c.DiscordToken = "" }, ErrMissingDiscordToken},
		{"missing app id", func(c *Config) { c.DiscordAppID = "" }, ErrMissingAppID},
		{"missing api key", func(c *Config) { c.OpenAIAPIKey = "" }, ErrMissingAPIKey},
		{"empty model", func(c *Config) { c.Model = "" }, ErrInvalidModelName},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, ErrInvalidTemperature},
		{"temperature negative", func(c *Config) { c.Temperature = -0.1 }, ErrInvalidTemperature},
		{"zero max tokens", func(c *Config) { c.MaxCompletionTokens = 0 }, ErrInvalidMaxTokens},
		{"zero history turns", func(c *Config) { c.MaxHistoryTurns = 0 }, ErrInvalidHistoryTurns},
		{"history turns over cap", func(c *Config) { c.MaxHistoryTurns = MaxAllowedHistoryTurns + 1 }, ErrInvalidHistoryTurns},
		{"zero turn budget", func(c *Config) { c.MaxTurnRunes = 0 }, ErrInvalidTurnBudget},
		{"zero rps", func(c *Config) { c.UpstreamRPS = 0 }, ErrInvalidRateLimit},
		{"zero burst", func(c *Config) { c.UpstreamBurst = 0 }, ErrInvalidRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarshalJSONMasksSecrets(t *testing.T) {
	cfg := validConfig()

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	s := string(data)
	if strings.Contains(s, "sk-test") {
		t.Errorf("API key leaked in JSON: %s", s)
	}
	if strings.Contains(s, `"discord_token":"token"`) {
		t.Errorf("Discord token leaked in JSON: %s", s)
	}
	if !strings.Contains(s, "***") {
		t.Errorf("expected masked values in JSON: %s", s)
	}
	// Non-sensitive fields stay readable.
	if !strings.Contains(s, DefaultModel) {
		t.Errorf("expected model name in JSON: %s", s)
	}
}

func TestMarshalJSONEmptySecretsStayEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.DiscordToken = ""
	cfg.OpenAIAPIKey = ""

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if strings.Contains(string(data), "***") {
		t.Errorf("empty secrets should not be masked: %s", data)
	}
}
