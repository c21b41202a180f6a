// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.relaybot/config.yaml)
//  3. Default values
//
// Security: sensitive values (tokens, API keys) are masked in MarshalJSON.
// Validation uses sentinel errors so callers can check with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingDiscordToken indicates the Discord bot token is not set.
	ErrMissingDiscordToken = errors.New("missing Discord token")

	// ErrMissingAppID indicates the Discord application ID is not set.
	ErrMissingAppID = errors.New("missing Discord application ID")

	// ErrMissingAPIKey indicates the OpenAI API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max completion tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidHistoryTurns indicates the history window size is out of range.
	ErrInvalidHistoryTurns = errors.New("invalid max history turns")

	// ErrInvalidTurnBudget indicates the per-turn character budget is out of range.
	ErrInvalidTurnBudget = errors.New("invalid per-turn budget")

	// ErrInvalidRateLimit indicates the upstream rate limit settings are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")
)

const (
	// DefaultMaxHistoryTurns is the default number of turns sent upstream
	// per request. Conservative for typical completion input limits.
	DefaultMaxHistoryTurns = 30

	// MaxAllowedHistoryTurns is the absolute maximum window size.
	MaxAllowedHistoryTurns = 500

	// DefaultMaxTurnRunes is the default per-turn rune budget. A single
	// oversized turn is truncated to this size before being sent upstream.
	DefaultMaxTurnRunes = 8000

	// DefaultModel is the default completion model.
	DefaultModel = "gpt-4o-mini"

	// DefaultMaxCompletionTokens bounds the reply length requested upstream.
	DefaultMaxCompletionTokens = 300

	// DefaultTemperature is the default sampling temperature.
	DefaultTemperature = 0.5
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (tokens, API keys), update MarshalJSON.
type Config struct {
	// Discord gateway configuration
	DiscordToken string `mapstructure:"discord_token" json:"discord_token"` // SENSITIVE: masked in MarshalJSON
	DiscordAppID string `mapstructure:"discord_app_id" json:"discord_app_id"`
	// DiscordGuildID scopes slash-command registration to one guild when set.
	// Empty registers commands globally (propagation can take up to an hour).
	DiscordGuildID string `mapstructure:"discord_guild_id" json:"discord_guild_id"`

	// Completion service configuration
	OpenAIAPIKey        string  `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON
	Model               string  `mapstructure:"model" json:"model"`
	MaxCompletionTokens int64   `mapstructure:"max_completion_tokens" json:"max_completion_tokens"`
	Temperature         float64 `mapstructure:"temperature" json:"temperature"`

	// Context window configuration
	MaxHistoryTurns int `mapstructure:"max_history_turns" json:"max_history_turns"`
	MaxTurnRunes    int `mapstructure:"max_turn_runes" json:"max_turn_runes"`

	// Session store configuration
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" json:"acquire_timeout"` // 0 = wait until ctx cancellation
	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl" json:"session_idle_ttl"` // 0 = never evict
	SweepInterval  time.Duration `mapstructure:"sweep_interval" json:"sweep_interval"`

	// Upstream rate limiting (requests per second, burst)
	UpstreamRPS   float64 `mapstructure:"upstream_rps" json:"upstream_rps"`
	UpstreamBurst int     `mapstructure:"upstream_burst" json:"upstream_burst"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"` // "debug", "info", "warn", "error"
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".relaybot")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	// Missing file is fine; defaults plus environment carry the day.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values for all configuration keys.
func setDefaults(v *viper.Viper) {
	v.SetDefault("model", DefaultModel)
	v.SetDefault("max_completion_tokens", DefaultMaxCompletionTokens)
	v.SetDefault("temperature", DefaultTemperature)

	v.SetDefault("max_history_turns", DefaultMaxHistoryTurns)
	v.SetDefault("max_turn_runes", DefaultMaxTurnRunes)

	v.SetDefault("acquire_timeout", 5*time.Second)
	v.SetDefault("session_idle_ttl", 2*time.Hour)
	v.SetDefault("sweep_interval", 5*time.Minute)

	v.SetDefault("upstream_rps", 2.0)
	v.SetDefault("upstream_burst", 5)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds configuration keys to their environment variables.
// The Discord and OpenAI variable names match the conventional names used by
// the respective platforms' tooling.
func bindEnvVariables(v *viper.Viper) {
	_ = v.BindEnv("discord_token", "DISCORD_TOKEN")
	_ = v.BindEnv("discord_app_id", "DISCORD_APPLICATION_ID")
	_ = v.BindEnv("discord_guild_id", "DISCORD_GUILD_ID")
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")

	v.SetEnvPrefix("RELAYBOT")
	v.AutomaticEnv()
}

// Validate checks all configuration values and returns the first violation.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("%w: set DISCORD_TOKEN or discord_token", ErrMissingDiscordToken)
	}
	if c.DiscordAppID == "" {
		return fmt.Errorf("%w: set DISCORD_APPLICATION_ID or discord_app_id", ErrMissingAppID)
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY or openai_api_key", ErrMissingAPIKey)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model must not be empty", ErrInvalidModelName)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be between 0 and 2)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxCompletionTokens <= 0 || c.MaxCompletionTokens > 32768 {
		return fmt.Errorf("%w: %d (must be between 1 and 32768)", ErrInvalidMaxTokens, c.MaxCompletionTokens)
	}
	if c.MaxHistoryTurns <= 0 || c.MaxHistoryTurns > MaxAllowedHistoryTurns {
		return fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidHistoryTurns, c.MaxHistoryTurns, MaxAllowedHistoryTurns)
	}
	if c.MaxTurnRunes <= 0 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidTurnBudget, c.MaxTurnRunes)
	}
	if c.UpstreamRPS <= 0 || c.UpstreamBurst <= 0 {
		return fmt.Errorf("%w: rps=%v burst=%d (both must be positive)", ErrInvalidRateLimit, c.UpstreamRPS, c.UpstreamBurst)
	}
	return nil
}

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(c)
	if masked.DiscordToken != "" {
		masked.DiscordToken = "***"
	}
	if masked.OpenAIAPIKey != "" {
		masked.OpenAIAPIKey = "***"
	}
	return json.Marshal(masked)
}
