package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/0xjasper/relaybot/internal/config"
	"github.com/0xjasper/relaybot/internal/discord"
	"github.com/0xjasper/relaybot/internal/llm"
	"github.com/0xjasper/relaybot/internal/log"
	"github.com/0xjasper/relaybot/internal/persona"
	"github.com/0xjasper/relaybot/internal/relay"
	"github.com/0xjasper/relaybot/internal/session"
	"github.com/0xjasper/relaybot/internal/window"
)

// runServe wires the components together and runs the gateway until a
// termination signal arrives.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: parseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	// Config marshals with secrets masked, safe to log.
	if cfgJSON, err := json.Marshal(cfg); err == nil {
		logger.Debug("configuration loaded", "config", string(cfgJSON))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := session.NewStore(session.StoreConfig{
		AcquireTimeout: cfg.AcquireTimeout,
		IdleTTL:        cfg.SessionIdleTTL,
		Logger:         logger,
	})
	go store.Run(ctx, cfg.SweepInterval)

	client, err := llm.New(llm.Config{
		APIKey:              cfg.OpenAIAPIKey,
		Model:               cfg.Model,
		MaxCompletionTokens: cfg.MaxCompletionTokens,
		Temperature:         cfg.Temperature,
		Limiter:             rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), cfg.UpstreamBurst),
		Logger:              logger,
	})
	if err != nil {
		return fmt.Errorf("creating completion client: %w", err)
	}

	personas := persona.NewRegistry(
		persona.Persona{Name: "concise", Prompt: "You are a helpful assistant. Answer as briefly as possible."},
		persona.Persona{Name: "pirate", Prompt: "You are a helpful assistant who answers like a grizzled pirate."},
	)

	dispatcher, err := relay.New(relay.Config{
		Store:  store,
		Client: client,
		Window: window.Policy{
			MaxTurns:     cfg.MaxHistoryTurns,
			MaxTurnRunes: cfg.MaxTurnRunes,
		},
		Personas: personas,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	gateway, err := discord.New(discord.Config{
		Token:      cfg.DiscordToken,
		AppID:      cfg.DiscordAppID,
		GuildID:    cfg.DiscordGuildID,
		Dispatcher: dispatcher,
		Personas:   personas,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("creating discord gateway: %w", err)
	}

	logger.Info("relaybot starting",
		"version", Version,
		"model", cfg.Model,
		"max_history_turns", cfg.MaxHistoryTurns,
	)

	if err := gateway.Run(ctx); err != nil {
		return fmt.Errorf("running discord gateway: %w", err)
	}

	logger.Info("relaybot stopped")
	return nil
}

// parseLevel maps the configured level name onto a slog level. Unknown names
// fall back to info.
func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
