// Package relay maps inbound slash commands onto session operations and
// decides how each response is delivered.
//
// The Dispatcher is the only component that drives session mutation. For a
// chat command it appends the user turn, asks the window policy for the
// bounded history, calls the completion client while still holding the
// conversation's exclusive access, and appends the assistant turn on
// success. On upstream failure the user turn is deliberately retained and no
// assistant turn is added, so the user's next chat command retries with the
// failed turn as context. Do not "fix" this into rollback or auto-retry.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/0xjasper/relaybot/internal/log"
	"github.com/0xjasper/relaybot/internal/persona"
	"github.com/0xjasper/relaybot/internal/session"
	"github.com/0xjasper/relaybot/internal/window"
)

// ChatClient sends an ordered conversation window to the completion service
// and returns a single reply. Interface defined here, by its consumer;
// implemented by internal/llm.
type ChatClient interface {
	Complete(ctx context.Context, turns []session.Turn, systemPrompt string) (string, error)
}

// Config contains the required dispatcher dependencies.
type Config struct {
	Store    *session.Store
	Client   ChatClient
	Window   window.Policy // zero value uses policy defaults
	Personas *persona.Registry
	Logger   log.Logger
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Store == nil {
		return errors.New("session store is required")
	}
	if cfg.Client == nil {
		return errors.New("chat client is required")
	}
	if cfg.Personas == nil {
		return errors.New("persona registry is required")
	}
	return nil
}

// Dispatcher routes commands to session operations.
type Dispatcher struct {
	store    *session.Store
	client   ChatClient
	window   window.Policy
	personas *persona.Registry
	logger   log.Logger
}

// New creates a dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Dispatcher{
		store:    cfg.Store,
		client:   cfg.Client,
		window:   cfg.Window,
		personas: cfg.Personas,
		logger:   logger,
	}, nil
}

// Dispatch applies one command against its conversation's session and
// returns the response with its delivery directive. On error, callers
// should deliver Notice(err) to the issuer.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Response, error) {
	logger := d.logger.With(
		"command", string(cmd.Kind),
		"user_id", cmd.Key.UserID,
		"channel_id", cmd.Key.ChannelID,
		"command_id", uuid.NewString(),
	)

	switch cmd.Kind {
	case KindChat:
		return d.chat(ctx, logger, cmd)
	case KindReset:
		return d.reset(ctx, logger, cmd)
	case KindPrivate:
		return d.setVisibility(ctx, logger, cmd, session.VisibilityPrivate)
	case KindPublic:
		return d.setVisibility(ctx, logger, cmd, session.VisibilityPublic)
	case KindPersona:
		return d.setPersona(ctx, logger, cmd)
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
}

// chat relays one conversational turn to the completion service.
func (d *Dispatcher) chat(ctx context.Context, logger log.Logger, cmd Command) (Response, error) {
	prompt := strings.TrimSpace(cmd.Text)
	if prompt == "" {
		// Input errors never touch session state.
		return Response{}, ErrEmptyPrompt
	}

	var resp Response
	err := d.store.WithSession(ctx, cmd.Key, func(s *session.Session) error {
		s.AppendTurn(session.RoleUser, prompt)

		turns := d.window.Select(s.History())
		p, _ := d.personas.Get(s.Persona())

		reply, err := d.client.Complete(ctx, turns, p.Prompt)
		if err != nil {
			// The user turn stays in history so a retry does not require
			// re-typing; no assistant turn is recorded.
			return err
		}

		s.AppendTurn(session.RoleAssistant, reply)
		resp = Response{Text: reply, Audience: audienceFor(s.Visibility())}
		return nil
	})
	if err != nil {
		logger.Warn("chat command failed", "error", err)
		return Response{}, err
	}

	logger.Info("chat command completed", "prompt_runes", len([]rune(prompt)))
	return resp, nil
}

func (d *Dispatcher) reset(ctx context.Context, logger log.Logger, cmd Command) (Response, error) {
	err := d.store.WithSession(ctx, cmd.Key, func(s *session.Session) error {
		s.ClearHistory()
		return nil
	})
	if err != nil {
		logger.Warn("reset command failed", "error", err)
		return Response{}, err
	}

	logger.Info("chat history reset")
	return Response{Text: "Chat history has been reset.", Audience: AudienceIssuer}, nil
}

func (d *Dispatcher) setVisibility(ctx context.Context, logger log.Logger, cmd Command, v session.Visibility) (Response, error) {
	err := d.store.WithSession(ctx, cmd.Key, func(s *session.Session) error {
		s.SetVisibility(v)
		return nil
	})
	if err != nil {
		logger.Warn("visibility command failed", "error", err)
		return Response{}, err
	}

	logger.Info("chat visibility changed", "visibility", string(v))
	return Response{
		Text:     fmt.Sprintf("Chat privacy set to %s.", v),
		Audience: AudienceIssuer,
	}, nil
}

func (d *Dispatcher) setPersona(ctx context.Context, logger log.Logger, cmd Command) (Response, error) {
	name := strings.TrimSpace(cmd.Text)
	p, exact := d.personas.Get(name)

	err := d.store.WithSession(ctx, cmd.Key, func(s *session.Session) error {
		s.SetPersona(p.Name)
		return nil
	})
	if err != nil {
		logger.Warn("persona command failed", "error", err)
		return Response{}, err
	}

	text := fmt.Sprintf("Persona set to %s.", p.Name)
	if !exact {
		text = fmt.Sprintf("Unknown persona %q; using %s.", name, p.Name)
	}

	logger.Info("persona changed", "persona", p.Name)
	return Response{Text: text, Audience: AudienceIssuer}, nil
}

// audienceFor maps a session visibility mode onto a delivery audience.
func audienceFor(v session.Visibility) Audience {
	if v == session.VisibilityPrivate {
		return AudienceIssuer
	}
	return AudienceAll
}
