// Package discord is the thin gateway between Discord interactions and the
// relay dispatcher. It registers the slash commands, translates each
// interaction into a relay.Command, and delivers the response with the
// visibility the dispatcher decided: issuer-only responses go out as
// ephemeral messages.
//
// The dependency points one way. This package imports relay; the dispatcher
// never sees a Discord type.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/0xjasper/relaybot/internal/log"
	"github.com/0xjasper/relaybot/internal/persona"
	"github.com/0xjasper/relaybot/internal/relay"
	"github.com/0xjasper/relaybot/internal/session"
)

// Dispatcher handles one translated command. Implemented by relay.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd relay.Command) (relay.Response, error)
}

// Config contains the required gateway parameters.
type Config struct {
	// Token is the bot token, without the "Bot " prefix.
	Token string

	// AppID is the application whose commands are registered.
	AppID string

	// GuildID scopes command registration to one guild. Empty registers
	// globally (global propagation can take up to an hour).
	GuildID string

	Dispatcher Dispatcher
	Personas   *persona.Registry
	Logger     log.Logger
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Token == "" {
		return errors.New("bot token is required")
	}
	if cfg.AppID == "" {
		return errors.New("application ID is required")
	}
	if cfg.Dispatcher == nil {
		return errors.New("dispatcher is required")
	}
	if cfg.Personas == nil {
		return errors.New("persona registry is required")
	}
	return nil
}

// Gateway owns the Discord websocket session.
type Gateway struct {
	cfg     Config
	session *discordgo.Session
	logger  log.Logger
}

// New creates a gateway. The websocket is not opened until Run.
func New(cfg Config) (*Gateway, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ds, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	ds.Identify.Intents = discordgo.IntentsGuilds

	g := &Gateway{cfg: cfg, session: ds, logger: logger}
	ds.AddHandler(g.onInteraction)
	return g, nil
}

// Run opens the websocket, registers the slash commands, and blocks until
// ctx is canceled. The command set is overwritten wholesale on every start so
// stale definitions do not linger.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	defer g.session.Close()

	cmds := commandDefinitions(g.cfg.Personas.Names())
	if _, err := g.session.ApplicationCommandBulkOverwrite(g.cfg.AppID, g.cfg.GuildID, cmds); err != nil {
		return fmt.Errorf("registering slash commands: %w", err)
	}
	g.logger.Info("slash commands registered",
		"count", len(cmds),
		"guild_id", g.cfg.GuildID,
	)

	<-ctx.Done()
	g.logger.Info("discord gateway stopping")
	return nil
}

// commandDefinitions builds the slash-command set. Persona names become
// choices so users pick from the registry instead of free-typing.
func commandDefinitions(personaNames []string) []*discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(personaNames))
	for _, name := range personaNames {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: name,
		})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "chat",
			Description: "Send a message to the assistant",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "What to say",
					Required:    true,
				},
			},
		},
		{
			Name:        "reset",
			Description: "Clear your conversation history in this channel",
		},
		{
			Name:        "private",
			Description: "Make the assistant's replies visible only to you",
		},
		{
			Name:        "public",
			Description: "Make the assistant's replies visible to everyone",
		},
		{
			Name:        "persona",
			Description: "Choose the assistant's persona for this conversation",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Persona name",
					Required:    true,
					Choices:     choices,
				},
			},
		},
	}
}

// commandKinds maps slash-command names to dispatcher kinds.
var commandKinds = map[string]relay.Kind{
	"chat":    relay.KindChat,
	"reset":   relay.KindReset,
	"private": relay.KindPrivate,
	"public":  relay.KindPublic,
	"persona": relay.KindPersona,
}

// commandFromInteraction translates an application-command interaction into a
// relay command. Reports false for interactions the gateway does not handle.
func commandFromInteraction(i *discordgo.InteractionCreate) (relay.Command, bool) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return relay.Command{}, false
	}

	data := i.ApplicationCommandData()
	kind, ok := commandKinds[data.Name]
	if !ok {
		return relay.Command{}, false
	}

	var text string
	if len(data.Options) > 0 {
		text = data.Options[0].StringValue()
	}

	return relay.Command{
		Key:  session.Key{UserID: issuerID(i), ChannelID: i.ChannelID},
		Kind: kind,
		Text: text,
	}, true
}

// issuerID extracts the issuing user's ID. Guild interactions carry the user
// inside Member; direct messages carry it at the top level.
func issuerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// responder is the slice of discordgo.Session the interaction handler needs.
type responder interface {
	InteractionRespond(*discordgo.Interaction, *discordgo.InteractionResponse, ...discordgo.RequestOption) error
	InteractionResponseEdit(*discordgo.Interaction, *discordgo.WebhookEdit, ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(*discordgo.Interaction, ...discordgo.RequestOption) error
	FollowupMessageCreate(*discordgo.Interaction, bool, *discordgo.WebhookParams, ...discordgo.RequestOption) (*discordgo.Message, error)
}

func (g *Gateway) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	g.handleInteraction(context.Background(), s, i)
}

// handleInteraction runs one interaction end to end: deferred acknowledgment,
// dispatch, then delivery.
//
// The deferred acknowledgment must be sent within Discord's three-second
// budget, while a chat completion can take much longer. For chat the deferral
// is public and the result lands by editing it; if the session turned out to
// be private, the public placeholder is deleted and the reply goes out as an
// ephemeral followup instead. Every other command acknowledges ephemerally up
// front because its result is always issuer-only.
func (g *Gateway) handleInteraction(ctx context.Context, r responder, i *discordgo.InteractionCreate) {
	cmd, ok := commandFromInteraction(i)
	if !ok {
		return
	}

	logger := g.logger.With(
		"command", string(cmd.Kind),
		"user_id", cmd.Key.UserID,
		"channel_id", cmd.Key.ChannelID,
	)

	deferEphemeral := cmd.Kind != relay.KindChat
	if err := g.acknowledge(r, i, deferEphemeral); err != nil {
		logger.Error("acknowledging interaction failed", "error", err)
		return
	}

	resp, err := g.cfg.Dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		logger.Warn("command failed", "error", err)
		resp = relay.Notice(err)
	}

	if err := g.deliver(r, i, resp, deferEphemeral); err != nil {
		logger.Error("delivering response failed", "error", err)
	}
}

func (g *Gateway) acknowledge(r responder, i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

// deliver places the response according to its audience and how the
// interaction was deferred.
func (g *Gateway) deliver(r responder, i *discordgo.InteractionCreate, resp relay.Response, deferredEphemeral bool) error {
	issuerOnly := resp.Audience == relay.AudienceIssuer

	// Matching deferral: edit the placeholder in place. Ephemerality is
	// fixed at deferral time, so a mismatch cannot be edited in.
	if issuerOnly == deferredEphemeral {
		_, err := r.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
			Content: &resp.Text,
		})
		if err != nil {
			return fmt.Errorf("editing deferred response: %w", err)
		}
		return nil
	}

	// Deferred publicly but the response is issuer-only (private chat, or a
	// failure notice on a chat command): drop the public placeholder and
	// send an ephemeral followup. The reverse mismatch cannot happen; only
	// chat defers publicly and public responses only come from chat.
	if err := r.InteractionResponseDelete(i.Interaction); err != nil {
		return fmt.Errorf("removing public placeholder: %w", err)
	}

	params := &discordgo.WebhookParams{Content: resp.Text}
	if issuerOnly {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := r.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		return fmt.Errorf("sending followup: %w", err)
	}
	return nil
}
