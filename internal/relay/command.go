package relay

import "github.com/0xjasper/relaybot/internal/session"

// Kind identifies a slash command.
type Kind string

// Supported command kinds.
const (
	KindChat    Kind = "chat"
	KindReset   Kind = "reset"
	KindPrivate Kind = "private"
	KindPublic  Kind = "public"
	KindPersona Kind = "persona"
)

// Command is one inbound interaction, already stripped of platform detail.
// Text carries the prompt for chat and the persona name for persona; it is
// unused for the other kinds.
type Command struct {
	Key  session.Key
	Kind Kind
	Text string
}

// Audience says who may see a response.
type Audience int

const (
	// AudienceIssuer restricts the response to the command issuer.
	AudienceIssuer Audience = iota

	// AudienceAll shows the response to every participant in the channel.
	AudienceAll
)

// Response is the dispatcher's answer plus its delivery directive.
type Response struct {
	Text     string
	Audience Audience
}
