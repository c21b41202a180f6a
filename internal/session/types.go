package session

import "time"

// Key identifies one ongoing conversation: the issuing user crossed with the
// channel the interaction occurred in. It is the sole lookup key into the
// Store. Comparable, so it can be used directly as a map key.
type Key struct {
	UserID    string
	ChannelID string
}

// Role tags a turn as originating from the user or the assistant.
type Role string

// Valid turn roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Visibility controls who sees responses for a conversation.
type Visibility string

// Visibility modes. The default for new sessions is explicit: VisibilityPublic.
const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Turn is one exchange unit in a conversation. Immutable once created.
type Turn struct {
	Role      Role
	Text      string
	Sequence  int
	CreatedAt time.Time
}
