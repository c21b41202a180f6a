// Package window bounds the slice of conversation history sent to the
// completion service.
//
// The policy is a deliberate approximation: a rune-count heuristic stands in
// for token accounting, which the upstream service does not let us compute
// exactly anyway. Rune counts behave sanely for both ASCII and CJK input.
package window

import "github.com/0xjasper/relaybot/internal/session"

// Default policy values, chosen to stay well under typical completion-service
// input limits.
const (
	DefaultMaxTurns     = 30
	DefaultMaxTurnRunes = 8000
)

// Policy selects the bounded context window. The zero value uses defaults.
type Policy struct {
	// MaxTurns is the maximum number of most-recent turns included.
	MaxTurns int

	// MaxTurnRunes caps the rune length of the most recent turn. When the
	// immediate request alone exceeds the budget its text is truncated from
	// the front, keeping the tail, so the user's request is never dropped
	// outright.
	MaxTurnRunes int
}

// Select returns the subset of history to send upstream: the most recent
// MaxTurns turns in original order. The input slice is not modified; a
// truncated final turn is a copy.
func (p Policy) Select(history []session.Turn) []session.Turn {
	maxTurns := p.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	maxRunes := p.MaxTurnRunes
	if maxRunes <= 0 {
		maxRunes = DefaultMaxTurnRunes
	}

	if len(history) == 0 {
		return nil
	}

	start := len(history) - maxTurns
	if start < 0 {
		start = 0
	}
	selected := make([]session.Turn, len(history)-start)
	copy(selected, history[start:])

	last := &selected[len(selected)-1]
	last.Text = truncateHead(last.Text, maxRunes)

	return selected
}

// truncateHead trims text to at most maxRunes runes, discarding the head and
// keeping the tail.
func truncateHead(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[len(runes)-maxRunes:])
}
