package relay

import (
	"errors"
	"fmt"

	"github.com/0xjasper/relaybot/internal/llm"
	"github.com/0xjasper/relaybot/internal/session"
)

var (
	// ErrEmptyPrompt indicates a chat command without text. Rejected before
	// any session state is touched.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrUnknownCommand indicates a command kind the dispatcher does not know.
	ErrUnknownCommand = errors.New("unknown command")
)

// Notice converts a Dispatch error into the user-visible failure response.
// Failure notices are always issuer-only.
func Notice(err error) Response {
	var text string
	switch {
	case errors.Is(err, ErrEmptyPrompt):
		text = "Please provide a message to send."
	case errors.Is(err, session.ErrBusy):
		text = "Still working on your previous message. Try again in a moment."
	default:
		if kind, ok := llm.KindOf(err); ok {
			text = fmt.Sprintf(
				"The assistant could not reply (%s). Your message was kept; sending another will retry with it as context.",
				kind,
			)
		} else {
			text = "Something went wrong handling that command. Try again."
		}
	}
	return Response{Text: text, Audience: AudienceIssuer}
}
