package session

import "errors"

// Sentinel errors for store operations. Check with errors.Is().
var (
	// ErrBusy indicates exclusive access to a conversation could not be
	// acquired within the configured bound, typically because another
	// command for the same conversation is still in flight. No state was
	// mutated; the caller should try again.
	ErrBusy = errors.New("conversation busy")
)
