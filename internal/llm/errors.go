package llm

import (
	"errors"
	"fmt"
)

// Kind categorizes an upstream completion failure. The session core treats
// all kinds uniformly; the kind only surfaces in the user-visible failure
// notice for diagnostics.
type Kind int

// Upstream failure categories.
const (
	KindTransport Kind = iota
	KindTimeout
	KindRateLimited
	KindInvalidResponse
)

// String returns the human-readable category name used in failure notices.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate limited"
	case KindInvalidResponse:
		return "invalid response"
	default:
		return "transport error"
	}
}

// UpstreamError wraps a completion-service failure with its category.
type UpstreamError struct {
	Kind Kind
	Err  error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("completion failed: %s", e.Kind)
	}
	return fmt.Sprintf("completion failed (%s): %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure category from an error chain. The boolean is
// false when err does not originate from the completion client.
func KindOf(err error) (Kind, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind, true
	}
	return KindTransport, false
}
