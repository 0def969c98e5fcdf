package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/genai"
)

// Kind tags a provider failure at the adapter boundary so callers classify
// on the tag, never on message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindRateLimited
	KindUnavailable
	KindUnauthorized
	KindBadRequest
	KindMalformedOutput
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	case KindMalformedOutput:
		return "malformed_output"
	default:
		return "unknown"
	}
}

// Error is the tagged provider error. RawText carries whatever text the
// model produced when Kind is KindMalformedOutput, so recovery can attempt
// a repair.
type Error struct {
	Kind    Kind
	Model   string
	RawText string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm %s (%s): %v", e.Kind, e.Model, e.Err)
	}
	return fmt.Sprintf("llm %s (%s)", e.Kind, e.Model)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the tag of a provider error, or KindUnknown for anything
// else.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// IsTransient reports whether the failure is worth retrying. Unrecognized
// failures are permanent: failing fast beats an infinite retry loop.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindRateLimited, KindUnavailable:
		return true
	default:
		return false
	}
}

// classify maps SDK and network failures to tagged variants. Called only at
// the adapter boundary.
func classify(model string, err error) *Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return &Error{Kind: KindRateLimited, Model: model, Err: err}
		case apiErr.Code >= 500:
			return &Error{Kind: KindUnavailable, Model: model, Err: err}
		case apiErr.Code == 401 || apiErr.Code == 403:
			return &Error{Kind: KindUnauthorized, Model: model, Err: err}
		case apiErr.Code == 400:
			return &Error{Kind: KindBadRequest, Model: model, Err: err}
		default:
			return &Error{Kind: KindUnknown, Model: model, Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Model: model, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Model: model, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{Kind: KindUnavailable, Model: model, Err: err}
	}
	return &Error{Kind: KindUnknown, Model: model, Err: err}
}
