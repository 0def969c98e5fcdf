package llm

import (
	"errors"
	"strings"
)

// Failure reason categories for observability when recovery does not apply
// or does not succeed.
const (
	ReasonTruncated = "truncated_output"
	ReasonParse     = "parse_error"
	ReasonAPI       = "api_error"
	ReasonUnknown   = "unknown"
)

// Recover attempts to salvage a usable result from a malformed-output
// failure: models sometimes wrap valid JSON in markdown code fences or
// stray whitespace. Returns nil when the error is not recoverable; the
// caller falls through to normal failure handling.
func Recover(err error) *Result {
	var pe *Error
	if !errors.As(err, &pe) || pe.Kind != KindMalformedOutput || pe.RawText == "" {
		return nil
	}
	res, perr := ParseResult([]byte(stripCodeFences(pe.RawText)))
	if perr != nil {
		return nil
	}
	res.Recovered = true
	return res
}

// FailureReason categorizes a run failure for logging.
func FailureReason(err error) string {
	var pe *Error
	if !errors.As(err, &pe) {
		return ReasonUnknown
	}
	switch pe.Kind {
	case KindMalformedOutput:
		if trimmed := strings.TrimSpace(stripCodeFences(pe.RawText)); trimmed != "" && !strings.HasSuffix(trimmed, "}") {
			// JSON that stops mid-object means the model ran out of tokens.
			return ReasonTruncated
		}
		return ReasonParse
	case KindTimeout, KindRateLimited, KindUnavailable, KindUnauthorized, KindBadRequest:
		return ReasonAPI
	default:
		return ReasonUnknown
	}
}

// stripCodeFences trims whitespace and removes a wrapping markdown code
// fence (``` or ```json) if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line (which may carry a language tag).
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		return strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
