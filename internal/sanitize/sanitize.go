// Package sanitize cleans and validates inbound chat input.
//
// Sanitization (control-character stripping, trimming) runs on every
// request body before validation; validation enforces the length and
// shape constraints of the chat API and reports stable machine-readable
// error codes.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for chat input.
const (
	MaxMessageLength   = 1000
	MaxSessionIDLength = 100
)

// Error codes surfaced to HTTP clients.
const (
	CodeInvalidMessage   = "INVALID_MESSAGE"
	CodeMessageTooLong   = "MESSAGE_TOO_LONG"
	CodeInvalidSessionID = "INVALID_SESSION_ID"
)

// ValidationError carries a stable code alongside a human-readable message.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Clean strips null bytes and C0/C1 control characters from s, keeping
// newlines and tabs, then trims surrounding whitespace.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7F || (r >= 0x80 && r <= 0x9F) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// CleanValue sanitizes every string reachable from v, recursing through
// JSON-shaped maps and slices. Non-string leaves pass through untouched.
func CleanValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return Clean(t)
	case map[string]interface{}:
		for k, e := range t {
			t[k] = CleanValue(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = CleanValue(e)
		}
		return t
	default:
		return v
	}
}

// ValidateMessage checks the chat message shape. The input is assumed to
// be already sanitized. Lengths are counted in runes, matching the
// user-visible notion of characters.
func ValidateMessage(message string) error {
	if message == "" {
		return &ValidationError{
			Code:    CodeInvalidMessage,
			Message: "message is required and must be a non-empty string",
		}
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return &ValidationError{
			Code:    CodeMessageTooLong,
			Message: "message too long (max 1000 characters)",
		}
	}
	return nil
}

// ValidateSessionID checks an optional client-supplied session id.
// An empty id is valid: the server generates one. Ids are opaque
// strings; the only constraint is the length cap.
func ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if utf8.RuneCountInString(sessionID) > MaxSessionIDLength {
		return &ValidationError{
			Code:    CodeInvalidSessionID,
			Message: "invalid session ID format",
		}
	}
	return nil
}
