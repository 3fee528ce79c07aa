// Package domain defines the core domain models for shopmate.
package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Key namespaces in the cache layer.
const (
	// SessionKeyPrefix prefixes the volatile (TTL-bound) copy of a session.
	SessionKeyPrefix = "session:"

	// ShadowKeyPrefix prefixes the shadow (non-expiring) copy of a session.
	ShadowKeyPrefix = "session:shadow:"
)

// MaxSessionIDLength bounds client-supplied session IDs.
const MaxSessionIDLength = 128

// EmptyPayload is returned to readers when no volatile copy exists.
var EmptyPayload = []byte("{}")

// NewSessionID generates a fresh session identifier (UUID v4).
func NewSessionID() string {
	return uuid.NewString()
}

// ValidateSessionID checks a session ID received from a client before any
// key is built from it.
//
// IDs stay opaque, but an ID beginning with "shadow:" is rejected: its
// volatile key would be the shadow key of another session.
func ValidateSessionID(id string) error {
	if id == "" {
		return ErrMissingArgument.WithDetails("session_id is required")
	}
	if len(id) > MaxSessionIDLength {
		return ErrInvalidSessionID.WithDetails(fmt.Sprintf("longer than %d bytes", MaxSessionIDLength))
	}
	if strings.HasPrefix(VolatileKey(id), ShadowKeyPrefix) {
		return ErrInvalidSessionID.WithDetails(`must not start with "shadow:"`)
	}
	if !utf8.ValidString(id) {
		return ErrInvalidSessionID.WithDetails("not valid UTF-8")
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrInvalidSessionID.WithDetails("contains whitespace or control characters")
		}
	}
	return nil
}

// VolatileKey returns the TTL-bound cache key for a session.
func VolatileKey(sessionID string) string {
	return SessionKeyPrefix + sessionID
}

// ShadowKey returns the non-expiring cache key for a session.
func ShadowKey(sessionID string) string {
	return ShadowKeyPrefix + sessionID
}

// SessionIDFromVolatileKey extracts the session ID from a volatile key.
//
// Shadow keys share the "session:" prefix and are rejected, as are keys
// outside the namespace. The returned ID may be empty for the bare key
// "session:"; callers decide how to treat that.
func SessionIDFromVolatileKey(key string) (string, bool) {
	if !strings.HasPrefix(key, SessionKeyPrefix) || strings.HasPrefix(key, ShadowKeyPrefix) {
		return "", false
	}
	return key[len(SessionKeyPrefix):], true
}

// SessionIDFromShadowKey extracts the session ID from a shadow key.
func SessionIDFromShadowKey(key string) (string, bool) {
	if !strings.HasPrefix(key, ShadowKeyPrefix) {
		return "", false
	}
	return key[len(ShadowKeyPrefix):], true
}
