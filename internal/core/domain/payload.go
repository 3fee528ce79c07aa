package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Turn is a single conversation turn. Only "content" is inspected;
// every other field (role, tool calls, ...) is carried through untouched.
type Turn map[string]any

// Payload is the weak contract over a session blob: an ordered list of
// turns under "data" and a free-form "metadata" mapping. Producers may
// send null for either field.
type Payload struct {
	Data     []Turn         `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

// ParsePayload decodes a stored session blob.
//
// A blob that is not a JSON object, or whose "data" is not an array of
// objects, or whose "metadata" is not an object, is malformed.
func ParsePayload(raw []byte) (*Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrMalformedPayload.WithDetails("payload is not a JSON object")
	}

	var p Payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, ErrMalformedPayload.WithCause(err)
	}
	return &p, nil
}

// ValidatePayload reports whether raw is a JSON value the store can hold.
func ValidatePayload(raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ErrInvalidPayload.WithDetails("payload is empty")
	}
	if !json.Valid(raw) {
		return ErrInvalidPayload.WithDetails("payload is not valid JSON")
	}
	return nil
}

// MeaningfulTurns returns the turns whose content is non-empty, in order.
func (p *Payload) MeaningfulTurns() []Turn {
	out := make([]Turn, 0, len(p.Data))
	for _, t := range p.Data {
		if t.HasContent() {
			out = append(out, t)
		}
	}
	return out
}

// HasContent reports whether the turn carries content worth archiving.
func (t Turn) HasContent() bool {
	v, ok := t["content"]
	if !ok || v == nil {
		return false
	}
	switch c := v.(type) {
	case string:
		return strings.TrimSpace(c) != ""
	case []any:
		return len(c) > 0
	case map[string]any:
		return len(c) > 0
	default:
		return true
	}
}
