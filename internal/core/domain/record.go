package domain

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// DurableRecord is the archived form of an expired session.
// It is written once and never mutated.
type DurableRecord struct {
	// ID orders records by persistence time (ULID).
	ID                string         `json:"id" bson:"record_id"`
	SessionID         string         `json:"session_id" bson:"session_id"`
	ConversationTurns []Turn         `json:"conversation_turns" bson:"conversation_turns"`
	Metadata          map[string]any `json:"metadata" bson:"metadata"`
	PersistedAt       time.Time      `json:"persisted_at" bson:"persisted_at"`
}

// NewDurableRecord builds the archived form of a session from its
// meaningful turns. Callers check IsArchivable first.
func NewDurableRecord(sessionID string, p *Payload, now time.Time) (*DurableRecord, error) {
	id, err := NewRecordID(now)
	if err != nil {
		return nil, err
	}

	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return &DurableRecord{
		ID:                id,
		SessionID:         sessionID,
		ConversationTurns: p.MeaningfulTurns(),
		Metadata:          metadata,
		PersistedAt:       now.UTC(),
	}, nil
}

// IsArchivable reports whether a session is worth a durable record:
// it needs an ID and at least one meaningful turn.
func IsArchivable(sessionID string, p *Payload) bool {
	if sessionID == "" || p == nil {
		return false
	}
	for _, t := range p.Data {
		if t.HasContent() {
			return true
		}
	}
	return false
}

// NewRecordID generates a lexically time-ordered record ID.
func NewRecordID(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return id.String(), nil
}
