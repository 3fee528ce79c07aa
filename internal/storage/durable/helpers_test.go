package durable

import (
	"testing"
	"time"

	"github.com/yndnr/shopmate-go/internal/core/domain"
)

func newTestRecord(t *testing.T, sessionID, content string, at time.Time) *domain.DurableRecord {
	t.Helper()
	p := &domain.Payload{
		Data:     []domain.Turn{{"role": "user", "content": content}},
		Metadata: map[string]any{"channel": "web"},
	}
	rec, err := domain.NewDurableRecord(sessionID, p, at)
	if err != nil {
		t.Fatalf("NewDurableRecord() error = %v", err)
	}
	return rec
}
