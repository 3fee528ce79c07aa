package durable

import (
	"context"
	"errors"

	"github.com/yndnr/shopmate-go/internal/core/domain"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("durable: store closed")

// Store is a write-once archive of expired sessions.
type Store interface {
	// Insert writes rec. A nil error means the write was acknowledged.
	Insert(ctx context.Context, rec *domain.DurableRecord) error

	// FindBySession returns every record archived for sessionID, oldest
	// first. No records is not an error.
	FindBySession(ctx context.Context, sessionID string) ([]*domain.DurableRecord, error)

	// Ping probes connectivity.
	Ping(ctx context.Context) error

	Close() error
}
