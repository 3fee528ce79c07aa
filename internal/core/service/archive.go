package service

import (
	"context"

	"github.com/yndnr/shopmate-go/internal/core/domain"
)

// ArchiveReader is the read side of the durable store.
type ArchiveReader interface {
	FindBySession(ctx context.Context, sessionID string) ([]*domain.DurableRecord, error)
}

// ArchiveService exposes persisted sessions.
type ArchiveService struct {
	store ArchiveReader
}

// NewArchiveService creates an ArchiveService.
func NewArchiveService(store ArchiveReader) *ArchiveService {
	return &ArchiveService{store: store}
}

// List returns every record archived for sessionID, oldest first.
// A session that was never archived yields an empty slice.
func (s *ArchiveService) List(ctx context.Context, sessionID string) ([]*domain.DurableRecord, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	recs, err := s.store.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return recs, nil
}
