package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yndnr/shopmate-go/internal/core/domain"
	"github.com/yndnr/shopmate-go/internal/storage/cache"
	"github.com/yndnr/shopmate-go/internal/telemetry/metric"
)

// DefaultSessionTTL is used when no TTL is configured.
const DefaultSessionTTL = time.Hour

// SessionCache is the cache surface SessionService needs.
type SessionCache interface {
	GetEx(ctx context.Context, key string, ttl time.Duration) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, key string) error
}

// SessionService manages live sessions.
//
// Every write goes to the shadow key first and the volatile key second,
// so the shadow is never older than what a reader last saw. The two
// writes are not transactional.
type SessionService struct {
	cache   SessionCache
	ttl     time.Duration
	metrics *metric.Registry
	logger  *slog.Logger
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithSessionMetrics records operation counters into m.
func WithSessionMetrics(m *metric.Registry) SessionOption {
	return func(s *SessionService) { s.metrics = m }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *SessionService) { s.logger = l }
}

// NewSessionService creates a SessionService. A non-positive ttl falls
// back to DefaultSessionTTL.
func NewSessionService(c SessionCache, ttl time.Duration, opts ...SessionOption) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &SessionService{cache: c, ttl: ttl}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// TTL returns the configured volatile lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// ============================================================================
// Create
// ============================================================================

// CreateSessionRequest contains parameters for session creation.
type CreateSessionRequest struct {
	Payload []byte // Required, any JSON value
}

// CreateSessionResponse contains the result of session creation.
type CreateSessionResponse struct {
	SessionID string
	ExpiresAt time.Time
}

// Create stores a new session under a fresh ID.
func (s *SessionService) Create(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	if err := domain.ValidatePayload(req.Payload); err != nil {
		s.metrics.SessionOp("create", "invalid")
		return nil, err
	}

	id := domain.NewSessionID()
	if err := s.write(ctx, id, req.Payload); err != nil {
		s.metrics.SessionOp("create", "error")
		return nil, err
	}

	s.metrics.SessionOp("create", "ok")
	s.logger.Debug("session created", "session_id", id)
	return &CreateSessionResponse{
		SessionID: id,
		ExpiresAt: time.Now().Add(s.ttl),
	}, nil
}

// ============================================================================
// Read
// ============================================================================

// GetSessionRequest contains parameters for session retrieval.
type GetSessionRequest struct {
	SessionID string
}

// GetSessionResponse contains the stored payload.
type GetSessionResponse struct {
	Payload []byte
	// Found is false when the volatile copy is gone; Payload is then {}.
	Found bool
}

// Get reads the volatile copy and resets its TTL.
//
// A missing session is not an error: the empty payload is returned.
// The shadow key is never consulted.
func (s *SessionService) Get(ctx context.Context, req *GetSessionRequest) (*GetSessionResponse, error) {
	if err := domain.ValidateSessionID(req.SessionID); err != nil {
		s.metrics.SessionOp("get", "invalid")
		return nil, err
	}

	value, err := s.cache.GetEx(ctx, domain.VolatileKey(req.SessionID), s.ttl)
	if errors.Is(err, cache.ErrKeyNotFound) {
		s.metrics.SessionOp("get", "miss")
		empty := make([]byte, len(domain.EmptyPayload))
		copy(empty, domain.EmptyPayload)
		return &GetSessionResponse{Payload: empty}, nil
	}
	if err != nil {
		s.metrics.SessionOp("get", "error")
		return nil, domain.ErrStorageError.WithCause(err)
	}

	s.metrics.SessionOp("get", "ok")
	return &GetSessionResponse{Payload: value, Found: true}, nil
}

// ============================================================================
// Update
// ============================================================================

// UpdateSessionRequest contains parameters for session overwrite.
type UpdateSessionRequest struct {
	SessionID string
	Payload   []byte
}

// Update overwrites both copies with a new payload and resets the TTL.
// It does not check that the session exists.
func (s *SessionService) Update(ctx context.Context, req *UpdateSessionRequest) error {
	if err := domain.ValidateSessionID(req.SessionID); err != nil {
		s.metrics.SessionOp("update", "invalid")
		return err
	}
	if err := domain.ValidatePayload(req.Payload); err != nil {
		s.metrics.SessionOp("update", "invalid")
		return err
	}

	if err := s.write(ctx, req.SessionID, req.Payload); err != nil {
		s.metrics.SessionOp("update", "error")
		return err
	}
	s.metrics.SessionOp("update", "ok")
	return nil
}

// ============================================================================
// Delete
// ============================================================================

// DeleteSessionRequest contains parameters for session deletion.
type DeleteSessionRequest struct {
	SessionID string
}

// Delete removes the volatile copy only. The shadow is left for the
// persistence path to archive and clean up. Deleting a missing session
// is not an error.
func (s *SessionService) Delete(ctx context.Context, req *DeleteSessionRequest) error {
	if err := domain.ValidateSessionID(req.SessionID); err != nil {
		s.metrics.SessionOp("delete", "invalid")
		return err
	}
	if err := s.cache.Delete(ctx, domain.VolatileKey(req.SessionID)); err != nil {
		s.metrics.SessionOp("delete", "error")
		return domain.ErrStorageError.WithCause(err)
	}
	s.metrics.SessionOp("delete", "ok")
	return nil
}

// ============================================================================
// Inspection
// ============================================================================

// Remaining returns how long the volatile copy has left. It does not
// reset the TTL.
func (s *SessionService) Remaining(ctx context.Context, sessionID string) (time.Duration, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return 0, err
	}
	d, err := s.cache.TTL(ctx, domain.VolatileKey(sessionID))
	if errors.Is(err, cache.ErrKeyNotFound) {
		return 0, domain.ErrSessionNotFound
	}
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return d, nil
}

func (s *SessionService) write(ctx context.Context, id string, payload []byte) error {
	if err := s.cache.Set(ctx, domain.ShadowKey(id), payload, 0); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	if err := s.cache.Set(ctx, domain.VolatileKey(id), payload, s.ttl); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}
