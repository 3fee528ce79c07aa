package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/shopmate-go/internal/core/domain"
	"github.com/yndnr/shopmate-go/internal/storage/cache"
	"github.com/yndnr/shopmate-go/internal/telemetry/metric"
)

// Outcome classifies one persistence attempt.
type Outcome string

const (
	// OutcomePersisted: a record was inserted and the shadow removed.
	OutcomePersisted Outcome = "persisted"
	// OutcomeNoShadow: nothing to do, the shadow is already gone.
	OutcomeNoShadow Outcome = "no_shadow"
	// OutcomeMalformed: the shadow could not be decoded and was discarded.
	OutcomeMalformed Outcome = "malformed"
	// OutcomeEmpty: nothing worth archiving; the shadow was removed.
	OutcomeEmpty Outcome = "empty"
	// OutcomeFailed: a dependency failed; the shadow is retained.
	OutcomeFailed Outcome = "failed"
	// OutcomeInFlight: another trigger in this process owns the session.
	OutcomeInFlight Outcome = "in_flight"
)

// Trigger sources, used as a metric label.
const (
	SourceWorker = "worker"
	SourceSweep  = "sweep"
)

// ShadowCache is the cache surface the Persister needs.
type ShadowCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Archive is the write side of the durable store.
type Archive interface {
	Insert(ctx context.Context, rec *domain.DurableRecord) error
}

// PersisterConfig tunes the insert retry.
type PersisterConfig struct {
	// InsertAttempts is the number of insert tries per attempt; at least 1.
	InsertAttempts int
	// InsertBackoff spaces the tries.
	InsertBackoff BackoffConfig
}

// DefaultPersisterConfig returns the default insert retry policy.
func DefaultPersisterConfig() PersisterConfig {
	return PersisterConfig{
		InsertAttempts: 3,
		InsertBackoff: BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        2 * time.Second,
			Multiplier: 2,
		},
	}
}

// Persister archives one session from its shadow copy.
type Persister struct {
	cache   ShadowCache
	archive Archive
	cfg     PersisterConfig
	sleep   Sleeper
	now     func() time.Time
	logger  *slog.Logger
	metrics *metric.Registry

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// PersisterOption configures a Persister.
type PersisterOption func(*Persister)

// WithPersisterSleeper replaces the sleep between insert tries.
func WithPersisterSleeper(s Sleeper) PersisterOption {
	return func(p *Persister) { p.sleep = s }
}

// WithPersisterClock replaces time.Now for persisted_at.
func WithPersisterClock(now func() time.Time) PersisterOption {
	return func(p *Persister) { p.now = now }
}

// WithPersisterLogger sets the logger.
func WithPersisterLogger(l *slog.Logger) PersisterOption {
	return func(p *Persister) { p.logger = l }
}

// WithPersisterMetrics records outcomes into m.
func WithPersisterMetrics(m *metric.Registry) PersisterOption {
	return func(p *Persister) { p.metrics = m }
}

// NewPersister creates a Persister.
func NewPersister(c ShadowCache, a Archive, cfg PersisterConfig, opts ...PersisterOption) *Persister {
	if cfg.InsertAttempts < 1 {
		cfg.InsertAttempts = 1
	}
	p := &Persister{
		cache:    c,
		archive:  a,
		cfg:      cfg,
		sleep:    SleepContext,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Persist archives sessionID from its shadow copy.
//
// The returned error is non-nil only for OutcomeFailed, and for
// OutcomePersisted when the record was written but the shadow could not
// be removed.
func (p *Persister) Persist(ctx context.Context, sessionID, source string) (Outcome, error) {
	if !p.claim(sessionID) {
		p.logger.Debug("persist skipped, already in flight", "session_id", sessionID, "source", source)
		return OutcomeInFlight, nil
	}
	defer p.release(sessionID)

	start := time.Now()
	outcome, err := p.persist(ctx, sessionID)
	p.metrics.Persisted(source, string(outcome), time.Since(start))

	log := p.logger.With("session_id", sessionID, "source", source, "outcome", string(outcome))
	switch {
	case err != nil:
		log.Error("session persistence failed", "error", err)
	case outcome == OutcomeMalformed:
		log.Warn("malformed shadow discarded")
	case outcome == OutcomePersisted:
		log.Info("session persisted")
	default:
		log.Debug("session persistence finished")
	}
	return outcome, err
}

func (p *Persister) persist(ctx context.Context, sessionID string) (Outcome, error) {
	shadowKey := domain.ShadowKey(sessionID)

	raw, err := p.cache.Get(ctx, shadowKey)
	if errors.Is(err, cache.ErrKeyNotFound) {
		return OutcomeNoShadow, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("read shadow: %w", err)
	}

	payload, err := domain.ParsePayload(raw)
	if err != nil {
		if derr := p.cache.Delete(ctx, shadowKey); derr != nil {
			return OutcomeFailed, fmt.Errorf("discard malformed shadow: %w", derr)
		}
		return OutcomeMalformed, nil
	}

	if !domain.IsArchivable(sessionID, payload) {
		if derr := p.cache.Delete(ctx, shadowKey); derr != nil {
			return OutcomeFailed, fmt.Errorf("discard empty shadow: %w", derr)
		}
		return OutcomeEmpty, nil
	}

	rec, err := domain.NewDurableRecord(sessionID, payload, p.now())
	if err != nil {
		return OutcomeFailed, err
	}
	if err := p.insert(ctx, rec); err != nil {
		return OutcomeFailed, err
	}

	if err := p.cache.Delete(ctx, shadowKey); err != nil {
		return OutcomePersisted, fmt.Errorf("delete shadow after insert: %w", err)
	}
	return OutcomePersisted, nil
}

func (p *Persister) insert(ctx context.Context, rec *domain.DurableRecord) error {
	bo := NewBackoff(p.cfg.InsertBackoff)
	var err error
	for attempt := 1; attempt <= p.cfg.InsertAttempts; attempt++ {
		if err = p.archive.Insert(ctx, rec); err == nil {
			return nil
		}
		if attempt == p.cfg.InsertAttempts {
			break
		}
		p.logger.Warn("archive insert failed, retrying",
			"session_id", rec.SessionID,
			"attempt", attempt,
			"error", err)
		delay, _ := bo.Next()
		if serr := p.sleep(ctx, delay); serr != nil {
			return fmt.Errorf("insert: %w (retry aborted: %v)", err, serr)
		}
	}
	return fmt.Errorf("insert after %d attempts: %w", p.cfg.InsertAttempts, err)
}

func (p *Persister) claim(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[sessionID]; busy {
		return false
	}
	p.inFlight[sessionID] = struct{}{}
	return true
}

func (p *Persister) release(sessionID string) {
	p.mu.Lock()
	delete(p.inFlight, sessionID)
	p.mu.Unlock()
}
