package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/yndnr/shopmate-go/internal/core/domain"
	"github.com/yndnr/shopmate-go/internal/telemetry/metric"
)

// SweepCache is the cache surface the Sweeper needs.
type SweepCache interface {
	Scan(ctx context.Context, prefix string, fn func(key string) bool) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SweeperConfig tunes the orphan sweep.
type SweeperConfig struct {
	// Schedule is a cron spec, e.g. "@every 10m" or "*/5 * * * *".
	Schedule string
	// Rate caps persistence attempts per second; 0 means unlimited.
	Rate float64
	// Timeout bounds one scheduled sweep.
	Timeout time.Duration
}

// DefaultSweeperConfig returns the default sweep settings.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Schedule: "@every 10m",
		Rate:     50,
		Timeout:  5 * time.Minute,
	}
}

// SweepResult summarises one sweep.
type SweepResult struct {
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Scanned   int             `json:"scanned"`
	Orphans   int             `json:"orphans"`
	Suspects  int             `json:"suspects"`
	Outcomes  map[Outcome]int `json:"outcomes"`
}

// Sweeper persists shadow keys that no expiry event will ever reach.
//
// A shadow is an orphan when its volatile key is absent. It is persisted
// only when it was already an orphan on the previous sweep, so a session
// whose expiry event is still on its way to the worker is left alone.
type Sweeper struct {
	cache     SweepCache
	persister *Persister
	cfg       SweeperConfig
	limiter   *rate.Limiter
	logger    *slog.Logger
	metrics   *metric.Registry

	sweepMu  sync.Mutex
	suspects map[string]struct{}

	mu   sync.Mutex
	cron *cron.Cron
	last *SweepResult
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the logger.
func WithSweeperLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = l }
}

// WithSweeperMetrics records sweep results into m.
func WithSweeperMetrics(m *metric.Registry) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

// NewSweeper creates a Sweeper. Call Start to run it on a schedule.
func NewSweeper(c SweepCache, p *Persister, cfg SweeperConfig, opts ...SweeperOption) *Sweeper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	limit := rate.Inf
	burst := 1
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
		burst = int(cfg.Rate)
		if burst < 1 {
			burst = 1
		}
	}

	s := &Sweeper{
		cache:     c,
		persister: p,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, burst),
		suspects:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start schedules sweeps. It fails on an invalid schedule.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("scheduled sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("sweeper: invalid schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.cron = c

	s.logger.Info("orphan sweeper started", "schedule", s.cfg.Schedule, "rate", s.cfg.Rate)
	return nil
}

// Stop unschedules sweeps and waits for a running one to finish, or for
// ctx to be done.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		s.logger.Info("orphan sweeper stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sweeper: stop: %w", ctx.Err())
	}
}

// Last returns the result of the most recent sweep, or nil.
func (s *Sweeper) Last() *SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Sweep runs one pass. Only one sweep runs at a time; a concurrent call
// gets ErrSweepInProgress.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	if !s.sweepMu.TryLock() {
		return nil, domain.ErrSweepInProgress
	}
	defer s.sweepMu.Unlock()

	res := &SweepResult{StartedAt: time.Now(), Outcomes: make(map[Outcome]int)}

	var ids []string
	err := s.cache.Scan(ctx, domain.ShadowKeyPrefix, func(key string) bool {
		if id, ok := domain.SessionIDFromShadowKey(key); ok {
			ids = append(ids, id)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("sweeper: scan: %w", err)
	}
	res.Scanned = len(ids)

	nextSuspects := make(map[string]struct{})
	var due []string
	for _, id := range ids {
		alive, err := s.cache.Exists(ctx, domain.VolatileKey(id))
		if err != nil {
			return nil, fmt.Errorf("sweeper: check %s: %w", id, err)
		}
		if alive {
			continue
		}
		res.Orphans++
		if _, seen := s.suspects[id]; seen {
			due = append(due, id)
		} else {
			nextSuspects[id] = struct{}{}
		}
	}

	for i, id := range due {
		if err := s.limiter.Wait(ctx); err != nil {
			// Unprocessed orphans stay suspects for the next sweep.
			for _, rest := range due[i:] {
				nextSuspects[rest] = struct{}{}
			}
			s.suspects = nextSuspects
			return nil, fmt.Errorf("sweeper: %w", err)
		}
		outcome, _ := s.persister.Persist(ctx, id, SourceSweep)
		res.Outcomes[outcome]++
		if outcome == OutcomeFailed || outcome == OutcomeInFlight {
			nextSuspects[id] = struct{}{}
		}
	}

	s.suspects = nextSuspects
	res.Suspects = len(nextSuspects)
	res.Duration = time.Since(res.StartedAt)
	s.metrics.Swept(res.Orphans)

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	s.logger.Info("orphan sweep finished",
		"scanned", res.Scanned,
		"orphans", res.Orphans,
		"persisted", res.Outcomes[OutcomePersisted],
		"failed", res.Outcomes[OutcomeFailed],
		"elapsed", res.Duration)
	return res, nil
}
