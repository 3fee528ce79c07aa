package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/shopmate-go/internal/core/domain"
	"github.com/yndnr/shopmate-go/internal/storage/cache"
	"github.com/yndnr/shopmate-go/internal/telemetry/metric"
)

// State is the worker lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateListening
	StateReconnecting
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateReconnecting:
		return "reconnecting"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// errWorkerClosed is returned by Start once Stop has released the
// worker's connections. A stopped worker cannot be restarted.
var errWorkerClosed = domain.ErrServiceUnavailable.WithDetails("worker is stopped")

// WorkerCache is the cache connection the worker owns.
type WorkerCache interface {
	cache.ExpirySource
	Ping(ctx context.Context) error
	Close() error
}

// WorkerArchive is the durable store connection the worker owns.
type WorkerArchive interface {
	Ping(ctx context.Context) error
	Close() error
}

// WorkerConfig tunes the worker.
type WorkerConfig struct {
	Backoff BackoffConfig
	// EventTimeout bounds the processing of a single event.
	EventTimeout time.Duration
	// ProbeTimeout bounds each startup connectivity probe.
	ProbeTimeout time.Duration
}

// DefaultWorkerConfig returns the default worker settings.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Backoff:      DefaultBackoffConfig(),
		EventTimeout: 30 * time.Second,
		ProbeTimeout: 5 * time.Second,
	}
}

// WorkerStatus is a snapshot of the worker for health reporting.
type WorkerStatus struct {
	State           string    `json:"state"`
	EventsProcessed uint64    `json:"events_processed"`
	EventsIgnored   uint64    `json:"events_ignored"`
	Reconnects      uint64    `json:"reconnects"`
	LastError       string    `json:"last_error,omitempty"`
	StartedAt       time.Time `json:"started_at,omitempty"`
}

// Worker turns expiry notifications into archived sessions.
//
// It owns its cache and archive connections: Stop closes both.
type Worker struct {
	cache     WorkerCache
	archive   WorkerArchive
	persister *Persister
	cfg       WorkerConfig
	sleep     Sleeper
	logger    *slog.Logger
	metrics   *metric.Registry

	state atomic.Int32

	mu        sync.Mutex
	stopped   bool
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
	lastErr   string
	closeOnce sync.Once
	closeErr  error

	eventsProcessed atomic.Uint64
	eventsIgnored   atomic.Uint64
	reconnects      atomic.Uint64
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerSleeper replaces the backoff sleep.
func WithWorkerSleeper(s Sleeper) WorkerOption {
	return func(w *Worker) { w.sleep = s }
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = l }
}

// WithWorkerMetrics records events and reconnects into m.
func WithWorkerMetrics(m *metric.Registry) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker creates a stopped worker.
func NewWorker(c WorkerCache, a WorkerArchive, p *Persister, cfg WorkerConfig, opts ...WorkerOption) *Worker {
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 30 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	w := &Worker{
		cache:     c,
		archive:   a,
		persister: p,
		cfg:       cfg,
		sleep:     SleepContext,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Start probes both connections and launches the listen loop.
//
// Probe failures are returned and leave the worker stopped. Once Start
// returns nil, connectivity failures are retried in the background. Start
// fails after Stop, including a Stop that lands while the probes run.
func (w *Worker) Start(ctx context.Context) error {
	if !w.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return domain.ErrWorkerRunning
	}
	if w.isStopped() {
		w.state.Store(int32(StateStopped))
		return errWorkerClosed
	}

	if err := w.probe(ctx); err != nil {
		w.setLastError(err)
		w.state.Store(int32(StateStopped))
		return domain.ErrServiceUnavailable.WithCause(err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	// Stop may have run while the probes were in progress; its connections
	// are already closed.
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		cancel()
		w.state.Store(int32(StateStopped))
		return errWorkerClosed
	}
	w.cancel = cancel
	w.done = done
	w.startedAt = time.Now()
	w.mu.Unlock()

	go w.run(loopCtx, done)

	w.logger.Info("persistence worker started")
	return nil
}

func (w *Worker) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

func (w *Worker) probe(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, w.cfg.ProbeTimeout)
	defer cancel()
	if err := w.cache.Ping(pctx); err != nil {
		return fmt.Errorf("cache unreachable: %w", err)
	}
	if err := w.archive.Ping(pctx); err != nil {
		return fmt.Errorf("archive unreachable: %w", err)
	}
	return nil
}

// Stop cancels the loop, waits for the in-flight event to finish and
// closes both connections. It is safe to call more than once and on a
// worker that never started. ctx bounds the wait for the loop.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	w.stopped = true
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel != nil {
		w.state.Store(int32(StateStopping))
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			w.logger.Warn("persistence worker did not stop in time", "error", ctx.Err())
		}
	}

	w.closeOnce.Do(func() {
		w.closeErr = errors.Join(w.cache.Close(), w.archive.Close())
	})
	w.state.Store(int32(StateStopped))
	if cancel != nil {
		w.logger.Info("persistence worker stopped",
			"events_processed", w.eventsProcessed.Load(),
			"reconnects", w.reconnects.Load())
	}
	return w.closeErr
}

// Status returns a snapshot for health reporting.
func (w *Worker) Status() WorkerStatus {
	w.mu.Lock()
	startedAt, lastErr := w.startedAt, w.lastErr
	w.mu.Unlock()

	return WorkerStatus{
		State:           w.State().String(),
		EventsProcessed: w.eventsProcessed.Load(),
		EventsIgnored:   w.eventsIgnored.Load(),
		Reconnects:      w.reconnects.Load(),
		LastError:       lastErr,
		StartedAt:       startedAt,
	}
}

// Stats adapts Status for the metrics collector.
func (w *Worker) Stats() metric.WorkerStats {
	return metric.WorkerStats{
		State:           w.State().String(),
		EventsProcessed: w.eventsProcessed.Load(),
	}
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	bo := NewBackoff(w.cfg.Backoff)
	for {
		err := w.listen(ctx, bo)
		if ctx.Err() != nil {
			return
		}

		w.setLastError(err)
		w.state.Store(int32(StateReconnecting))
		w.reconnects.Add(1)
		w.metrics.Reconnect()

		delay, ok := bo.Next()
		if !ok {
			w.logger.Error("persistence worker giving up after repeated cache failures",
				"attempts", bo.Attempts(),
				"error", err)
			w.state.Store(int32(StateStopped))
			return
		}
		w.logger.Warn("cache connection lost, reconnecting",
			"attempt", bo.Attempts(),
			"delay", delay,
			"error", err)

		if err := w.sleep(ctx, delay); err != nil {
			return
		}
	}
}

// listen subscribes and processes events until the subscription fails or
// ctx is cancelled. Subscribing re-enables expiry notifications.
func (w *Worker) listen(ctx context.Context, bo *Backoff) error {
	sub, err := w.cache.SubscribeExpired(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	if bo.Attempts() > 0 {
		w.logger.Info("cache connection restored", "attempts", bo.Attempts())
	}
	bo.Reset()
	w.state.Store(int32(StateListening))

	for {
		key, err := sub.Next(ctx)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		w.handle(ctx, key)
	}
}

// handle processes one expired key. Cancellation of ctx does not abort
// an event that is already being processed; EventTimeout bounds it.
func (w *Worker) handle(ctx context.Context, key string) {
	sessionID, ok := domain.SessionIDFromVolatileKey(key)
	if !ok {
		w.eventsIgnored.Add(1)
		w.metrics.ExpiryEvent("ignored")
		return
	}
	w.metrics.ExpiryEvent("session")

	evCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.EventTimeout)
	defer cancel()

	if _, err := w.persister.Persist(evCtx, sessionID, SourceWorker); err != nil {
		w.setLastError(err)
	}
	w.eventsProcessed.Add(1)
}

func (w *Worker) setLastError(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	w.lastErr = err.Error()
	w.mu.Unlock()
}
