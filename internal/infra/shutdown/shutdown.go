package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Hook is one named cleanup step.
type Hook struct {
	Name string
	Fn   func(context.Context) error
}

// Handler runs registered hooks when the process is asked to stop.
type Handler struct {
	timeout time.Duration
	logger  *slog.Logger
	signals []os.Signal

	mu      sync.Mutex
	hooks   []Hook
	trigger chan string
	once    sync.Once
	runOnce sync.Once
	done    chan struct{}
	shutErr error
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithSignals overrides the signals that start shutdown.
func WithSignals(sigs ...os.Signal) Option {
	return func(h *Handler) { h.signals = sigs }
}

// NewHandler creates a shutdown handler whose hooks share one timeout.
func NewHandler(timeout time.Duration, opts ...Option) *Handler {
	h := &Handler{
		timeout: timeout,
		logger:  slog.Default(),
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		trigger: make(chan string, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnShutdown registers a hook. Hooks run in reverse order of registration.
func (h *Handler) OnShutdown(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, Hook{Name: name, Fn: fn})
}

// Trigger starts shutdown without a signal, e.g. when a listener fails.
func (h *Handler) Trigger(reason string) {
	h.once.Do(func() { h.trigger <- reason })
}

// Wait blocks until a signal arrives, Trigger is called or ctx is done,
// then runs the hooks.
func (h *Handler) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, h.signals...)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		h.logger.Info("shutdown signal received", "signal", sig.String())
	case reason := <-h.trigger:
		h.logger.Info("shutdown triggered", "reason", reason)
	case <-ctx.Done():
		h.logger.Info("shutdown on context end", "error", ctx.Err())
	}

	return h.Shutdown()
}

// Shutdown runs every hook once, newest first, within the timeout. Later
// calls return the first result.
func (h *Handler) Shutdown() error {
	h.runOnce.Do(func() {
		defer close(h.done)

		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		h.mu.Lock()
		hooks := make([]Hook, len(h.hooks))
		copy(hooks, h.hooks)
		h.mu.Unlock()

		var errs []error
		for i := len(hooks) - 1; i >= 0; i-- {
			hook := hooks[i]
			start := time.Now()
			if err := hook.Fn(ctx); err != nil {
				h.logger.Error("shutdown hook failed", "hook", hook.Name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", hook.Name, err))
				continue
			}
			h.logger.Debug("shutdown hook done", "hook", hook.Name, "elapsed", time.Since(start))
		}
		h.shutErr = errors.Join(errs...)
	})
	<-h.done
	return h.shutErr
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
