package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/shopmate-go/pkg/cmap"
)

// ErrDisconnected is returned by Memory operations while Disconnect is in
// effect, and by subscriptions that were open when it was called.
var ErrDisconnected = errors.New("cache: disconnected")

const (
	defaultSweepInterval = 100 * time.Millisecond
	defaultEventBuffer   = 256
)

type memEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithClock replaces time.Now. Tests pair it with ExpireDue.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// WithSweepInterval sets how often due keys are expired in the background.
// Zero disables the background loop.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(m *Memory) { m.sweepInterval = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(m *Memory) { m.logger = logger }
}

// WithEventBuffer sets the per-subscriber event buffer.
func WithEventBuffer(n int) MemoryOption {
	return func(m *Memory) { m.eventBuffer = n }
}

// Memory is an in-process Store with the same expiry semantics as Redis:
// a key expires once, and every live subscriber sees one event for it.
type Memory struct {
	items         *cmap.Map[string, memEntry]
	now           func() time.Time
	sweepInterval time.Duration
	eventBuffer   int
	logger        *slog.Logger

	subMu sync.Mutex
	subs  map[*memSubscription]struct{}

	down   atomic.Bool
	closed atomic.Bool
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMemory creates an in-process cache and starts its expiry loop.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		items:         cmap.New[string, memEntry](),
		now:           time.Now,
		sweepInterval: defaultSweepInterval,
		eventBuffer:   defaultEventBuffer,
		subs:          make(map[*memSubscription]struct{}),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.eventBuffer <= 0 {
		m.eventBuffer = defaultEventBuffer
	}

	if m.sweepInterval > 0 {
		go m.expiryLoop()
	} else {
		close(m.doneCh)
	}
	return m
}

func (m *Memory) check() error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.down.Load() {
		return ErrDisconnected
	}
	return nil
}

// lookup returns the live entry for key, expiring it first if due.
func (m *Memory) lookup(key string) (memEntry, bool) {
	e, ok := m.items.Get(key)
	if !ok {
		return memEntry{}, false
	}
	if e.expired(m.now()) {
		m.expire(key)
		return memEntry{}, false
	}
	return e, true
}

// expire removes key if it is due and publishes exactly one event for it.
func (m *Memory) expire(key string) {
	now := m.now()
	removed := false
	m.items.Compute(key, func(e memEntry, exists bool) (memEntry, bool) {
		if exists && e.expired(now) {
			removed = true
			return e, false
		}
		return e, exists
	})
	if removed {
		m.publish(key)
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	e, ok := m.lookup(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return cloneBytes(e.value), nil
}

func (m *Memory) GetEx(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.lookup(key)

	var value []byte
	now := m.now()
	_, ok := m.items.Compute(key, func(e memEntry, exists bool) (memEntry, bool) {
		if !exists || e.expired(now) {
			return e, exists
		}
		value = e.value
		if ttl > 0 {
			e.expiresAt = now.Add(ttl)
		}
		return e, true
	})
	if !ok || value == nil {
		return nil, ErrKeyNotFound
	}
	return cloneBytes(value), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.check(); err != nil {
		return err
	}
	e := memEntry{value: cloneBytes(value)}
	if e.value == nil {
		e.value = []byte{}
	}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.items.Set(key, e)
	return nil
}

func (m *Memory) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	e, ok := m.lookup(key)
	if !ok {
		return 0, ErrKeyNotFound
	}
	if e.expiresAt.IsZero() {
		return -1, nil
	}
	return e.expiresAt.Sub(m.now()), nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	if err := m.check(); err != nil {
		return false, err
	}
	_, ok := m.lookup(key)
	return ok, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := m.check(); err != nil {
		return err
	}
	m.items.Delete(key)
	return nil
}

func (m *Memory) Scan(ctx context.Context, prefix string, fn func(key string) bool) error {
	if err := m.check(); err != nil {
		return err
	}
	for _, key := range m.items.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := m.lookup(key); !ok {
			continue
		}
		if !fn(key) {
			return nil
		}
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return m.check()
}

// Close stops the expiry loop and ends all subscriptions.
func (m *Memory) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	if m.sweepInterval > 0 {
		close(m.stopCh)
	}
	<-m.doneCh
	m.dropSubscriptions(ErrClosed)
	return nil
}

// Disconnect simulates a lost connection: open subscriptions fail and
// every call returns ErrDisconnected until Reconnect.
func (m *Memory) Disconnect() {
	m.down.Store(true)
	m.dropSubscriptions(ErrDisconnected)
}

// Reconnect ends a simulated outage.
func (m *Memory) Reconnect() {
	m.down.Store(false)
}

// ExpireDue expires every key whose deadline has passed.
func (m *Memory) ExpireDue() int {
	now := m.now()
	n := 0
	for _, key := range m.items.Keys() {
		e, ok := m.items.Get(key)
		if !ok || !e.expired(now) {
			continue
		}
		m.expire(key)
		n++
	}
	return n
}

func (m *Memory) expiryLoop() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.ExpireDue()
		}
	}
}

// SubscribeExpired subscribes to expirations. There is no server-side
// setting to enable; the call only fails while disconnected or closed.
func (m *Memory) SubscribeExpired(ctx context.Context) (Subscription, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	sub := &memSubscription{
		owner:  m,
		events: make(chan string, m.eventBuffer),
		done:   make(chan struct{}),
	}
	m.subMu.Lock()
	m.subs[sub] = struct{}{}
	m.subMu.Unlock()
	return sub, nil
}

func (m *Memory) publish(key string) {
	if m.down.Load() {
		return
	}
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for sub := range m.subs {
		select {
		case sub.events <- key:
		default:
			m.logger.Warn("cache: expiry event dropped, subscriber is full", "key", key)
		}
	}
}

func (m *Memory) dropSubscriptions(reason error) {
	m.subMu.Lock()
	subs := m.subs
	m.subs = make(map[*memSubscription]struct{})
	m.subMu.Unlock()

	for sub := range subs {
		sub.fail(reason)
	}
}

func (m *Memory) unsubscribe(sub *memSubscription) {
	m.subMu.Lock()
	delete(m.subs, sub)
	m.subMu.Unlock()
}

type memSubscription struct {
	owner  *Memory
	events chan string
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *memSubscription) fail(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

func (s *memSubscription) Next(ctx context.Context) (string, error) {
	// Drain buffered events before reporting failure.
	select {
	case key := <-s.events:
		return key, nil
	default:
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case key := <-s.events:
		return key, nil
	case <-s.done:
		return "", s.err
	}
}

func (s *memSubscription) Close() error {
	s.owner.unsubscribe(s)
	s.fail(ErrClosed)
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ Store = (*Memory)(nil)
