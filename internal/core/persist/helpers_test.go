package persist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/shopmate-go/internal/core/domain"
	"github.com/yndnr/shopmate-go/internal/storage/cache"
	"github.com/yndnr/shopmate-go/internal/storage/durable"
)

const (
	helloPayload = `{"data":[{"role":"user","content":"hi"}],"metadata":{}}`
	emptyPayload = `{"data":[],"metadata":{}}`
)

// recordingSleeper records requested delays and returns immediately.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.delays))
	copy(out, r.delays)
	return out
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestCache(t *testing.T) *cache.Memory {
	t.Helper()
	m := cache.NewMemory(cache.WithSweepInterval(0))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func putShadow(t *testing.T, c cache.Cache, id, payload string) {
	t.Helper()
	if err := c.Set(context.Background(), domain.ShadowKey(id), []byte(payload), 0); err != nil {
		t.Fatal(err)
	}
}

func hasKey(t *testing.T, c cache.Cache, key string) bool {
	t.Helper()
	ok, err := c.Exists(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	return ok
}

func records(t *testing.T, a *durable.Memory, id string) []*domain.DurableRecord {
	t.Helper()
	recs, err := a.FindBySession(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
