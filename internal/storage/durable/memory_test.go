package durable

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemory_InsertFind(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()

	first := newTestRecord(t, "s1", "hi", now)
	second := newTestRecord(t, "s1", "again", now.Add(time.Second))
	other := newTestRecord(t, "s2", "other", now)

	if err := m.Insert(ctx, second); err != nil {
		t.Fatal(err)
	}
	if err := m.Insert(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := m.Insert(ctx, other); err != nil {
		t.Fatal(err)
	}

	recs, err := m.FindBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("FindBySession() error = %v", err)
	}
	if len(recs) != 2 || recs[0].ID != first.ID || recs[1].ID != second.ID {
		t.Errorf("FindBySession() returned %d records out of order", len(recs))
	}
	if m.Count() != 3 {
		t.Errorf("Count() = %d, want 3", m.Count())
	}

	recs, err = m.FindBySession(ctx, "none")
	if err != nil || len(recs) != 0 {
		t.Errorf("FindBySession(none) = (%d, %v), want empty", len(recs), err)
	}
}

func TestMemory_Failures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")

	m.FailInserts = boom
	if err := m.Insert(ctx, newTestRecord(t, "s1", "hi", time.Now())); !errors.Is(err, boom) {
		t.Errorf("Insert() error = %v, want boom", err)
	}
	m.FailPing = boom
	if err := m.Ping(ctx); !errors.Is(err, boom) {
		t.Errorf("Ping() error = %v, want boom", err)
	}

	_ = m.Close()
	if err := m.Ping(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() after Close error = %v, want ErrClosed", err)
	}
}
