package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yndnr/shopmate-go/internal/core/domain"
	"github.com/yndnr/shopmate-go/internal/storage/durable"
)

type failingArchive struct{ err error }

func (f failingArchive) FindBySession(context.Context, string) ([]*domain.DurableRecord, error) {
	return nil, f.err
}

func TestArchiveService_List(t *testing.T) {
	ctx := context.Background()
	store := durable.NewMemory()
	p := &domain.Payload{Data: []domain.Turn{{"role": "user", "content": "hi"}}}
	rec, err := domain.NewDurableRecord("s1", p, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Insert(ctx, rec)

	svc := NewArchiveService(store)

	recs, err := svc.List(ctx, "s1")
	if err != nil || len(recs) != 1 || recs[0].SessionID != "s1" {
		t.Errorf("List(s1) = (%v, %v)", recs, err)
	}

	recs, err = svc.List(ctx, "s2")
	if err != nil || len(recs) != 0 {
		t.Errorf("List(s2) = (%v, %v), want empty", recs, err)
	}

	if _, err := svc.List(ctx, ""); !errors.Is(err, domain.ErrMissingArgument) {
		t.Errorf("List(\"\") error = %v, want ErrMissingArgument", err)
	}
	if _, err := svc.List(ctx, "shadow:s1"); !errors.Is(err, domain.ErrInvalidSessionID) {
		t.Errorf("List(shadow:s1) error = %v, want ErrInvalidSessionID", err)
	}
}

func TestArchiveService_StorageError(t *testing.T) {
	svc := NewArchiveService(failingArchive{err: errors.New("down")})
	if _, err := svc.List(context.Background(), "s1"); !errors.Is(err, domain.ErrStorageError) {
		t.Errorf("List() error = %v, want ErrStorageError", err)
	}
}
