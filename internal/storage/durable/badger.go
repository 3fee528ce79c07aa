package durable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/shopmate-go/internal/core/domain"
)

const badgerRecordPrefix = "record:"

// BadgerConfig holds embedded archive settings.
type BadgerConfig struct {
	Dir         string
	GCInterval  time.Duration
	GCThreshold float64
	SyncWrites  bool
	// InMemory keeps everything in RAM; Dir is ignored.
	InMemory bool
}

// Badger stores records in an embedded Badger database.
//
// Keys are record:<session_id>:<record_id>. Record IDs are ULIDs, so a
// prefix scan returns a session's records in persistence order.
type Badger struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewBadger opens the archive and starts value log GC.
func NewBadger(cfg BadgerConfig, logger *slog.Logger) (*Badger, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 5 * time.Minute
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	b := &Badger{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go b.gcLoop()

	logger.Info("badger archive started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return b, nil
}

func badgerKey(sessionID, recordID string) []byte {
	return []byte(badgerRecordPrefix + sessionID + ":" + recordID)
}

func (b *Badger) Insert(ctx context.Context, rec *domain.DurableRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("badger: encode %s: %w", rec.SessionID, err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(rec.SessionID, rec.ID), value)
	})
	if err != nil {
		return fmt.Errorf("badger: insert %s: %w", rec.SessionID, err)
	}
	return nil
}

func (b *Badger) FindBySession(ctx context.Context, sessionID string) ([]*domain.DurableRecord, error) {
	recs := []*domain.DurableRecord{}

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerRecordPrefix + sessionID + ":")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var rec domain.DurableRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				recs = append(recs, &rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: find %s: %w", sessionID, err)
	}
	return recs, nil
}

func (b *Badger) Ping(ctx context.Context) error {
	if b.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// GC runs value log GC until there is nothing left to rewrite.
func (b *Badger) GC(ctx context.Context) (int, error) {
	runs := 0
	for ctx.Err() == nil {
		err := b.db.RunValueLogGC(b.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return runs, fmt.Errorf("badger: gc: %w", err)
		}
		runs++
	}

	b.lastGCTime.Store(time.Now().UnixMilli())
	b.gcRuns.Add(uint64(runs))
	if runs > 0 {
		b.logger.Info("badger gc completed", "rewrites", runs)
	}
	return runs, nil
}

func (b *Badger) gcLoop() {
	defer close(b.doneCh)

	if b.cfg.InMemory {
		<-b.stopCh
		return
	}

	ticker := time.NewTicker(b.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := b.GC(ctx); err != nil {
				b.logger.Error("badger auto gc failed", "error", err)
			}
			cancel()

		case <-b.stopCh:
			return
		}
	}
}

// RegisterMetrics exposes database size and GC gauges.
func (b *Badger) RegisterMetrics(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "shopmate",
			Subsystem: "archive_badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes",
		}, func() float64 {
			lsm, _ := b.db.Size()
			return float64(lsm)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "shopmate",
			Subsystem: "archive_badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes",
		}, func() float64 {
			_, vlog := b.db.Size()
			return float64(vlog)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "shopmate",
			Subsystem: "archive_badger",
			Name:      "last_gc_timestamp_seconds",
			Help:      "Unix timestamp of the last Badger GC run",
		}, func() float64 {
			return float64(b.lastGCTime.Load()) / 1000.0
		}),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("badger: register metrics: %w", err)
		}
	}
	return nil
}

func (b *Badger) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh

		if cerr := b.db.Close(); cerr != nil {
			err = fmt.Errorf("badger: close db: %w", cerr)
			return
		}
		b.logger.Info("badger archive closed")
	})
	return err
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

var _ Store = (*Badger)(nil)
