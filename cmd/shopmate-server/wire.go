package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/yndnr/shopmate-go/internal/core/persist"
	"github.com/yndnr/shopmate-go/internal/core/service"
	"github.com/yndnr/shopmate-go/internal/infra/shutdown"
	"github.com/yndnr/shopmate-go/internal/infra/tlsroots"
	"github.com/yndnr/shopmate-go/internal/server/config"
	"github.com/yndnr/shopmate-go/internal/server/httpserver/handler"
	"github.com/yndnr/shopmate-go/internal/storage/cache"
	"github.com/yndnr/shopmate-go/internal/storage/durable"
	"github.com/yndnr/shopmate-go/internal/telemetry/metric"
)

// sessionCache is what the session store and the worker need from a cache
// connection.
type sessionCache interface {
	cache.Cache
	cache.ExpirySource
}

type application struct {
	deps handler.Deps
}

// build opens every connection and starts the background components.
// Shutdown hooks are registered as resources open, so that hooks run in
// reverse: sweeper, worker, durable store, session cache.
func build(ctx context.Context, cfg *config.ServerConfig, log *slog.Logger, metrics *metric.Registry, stopper *shutdown.Handler) (*application, error) {
	sessions, err := openCache(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	stopper.OnShutdown("session-cache", func(context.Context) error { return sessions.Close() })

	archive, err := openDurable(ctx, cfg, log, metrics)
	if err != nil {
		return nil, fmt.Errorf("init durable store: %w", err)
	}
	// A running worker owns the archive connection and closes it on Stop.
	if !cfg.Worker.Enabled {
		stopper.OnShutdown("durable", func(context.Context) error { return archive.Close() })
	}

	// The worker listens on a dedicated connection; the in-process cache
	// has nothing to dedicate, so it is shared.
	shadowCache := sessions
	if cfg.Worker.Enabled && cfg.Cache.Driver == config.DriverRedis {
		if shadowCache, err = openCache(cfg, log); err != nil {
			_ = archive.Close()
			return nil, fmt.Errorf("init worker cache: %w", err)
		}
	}

	persister := persist.NewPersister(shadowCache, archive, persisterConfig(cfg),
		persist.WithPersisterLogger(log),
		persist.WithPersisterMetrics(metrics),
	)

	deps := handler.Deps{
		Sessions: service.NewSessionService(sessions, cfg.Session.TTL,
			service.WithSessionMetrics(metrics),
			service.WithSessionLogger(log),
		),
		Archive: service.NewArchiveService(archive),
		Checks: []handler.Check{
			{Name: "cache", Pinger: sessions},
			{Name: "durable", Pinger: archive},
		},
		Logger: log,
	}

	if cfg.Worker.Enabled {
		worker := persist.NewWorker(shadowCache, archive, persister, workerConfig(cfg),
			persist.WithWorkerLogger(log),
			persist.WithWorkerMetrics(metrics),
		)
		if err := worker.Start(ctx); err != nil {
			_ = worker.Stop(ctx)
			return nil, fmt.Errorf("start persistence worker: %w", err)
		}
		stopper.OnShutdown("worker", worker.Stop)
		if err := metrics.Registerer().Register(metric.NewCollector(worker.Stats)); err != nil {
			log.Warn("worker collector not registered", "error", err)
		}
		deps.Worker = worker
	} else {
		log.Warn("persistence worker disabled; expired sessions are only archived by the sweeper")
	}

	if cfg.Sweep.Enabled {
		sweeper := persist.NewSweeper(sessions, persister, persist.SweeperConfig{
			Schedule: cfg.Sweep.Schedule,
			Rate:     cfg.Sweep.Rate,
			Timeout:  cfg.Sweep.Timeout,
		},
			persist.WithSweeperLogger(log),
			persist.WithSweeperMetrics(metrics),
		)
		if err := sweeper.Start(); err != nil {
			return nil, fmt.Errorf("start sweeper: %w", err)
		}
		stopper.OnShutdown("sweeper", sweeper.Stop)
		deps.Sweeper = sweeper
	}

	return &application{deps: deps}, nil
}

func openCache(cfg *config.ServerConfig, log *slog.Logger) (sessionCache, error) {
	switch cfg.Cache.Driver {
	case config.DriverMemory:
		return cache.NewMemory(cache.WithLogger(log)), nil
	case config.DriverRedis:
		r := cfg.Cache.Redis
		tlsCfg, err := clientTLS(r.TLS)
		if err != nil {
			return nil, fmt.Errorf("cache.redis.tls: %w", err)
		}
		return cache.NewRedis(cache.RedisConfig{
			Addr:                r.Addr,
			Username:            r.Username,
			Password:            r.Password,
			DB:                  r.DB,
			DialTimeout:         r.DialTimeout,
			HealthCheckInterval: r.HealthCheckInterval,
			NotifyFlags:         r.NotifyFlags,
			ScanCount:           r.ScanCount,
			TLS:                 tlsCfg,
		}, log)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}

func openDurable(ctx context.Context, cfg *config.ServerConfig, log *slog.Logger, metrics *metric.Registry) (durable.Store, error) {
	d := cfg.Durable
	switch d.Driver {
	case config.DriverMemory:
		log.Warn("durable.driver is memory; archived sessions are lost on exit")
		return durable.NewMemory(), nil

	case config.DriverMongo:
		tlsCfg, err := clientTLS(d.Mongo.TLS)
		if err != nil {
			return nil, fmt.Errorf("durable.mongo.tls: %w", err)
		}
		m, err := durable.NewMongo(ctx, durable.MongoConfig{
			URI:            d.Mongo.URI,
			Database:       d.Mongo.Database,
			Collection:     d.Mongo.Collection,
			ConnectTimeout: d.Mongo.ConnectTimeout,
			TLS:            tlsCfg,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			log.Warn("mongo indexes not ensured", "error", err)
		}
		return m, nil

	case config.DriverBadger:
		b, err := durable.NewBadger(durable.BadgerConfig{
			Dir:         d.Badger.Dir,
			GCInterval:  d.Badger.GCInterval,
			GCThreshold: d.Badger.GCThreshold,
			SyncWrites:  d.Badger.SyncWrites,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := b.RegisterMetrics(metrics.Registerer()); err != nil {
			log.Warn("badger metrics not registered", "error", err)
		}
		return b, nil

	case config.DriverDynamoDB:
		return durable.NewDynamoFromConfig(ctx, durable.DynamoConfig{
			Table:    d.DynamoDB.Table,
			Region:   d.DynamoDB.Region,
			Endpoint: d.DynamoDB.Endpoint,
		})

	default:
		return nil, fmt.Errorf("unknown durable driver %q", d.Driver)
	}
}

// clientTLS returns nil when TLS is disabled.
func clientTLS(c config.ClientTLS) (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}
	return tlsroots.ClientConfig(tlsroots.ClientOptions{
		CAFile:             c.CAFile,
		ServerName:         c.ServerName,
		InsecureSkipVerify: c.InsecureSkipVerify,
	})
}

func persisterConfig(cfg *config.ServerConfig) persist.PersisterConfig {
	pc := persist.DefaultPersisterConfig()
	if cfg.Worker.InsertAttempts > 0 {
		pc.InsertAttempts = cfg.Worker.InsertAttempts
	}
	return pc
}

func workerConfig(cfg *config.ServerConfig) persist.WorkerConfig {
	w := cfg.Worker
	return persist.WorkerConfig{
		Backoff: persist.BackoffConfig{
			Initial:     w.Backoff.Initial,
			Max:         w.Backoff.Max,
			Multiplier:  w.Backoff.Multiplier,
			MaxAttempts: w.Backoff.MaxAttempts,
		},
		EventTimeout: w.EventTimeout,
		ProbeTimeout: w.ProbeTimeout,
	}
}
