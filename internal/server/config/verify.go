package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Verify validates the configuration and reports every problem found.
func Verify(cfg *ServerConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	return errors.Join(
		verifyServer(&cfg.Server),
		verifySession(&cfg.Session),
		verifyCache(&cfg.Cache),
		verifyDurable(&cfg.Durable),
		verifyWorker(&cfg.Worker),
		verifySweep(&cfg.Sweep),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.http.addr %q: %w", cfg.HTTP.Addr, err))
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.http.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}

func verifySession(cfg *SessionSection) error {
	if cfg.TTL < time.Second {
		return fmt.Errorf("session.ttl must be at least 1s, got %s", cfg.TTL)
	}
	return nil
}

func verifyCache(cfg *CacheSection) error {
	switch cfg.Driver {
	case DriverMemory:
		return nil
	case DriverRedis:
	default:
		return fmt.Errorf("cache.driver %q is not one of redis, memory", cfg.Driver)
	}

	var errs []error
	if cfg.Redis.Addr == "" {
		errs = append(errs, errors.New("cache.redis.addr is required"))
	}
	if cfg.Redis.DB < 0 {
		errs = append(errs, errors.New("cache.redis.db must not be negative"))
	}
	if cfg.Redis.HealthCheckInterval <= 0 {
		errs = append(errs, errors.New("cache.redis.health_check_interval must be positive"))
	}
	if !strings.ContainsAny(cfg.Redis.NotifyFlags, "xA") || !strings.ContainsAny(cfg.Redis.NotifyFlags, "KE") {
		errs = append(errs, fmt.Errorf("cache.redis.notify_flags %q must enable expired events", cfg.Redis.NotifyFlags))
	}
	return errors.Join(errs...)
}

func verifyDurable(cfg *DurableSection) error {
	switch cfg.Driver {
	case DriverMemory:
	case DriverMongo:
		if cfg.Mongo.URI == "" {
			return errors.New("durable.mongo.uri is required")
		}
	case DriverBadger:
		if cfg.Badger.Dir == "" {
			return errors.New("durable.badger.dir is required")
		}
		if cfg.Badger.GCThreshold <= 0 || cfg.Badger.GCThreshold >= 1 {
			return fmt.Errorf("durable.badger.gc_threshold must be in (0, 1), got %v", cfg.Badger.GCThreshold)
		}
	case DriverDynamoDB:
		if cfg.DynamoDB.Table == "" {
			return errors.New("durable.dynamodb.table is required")
		}
	default:
		return fmt.Errorf("durable.driver %q is not one of mongo, badger, dynamodb, memory", cfg.Driver)
	}
	return nil
}

func verifyWorker(cfg *WorkerSection) error {
	if !cfg.Enabled {
		return nil
	}
	var errs []error
	b := cfg.Backoff
	if b.Initial <= 0 {
		errs = append(errs, errors.New("worker.backoff.initial must be positive"))
	}
	if b.Max < b.Initial {
		errs = append(errs, errors.New("worker.backoff.max must not be below initial"))
	}
	if b.Multiplier < 1 {
		errs = append(errs, errors.New("worker.backoff.multiplier must be at least 1"))
	}
	if b.MaxAttempts < 0 {
		errs = append(errs, errors.New("worker.backoff.max_attempts must not be negative"))
	}
	if cfg.EventTimeout <= 0 {
		errs = append(errs, errors.New("worker.event_timeout must be positive"))
	}
	if cfg.InsertAttempts < 1 {
		errs = append(errs, errors.New("worker.insert_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

func verifySweep(cfg *SweepSection) error {
	if !cfg.Enabled {
		return nil
	}
	var errs []error
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("sweep.schedule %q: %w", cfg.Schedule, err))
	}
	if cfg.Rate < 0 {
		errs = append(errs, errors.New("sweep.rate must not be negative"))
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, errors.New("sweep.timeout must be positive"))
	}
	return errors.Join(errs...)
}

func verifyLog(cfg *LogSection) error {
	var errs []error
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level))
	}
	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", cfg.Format))
	}
	return errors.Join(errs...)
}
