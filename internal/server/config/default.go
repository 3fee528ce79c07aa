package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:8080"
	DefaultShutdownTimeout = 15 * time.Second

	DefaultSessionTTL = time.Hour

	DefaultCacheDriver         = DriverRedis
	DefaultRedisAddr           = "127.0.0.1:6379"
	DefaultDialTimeout         = 5 * time.Second
	DefaultHealthCheckInterval = 5 * time.Second
	DefaultNotifyFlags         = "Ex"
	DefaultScanCount           = 100

	DefaultDurableDriver   = DriverMongo
	DefaultMongoURI        = "mongodb://127.0.0.1:27017"
	DefaultMongoDatabase   = "Chats"
	DefaultMongoCollection = "chats"
	DefaultConnectTimeout  = 10 * time.Second
	DefaultBadgerDir       = "./data/archive"
	DefaultGCInterval      = 5 * time.Minute
	DefaultGCThreshold     = 0.5

	DefaultBackoffInitial    = 500 * time.Millisecond
	DefaultBackoffMax        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultEventTimeout      = 30 * time.Second
	DefaultProbeTimeout      = 5 * time.Second
	DefaultInsertAttempts    = 3

	DefaultSweepSchedule = "@every 10m"
	DefaultSweepRate     = 50.0
	DefaultSweepTimeout  = 5 * time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Driver names.
const (
	DriverRedis    = "redis"
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverBadger   = "badger"
	DriverDynamoDB = "dynamodb"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
		},
		Session: SessionSection{
			TTL: DefaultSessionTTL,
		},
		Cache: CacheSection{
			Driver: DefaultCacheDriver,
			Redis: RedisConfig{
				Addr:                DefaultRedisAddr,
				DialTimeout:         DefaultDialTimeout,
				HealthCheckInterval: DefaultHealthCheckInterval,
				NotifyFlags:         DefaultNotifyFlags,
				ScanCount:           DefaultScanCount,
			},
		},
		Durable: DurableSection{
			Driver: DefaultDurableDriver,
			Mongo: MongoConfig{
				URI:            DefaultMongoURI,
				Database:       DefaultMongoDatabase,
				Collection:     DefaultMongoCollection,
				ConnectTimeout: DefaultConnectTimeout,
			},
			Badger: BadgerConfig{
				Dir:         DefaultBadgerDir,
				GCInterval:  DefaultGCInterval,
				GCThreshold: DefaultGCThreshold,
			},
		},
		Worker: WorkerSection{
			Enabled: true,
			Backoff: BackoffConfig{
				Initial:    DefaultBackoffInitial,
				Max:        DefaultBackoffMax,
				Multiplier: DefaultBackoffMultiplier,
			},
			EventTimeout:   DefaultEventTimeout,
			ProbeTimeout:   DefaultProbeTimeout,
			InsertAttempts: DefaultInsertAttempts,
		},
		Sweep: SweepSection{
			Enabled:  true,
			Schedule: DefaultSweepSchedule,
			Rate:     DefaultSweepRate,
			Timeout:  DefaultSweepTimeout,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
