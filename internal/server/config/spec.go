package config

import "time"

// ServerConfig is the root configuration for shopmate-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Session SessionSection `koanf:"session"`
	Cache   CacheSection   `koanf:"cache"`
	Durable DurableSection `koanf:"durable"`
	Worker  WorkerSection  `koanf:"worker"`
	Sweep   SweepSection   `koanf:"sweep"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	TLSCertFile     string        `koanf:"tls_cert_file"`
	TLSKeyFile      string        `koanf:"tls_key_file"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SessionSection configures the session store.
type SessionSection struct {
	// TTL is applied to the volatile key on every write and read.
	TTL time.Duration `koanf:"ttl"`
}

// CacheSection selects and configures the cache layer.
type CacheSection struct {
	// Driver is "redis" or "memory".
	Driver string      `koanf:"driver"`
	Redis  RedisConfig `koanf:"redis"`
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr                string        `koanf:"addr"`
	Username            string        `koanf:"username"`
	Password            string        `koanf:"password"`
	DB                  int           `koanf:"db"`
	DialTimeout         time.Duration `koanf:"dial_timeout"`
	HealthCheckInterval time.Duration `koanf:"health_check_interval"`
	NotifyFlags         string        `koanf:"notify_flags"`
	ScanCount           int64         `koanf:"scan_count"`
	TLS                 ClientTLS     `koanf:"tls"`
}

// ClientTLS configures TLS towards a backing service.
type ClientTLS struct {
	Enabled bool `koanf:"enabled"`
	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile             string `koanf:"ca_file"`
	ServerName         string `koanf:"server_name"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify"`
}

// DurableSection selects and configures the durable store.
type DurableSection struct {
	// Driver is "mongo", "badger", "dynamodb" or "memory".
	Driver   string         `koanf:"driver"`
	Mongo    MongoConfig    `koanf:"mongo"`
	Badger   BadgerConfig   `koanf:"badger"`
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
}

// MongoConfig configures the MongoDB store.
type MongoConfig struct {
	// URI may be an ssm:<name> reference resolved at startup.
	URI            string        `koanf:"uri"`
	Database       string        `koanf:"database"`
	Collection     string        `koanf:"collection"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	TLS            ClientTLS     `koanf:"tls"`
}

// BadgerConfig configures the embedded Badger store.
type BadgerConfig struct {
	Dir         string        `koanf:"dir"`
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold"`
	SyncWrites  bool          `koanf:"sync_writes"`
}

// DynamoDBConfig configures the DynamoDB store.
type DynamoDBConfig struct {
	Table    string `koanf:"table"`
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
}

// WorkerSection configures the persistence worker.
type WorkerSection struct {
	Enabled        bool          `koanf:"enabled"`
	Backoff        BackoffConfig `koanf:"backoff"`
	EventTimeout   time.Duration `koanf:"event_timeout"`
	ProbeTimeout   time.Duration `koanf:"probe_timeout"`
	InsertAttempts int           `koanf:"insert_attempts"`
}

// BackoffConfig configures the reconnect backoff.
type BackoffConfig struct {
	Initial    time.Duration `koanf:"initial"`
	Max        time.Duration `koanf:"max"`
	Multiplier float64       `koanf:"multiplier"`
	// MaxAttempts of 0 retries forever with the delay capped at Max.
	MaxAttempts int `koanf:"max_attempts"`
}

// SweepSection configures the orphan sweeper.
type SweepSection struct {
	Enabled  bool          `koanf:"enabled"`
	Schedule string        `koanf:"schedule"`
	Rate     float64       `koanf:"rate"`
	Timeout  time.Duration `koanf:"timeout"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
