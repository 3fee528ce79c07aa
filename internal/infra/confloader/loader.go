package confloader

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "SHOPMATE_"

// Loader loads configuration from multiple sources.
type Loader struct {
	k          *koanf.Koanf
	envPrefix  string
	filePath   string
	dotEnvPath string
	// known maps an env-style key (server_http_addr) to its dotted key.
	known map[string]string
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithDotEnv loads a .env file into the process environment before the
// environment is read. A missing file is not an error.
func WithDotEnv(path string) Option {
	return func(l *Loader) {
		l.dotEnvPath = path
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// FilePath returns the configured file path, if any.
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load loads configuration from all sources and unmarshals into target.
// Loading order (later sources override earlier):
//  1. Values already present in target (defaults)
//  2. Configuration file (YAML)
//  3. .env file, then environment variables
func (l *Loader) Load(target any) error {
	l.known = envKeys(target)

	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.LoadDotEnv(l.dotEnvPath); err != nil {
		return err
	}

	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	return nil
}

// Reload discards everything loaded so far and loads again into target,
// which should hold fresh defaults.
func (l *Loader) Reload(target any) error {
	l.k = koanf.New(".")
	return l.Load(target)
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	provider := file.Provider(path)
	if err := l.k.Load(provider, yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}

	return nil
}

// LoadDotEnv copies the variables of a .env file into the process
// environment without overriding variables that are already set.
func (l *Loader) LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load dotenv %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads configuration from environment variables.
// Environment variables use the format: SHOPMATE_SECTION_KEY (uppercase, underscores).
// Example: SHOPMATE_CACHE_REDIS_HEALTH_CHECK_INTERVAL=10s
//
// After Load has seen the target struct, variables are matched against its
// keys so that underscores inside a key survive, and variables naming no
// key are skipped (SHOPMATE_SERVER belongs to the CLI, not to the server
// section). Without a target every underscore is a separator.
func (l *Loader) LoadEnv() error {
	envTransformer := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		if key, ok := l.known[s]; ok {
			return key
		}
		if l.known != nil {
			return ""
		}
		return strings.ReplaceAll(s, "_", ".")
	}

	provider := env.Provider(l.envPrefix, ".", envTransformer)
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	return nil
}

// Unmarshal unmarshals the loaded configuration into the target struct.
// Uses koanf tags for struct field mapping.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// Get returns a value from the configuration by key.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}

// envKeys walks the koanf tags of target and indexes every leaf key by its
// environment spelling.
func envKeys(target any) map[string]string {
	keys := make(map[string]string)
	t := reflect.TypeOf(target)
	if t == nil {
		return keys
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return keys
	}
	collectKeys(t, "", keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys map[string]string) {
	for i := range t.NumField() {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("koanf"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		ft := f.Type
		if ft.Kind() == reflect.Struct {
			collectKeys(ft, key, keys)
			continue
		}
		keys[strings.ReplaceAll(key, ".", "_")] = key
	}
}
