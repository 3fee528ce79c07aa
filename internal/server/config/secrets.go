package config

import (
	"context"
	"fmt"
	"strings"
)

// SecretPrefix marks a value that names a parameter store entry.
const SecretPrefix = "ssm:"

// SecretGetter fetches a parameter by name.
type SecretGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HasSecretRefs reports whether any secret-bearing field holds a reference.
func HasSecretRefs(cfg *ServerConfig) bool {
	for _, v := range secretFields(cfg) {
		if strings.HasPrefix(*v, SecretPrefix) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every ssm:<name> value in a secret-bearing field
// with the parameter's value.
func ResolveSecrets(ctx context.Context, cfg *ServerConfig, getter SecretGetter) error {
	for key, v := range secretFields(cfg) {
		name, ok := strings.CutPrefix(*v, SecretPrefix)
		if !ok {
			continue
		}
		if getter == nil {
			return fmt.Errorf("%s references %q but no parameter store is configured", key, name)
		}
		val, err := getter.GetParameter(ctx, name)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", key, err)
		}
		*v = val
	}
	return nil
}

func secretFields(cfg *ServerConfig) map[string]*string {
	return map[string]*string{
		"cache.redis.username": &cfg.Cache.Redis.Username,
		"cache.redis.password": &cfg.Cache.Redis.Password,
		"durable.mongo.uri":    &cfg.Durable.Mongo.URI,
	}
}
