package config

import (
	"net/url"
	"strings"
)

// Sanitize returns a copy of the config with credentials masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Cache.Redis.Password != "" {
		sanitized.Cache.Redis.Password = maskSecret(sanitized.Cache.Redis.Password)
	}
	sanitized.Durable.Mongo.URI = maskURI(sanitized.Durable.Mongo.URI)

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// maskURI hides the password of a connection URI. Parameter store
// references carry no secret and are left alone.
func maskURI(raw string) string {
	if raw == "" || strings.HasPrefix(raw, SecretPrefix) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "****"
	}
	return u.Redacted()
}
