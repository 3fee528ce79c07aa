// Package config provides server configuration for shopmate.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation of drivers, durations and required fields
//   - sanitize.go: Log sanitization (hide credentials)
//   - secrets.go: Resolution of ssm: parameter references
//
// Configuration is loaded via internal/infra/confloader from defaults, a
// YAML file and SHOPMATE_ environment variables.
package config
