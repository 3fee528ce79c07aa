// Package config holds shopmate-cli's own settings (~/.shopmate/cli.yaml):
// the default server, output format, request timeout and named server
// profiles. Command-line flags and SHOPMATE_* environment variables take
// precedence over the file.
package config
