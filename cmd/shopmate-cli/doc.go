// Command shopmate-cli talks to a running shopmate-server over HTTP.
//
// It creates, reads, updates and deletes sessions, lists what the
// persistence worker archived for a session, and exposes the admin
// surface: health, readiness, worker status and on-demand sweeps.
//
// Usage:
//
//	shopmate-cli session create --data '{"conversation_turns":[]}'
//	shopmate-cli -o json session archive 01HZX...
//	shopmate-cli -p staging system sweep
//
// Defaults are read from ~/.shopmate/cli.yaml; flags and SHOPMATE_
// variables override it.
package main
