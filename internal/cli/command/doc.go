// Package command defines the shopmate-cli commands using urfave/cli/v2.
//
//   - session: create, read, update and delete live sessions, show their
//     remaining TTL and list their archived records
//   - system: health, readiness, worker status and orphan sweeps
//   - config: validate and show a server config file locally
//
// Commands write to the app's Writer so they can be exercised in tests.
package command
