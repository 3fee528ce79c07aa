// Command shopmate-server runs the session store.
//
// It serves the session HTTP API over a Redis (or in-process) cache and
// runs the persistence worker, which archives every expired session to
// the durable store (MongoDB, Badger or DynamoDB), plus the orphan
// sweeper that catches shadows no expiry event will reach.
//
// Usage:
//
//	shopmate-server --config /etc/shopmate/shopmate.yaml --env-file creds/.env
//
// Every config key can be overridden with a SHOPMATE_ variable, for
// example SHOPMATE_CACHE_REDIS_ADDR=redis:6379. Values of the form
// ssm:<name> are read from AWS SSM Parameter Store at startup.
package main
