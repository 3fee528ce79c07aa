// Package cache provides the TTL key-value layer that holds live sessions.
//
// Two implementations are available:
//
//   - Redis: go-redis client; expiry events come from keyspace notifications
//     on __keyevent@<db>__:expired.
//   - Memory: in-process sharded map with its own expiry loop; used for
//     development and tests.
//
// Both satisfy Cache and ExpirySource. Every single-key operation is atomic;
// nothing in this package spans keys transactionally.
package cache
