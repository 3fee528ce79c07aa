// Package cmap provides a concurrent-safe sharded map.
//
// Keys are spread over a power-of-two number of shards, each guarded by
// its own RWMutex. Compute gives callers an atomic read-modify-write on a
// single key, which is what the in-process cache builds expiry on.
//
// Usage:
//
//	m := cmap.New[string, entry]()
//	m.Set("key", e)
//	val, ok := m.Get("key")
package cmap
