package cmap

import (
	"fmt"
	"hash/maphash"
	"sync"
)

// DefaultShardCount is used when no valid shard count is given.
const DefaultShardCount = 16

// Map is a map split into independently locked shards.
type Map[K comparable, V any] struct {
	seed   maphash.Seed
	mask   uint64
	shards []*shard[K, V]
}

type shard[K comparable, V any] struct {
	sync.RWMutex
	items map[K]V
}

// New returns a map with DefaultShardCount shards.
func New[K comparable, V any]() *Map[K, V] {
	return NewWithShards[K, V](DefaultShardCount)
}

// NewWithShards returns a map with n shards. n is rounded to the default
// unless it is a positive power of two.
func NewWithShards[K comparable, V any](n int) *Map[K, V] {
	if n <= 0 || n&(n-1) != 0 {
		n = DefaultShardCount
	}
	shards := make([]*shard[K, V], n)
	for i := range shards {
		shards[i] = &shard[K, V]{items: map[K]V{}}
	}
	return &Map[K, V]{
		seed:   maphash.MakeSeed(),
		mask:   uint64(n - 1),
		shards: shards,
	}
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	var sum uint64
	switch k := any(key).(type) {
	case string:
		sum = maphash.String(m.seed, k)
	default:
		sum = maphash.String(m.seed, fmt.Sprint(k))
	}
	return m.shards[sum&m.mask]
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.RLock()
	v, ok := s.items[key]
	s.RUnlock()
	return v, ok
}

func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.Lock()
	s.items[key] = value
	s.Unlock()
}

// Delete removes key. Deleting a missing key is a no-op.
func (m *Map[K, V]) Delete(key K) {
	s := m.shardFor(key)
	s.Lock()
	delete(s.items, key)
	s.Unlock()
}

// Count sums the shard sizes. Shards are read one at a time.
func (m *Map[K, V]) Count() int {
	n := 0
	for _, s := range m.shards {
		s.RLock()
		n += len(s.items)
		s.RUnlock()
	}
	return n
}
