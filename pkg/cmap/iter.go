package cmap

// Range iterates over all key-value pairs until fn returns false.
//
// Locks are taken shard by shard, so the view is not a consistent snapshot.
// fn must not call back into the map.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.RUnlock()
				return
			}
		}
		s.RUnlock()
	}
}

// Keys returns all keys.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Count())
	m.Range(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Compute atomically replaces the value for key with the result of fn.
//
// fn receives the current value and whether it exists. When fn returns
// keep=false the key is removed (a no-op if it was absent). The shard lock
// is held while fn runs, so fn must be short and must not touch the map.
func (m *Map[K, V]) Compute(key K, fn func(value V, exists bool) (V, bool)) (V, bool) {
	s := m.shardFor(key)
	s.Lock()
	defer s.Unlock()

	current, exists := s.items[key]
	next, keep := fn(current, exists)
	if !keep {
		delete(s.items, key)
		var zero V
		return zero, false
	}
	s.items[key] = next
	return next, true
}
