// Package syncutil provides synchronization helpers for per-account locking.
package syncutil

import (
	"hash/fnv"
	"sync"
)

// ShardedMutex provides a fixed-size pool of mutexes keyed by string.
// Unlike sync.Map-based per-key locks, this uses bounded memory regardless
// of how many keys are seen, at the cost of occasional false sharing between
// keys that hash to the same shard.
type ShardedMutex struct {
	shards [256]sync.Mutex
}

// Lock acquires the mutex for the given key and returns an unlock function.
func (s *ShardedMutex) Lock(key string) func() {
	mu := &s.shards[s.shardIndex(key)]
	mu.Lock()
	return mu.Unlock
}

// LockPair acquires the mutexes for two keys in a stable shard order and
// returns a single unlock function. Acquiring in index order prevents
// deadlock when two goroutines lock the same pair in opposite directions.
// If both keys hash to the same shard, only one lock is taken.
func (s *ShardedMutex) LockPair(a, b string) func() {
	i, j := s.shardIndex(a), s.shardIndex(b)
	if i == j {
		s.shards[i].Lock()
		return s.shards[i].Unlock
	}
	if i > j {
		i, j = j, i
	}
	s.shards[i].Lock()
	s.shards[j].Lock()
	return func() {
		s.shards[j].Unlock()
		s.shards[i].Unlock()
	}
}

func (s *ShardedMutex) shardIndex(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % 256
}
