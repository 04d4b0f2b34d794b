package syncutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	var m ShardedMutex
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("account-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestLockPairNoDeadlockOnOppositeOrder(t *testing.T) {
	var m ShardedMutex
	done := make(chan struct{})

	go func() {
		var wg sync.WaitGroup
		for i := 0; i < 200; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				unlock := m.LockPair("alice", "bob")
				unlock()
			}()
			go func() {
				defer wg.Done()
				unlock := m.LockPair("bob", "alice")
				unlock()
			}()
		}
		wg.Wait()
		close(done)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("deadlock: lock pairs did not complete")
	}
}

func TestLockPairSameKey(t *testing.T) {
	var m ShardedMutex

	// Locking a key against itself must not self-deadlock.
	unlock := m.LockPair("alice", "alice")
	unlock()

	unlock = m.Lock("alice")
	unlock()
}
