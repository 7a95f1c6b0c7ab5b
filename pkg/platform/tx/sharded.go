package tx

import (
	"context"
	"sync"
	"time"

	dErrors "clockgate/pkg/domain-errors"
)

// Operations on the same key are serialized; different keys usually land on
// different shards and proceed in parallel.
const numShards = 128

const defaultLockTimeout = 5 * time.Second

// ShardedMutex serializes work per key using a fixed set of mutexes.
type ShardedMutex struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewShardedMutex(timeout time.Duration) *ShardedMutex {
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	return &ShardedMutex{timeout: timeout}
}

// Do runs fn while holding the shard for key. fn receives a context bounded
// by the mutex timeout unless ctx already carries a deadline.
func (m *ShardedMutex) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	shard := &m.shards[hashKey(key)%numShards]
	shard.Lock()
	defer shard.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}
	return fn(ctx)
}

// hashKey is FNV-1a.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
