package store

import (
	"context"
	"sync"
	"time"

	id "profreg/pkg/domain"
	"profreg/pkg/platform/sentinel"
)

// numEntityShards spreads entity locks over a fixed set of mutexes so
// unrelated entities rarely contend while same-entity operations always
// serialize. 128 shards keeps contention low under concurrent publishes.
const numEntityShards = 128

// MemoryEntityTx is the in-process counterpart of PostgresEntityTx: a sharded
// keyed mutex instead of a row lock. Used with the in-memory stores in tests
// and local development.
type MemoryEntityTx struct {
	shards  [numEntityShards]sync.Mutex
	timeout time.Duration
}

func NewMemoryEntityTx() *MemoryEntityTx {
	return &MemoryEntityTx{timeout: defaultTxTimeout}
}

func (t *MemoryEntityTx) Run(ctx context.Context, entityID id.EntityID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return sentinel.ErrConflict
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := &t.shards[shardFor(entityID)]
	shard.Lock()
	defer shard.Unlock()

	// Re-check after acquiring the lock; a caller that gave up while queued
	// must not run its critical section.
	if err := ctx.Err(); err != nil {
		return sentinel.ErrConflict
	}
	return fn(ctx)
}

// RunNew has no existing entity to key on; entity allocation is already
// race-free on fresh identifiers, so fn runs without a lock.
func (t *MemoryEntityTx) RunNew(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return sentinel.ErrConflict
	}
	return fn(ctx)
}

// shardFor uses FNV-1a over the entity ID for shard distribution.
func shardFor(entityID id.EntityID) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	s := entityID.String()
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return int(h % numEntityShards)
}
