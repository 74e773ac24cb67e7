package store

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
)

const (
	// numLedgerShards spreads voters over independent locks so unrelated
	// casts do not queue behind each other.
	numLedgerShards = 64

	defaultLedgerTxTimeout = 5 * time.Second
)

// MemoryTx serializes casts for the same voter on a sharded lock. It cannot
// undo writes, so callers order the work so the conditional has-voted flip
// is the only write that can fail and it runs first.
type MemoryTx struct {
	shards  [numLedgerShards]sync.Mutex
	timeout time.Duration
}

func NewMemoryTx() *MemoryTx {
	return &MemoryTx{timeout: defaultLedgerTxTimeout}
}

func (t *MemoryTx) RunInTx(ctx context.Context, voterID id.VoterID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := &t.shards[shardFor(voterID)]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

func shardFor(voterID id.VoterID) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(voterID.String()))
	return h.Sum32() % numLedgerShards
}
