package chain

import (
	"context"
	"sync/atomic"
	"time"
)

type blockReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Clock tracks the latest block timestamp so consumers reason in chain time
// rather than wall time. Sync is driven externally; Now never blocks.
type Clock struct {
	reader blockReader
	ts     atomic.Int64
}

func NewClock(reader blockReader) *Clock {
	return &Clock{reader: reader}
}

// Sync refreshes the cached timestamp from the latest block. Block time is
// monotonic, so a stale read between syncs only lags, never regresses.
func (c *Clock) Sync(ctx context.Context) error {
	number, err := c.reader.LatestBlockNumber(ctx)
	if err != nil {
		return err
	}
	ts, err := c.reader.BlockTimestamp(ctx, number)
	if err != nil {
		return err
	}
	c.ts.Store(int64(ts))
	return nil
}

// Now returns the last synced block time, falling back to wall time before
// the first successful sync.
func (c *Clock) Now() int64 {
	if ts := c.ts.Load(); ts > 0 {
		return ts
	}
	return time.Now().Unix()
}
