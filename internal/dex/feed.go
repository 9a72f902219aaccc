package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"positionfarm/internal/chain"
)

// Feed binds a Chainlink-style aggregator and exposes its latest round.
type Feed struct {
	client *chain.Client
	addr   common.Address
}

func NewFeed(client *chain.Client, addr common.Address) *Feed {
	return &Feed{client: client, addr: addr}
}

// LatestPrice returns the most recent answer and its update timestamp.
func (f *Feed) LatestPrice(ctx context.Context) (answer *big.Int, updatedAt int64, err error) {
	aggABI, err := AggregatorABI()
	if err != nil {
		return nil, 0, err
	}
	values, err := callMethod(ctx, f.client, f.addr, aggABI, "latestRoundData")
	if err != nil {
		return nil, 0, err
	}
	if len(values) < 5 {
		return nil, 0, fmt.Errorf("latestRoundData returned %d values", len(values))
	}
	answer, err = asBigInt(values[1])
	if err != nil {
		return nil, 0, fmt.Errorf("answer: %w", err)
	}
	updated, err := asBigInt(values[3])
	if err != nil {
		return nil, 0, fmt.Errorf("updatedAt: %w", err)
	}
	return answer, int64(updated.Uint64()), nil
}

// Decimals reads the feed's answer precision.
func (f *Feed) Decimals(ctx context.Context) (uint8, error) {
	aggABI, err := AggregatorABI()
	if err != nil {
		return 0, err
	}
	values, err := callMethod(ctx, f.client, f.addr, aggABI, "decimals")
	if err != nil {
		return 0, err
	}
	return asUint8(values[0])
}
