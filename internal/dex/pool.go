package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"positionfarm/internal/chain"
)

// Pool binds the V3 pool view methods used by the oracle.
type Pool struct {
	client *chain.Client
	addr   common.Address
}

func NewPool(client *chain.Client, addr common.Address) *Pool {
	return &Pool{client: client, addr: addr}
}

// Address returns the pool address.
func (p *Pool) Address() common.Address { return p.addr }

// Slot0 returns the instantaneous sqrt price (Q96) and tick.
func (p *Pool) Slot0(ctx context.Context) (*big.Int, int32, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, 0, err
	}
	values, err := callMethod(ctx, p.client, p.addr, poolABI, "slot0")
	if err != nil {
		return nil, 0, err
	}
	if len(values) < 2 {
		return nil, 0, fmt.Errorf("slot0 returned %d values", len(values))
	}
	sqrtP, err := asBigInt(values[0])
	if err != nil {
		return nil, 0, fmt.Errorf("sqrt price: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return nil, 0, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return nil, 0, err
	}
	return sqrtP, tick, nil
}

// Observe returns the tick cumulatives now and window seconds ago. Pools
// without enough observation history make the call revert, which surfaces
// here as an error for the caller's spot fallback.
func (p *Pool) Observe(ctx context.Context, window uint32) (latest, before int64, err error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return 0, 0, err
	}
	values, err := callMethod(ctx, p.client, p.addr, poolABI, "observe", []uint32{window, 0})
	if err != nil {
		return 0, 0, err
	}
	if len(values) < 1 {
		return 0, 0, fmt.Errorf("observe returned %d values", len(values))
	}
	cumulatives, ok := values[0].([]*big.Int)
	if !ok || len(cumulatives) != 2 {
		return 0, 0, fmt.Errorf("unexpected tick cumulatives %T", values[0])
	}
	// secondsAgos was [window, 0]: index 0 is the older observation.
	return cumulatives[1].Int64(), cumulatives[0].Int64(), nil
}

// Liquidity returns the pool's in-range liquidity.
func (p *Pool) Liquidity(ctx context.Context) (*big.Int, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, err
	}
	values, err := callMethod(ctx, p.client, p.addr, poolABI, "liquidity")
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Tokens returns the pool's token pair and fee tier.
func (p *Pool) Tokens(ctx context.Context) (token0, token1 common.Address, fee uint32, err error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}

	values, err := callMethod(ctx, p.client, p.addr, poolABI, "token0")
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	token0, err = asAddress(values[0])
	if err != nil {
		return common.Address{}, common.Address{}, 0, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, p.client, p.addr, poolABI, "token1")
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	token1, err = asAddress(values[0])
	if err != nil {
		return common.Address{}, common.Address{}, 0, fmt.Errorf("token1: %w", err)
	}

	values, err = callMethod(ctx, p.client, p.addr, poolABI, "fee")
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	feeInt, err := asBigInt(values[0])
	if err != nil {
		return common.Address{}, common.Address{}, 0, fmt.Errorf("fee: %w", err)
	}
	return token0, token1, uint32(feeInt.Uint64()), nil
}
