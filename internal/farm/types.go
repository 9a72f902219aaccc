package farm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"positionfarm/internal/model"
)

// Position is one staked concentrated-liquidity position. Owned exclusively
// by the engine; Owner is a back-reference for authorization only.
type Position struct {
	TokenID     *big.Int
	Owner       common.Address
	Liquidity   *big.Int // recorded at stake time
	USDValue    *big.Int // Scale-scaled dollars at stake time
	RewardDebt  *big.Int
	StakedAt    int64
	LockUntil   int64 // 0 = unlocked
	Boost       int64 // BoostBase-scaled
	TickLower   int32
	TickUpper   int32
	ApproxValue bool
}

// PositionDescriptor is the on-chain view of a position as reported by the
// custody contract.
type PositionDescriptor struct {
	Token0    common.Address
	Token1    common.Address
	Fee       uint32
	TickLower int32
	TickUpper int32
	Liquidity *big.Int
}

// Custody is the external position NFT contract.
type Custody interface {
	OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error)
	TransferCustody(ctx context.Context, from, to common.Address, tokenID *big.Int) error
	DescribePosition(ctx context.Context, tokenID *big.Int) (PositionDescriptor, error)
}

// Valuator produces a Scale-scaled USD value for a position. approx is true
// when the value came from the degraded fallback estimate.
type Valuator interface {
	ValueOfPosition(ctx context.Context, desc PositionDescriptor) (value *big.Int, approx bool, err error)
}

// RewardToken pays out accrued rewards.
type RewardToken interface {
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error
}

// Sink receives journal events. Failures are diagnostic, never fatal.
type Sink interface {
	PutEvents(events []model.EventRecord) error
}

func (p *Position) record() model.PositionRecord {
	return model.PositionRecord{
		TokenID:     p.TokenID.String(),
		Owner:       p.Owner.Hex(),
		Liquidity:   p.Liquidity.String(),
		USDValue:    p.USDValue.String(),
		RewardDebt:  p.RewardDebt.String(),
		StakedAt:    p.StakedAt,
		LockUntil:   p.LockUntil,
		Boost:       p.Boost,
		TickLower:   p.TickLower,
		TickUpper:   p.TickUpper,
		ApproxValue: p.ApproxValue,
	}
}
