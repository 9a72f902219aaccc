package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"positionfarm/internal/chain"
	"positionfarm/internal/farm"
)

// PositionManager binds the nonfungible position manager contract. It is
// the farm's custody collaborator: ownership lookups, position descriptors,
// and custody transfers.
type PositionManager struct {
	client *chain.Client
	addr   common.Address
	tx     *Transactor
}

func NewPositionManager(client *chain.Client, addr common.Address, tx *Transactor) *PositionManager {
	return &PositionManager{client: client, addr: addr, tx: tx}
}

// OwnerOf returns the current owner of a position NFT.
func (m *PositionManager) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	managerABI, err := PositionManagerABI()
	if err != nil {
		return common.Address{}, err
	}
	values, err := callMethod(ctx, m.client, m.addr, managerABI, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// DescribePosition reads the pair, fee tier, range and current liquidity of
// a position.
func (m *PositionManager) DescribePosition(ctx context.Context, tokenID *big.Int) (farm.PositionDescriptor, error) {
	managerABI, err := PositionManagerABI()
	if err != nil {
		return farm.PositionDescriptor{}, err
	}
	values, err := callMethod(ctx, m.client, m.addr, managerABI, "positions", tokenID)
	if err != nil {
		return farm.PositionDescriptor{}, err
	}
	if len(values) < 8 {
		return farm.PositionDescriptor{}, fmt.Errorf("positions returned %d values", len(values))
	}

	token0, err := asAddress(values[2])
	if err != nil {
		return farm.PositionDescriptor{}, fmt.Errorf("token0: %w", err)
	}
	token1, err := asAddress(values[3])
	if err != nil {
		return farm.PositionDescriptor{}, fmt.Errorf("token1: %w", err)
	}
	feeInt, err := asBigInt(values[4])
	if err != nil {
		return farm.PositionDescriptor{}, fmt.Errorf("fee: %w", err)
	}
	lowerInt, err := asBigInt(values[5])
	if err != nil {
		return farm.PositionDescriptor{}, fmt.Errorf("tick lower: %w", err)
	}
	tickLower, err := int24FromBig(lowerInt)
	if err != nil {
		return farm.PositionDescriptor{}, fmt.Errorf("tick lower: %w", err)
	}
	upperInt, err := asBigInt(values[6])
	if err != nil {
		return farm.PositionDescriptor{}, fmt.Errorf("tick upper: %w", err)
	}
	tickUpper, err := int24FromBig(upperInt)
	if err != nil {
		return farm.PositionDescriptor{}, fmt.Errorf("tick upper: %w", err)
	}
	liquidity, err := asBigInt(values[7])
	if err != nil {
		return farm.PositionDescriptor{}, fmt.Errorf("liquidity: %w", err)
	}

	return farm.PositionDescriptor{
		Token0:    token0,
		Token1:    token1,
		Fee:       uint32(feeInt.Uint64()),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: liquidity,
	}, nil
}

// TransferCustody moves the position NFT between the user and the farm.
func (m *PositionManager) TransferCustody(ctx context.Context, from, to common.Address, tokenID *big.Int) error {
	if m.tx == nil {
		return fmt.Errorf("dex: transactor not configured")
	}
	managerABI, err := PositionManagerABI()
	if err != nil {
		return err
	}
	data, err := managerABI.Pack("safeTransferFrom", from, to, tokenID)
	if err != nil {
		return fmt.Errorf("pack safeTransferFrom: %w", err)
	}
	return m.tx.Send(ctx, m.addr, data)
}
