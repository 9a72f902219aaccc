package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"positionfarm/internal/chain"
)

// RewardToken binds the ERC-20 reward token for payouts and balance reads.
type RewardToken struct {
	client *chain.Client
	addr   common.Address
	tx     *Transactor
}

func NewRewardToken(client *chain.Client, addr common.Address, tx *Transactor) *RewardToken {
	return &RewardToken{client: client, addr: addr, tx: tx}
}

// Transfer pays amount of the reward token to the recipient.
func (t *RewardToken) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	if t.tx == nil {
		return fmt.Errorf("dex: transactor not configured")
	}
	tokenABI, err := ERC20ABI()
	if err != nil {
		return err
	}
	data, err := tokenABI.Pack("transfer", to, amount)
	if err != nil {
		return fmt.Errorf("pack transfer: %w", err)
	}
	return t.tx.Send(ctx, t.addr, data)
}

// BalanceOf reads the token balance of an account.
func (t *RewardToken) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	tokenABI, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	values, err := callMethod(ctx, t.client, t.addr, tokenABI, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Decimals reads the token precision.
func (t *RewardToken) Decimals(ctx context.Context) (uint8, error) {
	tokenABI, err := ERC20ABI()
	if err != nil {
		return 0, err
	}
	values, err := callMethod(ctx, t.client, t.addr, tokenABI, "decimals")
	if err != nil {
		return 0, err
	}
	return asUint8(values[0])
}
