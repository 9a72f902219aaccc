package dex

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"positionfarm/internal/chain"
)

const defaultGasLimit = 300_000

// Transactor signs and submits state-changing calls from the farm's
// operator key.
type Transactor struct {
	client  *chain.Client
	key     *ecdsa.PrivateKey
	chainID *big.Int
	from    common.Address
}

// NewTransactor derives the sender address from the key.
func NewTransactor(client *chain.Client, key *ecdsa.PrivateKey, chainID *big.Int) (*Transactor, error) {
	if key == nil {
		return nil, fmt.Errorf("dex: signing key is required")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("dex: invalid chain id")
	}
	return &Transactor{
		client:  client,
		key:     key,
		chainID: new(big.Int).Set(chainID),
		from:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// From returns the operator address.
func (t *Transactor) From() common.Address { return t.from }

// Send signs and broadcasts a contract call, waiting only for acceptance
// into the pool, not for inclusion.
func (t *Transactor) Send(ctx context.Context, to common.Address, data []byte) error {
	nonce, err := t.client.PendingNonceAt(ctx, t.from)
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := t.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      defaultGasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(t.chainID), t.key)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	if err := t.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
