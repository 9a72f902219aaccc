package dex

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultInitCodeHash is the canonical Uniswap V3 pool init code hash.
const DefaultInitCodeHash = "0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54"

// ComputePoolAddress derives the CREATE2 address of the pool for a token
// pair and fee tier. Token order does not matter.
func ComputePoolAddress(factory common.Address, tokenA, tokenB common.Address, fee uint32, initCodeHash common.Hash) common.Address {
	token0, token1 := tokenA, tokenB
	if bytes.Compare(token0.Bytes(), token1.Bytes()) > 0 {
		token0, token1 = token1, token0
	}

	var salt [96]byte
	copy(salt[12:32], token0.Bytes())
	copy(salt[44:64], token1.Bytes())
	feeBytes := new(big.Int).SetUint64(uint64(fee)).FillBytes(make([]byte, 32))
	copy(salt[64:96], feeBytes)
	saltHash := crypto.Keccak256(salt[:])

	buf := make([]byte, 0, 85)
	buf = append(buf, 0xff)
	buf = append(buf, factory.Bytes()...)
	buf = append(buf, saltHash...)
	buf = append(buf, initCodeHash.Bytes()...)

	return common.BytesToAddress(crypto.Keccak256(buf)[12:])
}
