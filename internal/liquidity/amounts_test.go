package liquidity

import (
	"math/big"
	"testing"
)

func scaled(mulNum, mulDen int64) *big.Int {
	v := new(big.Int).Mul(Q96, big.NewInt(mulNum))
	return v.Div(v, big.NewInt(mulDen))
}

func TestAmountsForLiquidityBelowRange(t *testing.T) {
	lower := scaled(1, 1)
	upper := scaled(2, 1)
	price := scaled(1, 2)

	amount0, amount1 := AmountsForLiquidity(price, lower, upper, big.NewInt(1000))
	if amount0.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("amount0 = %s, want 500", amount0)
	}
	if amount1.Sign() != 0 {
		t.Fatalf("amount1 = %s, want 0", amount1)
	}
}

func TestAmountsForLiquidityAboveRange(t *testing.T) {
	lower := scaled(1, 1)
	upper := scaled(2, 1)
	price := scaled(3, 1)

	amount0, amount1 := AmountsForLiquidity(price, lower, upper, big.NewInt(1000))
	if amount0.Sign() != 0 {
		t.Fatalf("amount0 = %s, want 0", amount0)
	}
	if amount1.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("amount1 = %s, want 1000", amount1)
	}
}

func TestAmountsForLiquidityInRange(t *testing.T) {
	lower := scaled(1, 1)
	upper := scaled(2, 1)
	price := scaled(3, 2)

	amount0, amount1 := AmountsForLiquidity(price, lower, upper, big.NewInt(1000))
	// amount0 = 1000 * (2-1.5) / (2*1.5) = 166 after floor division
	if amount0.Cmp(big.NewInt(166)) != 0 {
		t.Fatalf("amount0 = %s, want 166", amount0)
	}
	// amount1 = 1000 * (1.5-1) = 500
	if amount1.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("amount1 = %s, want 500", amount1)
	}
}

func TestAmountsForLiquiditySwappedBounds(t *testing.T) {
	lower := scaled(2, 1)
	upper := scaled(1, 1)
	price := scaled(1, 2)

	amount0, _ := AmountsForLiquidity(price, lower, upper, big.NewInt(1000))
	if amount0.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("amount0 = %s, want 500 with normalized bounds", amount0)
	}
}

func TestAmountsForLiquidityZeroLiquidity(t *testing.T) {
	lower := scaled(1, 1)
	upper := scaled(2, 1)
	price := scaled(3, 2)

	amount0, amount1 := AmountsForLiquidity(price, lower, upper, big.NewInt(0))
	if amount0.Sign() != 0 || amount1.Sign() != 0 {
		t.Fatalf("zero liquidity should yield zero amounts, got %s/%s", amount0, amount1)
	}
}
