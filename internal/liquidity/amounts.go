package liquidity

import "math/big"

// AmountsForLiquidity converts a liquidity magnitude plus a sqrt price range
// into the two underlying token amounts at the current sqrt price.
//
// Below the range the position is all token0, above it all token1, and in
// range it holds both legs split at the current price.
func AmountsForLiquidity(sqrtPriceX96, sqrtLowerX96, sqrtUpperX96, liq *big.Int) (amount0, amount1 *big.Int) {
	amount0 = big.NewInt(0)
	amount1 = big.NewInt(0)
	if liq == nil || liq.Sign() <= 0 || sqrtPriceX96 == nil || sqrtLowerX96 == nil || sqrtUpperX96 == nil {
		return amount0, amount1
	}

	lower, upper := sqrtLowerX96, sqrtUpperX96
	if lower.Cmp(upper) > 0 {
		lower, upper = upper, lower
	}
	if lower.Sign() <= 0 {
		return amount0, amount1
	}

	switch {
	case sqrtPriceX96.Cmp(lower) <= 0:
		amount0 = amount0ForRange(lower, upper, liq)
	case sqrtPriceX96.Cmp(upper) >= 0:
		amount1 = amount1ForRange(lower, upper, liq)
	default:
		amount0 = amount0ForRange(sqrtPriceX96, upper, liq)
		amount1 = amount1ForRange(lower, sqrtPriceX96, liq)
	}
	return amount0, amount1
}

// amount0 = liq * Q96 * (sqrtB - sqrtA) / (sqrtB * sqrtA)
func amount0ForRange(sqrtA, sqrtB, liq *big.Int) *big.Int {
	num := new(big.Int).Mul(liq, Q96)
	num.Mul(num, new(big.Int).Sub(sqrtB, sqrtA))
	den := new(big.Int).Mul(sqrtB, sqrtA)
	if den.Sign() == 0 {
		return big.NewInt(0)
	}
	return num.Div(num, den)
}

// amount1 = liq * (sqrtB - sqrtA) / Q96
func amount1ForRange(sqrtA, sqrtB, liq *big.Int) *big.Int {
	num := new(big.Int).Mul(liq, new(big.Int).Sub(sqrtB, sqrtA))
	return num.Div(num, Q96)
}
