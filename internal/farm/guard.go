package farm

import "math/big"

// DrainScale reduces a pending reward in proportion to liquidity removed
// from the underlying pool after staking. A fully drained position earns
// nothing, a partially drained one earns currentLiquidity/recordedLiquidity
// of its raw pending, and intact positions are unaffected. This runs on
// every reward-computing path, never only at stake time: the drain happens
// after staking.
func DrainScale(pending, currentLiquidity, recordedLiquidity *big.Int) *big.Int {
	if pending == nil || pending.Sign() <= 0 {
		return big.NewInt(0)
	}
	if currentLiquidity == nil || currentLiquidity.Sign() == 0 {
		return big.NewInt(0)
	}
	if recordedLiquidity == nil || recordedLiquidity.Sign() == 0 {
		return big.NewInt(0)
	}
	if currentLiquidity.Cmp(recordedLiquidity) >= 0 {
		return new(big.Int).Set(pending)
	}
	scaled := new(big.Int).Mul(pending, currentLiquidity)
	return scaled.Div(scaled, recordedLiquidity)
}
