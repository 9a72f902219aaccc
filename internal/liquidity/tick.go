package liquidity

import (
	"fmt"
	"math/big"
)

// MaxTick bounds the usable tick range (matches V3 TickMath).
const MaxTick = 887272

// Q96 is the fixed-point scale of sqrt prices (2^96).
var Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Pre-computed sqrt(1.0001^(2^i)) multipliers in Q128, one per tick bit.
var tickMultipliers = mustParseHex([]string{
	"fffcb933bd6fad37aa2d162d1a594001",
	"fff97272373d413259a46990580e213a",
	"fff2e50f5f656932ef12357cf3c7fdcc",
	"ffe5caca7e10e4e61c3624eaa0941cd0",
	"ffcb9843d60f6159c9db58835c926644",
	"ff973b41fa98c081472e6896dfb254c0",
	"ff2ea16466c96a3843ec78b326b52861",
	"fe5dee046a99a2a811c461f1969c3053",
	"fcbe86c7900a88aedcffc83b479aa3a4",
	"f987a7253ac413176f2b074cf7815e54",
	"f3392b0822b70005940c7a398e4b70f3",
	"e7159475a2c29b7443b29c7fa6e889d9",
	"d097f3bdfd2022b8845ad8f792aa5825",
	"a9f746462d870fdf8a65dc1f90e061e5",
	"70d869a156d2a1b890bb3df62baf32f7",
	"31be135f97d08fd981231505542fcfa6",
	"9aa508b5b7a84e1c677de54f3e99bc9",
	"5d6af8dedb81196699c329225ee604",
	"2216e584f5fa1ea926041bedfe98",
	"48a170391f7dc42444e8fa2",
})

func mustParseHex(values []string) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		parsed, ok := new(big.Int).SetString(v, 16)
		if !ok {
			panic("invalid tick multiplier constant")
		}
		out[i] = parsed
	}
	return out
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) in Q96 fixed point.
func SqrtRatioAtTick(tick int32) (*big.Int, error) {
	absTick := int64(tick)
	if absTick < 0 {
		absTick = -absTick
	}
	if absTick > MaxTick {
		return nil, fmt.Errorf("tick out of range: %d", tick)
	}

	ratio := new(big.Int).Lsh(big.NewInt(1), 128)
	for i, mul := range tickMultipliers {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, mul)
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio = new(big.Int).Div(maxUint256, ratio)
	}

	// Round up on any truncated bits, then shift Q128 down to Q96.
	ratio.Add(ratio, new(big.Int).SetUint64(0xFFFFFFFF))
	ratio.Rsh(ratio, 32)

	return ratio, nil
}
