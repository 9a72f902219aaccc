package model

// PoolPriceInfo caches the last observed pool price. Best effort: fields may
// be zero or stale if the market was unreachable, consumers must tolerate it.
type PoolPriceInfo struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
	PairPrice    string `json:"pair_price,omitempty"`
	Liquidity    string `json:"liquidity,omitempty"`
	UpdatedAt    int64  `json:"updated_at"`
}
