package model

// PositionRecord is the persisted form of a staked position.
type PositionRecord struct {
	TokenID     string `json:"token_id"`
	Owner       string `json:"owner"`
	Liquidity   string `json:"liquidity"`
	USDValue    string `json:"usd_value"`
	RewardDebt  string `json:"reward_debt"`
	StakedAt    int64  `json:"staked_at"`
	LockUntil   int64  `json:"lock_until"`
	Boost       int64  `json:"boost"`
	TickLower   int32  `json:"tick_lower"`
	TickUpper   int32  `json:"tick_upper"`
	ApproxValue bool   `json:"approx_value,omitempty"`
}

// FarmStateRecord is a snapshot of the global ledger state.
type FarmStateRecord struct {
	AccPerShare       string `json:"acc_per_share"`
	TotalStakedValue  string `json:"total_staked_value"`
	RewardRate        string `json:"reward_rate"`
	RewardBudget      string `json:"reward_budget"`
	TotalDistributed  string `json:"total_distributed"`
	LastAccrualTime   int64  `json:"last_accrual_time"`
	FarmingStart      int64  `json:"farming_start"`
	FarmingEnd        int64  `json:"farming_end"`
	PositionCount     int    `json:"position_count"`
	Emergency         bool   `json:"emergency"`
	Paused            bool   `json:"paused"`
	SnapshotTakenUnix int64  `json:"snapshot_taken_unix"`
}
