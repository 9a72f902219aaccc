package model

// Event type names written to the journal.
const (
	EventPositionStaked      = "position_staked"
	EventPositionUnstaked    = "position_unstaked"
	EventEmergencyUnstaked   = "position_emergency_unstaked"
	EventRewardsClaimed      = "rewards_claimed"
	EventRewardRateChanged   = "reward_rate_changed"
	EventWindowExtended      = "window_extended"
	EventEmergencyEnabled    = "emergency_enabled"
	EventRewardBudgetDeposit = "reward_budget_deposited"
	EventOracleUpdateFailed  = "oracle_update_failed"
	EventValuationFallback   = "position_valuation_fallback_used"
)

// EventRecord is one journal entry.
type EventRecord struct {
	Type    string `json:"type"`
	At      int64  `json:"at"`
	User    string `json:"user,omitempty"`
	TokenID string `json:"token_id,omitempty"`
	Amount  string `json:"amount,omitempty"`
	Detail  string `json:"detail,omitempty"`
}
