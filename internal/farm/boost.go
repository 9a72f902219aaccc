package farm

// BoostBase is the fixed-point base of boost multipliers (1000 = 1.0x).
const BoostBase = 1000

// MaxLockDays bounds the voluntary lock duration.
const MaxLockDays = 365

type boostTier struct {
	minDays uint32
	boost   int64
}

// Longest lock first; the first tier whose threshold is met wins.
var boostTiers = []boostTier{
	{minDays: 365, boost: 2000},
	{minDays: 180, boost: 1500},
	{minDays: 90, boost: 1250},
	{minDays: 30, boost: 1100},
	{minDays: 7, boost: 1050},
}

// BoostForLockDays maps a lock duration to its reward multiplier tier.
func BoostForLockDays(lockDays uint32) int64 {
	for _, tier := range boostTiers {
		if lockDays >= tier.minDays {
			return tier.boost
		}
	}
	return BoostBase
}
