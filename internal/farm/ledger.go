package farm

import "math/big"

// Scale is the fixed-point scale shared by the reward accumulator and
// USD valuations (1e12).
var Scale = big.NewInt(1_000_000_000_000)

var (
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	scaleSq    = new(big.Int).Mul(Scale, Scale)
	debtDenom  = new(big.Int).Mul(scaleSq, big.NewInt(BoostBase))
)

// Ledger is the global reward-accrual state. AccPerShare accumulates
// elapsed * rewardRate * Scale; each position recovers its share at read
// time by multiplying with its own USD value, so the accumulator is never
// divided by the total staked value.
type Ledger struct {
	AccPerShare      *big.Int
	TotalStakedValue *big.Int
	RewardRate       *big.Int // reward units per second per Scale-scaled dollar
	LastAccrualTime  int64
	FarmingStart     int64
	FarmingEnd       int64
}

// NewLedger builds a ledger for the given farming window and rate.
func NewLedger(rate *big.Int, start, end int64) (*Ledger, error) {
	if rate == nil || rate.Sign() < 0 {
		return nil, ErrInvalidRewardRate
	}
	if end <= start {
		return nil, ErrInvalidWindow
	}
	return &Ledger{
		AccPerShare:      big.NewInt(0),
		TotalStakedValue: big.NewInt(0),
		RewardRate:       new(big.Int).Set(rate),
		LastAccrualTime:  start,
		FarmingStart:     start,
		FarmingEnd:       end,
	}, nil
}

// Advance brings the accumulator current up to now. Accrual is clamped to
// the farming window and skipped entirely while nothing is staked, so
// unstaked periods do not consume reward budget.
func (l *Ledger) Advance(now int64) error {
	if now <= l.LastAccrualTime {
		return nil
	}
	if l.TotalStakedValue.Sign() == 0 {
		l.LastAccrualTime = now
		return nil
	}

	delta, err := l.accrualDelta(now)
	if err != nil {
		return err
	}
	l.AccPerShare.Add(l.AccPerShare, delta)
	l.LastAccrualTime = now
	return nil
}

// Projected returns the accumulator as it would stand after Advance(now),
// without mutating ledger state.
func (l *Ledger) Projected(now int64) (*big.Int, error) {
	acc := new(big.Int).Set(l.AccPerShare)
	if now <= l.LastAccrualTime || l.TotalStakedValue.Sign() == 0 {
		return acc, nil
	}
	delta, err := l.accrualDelta(now)
	if err != nil {
		return nil, err
	}
	return acc.Add(acc, delta), nil
}

func (l *Ledger) accrualDelta(now int64) (*big.Int, error) {
	effectiveEnd := now
	if l.FarmingEnd < effectiveEnd {
		effectiveEnd = l.FarmingEnd
	}
	if effectiveEnd <= l.LastAccrualTime {
		return big.NewInt(0), nil
	}

	elapsed := big.NewInt(effectiveEnd - l.LastAccrualTime)
	if l.RewardRate.Sign() > 0 {
		// Fail fast instead of letting elapsed * rate wrap 256 bits.
		limit := new(big.Int).Div(maxUint256, l.RewardRate)
		if elapsed.Cmp(limit) > 0 {
			return nil, ErrArithmeticOverflow
		}
	}

	delta := new(big.Int).Mul(elapsed, l.RewardRate)
	delta.Mul(delta, Scale)
	if delta.Cmp(maxUint256) > 0 || new(big.Int).Add(l.AccPerShare, delta).Cmp(maxUint256) > 0 {
		return nil, ErrArithmeticOverflow
	}
	return delta, nil
}

// earnedAt is the total reward a position is entitled to against a given
// accumulator value, before subtracting its reward debt.
func earnedAt(p *Position, acc *big.Int) *big.Int {
	earned := new(big.Int).Mul(p.USDValue, big.NewInt(p.Boost))
	earned.Mul(earned, acc)
	return earned.Div(earned, debtDenom)
}

// PendingRaw returns the unpaid reward for a position against a projected
// accumulator, before the liquidity-drain scaling. Negative rounding dust
// is clamped to zero.
func PendingRaw(p *Position, acc *big.Int) *big.Int {
	pending := earnedAt(p, acc)
	pending.Sub(pending, p.RewardDebt)
	if pending.Sign() < 0 {
		return big.NewInt(0)
	}
	return pending
}

// Checkpoint resets the position's reward debt against the current
// accumulator. Must happen in the same step that pays the reward out,
// otherwise the same accrual can be claimed twice.
func (l *Ledger) Checkpoint(p *Position) {
	p.RewardDebt = earnedAt(p, l.AccPerShare)
}
