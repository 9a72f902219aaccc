package farm

import (
	"math/big"
	"testing"
)

func dollars(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), Scale)
}

func TestAdvanceAccrues(t *testing.T) {
	ledger, err := NewLedger(big.NewInt(1), 0, 1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ledger.TotalStakedValue = dollars(1000)

	if err := ledger.Advance(100); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	want := new(big.Int).Mul(big.NewInt(100), Scale)
	if ledger.AccPerShare.Cmp(want) != 0 {
		t.Fatalf("acc = %s, want %s", ledger.AccPerShare, want)
	}
	if ledger.LastAccrualTime != 100 {
		t.Fatalf("last accrual = %d, want 100", ledger.LastAccrualTime)
	}
}

func TestAdvanceSkipsWhileNothingStaked(t *testing.T) {
	ledger, _ := NewLedger(big.NewInt(5), 0, 1_000_000)

	if err := ledger.Advance(500); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if ledger.AccPerShare.Sign() != 0 {
		t.Fatalf("acc advanced with nothing staked: %s", ledger.AccPerShare)
	}
	if ledger.LastAccrualTime != 500 {
		t.Fatalf("last accrual = %d, want 500", ledger.LastAccrualTime)
	}
}

func TestAdvanceNeverMovesBackwards(t *testing.T) {
	ledger, _ := NewLedger(big.NewInt(1), 0, 1_000_000)
	ledger.TotalStakedValue = dollars(1)
	if err := ledger.Advance(100); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	acc := new(big.Int).Set(ledger.AccPerShare)

	if err := ledger.Advance(50); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if ledger.LastAccrualTime != 100 || ledger.AccPerShare.Cmp(acc) != 0 {
		t.Fatalf("state changed on stale advance")
	}
}

func TestAdvanceClampsToFarmingEnd(t *testing.T) {
	ledger, _ := NewLedger(big.NewInt(1), 0, 200)
	ledger.TotalStakedValue = dollars(1)

	if err := ledger.Advance(500); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(200), Scale)
	if ledger.AccPerShare.Cmp(want) != 0 {
		t.Fatalf("acc = %s, want %s (clamped to window end)", ledger.AccPerShare, want)
	}

	// Window elapsed: further advances leave the accumulator unchanged.
	if err := ledger.Advance(900); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if ledger.AccPerShare.Cmp(want) != 0 {
		t.Fatalf("acc advanced past window end: %s", ledger.AccPerShare)
	}
}

func TestAdvanceMonotonic(t *testing.T) {
	ledger, _ := NewLedger(big.NewInt(3), 0, 1_000_000)
	ledger.TotalStakedValue = dollars(10)

	prev := new(big.Int)
	for _, now := range []int64{10, 10, 5, 300, 301, 1_000_000, 2_000_000} {
		if err := ledger.Advance(now); err != nil {
			t.Fatalf("advance(%d) failed: %v", now, err)
		}
		if ledger.AccPerShare.Cmp(prev) < 0 {
			t.Fatalf("acc decreased at now=%d", now)
		}
		prev.Set(ledger.AccPerShare)
	}
}

func TestProjectedDoesNotMutate(t *testing.T) {
	ledger, _ := NewLedger(big.NewInt(1), 0, 1_000_000)
	ledger.TotalStakedValue = dollars(1000)

	projected, err := ledger.Projected(100)
	if err != nil {
		t.Fatalf("projected failed: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(100), Scale)
	if projected.Cmp(want) != 0 {
		t.Fatalf("projected = %s, want %s", projected, want)
	}
	if ledger.AccPerShare.Sign() != 0 || ledger.LastAccrualTime != 0 {
		t.Fatalf("projection mutated ledger state")
	}
}

func TestAdvanceOverflowRejectedBeforeMutation(t *testing.T) {
	huge := new(big.Int).Rsh(maxUint256, 1)
	ledger, err := NewLedger(huge, 0, 1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ledger.TotalStakedValue = dollars(1)

	if err := ledger.Advance(100); err != ErrArithmeticOverflow {
		t.Fatalf("expected overflow error, got %v", err)
	}
	if ledger.AccPerShare.Sign() != 0 || ledger.LastAccrualTime != 0 {
		t.Fatalf("overflowing advance mutated state")
	}
}

func TestPendingRawAndCheckpoint(t *testing.T) {
	ledger, _ := NewLedger(big.NewInt(1), 0, 1_000_000)
	ledger.TotalStakedValue = dollars(1000)

	pos := &Position{
		TokenID:    big.NewInt(1),
		USDValue:   dollars(1000),
		RewardDebt: big.NewInt(0),
		Boost:      BoostBase,
	}

	if err := ledger.Advance(100); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	pending := PendingRaw(pos, ledger.AccPerShare)
	if pending.Cmp(big.NewInt(100_000)) != 0 {
		t.Fatalf("pending = %s, want 100000", pending)
	}

	ledger.Checkpoint(pos)
	if after := PendingRaw(pos, ledger.AccPerShare); after.Sign() != 0 {
		t.Fatalf("pending after checkpoint = %s, want 0", after)
	}
}

func TestPendingRawClampsNegativeDust(t *testing.T) {
	pos := &Position{
		TokenID:    big.NewInt(1),
		USDValue:   dollars(1),
		RewardDebt: big.NewInt(10),
		Boost:      BoostBase,
	}
	if pending := PendingRaw(pos, big.NewInt(0)); pending.Sign() != 0 {
		t.Fatalf("pending = %s, want 0", pending)
	}
}

func TestNewLedgerValidation(t *testing.T) {
	if _, err := NewLedger(nil, 0, 100); err != ErrInvalidRewardRate {
		t.Fatalf("expected invalid rate error, got %v", err)
	}
	if _, err := NewLedger(big.NewInt(-1), 0, 100); err != ErrInvalidRewardRate {
		t.Fatalf("expected invalid rate error, got %v", err)
	}
	if _, err := NewLedger(big.NewInt(1), 100, 100); err != ErrInvalidWindow {
		t.Fatalf("expected invalid window error, got %v", err)
	}
}
