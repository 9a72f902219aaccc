package liquidity

import (
	"math/big"
	"testing"
)

func TestSqrtRatioAtTickZero(t *testing.T) {
	got, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(Q96) != 0 {
		t.Fatalf("tick 0 sqrt ratio = %s, want %s", got, Q96)
	}
}

func TestSqrtRatioAtTickBounds(t *testing.T) {
	minSqrt, err := SqrtRatioAtTick(-MaxTick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := big.NewInt(4295128739)
	if minSqrt.Cmp(want) != 0 {
		t.Fatalf("min tick sqrt ratio = %s, want %s", minSqrt, want)
	}

	maxSqrt, err := SqrtRatioAtTick(MaxTick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantMax, _ := new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
	if maxSqrt.Cmp(wantMax) != 0 {
		t.Fatalf("max tick sqrt ratio = %s, want %s", maxSqrt, wantMax)
	}
}

func TestSqrtRatioAtTickMonotonic(t *testing.T) {
	prev, err := SqrtRatioAtTick(-100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for tick := int32(-99); tick <= 100; tick++ {
		cur, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: unexpected error: %v", tick, err)
		}
		if cur.Cmp(prev) <= 0 {
			t.Fatalf("sqrt ratio not increasing at tick %d: %s <= %s", tick, cur, prev)
		}
		prev = cur
	}
}

func TestSqrtRatioAtTickOutOfRange(t *testing.T) {
	if _, err := SqrtRatioAtTick(MaxTick + 1); err == nil {
		t.Fatalf("expected error for tick above range")
	}
	if _, err := SqrtRatioAtTick(-MaxTick - 1); err == nil {
		t.Fatalf("expected error for tick below range")
	}
}
