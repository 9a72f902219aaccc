package farm

import (
	"math/big"
	"testing"
)

func TestDrainScale(t *testing.T) {
	pending := big.NewInt(1000)
	recorded := big.NewInt(400)

	if got := DrainScale(pending, big.NewInt(0), recorded); got.Sign() != 0 {
		t.Fatalf("fully drained position paid %s, want 0", got)
	}
	if got := DrainScale(pending, big.NewInt(200), recorded); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("half drained position paid %s, want 500", got)
	}
	if got := DrainScale(pending, big.NewInt(400), recorded); got.Cmp(pending) != 0 {
		t.Fatalf("intact position paid %s, want %s", got, pending)
	}
	// Liquidity added after staking never amplifies the reward.
	if got := DrainScale(pending, big.NewInt(800), recorded); got.Cmp(pending) != 0 {
		t.Fatalf("grown position paid %s, want %s", got, pending)
	}
}

func TestDrainScaleDegenerateInputs(t *testing.T) {
	if got := DrainScale(nil, big.NewInt(1), big.NewInt(1)); got.Sign() != 0 {
		t.Fatalf("nil pending paid %s", got)
	}
	if got := DrainScale(big.NewInt(100), big.NewInt(1), big.NewInt(0)); got.Sign() != 0 {
		t.Fatalf("zero recorded liquidity paid %s", got)
	}
}
