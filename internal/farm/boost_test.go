package farm

import "testing"

func TestBoostForLockDays(t *testing.T) {
	cases := []struct {
		days uint32
		want int64
	}{
		{0, 1000},
		{1, 1000},
		{6, 1000},
		{7, 1050},
		{29, 1050},
		{30, 1100},
		{89, 1100},
		{90, 1250},
		{179, 1250},
		{180, 1500},
		{364, 1500},
		{365, 2000},
	}
	for _, tc := range cases {
		if got := BoostForLockDays(tc.days); got != tc.want {
			t.Fatalf("boost(%d) = %d, want %d", tc.days, got, tc.want)
		}
	}
}
