package game

import "testing"

func TestForcePoint(t *testing.T) {
	t.Run("NoLiveStake", func(t *testing.T) {
		if got := ForcePoint(0, 0, 5000); got != NoForcePoint {
			t.Errorf("ForcePoint(0, 0, 5000) = %d, want NoForcePoint", got)
		}
		if got := ForcePoint(0, 2500, 5000); got != NoForcePoint {
			t.Errorf("ForcePoint(0, 2500, 5000) = %d, want NoForcePoint", got)
		}
	})

	t.Run("CapFromMaxWin", func(t *testing.T) {
		// 1000 in action against a 5000 cap: the house can afford to
		// let the multiplier reach 5.99x.
		if got := ForcePoint(1000, 0, 5000); got != 599 {
			t.Errorf("ForcePoint(1000, 0, 5000) = %d, want 599", got)
		}
	})

	t.Run("PaidWinningsShrinkTheCap", func(t *testing.T) {
		a := ForcePoint(1000, 0, 5000)
		b := ForcePoint(1000, 2000, 5000)
		if b >= a {
			t.Errorf("cap with winnings paid = %d, want below %d", b, a)
		}
	})

	t.Run("NeverBelowMinimum", func(t *testing.T) {
		if got := ForcePoint(1000, 0, 0); got != 101 {
			t.Errorf("ForcePoint(1000, 0, 0) = %d, want 101", got)
		}
		if got := ForcePoint(1000000, 0, 10); got != 101 {
			t.Errorf("ForcePoint(1000000, 0, 10) = %d, want 101", got)
		}
	})
}

func TestMaxWin(t *testing.T) {
	cases := []struct {
		bankroll int64
		percent  float64
		want     int64
	}{
		{100000, 3, 3000},
		{0, 3, 0},
		{166667, 3, 5000},
		{100000, 2.5, 2500},
	}

	for _, tc := range cases {
		if got := MaxWin(tc.bankroll, tc.percent); got != tc.want {
			t.Errorf("MaxWin(%d, %v) = %d, want %d", tc.bankroll, tc.percent, got, tc.want)
		}
	}
}
