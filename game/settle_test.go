package game

import "testing"

func TestForbiddenSet(t *testing.T) {
	band := Band{From: 1.0, To: 2.0}

	t.Run("InstantCrashBust", func(t *testing.T) {
		plays := []PlayRow{{Username: "alice", Bet: 1000, AutoCashOut: 30000, CashOut: 0}}
		f := ForbiddenSet(plays, 0, band)
		if !f["alice"] {
			t.Error("busted play on an instant crash should be forbidden")
		}
	})

	t.Run("AutoCashOutInsideBand", func(t *testing.T) {
		plays := []PlayRow{{Username: "bob", Bet: 1000, AutoCashOut: 150, CashOut: 0}}
		f := ForbiddenSet(plays, 300, band)
		if !f["bob"] {
			t.Error("auto-cashout at 1.50x inside [1.0, 2.0] should be forbidden")
		}
	})

	t.Run("PayoutRatioInsideBand", func(t *testing.T) {
		plays := []PlayRow{{Username: "carol", Bet: 1000, AutoCashOut: 30000, CashOut: 1500}}
		f := ForbiddenSet(plays, 300, band)
		if !f["carol"] {
			t.Error("payout ratio 1.5 inside [1.0, 2.0) should be forbidden")
		}
	})

	t.Run("RatioUpperBoundExclusive", func(t *testing.T) {
		plays := []PlayRow{{Username: "dave", Bet: 1000, AutoCashOut: 30000, CashOut: 2000}}
		f := ForbiddenSet(plays, 300, band)
		if f["dave"] {
			t.Error("payout ratio exactly 2.0 should not be forbidden")
		}
	})

	t.Run("ZeroStakeNeverForbiddenByRatio", func(t *testing.T) {
		plays := []PlayRow{{Username: "erin", Bet: 0, RangeBetAmount: 500, CashOut: 750}}
		f := ForbiddenSet(plays, 300, band)
		if f["erin"] {
			t.Error("range-only play should not trip the ratio check")
		}
	})
}

func TestSettleBet(t *testing.T) {
	pct := CommissionPercents{Staff: 2, MasterIB: 3, Agent: 5}
	none := map[string]bool{}

	t.Run("BustedForbidden", func(t *testing.T) {
		// Instant crash: the player is forbidden, so the agent leg
		// joins the company share while the staff leg survives.
		p := PlayRow{Username: "alice", Userclass: "player", Bet: 1000, CashOut: 0}
		pcts := CommissionPercents{Staff: 2, Agent: 5}
		b := SettleBet(p, 0, pcts, map[string]bool{"alice": true}, 2)

		if b.Staff != 20 {
			t.Errorf("Staff = %d, want 20", b.Staff)
		}
		if b.Agent != 0 {
			t.Errorf("Agent = %d, want 0", b.Agent)
		}
		if b.Company != 50 {
			t.Errorf("Company = %d, want 50", b.Company)
		}
		if b.PlayerCredit != 0 || b.PlayerProfit != 0 {
			t.Errorf("player credit/profit = %d/%d, want 0/0", b.PlayerCredit, b.PlayerProfit)
		}
	})

	t.Run("CashedOutWithLineage", func(t *testing.T) {
		p := PlayRow{
			Username:  "bob",
			Userclass: "player",
			Bet:       1000,
			CashOut:   2000,
			Lineage:   Lineage{MasterIB: "mib1"},
		}
		b := SettleBet(p, 300, pct, none, 2)

		if b.Staff != 20 {
			t.Errorf("Staff = %d, want 20", b.Staff)
		}
		if b.MasterIB != 30 {
			t.Errorf("MasterIB = %d, want 30", b.MasterIB)
		}
		// Not an agent-class player, so the agent leg goes to the
		// company on top of the rounding remainder.
		if b.Agent != 0 {
			t.Errorf("Agent = %d, want 0", b.Agent)
		}
		if b.Company != 50 {
			t.Errorf("Company = %d, want 50", b.Company)
		}
		if b.PlayerCredit != 2000 {
			t.Errorf("PlayerCredit = %d, want 2000", b.PlayerCredit)
		}
		if b.PlayerProfit != 1000 {
			t.Errorf("PlayerProfit = %d, want 1000", b.PlayerProfit)
		}
	})

	t.Run("AgentKeepsOwnLeg", func(t *testing.T) {
		p := PlayRow{Username: "carol", Userclass: "agent", Bet: 1000, CashOut: 2000}
		b := SettleBet(p, 300, pct, none, 2)

		if b.Agent != 50 {
			t.Errorf("Agent = %d, want 50", b.Agent)
		}
		if b.PlayerCredit != 2050 {
			t.Errorf("PlayerCredit = %d, want 2050", b.PlayerCredit)
		}
		if b.PlayerProfit != 1050 {
			t.Errorf("PlayerProfit = %d, want 1050", b.PlayerProfit)
		}
	})

	t.Run("ForbiddenRecipientRedirects", func(t *testing.T) {
		p := PlayRow{
			Username:  "dave",
			Userclass: "player",
			Bet:       1000,
			CashOut:   3000,
			Lineage:   Lineage{MasterIB: "mib1"},
		}
		b := SettleBet(p, 300, pct, map[string]bool{"mib1": true}, 2)

		if b.MasterIB != 0 {
			t.Errorf("MasterIB = %d, want 0 when recipient is forbidden", b.MasterIB)
		}
		if b.Company != 80 {
			t.Errorf("Company = %d, want 80", b.Company)
		}
	})

	t.Run("DemoZeroesHouseLegs", func(t *testing.T) {
		p := PlayRow{
			Username:  "erin",
			Userclass: "player",
			Bet:       1000,
			CashOut:   2000,
			Demo:      true,
			Lineage:   Lineage{MasterIB: "mib1"},
		}
		b := SettleBet(p, 300, pct, none, 2)

		if b.Company != 0 || b.Staff != 0 {
			t.Errorf("demo company/staff = %d/%d, want 0/0", b.Company, b.Staff)
		}
		if b.MasterIB != 30 {
			t.Errorf("MasterIB = %d, want 30", b.MasterIB)
		}
	})

	t.Run("ExtraBetWinsOnInstantCrash", func(t *testing.T) {
		p := PlayRow{Username: "frank", Userclass: "player", Bet: 1000, ExtraBet: 100, CashOut: 0}
		forbidden := map[string]bool{"frank": true}
		b := SettleBet(p, 0, pct, forbidden, 2)

		// The side bet pays 2x its stake, plus both stakes returned.
		if b.PlayerProfit != 200 {
			t.Errorf("PlayerProfit = %d, want 200", b.PlayerProfit)
		}
		if b.PlayerCredit != 1300 {
			t.Errorf("PlayerCredit = %d, want 1300", b.PlayerCredit)
		}
	})

	t.Run("RangeBetWin", func(t *testing.T) {
		p := PlayRow{Username: "grace", Userclass: "player", RangeBetAmount: 500, CashOut: 2500}
		b := SettleBet(p, 150, pct, none, 2)

		if b.PlayerCredit != 2500 {
			t.Errorf("PlayerCredit = %d, want 2500", b.PlayerCredit)
		}
		if b.PlayerProfit != 2000 {
			t.Errorf("PlayerProfit = %d, want 2000", b.PlayerProfit)
		}
	})

	t.Run("RangeBetLoss", func(t *testing.T) {
		p := PlayRow{Username: "heidi", Userclass: "player", RangeBetAmount: 500, CashOut: 0}
		b := SettleBet(p, 900, pct, none, 2)

		if b.PlayerCredit != 0 || b.PlayerProfit != 0 {
			t.Errorf("credit/profit = %d/%d, want 0/0", b.PlayerCredit, b.PlayerProfit)
		}
	})

	t.Run("LegsConserveCommissionTotal", func(t *testing.T) {
		// Redirection moves money between legs but the commission
		// total never changes for a real-money play.
		plays := []PlayRow{
			{Username: "p1", Userclass: "player", Bet: 1300, CashOut: 2600},
			{Username: "p2", Userclass: "agent", Bet: 700, CashOut: 0, Lineage: Lineage{MasterIB: "mib1", Parent1: "x"}},
			{Username: "p3", Userclass: "master_ib", Bet: 900, CashOut: 1800, Lineage: Lineage{Parent1: "gone"}},
		}
		forbidden := map[string]bool{"gone": true}

		for _, p := range plays {
			b := SettleBet(p, 300, pct, forbidden, 2)
			got := b.Company + b.Staff + b.Agent + b.MasterIB + b.Parent1 + b.Parent2 + b.Parent3
			want := int64(float64(p.Bet+p.ExtraBet) / 100 * pct.TotalPercent())
			if got != want {
				t.Errorf("%s: legs sum to %d, want %d", p.Username, got, want)
			}
		}
	})
}

func TestRangeBetPayout(t *testing.T) {
	rb := RangeBet{From: 100, To: 200, Multiplier: 5, Amount: 500}

	if got := RangeBetPayout(rb, 150); got != 2500 {
		t.Errorf("payout inside range = %d, want 2500", got)
	}
	if got := RangeBetPayout(rb, 200); got != 2500 {
		t.Errorf("payout at upper bound = %d, want 2500", got)
	}
	if got := RangeBetPayout(rb, 250); got != 0 {
		t.Errorf("payout outside range = %d, want 0", got)
	}
}
