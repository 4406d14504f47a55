package game

import "math"

// CommissionPercents is the multi-tier commission split applied to every
// settled bet's dispense volume. The player keeps 100 minus the sum.
type CommissionPercents struct {
	Staff    float64
	MasterIB float64
	Agent    float64
	Parent1  float64
	Parent2  float64
	Parent3  float64
}

// TotalPercent is the share taken out of the dispense volume.
func (c CommissionPercents) TotalPercent() float64 {
	return c.Staff + c.MasterIB + c.Agent + c.Parent1 + c.Parent2 + c.Parent3
}

// Band is the no-commission multiplier band, in multiplier units
// (1.0 means 1.00x). From is inclusive on both checks, To is inclusive
// for the auto-cashout check and exclusive for the payout ratio check.
type Band struct {
	From float64
	To   float64
}

// Lineage names the referral chain above a player. Empty string means
// that tier does not exist for the player.
type Lineage struct {
	MasterIB string
	Parent1  string
	Parent2  string
	Parent3  string
}

// PlayRow is a settled play as the store reads it back for commission
// calculation.
type PlayRow struct {
	PlayID         int64
	UserID         int64
	Username       string
	Userclass      string
	Bet            int64
	ExtraBet       int64
	RangeBetAmount int64
	AutoCashOut    int64
	CashOut        int64
	Demo           bool
	Lineage        Lineage
}

// Breakdown is the money movement produced by settling one play.
// PlayerCredit is the balance credit, PlayerProfit the profit figure
// recorded on the play; the rest are commission legs by recipient.
type Breakdown struct {
	PlayerCredit int64 `json:"profit_for_player_credit"`
	PlayerProfit int64 `json:"profit_for_player"`
	Company      int64 `json:"profit_for_company"`
	Staff        int64 `json:"profit_for_staff"`
	Agent        int64 `json:"profit_for_agent"`
	MasterIB     int64 `json:"profit_for_master_ib"`
	Parent1      int64 `json:"profit_for_parent1"`
	Parent2      int64 `json:"profit_for_parent2"`
	Parent3      int64 `json:"profit_for_parent3"`

	Lineage Lineage `json:"-"`
	Demo    bool    `json:"-"`
}

// ProfitMap maps username to the settlement breakdown of their play,
// broadcast after every round.
type ProfitMap map[string]Breakdown

// ForbiddenSet scans the round's plays and returns the usernames whose
// commission legs are voided. A player is forbidden when they busted on
// an instant crash, when their auto-cashout sits inside the
// no-commission band, or when their payout ratio landed in the band.
// A zero stake never produces a forbidden ratio.
func ForbiddenSet(plays []PlayRow, crashPoint int64, band Band) map[string]bool {
	forbidden := make(map[string]bool)

	for _, p := range plays {
		if p.CashOut == 0 && crashPoint == 0 {
			forbidden[p.Username] = true
			continue
		}
		auto := float64(p.AutoCashOut) / 100
		if auto >= band.From && auto <= band.To {
			forbidden[p.Username] = true
			continue
		}
		if p.Bet > 0 {
			ratio := float64(p.CashOut) / float64(p.Bet)
			if ratio >= band.From && ratio < band.To {
				forbidden[p.Username] = true
			}
		}
	}

	return forbidden
}

// SettleBet computes the full money movement for one play of a finished
// round. The same leg routine serves all three bet classes; only the
// dispense volume and the player credit differ by class.
//
// Voided legs are redirected to the company: a referral leg is voided
// when the tier is absent or when either the player or the recipient is
// forbidden. The agent leg stays with the player only when the player
// is agent-class and not forbidden. Rounding leftovers always land on
// the company leg. Demo plays keep the bookkeeping but the company and
// staff legs are zeroed.
func SettleBet(p PlayRow, crashPoint int64, pct CommissionPercents, forbidden map[string]bool, extraBetMultiplier int64) Breakdown {
	rangeBet := p.RangeBetAmount != 0

	dispense := p.Bet + p.ExtraBet
	if rangeBet {
		dispense = p.RangeBetAmount
	}

	leg := func(percent float64) int64 {
		return int64(math.Round(float64(dispense) / 100 * percent))
	}

	staff := leg(pct.Staff)
	masterIB := leg(pct.MasterIB)
	agent := leg(pct.Agent)
	parent1 := leg(pct.Parent1)
	parent2 := leg(pct.Parent2)
	parent3 := leg(pct.Parent3)
	company := leg(pct.TotalPercent()) - (staff + masterIB + agent + parent1 + parent2 + parent3)

	agentClass := p.Userclass == "agent" || p.Userclass == "master_ib"
	if !agentClass || forbidden[p.Username] {
		company += agent
		agent = 0
	}

	redirect := func(recipient string, amount *int64) {
		if recipient == "" || forbidden[p.Username] || forbidden[recipient] {
			company += *amount
			*amount = 0
		}
	}
	redirect(p.Lineage.MasterIB, &masterIB)
	redirect(p.Lineage.Parent1, &parent1)
	redirect(p.Lineage.Parent2, &parent2)
	redirect(p.Lineage.Parent3, &parent3)

	if p.Demo {
		company = 0
		staff = 0
	}

	var credit, profit int64
	switch {
	case rangeBet:
		net := p.CashOut - p.RangeBetAmount
		if net < 0 {
			net = 0
		}
		profit = net + agent
		credit = p.CashOut + agent

	case p.CashOut == 0: // busted
		extraSuccess := crashPoint == 0 && p.ExtraBet > 0
		var base int64
		if extraSuccess {
			base = p.ExtraBet * extraBetMultiplier
		}
		profit = base + agent
		credit = base + agent
		if extraSuccess {
			credit += p.Bet + p.ExtraBet
		}

	default: // cashed out
		profit = p.CashOut - p.Bet - p.ExtraBet + agent
		credit = p.CashOut + agent
	}

	return Breakdown{
		PlayerCredit: credit,
		PlayerProfit: profit,
		Company:      company,
		Staff:        staff,
		Agent:        agent,
		MasterIB:     masterIB,
		Parent1:      parent1,
		Parent2:      parent2,
		Parent3:      parent3,
		Lineage:      p.Lineage,
		Demo:         p.Demo,
	}
}

// RangeBetPayout returns the cash-out value of a range-only play for
// the given crash point, or 0 when the crash landed outside the range.
func RangeBetPayout(rb RangeBet, crashPoint int64) int64 {
	if crashPoint >= rb.From && crashPoint <= rb.To {
		return rb.Amount * rb.Multiplier
	}
	return 0
}
