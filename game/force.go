package game

import "math"

// NoForcePoint means the round is not capped and runs until it crashes.
const NoForcePoint = math.MaxInt64

// ForcePoint computes the multiplier (x100) at which the round must be
// terminated so the payout of every live bet stays inside maxWin.
// totalBet is the stake still in action, totalCashedOut the winnings
// already paid this round. With no live stake there is nothing to cap.
func ForcePoint(totalBet, totalCashedOut, maxWin int64) int64 {
	if totalBet == 0 {
		return NoForcePoint
	}

	left := float64(maxWin) - float64(totalCashedOut) - float64(totalBet)*0.01
	ratio := (left + float64(totalBet)) / float64(totalBet)

	fp := int64(math.Floor(ratio * 100))
	if fp < 101 {
		fp = 101
	}
	return fp
}

// MaxWin is the per-round risk cap: the configured percentage of the
// current bankroll.
func MaxWin(bankroll int64, maxProfitPercent float64) int64 {
	return int64(math.Round(float64(bankroll) * maxProfitPercent / 100))
}
