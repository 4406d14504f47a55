package game

import "math"

const growthRate = 0.00006

// Growth returns the multiplier (x100) after ms milliseconds of play.
// Growth(0) == 100, i.e. 1.00x.
func Growth(ms int64) int64 {
	return int64(math.Floor(100 * math.Pow(math.E, growthRate*float64(ms))))
}

// InverseGrowth returns the elapsed milliseconds at which the multiplier
// (x100) is first reached. Inverse of Growth up to flooring.
func InverseGrowth(result int64) float64 {
	const c = 16666.666667
	return c * math.Log(0.01*float64(result))
}

// RoundDuration estimates how long a round with the given crash point
// will run, in milliseconds.
func RoundDuration(crashPoint int64) int64 {
	return int64(math.Ceil(InverseGrowth(crashPoint + 1)))
}
