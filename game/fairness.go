package game

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
)

// ClientSeed is the public client seed mixed into every round hash. It
// was committed ahead of time so the operator cannot pick seeds.
const ClientSeed = "000000000000000007a9a31ff7f07463d91af6b5454241d5faf282e5e0fe1b3a"

// divisible reports whether the hex string, read as a big number, is
// divisible by mod. Reads 4 hex digits at a time so the value never
// overflows; the first chunk may be shorter.
func divisible(hash string, mod int64) bool {
	var val int64

	o := len(hash) % 4
	start := 0
	if o > 0 {
		start = o - 4
	}
	for i := start; i < len(hash); i += 4 {
		lo := i
		if lo < 0 {
			lo = 0
		}
		chunk, err := strconv.ParseInt(hash[lo:i+4], 16, 64)
		if err != nil {
			return false
		}
		val = ((val << 16) + chunk) % mod
	}

	return val == 0
}

// hmacHash returns the hex HMAC-SHA256 of the client seed keyed by the
// round's server seed.
func hmacHash(serverSeed string) string {
	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(ClientSeed))
	return hex.EncodeToString(mac.Sum(nil))
}

// top52 extracts the most significant 52 bits of the hex digest.
func top52(hash string) uint64 {
	h, _ := strconv.ParseUint(hash[:52/4], 16, 64)
	return h
}

// CrashPointFromHash derives the crash point (x100) for a round from its
// server seed. In 1 of 101 games the hash is divisible by 101 and the
// game crashes instantly at 0.
func CrashPointFromHash(serverSeed string) int64 {
	hash := hmacHash(serverSeed)

	if divisible(hash, 101) {
		return 0
	}

	h := float64(top52(hash))
	e := math.Pow(2, 52)

	return int64(math.Floor((100*e - h) / (e - h)))
}

// CrashPointFromHashWeighted derives the crash point using the
// interval-weighted table instead of the uniform distribution. The table
// must have been validated with ValidateIntervals first.
func CrashPointFromHashWeighted(serverSeed string, intervals []IntervalRow) int64 {
	hash := hmacHash(serverSeed)
	return interpolate(float64(top52(hash)), intervals)
}

// interpolate maps a raw 52-bit hash value onto the weighted table by
// linear interpolation inside the selected interval.
func interpolate(h float64, intervals []IntervalRow) int64 {
	temp := 10000.0 / math.Pow(2, 52)
	scaled := temp * h

	var cum int64
	for _, iv := range intervals {
		s := float64(cum)
		e := float64(cum + iv.Weight)
		if s <= scaled && e > scaled {
			a := float64(iv.Start)
			b := float64(iv.End)
			return int64(a + (scaled-s)*(b-a)/(e-s))
		}
		cum += iv.Weight
	}

	// scaled == 10000 can only happen for h == 2^52, which a 52-bit
	// value never reaches.
	return intervals[len(intervals)-1].End
}

// ValidateIntervals checks that the weighted table is usable: rows
// ordered and contiguous with no gaps or overlaps, and weights summing
// to exactly 10000.
func ValidateIntervals(intervals []IntervalRow) error {
	if len(intervals) == 0 {
		return fmt.Errorf("intervals: empty table")
	}

	old := intervals[0].Start
	var sum int64
	for _, iv := range intervals {
		if iv.Start != old {
			return fmt.Errorf("intervals: gap or overlap at start %d, expected %d", iv.Start, old)
		}
		if iv.End <= iv.Start {
			return fmt.Errorf("intervals: empty interval [%d, %d)", iv.Start, iv.End)
		}
		sum += iv.Weight
		old = iv.End
	}

	if sum != 10000 {
		return fmt.Errorf("intervals: weights sum to %d, want 10000", sum)
	}

	return nil
}
