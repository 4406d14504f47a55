package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

func GenerateServerSeed() (seed string, hash string) {
	bytes := make([]byte, 32)
	rand.Read(bytes)

	seed = hex.EncodeToString(bytes)

	h := sha256.Sum256([]byte(seed))
	hash = hex.EncodeToString(h[:])

	return
}

func VerifySeed(seed, hash string) bool {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:]) == hash
}

// HashChainStep hashes the previous link to produce the next one.
func HashChainStep(prev string) string {
	h := sha256.Sum256([]byte(prev))
	return hex.EncodeToString(h[:])
}

// GenerateHashChain builds a chain of n hashes from a random terminal
// seed. Index order matches game id order: each game's hash hashes to
// the previous game's, so revealing a round never reveals a future one.
func GenerateHashChain(n int) []string {
	seed, _ := GenerateServerSeed()

	chain := make([]string, n)
	for i := n - 1; i >= 0; i-- {
		seed = HashChainStep(seed)
		chain[i] = seed
	}
	return chain
}

// VerifyHashChain checks that hashing the later game's seed yields the
// earlier game's seed.
func VerifyHashChain(laterSeed, earlierSeed string) bool {
	return HashChainStep(laterSeed) == earlierSeed
}
