package buffon

/*

	Deterministic randomness for the needle drop.

	Every needle owns a private PCG stream selected by the run seed
	and the needle's global index. The same seed replays the same
	drops bit-for-bit no matter how the work is split into batches
	or spread across goroutines.

*/

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// DeterministicSeedValue derives a stable 64-bit stream seed
// from the run seed and a label. FNV-1a keeps the derivation
// identical across platforms and process restarts.
func DeterministicSeedValue(rootSeed, label string) uint64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return sum
}

// hash64 is a SplitMix64-style finalizer. Sequential needle
// indexes come out well scattered, so neighboring needles never
// share correlated PCG stream selectors.
func hash64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// NewNeedleRand returns the dedicated source for one needle.
func NewNeedleRand(stream uint64, index int64) *rand.Rand {
	return rand.New(rand.NewPCG(stream, hash64(uint64(index))))
}

// RandomAngle returns a uniform angle in [0, 2π).
func RandomAngle(rng *rand.Rand) float64 {
	return rng.Float64() * 2 * math.Pi
}

// RandomDistance returns a uniform value in [min, max).
func RandomDistance(rng *rand.Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rng.Float64()*(max-min)
}
