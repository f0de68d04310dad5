// Package seed normalizes request seeds, provides the seeded random source that drives
// skeleton construction, and encodes the reversible share code.
package seed

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

const (
	MinPlayers = 4
	MaxPlayers = 20

	minFreshSeed = 100000
	maxFreshSeed = 999999999
)

// Normalize returns the given seed verbatim, or a fresh seed in [100000, 999999999].
func Normalize(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	// #nosec G404 -- seeds are not secrets.
	return minFreshSeed + rand.Int64N(maxFreshSeed-minFreshSeed+1)
}

// Source is a deterministic sequence of draws. Two Sources built from the same seed
// produce the same sequence for the lifetime of this implementation. A Source is
// request-scoped and must not be shared between goroutines.
type Source struct {
	rng *rand.Rand
}

// NewSource seeds a PCG generator from two FNV-derived words.
func NewSource(seed int64) *Source {
	// #nosec G404 -- deterministic simulation, not cryptography.
	return &Source{rng: rand.New(rand.NewPCG(seedWord(seed, "a"), seedWord(seed, "b")))}
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", seed, salt)))
	return h.Sum64()
}

// Float64 returns a uniform draw in [0, 1).
func (s *Source) Float64() float64 { return s.rng.Float64() }

// IntN returns a uniform draw in [0, n).
func (s *Source) IntN(n int) int { return s.rng.IntN(n) }

// Choice returns a uniform element of items. items must be non-empty.
func Choice[T any](s *Source, items []T) T {
	return items[s.rng.IntN(len(items))]
}

// Shuffle permutes items in place.
func Shuffle[T any](s *Source, items []T) {
	s.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}

// SampleIndices draws k distinct indices from [0, n) without replacement,
// in draw order. k is clamped to n.
func (s *Source) SampleIndices(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// Sample draws k distinct elements of items without replacement.
func Sample[T any](s *Source, items []T, k int) []T {
	idx := s.SampleIndices(len(items), k)
	out := make([]T, 0, len(idx))
	for _, i := range idx {
		out = append(out, items[i])
	}
	return out
}
