// Package entropy provides the injectable randomness used by the refusal
// draw and the narrative flavor layer. Production uses a seeded PRNG or the
// random.org pool; tests inject a scripted sequence for determinism.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand"
	"sync"
)

// Source yields uniform random values. Every stochastic step in the turn
// pipeline draws from an explicit Source so runs are reproducible.
type Source interface {
	// Float returns a uniform random float64 in [0, 1).
	Float() float64
	// Intn returns a uniform random int in [0, n).
	Intn(n int) int
}

// Seeded is a deterministic PRNG source. Two Seeded sources with the same
// seed produce identical draw sequences.
type Seeded struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeeded creates a Seeded source from the given seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: mrand.New(mrand.NewSource(seed))}
}

func (s *Seeded) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Seeded) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Crypto draws from crypto/rand. Not reproducible; used as the fallback
// when no better source is configured.
type Crypto struct{}

func (Crypto) Float() float64 { return cryptoRandFloat() }

func (Crypto) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Floor(cryptoRandFloat() * float64(n)))
}

// cryptoRandFloat generates a random float64 in [0, 1) using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// Should never happen; 0.5 is a safe default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// Scripted replays a fixed sequence of floats, wrapping at the end.
// Intended for tests that need to force a refusal draw or suppress the
// flavor layer.
type Scripted struct {
	mu   sync.Mutex
	vals []float64
	idx  int
}

// NewScripted creates a Scripted source. Panics on an empty sequence.
func NewScripted(vals ...float64) *Scripted {
	if len(vals) == 0 {
		panic("entropy: scripted source needs at least one value")
	}
	return &Scripted{vals: vals}
}

func (s *Scripted) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[s.idx%len(s.vals)]
	s.idx++
	return v
}

func (s *Scripted) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Floor(s.Float() * float64(n)))
}
