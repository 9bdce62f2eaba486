package sim

import (
	"fmt"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey is the global seed of a reproducible run. Two runs with the
// same key, graph, rats, discipline and step count MUST produce bit-for-bit
// identical positions and counts.
type SimulationKey uint64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed uint64) SimulationKey {
	return SimulationKey(seed)
}

// === RatStream ===

// RatStream is one rat's private random number stream.
//
// Derivation formula: a PCG generator reseeded from the two words
// (globalSeed, ratIndex), each passed through a 64-bit mixer first so that
// neighboring rat indices start from unrelated states.
//
// The stream is a plain value: copying it forks the stream, and its state
// can be serialized to hand a rat to another zone.
// Thread-safety: NOT thread-safe. Only the zone owning the rat may draw from it.
type RatStream struct {
	pcg rand.PCG
}

// SeedStream derives the stream for rat ratIndex. It is a pure function of its
// two inputs, independent of how rats are spread over zones or goroutines.
func SeedStream(key SimulationKey, ratIndex int) RatStream {
	a := mix64(uint64(key))
	b := mix64(uint64(ratIndex) + goldenGamma)
	var s RatStream
	s.pcg.Seed(a^b, mix64(a+b))
	return s
}

// Uint64 returns the next 64 random bits.
func (s *RatStream) Uint64() uint64 {
	return s.pcg.Uint64()
}

// Float64 returns a uniform value in [0, 1).
func (s *RatStream) Float64() float64 {
	return float64(s.pcg.Uint64()>>11) * 0x1.0p-53
}

// MarshalBinary encodes the stream state for a zone handoff.
func (s *RatStream) MarshalBinary() ([]byte, error) {
	return s.pcg.MarshalBinary()
}

// UnmarshalBinary restores a stream encoded by MarshalBinary.
func (s *RatStream) UnmarshalBinary(data []byte) error {
	if err := s.pcg.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("restoring rat stream: %w", err)
	}
	return nil
}

const goldenGamma = 0x9e3779b97f4a7c15

// mix64 is the splitmix64 finalizer.
func mix64(z uint64) uint64 {
	z += goldenGamma
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
