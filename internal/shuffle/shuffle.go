// Package shuffle produces reproducible permutations keyed by a string seed.
//
// The same (sequence, seed text) pair always yields the same ordering, in
// every process, so independently rendered views of a question agree on the
// option order without exchanging it.
package shuffle

import "unicode/utf16"

// DeriveSeed hashes text to a 32-bit seed.
//
// The hash runs four 32-bit lanes over the UTF-16 code units of text
// (cyrb128) and folds the lanes together with XOR.
func DeriveSeed(text string) uint32 {
	var (
		h1 uint32 = 1779033703
		h2 uint32 = 3144134277
		h3 uint32 = 1013904242
		h4 uint32 = 2773480762
	)
	for _, u := range utf16.Encode([]rune(text)) {
		k := uint32(u)
		h1 = h2 ^ ((h1 ^ k) * 597399067)
		h2 = h3 ^ ((h2 ^ k) * 2869860233)
		h3 = h4 ^ ((h3 ^ k) * 951274213)
		h4 = h1 ^ ((h4 ^ k) * 2716044179)
	}
	h1 = (h3 ^ (h1 >> 18)) * 597399067
	h2 = (h4 ^ (h2 >> 22)) * 2869860233
	h3 = (h1 ^ (h3 >> 17)) * 951274213
	h4 = (h2 ^ (h4 >> 19)) * 2716044179
	return h1 ^ h2 ^ h3 ^ h4
}

// Rand is a mulberry32 generator. The zero value is a valid generator
// seeded with 0.
type Rand struct {
	state uint32
}

// NewRand returns a generator seeded with seed.
func NewRand(seed uint32) *Rand {
	return &Rand{state: seed}
}

// Uint32 advances the generator and returns the next 32-bit value.
func (r *Rand) Uint32() uint32 {
	r.state += 0x6d2b79f5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint32()) / 4294967296
}

// Intn returns the next value in [0, n). It panics if n <= 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("shuffle: invalid argument to Intn")
	}
	return int(r.Float64() * float64(n))
}

// Shuffle returns a new slice holding the elements of seq in an order
// determined by seedText. seq is not modified.
func Shuffle[T any](seq []T, seedText string) []T {
	out := make([]T, len(seq))
	copy(out, seq)

	r := NewRand(DeriveSeed(seedText))
	for i := len(out) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// SeedFor builds the seed text for a participant's view of a question.
func SeedFor(participantID, questionID string) string {
	return participantID + questionID
}
