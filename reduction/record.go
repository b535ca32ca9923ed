package reduction

import (
	"slices"

	"mfmodell/internal/gfl"
)

// CharPair is a character value χ(Gen) reduced into GF(ℓ).
type CharPair struct {
	Gen   int64
	Value uint64
}

// Record is one reduction of one newform. AP[i] is a_p mod ℓ for the
// i-th prime and AN[i] is a_{i+1} mod ℓ. Index is left at zero by the
// pipeline and set once by the aggregating log.
type Record struct {
	Label     string
	Level     int
	Weight    int
	Dim       int
	Ell       uint64
	Map       []uint64
	AP        []uint64
	AN        []uint64
	Character []CharPair
	Index     int
}

// Primes returns the primes keying AP, in ascending order.
func (r Record) Primes() []uint64 {
	return gfl.FirstPrimes(len(r.AP))
}

// APEqual reports whether two ap mappings are equal: same primes, same
// values. Lists of different length are never equal.
func APEqual(a, b []uint64) bool {
	return slices.Equal(a, b)
}

// Deferred is a newform whose Hecke field is not stored yet.
type Deferred struct {
	Label string
	Dim   int
	Ell   uint64
}

// Failure is a newform aborted by a per-form fatal error.
type Failure struct {
	Label string
	Ell   uint64
	Err   error
}
