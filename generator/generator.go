package generator

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrInvalidParameters is returned when the requested vector cannot be drawn
// from the requested range.
var ErrInvalidParameters = errors.New("generator: invalid parameters")

// ReproducibleSeed seeds the source used in reproducible mode.
const ReproducibleSeed = 0

// denseFactor bounds the range-to-length ratio for which the whole range is
// materialised and partially shuffled.
const denseFactor = 4

// Generate returns length distinct integers drawn without replacement from
// [0, upperBound). With reproducible set every call returns the same
// sequence; otherwise each call uses a fresh unpredictable seed. The result
// is in sampling order, not sorted.
func Generate(length, upperBound int, reproducible bool) ([]int, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: length must be positive, got %d", ErrInvalidParameters, length)
	}
	if upperBound < length {
		return nil, fmt.Errorf("%w: cannot draw %d unique values below %d", ErrInvalidParameters, length, upperBound)
	}
	return sample(newRand(reproducible), length, upperBound), nil
}

func newRand(reproducible bool) *rand.Rand {
	if reproducible {
		return rand.New(rand.NewPCG(ReproducibleSeed, ReproducibleSeed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func sample(r *rand.Rand, length, upperBound int) []int {
	if upperBound/denseFactor <= length {
		return partialShuffle(r, length, upperBound)
	}
	return floyd(r, length, upperBound)
}

// partialShuffle runs the first length steps of a Fisher-Yates shuffle over
// the whole range.
func partialShuffle(r *rand.Rand, length, upperBound int) []int {
	pool := make([]int, upperBound)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < length; i++ {
		j := i + r.IntN(upperBound-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	out := make([]int, length)
	copy(out, pool[:length])
	return out
}

// floyd uses Floyd's sampling, keeping memory proportional to length for
// sparse draws. The picked set is shuffled since Floyd's order is biased.
func floyd(r *rand.Rand, length, upperBound int) []int {
	seen := make(map[int]struct{}, length)
	out := make([]int, 0, length)
	for j := upperBound - length; j < upperBound; j++ {
		v := r.IntN(j + 1)
		if _, ok := seen[v]; ok {
			v = j
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
