// Package sampler draws batches of indices from a categorical distribution.
//
// Drawing one index at a time from a large categorical distribution costs a
// scan (or a search) per draw. The simulator instead needs thousands of
// weighted draws per generation, all against the same frozen weight vector,
// so this package batches them: a single multinomial draw fixes how many
// times each index appears, the resulting multiset is shuffled, and callers
// consume it through a [Pool] cursor. Over a short horizon this approximates
// independent weighted draws; callers own exhaustion handling and ask for a
// fresh pool when [Pool.Pop] reports the buffer is empty.
//
// # Usage
//
//	s := sampler.New(rand.NewPCG(42, 0))
//	probs, err := sampler.Normalize(weights)
//	if err != nil {
//	    return err
//	}
//	pool, err := s.Draw(4096, probs)
//	for {
//	    idx, ok := pool.Pop()
//	    if !ok {
//	        break
//	    }
//	    // use idx
//	}
//
// A Sampler is not safe for concurrent use.
package sampler

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/phylocite/phylocite/pkg/errors"
)

// DefaultSeed seeds a Sampler created with a nil source.
const DefaultSeed = uint64(42)

// Sampler produces shuffled multinomial pools from a single random source.
type Sampler struct {
	src rand.Source
	rng *rand.Rand
}

// New creates a Sampler reading randomness from src.
// A nil src is replaced by a PCG source seeded with DefaultSeed so that runs
// without an explicit source are still reproducible.
func New(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewPCG(DefaultSeed, 0)
	}
	return &Sampler{src: src, rng: rand.New(src)}
}

// Rand exposes the generator backing the sampler so that other draws in the
// same run (parent counts, trait counts) share one seeded stream.
func (s *Sampler) Rand() *rand.Rand { return s.rng }

// Normalize converts non-negative weights into probabilities summing to 1.
//
// A negative or NaN weight is an INVALID_DISTRIBUTION error. A vector whose
// sum is zero or not finite is an EMPTY_DISTRIBUTION error.
func Normalize(weights []float64) ([]float64, error) {
	for i, w := range weights {
		if math.IsNaN(w) || w < 0 {
			return nil, errors.New(errors.ErrCodeInvalidDistribution, "weight %d is %v", i, w)
		}
	}
	sum := floats.Sum(weights)
	if sum <= 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
		return nil, errors.New(errors.ErrCodeEmptyDistribution, "weights sum to %v over %d entries", sum, len(weights))
	}
	probs := make([]float64, len(weights))
	copy(probs, weights)
	floats.Scale(1/sum, probs)
	return probs, nil
}

// Multinomial returns per-index counts of n draws from probs.
//
// The counts are produced by the conditional binomial method: index i
// receives Binomial(remaining draws, p_i / remaining mass). probs needs only
// to be proportional to a distribution; it is rescaled by its sum. An
// all-zero (or empty) vector is an INVALID_DISTRIBUTION error.
func (s *Sampler) Multinomial(n int, probs []float64) ([]int, error) {
	if n < 0 {
		return nil, errors.New(errors.ErrCodeInvalidDistribution, "draw count must not be negative, got %d", n)
	}
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 {
			return nil, errors.New(errors.ErrCodeInvalidDistribution, "probability %d is %v", i, p)
		}
	}
	mass := floats.Sum(probs)
	if mass <= 0 || math.IsInf(mass, 0) {
		return nil, errors.New(errors.ErrCodeInvalidDistribution, "probabilities sum to %v", mass)
	}

	counts := make([]int, len(probs))
	remaining := n
	last := lastPositive(probs)
	for i, p := range probs {
		if remaining == 0 {
			break
		}
		if p == 0 {
			continue
		}
		if i == last {
			counts[i] = remaining
			break
		}
		q := p / mass
		mass -= p
		if q >= 1 {
			counts[i] = remaining
			break
		}
		k := s.binomial(remaining, q)
		counts[i] = k
		remaining -= k
	}
	return counts, nil
}

func (s *Sampler) binomial(n int, p float64) int {
	b := distuv.Binomial{N: float64(n), P: p, Src: s.src}
	k := int(b.Rand())
	return min(max(k, 0), n)
}

func lastPositive(probs []float64) int {
	for i := len(probs) - 1; i >= 0; i-- {
		if probs[i] > 0 {
			return i
		}
	}
	return -1
}

// Draw produces a shuffled pool of exactly n indices whose per-index counts
// follow Multinomial(n, probs).
func (s *Sampler) Draw(n int, probs []float64) (*Pool, error) {
	counts, err := s.Multinomial(n, probs)
	if err != nil {
		return nil, err
	}
	buf := make([]int, 0, n)
	for idx, c := range counts {
		for range c {
			buf = append(buf, idx)
		}
	}
	s.rng.Shuffle(len(buf), func(i, j int) { buf[i], buf[j] = buf[j], buf[i] })
	return &Pool{buf: buf}, nil
}

// Uniform produces a pool of n independent uniform draws over [0, k).
// It returns an empty pool when k is not positive.
func (s *Sampler) Uniform(n, k int) *Pool {
	if k <= 0 || n <= 0 {
		return &Pool{}
	}
	buf := make([]int, n)
	for i := range buf {
		buf[i] = s.rng.IntN(k)
	}
	return &Pool{buf: buf}
}

// Pool is a counted cursor over a pre-shuffled buffer of indices.
// Popping advances the cursor; the buffer itself is never resliced.
type Pool struct {
	buf    []int
	cursor int
}

// NewPool wraps an already-shuffled buffer. It is mainly useful in tests.
func NewPool(buf []int) *Pool { return &Pool{buf: buf} }

// Pop returns the next index, or false once the pool is exhausted.
func (p *Pool) Pop() (int, bool) {
	if p == nil || p.cursor >= len(p.buf) {
		return 0, false
	}
	v := p.buf[p.cursor]
	p.cursor++
	return v, true
}

// Remaining reports how many indices are left.
func (p *Pool) Remaining() int {
	if p == nil {
		return 0
	}
	return len(p.buf) - p.cursor
}

// Len reports the total size of the pool, consumed or not.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.buf)
}
