// Package traits assigns keyword phenotypes to the nodes of a citation
// network.
//
// Each node receives a set of distinct keyword ids. Keywords come either
// uniformly from [0, NumKeywords) or from a weighted keyword distribution
// (for example one learned from a real corpus). Draws are batched through a
// [sampler.Pool] exactly like the simulator's parent pool, and duplicate
// draws are discarded so every phenotype has exactly the size drawn for it.
//
// Assignment never looks at the citation network, so it can run before,
// after or concurrently with a simulation as long as both finish before
// analysis starts.
package traits

import (
	"context"
	"io"
	"math/rand/v2"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/charmbracelet/log"

	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/observability"
	"github.com/phylocite/phylocite/pkg/sampler"
)

// Default parameter values.
const (
	DefaultNumTraits   = 5
	DefaultNumKeywords = 100
	DefaultGenLen      = 100
	DefaultNumRecords  = 1000
	DefaultSeed        = uint64(42)

	// uniformPoolFactor sizes the uniform keyword pool at
	// NumTraits*uniformPoolFactor*2 draws.
	uniformPoolFactor = 1000

	// refillFloor triggers a refill once fewer than NumTraits*refillFloor
	// keywords remain in the pool.
	refillFloor = 5
)

// Config holds the construction-time parameters of a trait assignment.
type Config struct {
	NumRecords  int  `json:"num_records" toml:"num_records" yaml:"num_records"`
	NumTraits   int  `json:"num_traits" toml:"num_traits" yaml:"num_traits"`
	MinTraits   int  `json:"min_traits,omitempty" toml:"min_traits" yaml:"min_traits"`
	Averaged    bool `json:"averaged,omitempty" toml:"averaged" yaml:"averaged"`
	NumKeywords int  `json:"num_keywords" toml:"num_keywords" yaml:"num_keywords"`
	GenLen      int  `json:"gen_len" toml:"gen_len" yaml:"gen_len"`

	// KeywordWeights switches to weighted draws when non-empty. Keyword i is
	// drawn with probability proportional to KeywordWeights[i].
	KeywordWeights []float64 `json:"keyword_weights,omitempty" toml:"keyword_weights" yaml:"keyword_weights"`

	Seed uint64 `json:"seed" toml:"seed" yaml:"seed"`
}

// DefaultConfig returns a Config populated with the default values.
func DefaultConfig() Config {
	return Config{
		NumRecords:  DefaultNumRecords,
		NumTraits:   DefaultNumTraits,
		NumKeywords: DefaultNumKeywords,
		GenLen:      DefaultGenLen,
		Seed:        DefaultSeed,
	}
}

// TraitRange returns the inclusive bounds of a phenotype's size.
func (c Config) TraitRange() (lo, hi int) {
	if c.Averaged {
		return c.MinTraits, 2*c.NumTraits - c.MinTraits
	}
	return c.NumTraits, c.NumTraits
}

// Weighted reports whether keywords are drawn from KeywordWeights.
func (c Config) Weighted() bool { return len(c.KeywordWeights) > 0 }

// Keywords is the number of keyword ids that can ever be drawn.
func (c Config) Keywords() int {
	if !c.Weighted() {
		return c.NumKeywords
	}
	n := 0
	for _, w := range c.KeywordWeights {
		if w > 0 {
			n++
		}
	}
	return n
}

// PoolSize is the number of keywords drawn into a fresh pool.
func (c Config) PoolSize() int {
	_, hi := c.TraitRange()
	n := c.NumTraits * uniformPoolFactor * 2
	if c.Weighted() {
		n = c.GenLen * c.NumTraits * 2
	}
	return max(n, hi, 1)
}

// Validate reports the first invalid parameter as an INVALID_CONFIGURATION
// error.
func (c Config) Validate() error {
	if err := errors.ValidateNonNegative("num_records", c.NumRecords); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("num_traits", c.NumTraits); err != nil {
		return err
	}
	if err := errors.ValidatePositive("gen_len", c.GenLen); err != nil {
		return err
	}
	if c.Averaged {
		if err := errors.ValidateRange("min_traits", c.MinTraits, 0, c.NumTraits); err != nil {
			return err
		}
	}
	if c.Weighted() {
		if err := errors.ValidateWeights("keyword_weights", c.KeywordWeights); err != nil {
			return err
		}
	} else if err := errors.ValidatePositive("num_keywords", c.NumKeywords); err != nil {
		return err
	}
	// Asking for more distinct keywords than can be drawn never terminates.
	if _, hi := c.TraitRange(); hi > c.Keywords() {
		return errors.New(errors.ErrCodeInvalidConfiguration,
			"max traits per node (%d) exceeds the %d drawable keywords", hi, c.Keywords())
	}
	return nil
}

// Option customizes an Assigner.
type Option func(*Assigner)

// WithSource injects the random source. It overrides Config.Seed.
func WithSource(src rand.Source) Option {
	return func(a *Assigner) { a.src = src }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(a *Assigner) {
		if l != nil {
			a.logger = l
		}
	}
}

// Assigner draws phenotypes for every node.
type Assigner struct {
	cfg    Config
	probs  []float64
	src    rand.Source
	smp    *sampler.Sampler
	rng    *rand.Rand
	logger *log.Logger
	pool   *sampler.Pool
}

// New validates cfg and prepares an assigner.
func New(cfg Config, opts ...Option) (*Assigner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Assigner{
		cfg:    cfg,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	if cfg.Weighted() {
		probs, err := sampler.Normalize(cfg.KeywordWeights)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "keyword weights")
		}
		a.probs = probs
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.src == nil {
		a.src = rand.NewPCG(cfg.Seed, ^cfg.Seed)
	}
	a.smp = sampler.New(a.src)
	a.rng = a.smp.Rand()
	return a, nil
}

// Assign returns one phenotype per node. ctx is checked once per
// generation of nodes.
func (a *Assigner) Assign(ctx context.Context) ([]*roaring.Bitmap, error) {
	start := time.Now()
	phenomes, err := a.assign(ctx)
	observability.Simulation().OnTraitsAssigned(ctx, len(phenomes), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("traits assigned", "nodes", len(phenomes), "weighted", a.cfg.Weighted())
	return phenomes, nil
}

func (a *Assigner) assign(ctx context.Context) ([]*roaring.Bitmap, error) {
	cfg := a.cfg
	lo, hi := cfg.TraitRange()
	floor := cfg.NumTraits * refillFloor

	if err := a.refill(); err != nil {
		return nil, err
	}
	phenomes := make([]*roaring.Bitmap, cfg.NumRecords)
	for i := range phenomes {
		if i%cfg.GenLen == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if i > 0 {
				if err := a.refill(); err != nil {
					return nil, err
				}
			}
		}
		if a.pool.Remaining() < floor {
			if err := a.refill(); err != nil {
				return nil, err
			}
		}

		size := lo
		if hi > lo {
			size += a.rng.IntN(hi - lo + 1)
		}
		bm := roaring.New()
		for int(bm.GetCardinality()) < size {
			k, ok := a.pool.Pop()
			if !ok {
				if err := a.refill(); err != nil {
					return nil, err
				}
				continue
			}
			bm.Add(uint32(k))
		}
		phenomes[i] = bm
	}
	return phenomes, nil
}

func (a *Assigner) refill() error {
	n := a.cfg.PoolSize()
	if !a.cfg.Weighted() {
		a.pool = a.smp.Uniform(n, a.cfg.NumKeywords)
		return nil
	}
	pool, err := a.smp.Draw(n, a.probs)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSamplingFailure, err, "draw keyword pool")
	}
	a.pool = pool
	return nil
}

// Assign is a convenience wrapper that builds an Assigner and runs it.
func Assign(ctx context.Context, cfg Config, opts ...Option) ([]*roaring.Bitmap, error) {
	a, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return a.Assign(ctx)
}

// Slices converts phenotypes to sorted id slices.
func Slices(phenomes []*roaring.Bitmap) [][]int {
	out := make([][]int, len(phenomes))
	for i, bm := range phenomes {
		ids := bm.ToArray()
		row := make([]int, len(ids))
		for j, id := range ids {
			row[j] = int(id)
		}
		out[i] = row
	}
	return out
}

// FromSlices converts id slices to phenotypes. Negative ids are ignored.
func FromSlices(rows [][]int) []*roaring.Bitmap {
	out := make([]*roaring.Bitmap, len(rows))
	for i, row := range rows {
		bm := roaring.New()
		for _, id := range row {
			if id >= 0 {
				bm.Add(uint32(id))
			}
		}
		out[i] = bm
	}
	return out
}
