package sim

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/observability"
	"github.com/phylocite/phylocite/pkg/sampler"
)

// Option customizes a Simulator.
type Option func(*Simulator)

// WithSource injects the random source. It overrides Config.Seed.
func WithSource(src rand.Source) Option {
	return func(s *Simulator) { s.src = src }
}

// WithLogger sets the logger used for per-generation debug output.
func WithLogger(l *log.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// Simulator grows one citation network. A Simulator runs once; create a new
// one for every run.
type Simulator struct {
	cfg     Config
	weights WeightFunc
	src     rand.Source
	smp     *sampler.Sampler
	rng     *rand.Rand
	logger  *log.Logger

	counts     []int
	aging      *AgingSchedule
	probs      []float64
	positive   int
	pool       *sampler.Pool
	parentage  [][]int
	snapshots  [][]int
	weightSums []float64
	edges      int
	nowForming int
	gen        int
	ran        bool
}

// New validates cfg and prepares a simulator. Invalid configurations fail
// here, before any node is formed.
func New(cfg Config, opts ...Option) (*Simulator, error) {
	if cfg.Dist == "" {
		cfg.Dist = DistFlat
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyPrefAging
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dist, _ := ParseDist(string(cfg.Dist))
	policy, _ := ParsePolicy(string(cfg.Policy))
	cfg.Dist, cfg.Policy = dist, policy

	wf, err := policy.WeightFunc()
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:     cfg,
		weights: wf,
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.src == nil {
		s.src = rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	}
	s.smp = sampler.New(s.src)
	s.rng = s.smp.Rand()
	return s, nil
}

// Config returns the normalized configuration of the simulator.
func (s *Simulator) Config() Config { return s.cfg }

// Run forms the whole network and returns it.
//
// The run closes as soon as the node count plus one reaches NumRecords, and
// only whole generations are formed, so the result holds the first multiple
// of GenLen that is at least NumRecords-1 nodes. ctx is checked between
// generations.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if s.ran {
		return nil, errors.New(errors.ErrCodeInternal, "simulator already ran")
	}
	s.ran = true

	start := time.Now()
	res, err := s.run(ctx)
	nodes, edges := len(s.parentage), s.edges
	observability.Simulation().OnSimulationComplete(ctx, nodes, edges, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("simulation closed", "nodes", nodes, "edges", edges, "generations", s.gen)
	return res, nil
}

func (s *Simulator) run(ctx context.Context) (*Result, error) {
	if err := s.seed(); err != nil {
		return nil, err
	}
	for s.nowForming+1 < s.cfg.NumRecords {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.generation(ctx); err != nil {
			return nil, err
		}
	}
	return &Result{
		GenLen:     s.cfg.GenLen,
		Parentage:  s.parentage,
		Snapshots:  s.snapshots,
		Final:      slices.Clone(s.counts),
		WeightSums: s.weightSums,
	}, nil
}

// seed forms generation 0, which cites nothing, and prepares the first pool.
func (s *Simulator) seed() error {
	genLen := s.cfg.GenLen
	capacity := s.cfg.NumRecords + genLen

	s.counts = make([]int, genLen, capacity)
	s.parentage = make([][]int, genLen, capacity)
	for i := range s.parentage {
		s.parentage[i] = []int{}
	}
	s.snapshots = [][]int{make([]int, genLen)}
	s.aging = NewAgingSchedule(s.cfg.AgeExp)
	s.nowForming = genLen
	s.gen = 1

	if err := s.updateWeights(); err != nil {
		return err
	}
	return s.refill()
}

// generation forms every node of generation s.gen, then closes it.
func (s *Simulator) generation(ctx context.Context) error {
	end := (s.gen + 1) * s.cfg.GenLen
	for s.nowForming < end {
		if err := s.cite(); err != nil {
			return err
		}
	}

	s.snapshots = append(s.snapshots, slices.Clone(s.counts))
	observability.Simulation().OnGenerationClosed(ctx, s.gen, s.nowForming, s.edges)
	s.logger.Debug("generation closed", "gen", s.gen, "nodes", s.nowForming, "edges", s.edges)
	s.gen++

	if s.nowForming+1 >= s.cfg.NumRecords {
		return nil
	}
	if err := s.updateWeights(); err != nil {
		return err
	}
	return s.refill()
}

// cite forms node s.nowForming: draws its parent count, picks that many
// distinct parents from the pool (capped at the number of earlier
// generations) and increments their citation counters.
func (s *Simulator) cite() error {
	x := s.parentCount()
	limit := s.nowForming / s.cfg.GenLen

	if need := min(x, limit); need > s.positive {
		return errors.New(errors.ErrCodeSamplingFailure,
			"node %d needs %d distinct parents but only %d candidates have positive weight",
			s.nowForming, need, s.positive)
	}

	parents := make([]int, 0, min(x, limit))
	for len(parents) < x {
		p, ok := s.pool.Pop()
		if !ok {
			if err := s.refill(); err != nil {
				return err
			}
			continue
		}
		if !slices.Contains(parents, p) {
			parents = append(parents, p)
		}
		if len(parents) == limit {
			break
		}
	}

	for _, p := range parents {
		s.counts[p]++
	}
	slices.Sort(parents)
	s.parentage = append(s.parentage, parents)
	s.counts = append(s.counts, 0)
	s.edges += len(parents)
	s.nowForming++
	return nil
}

// parentCount draws how many parents the next node asks for. Draws are
// floored at zero.
func (s *Simulator) parentCount() int {
	switch s.cfg.Dist {
	case DistAveraged:
		lo, hi := s.cfg.ParentRange()
		if hi <= lo {
			return max(lo, 0)
		}
		return max(lo+s.rng.IntN(hi-lo+1), 0)
	case DistPoisson:
		if s.cfg.NumParents <= 0 {
			return 0
		}
		p := distuv.Poisson{Lambda: float64(s.cfg.NumParents), Src: s.src}
		return max(int(p.Rand()), 0)
	default:
		return max(s.cfg.NumParents, 0)
	}
}

// updateWeights advances the aging schedule and recomputes the sampling
// distribution over every existing node. It runs only at generation
// boundaries.
func (s *Simulator) updateWeights() error {
	s.aging.Advance(s.nowForming)
	w := s.weights(History{
		Counts:   s.counts[:s.nowForming],
		GenLen:   s.cfg.GenLen,
		CitesExp: s.cfg.CitesExp,
		Aging:    s.aging,
	})
	for i, v := range w {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return errors.New(errors.ErrCodeInvalidConfiguration,
				"weight of node %d is %v at generation %d (age_exp=%g, cites_exp=%g)",
				i, v, s.gen, s.cfg.AgeExp, s.cfg.CitesExp)
		}
	}

	sum := floats.Sum(w)
	probs, err := sampler.Normalize(w)
	if err != nil {
		return errors.Wrap(errors.GetCode(err), err, "generation %d", s.gen)
	}
	s.probs = probs
	s.weightSums = append(s.weightSums, sum)
	s.positive = 0
	for _, p := range probs {
		if p > 0 {
			s.positive++
		}
	}
	return nil
}

// refill replaces the parent pool with a fresh draw from the frozen
// distribution of the current generation.
func (s *Simulator) refill() error {
	pool, err := s.smp.Draw(s.cfg.PoolSize(), s.probs)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSamplingFailure, err, "draw parent pool for generation %d", s.gen)
	}
	s.pool = pool
	return nil
}
