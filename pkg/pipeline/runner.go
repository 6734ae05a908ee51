package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	stdio "io"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/phylocite/phylocite/pkg/cache"
	pio "github.com/phylocite/phylocite/pkg/io"
	"github.com/phylocite/phylocite/pkg/observability"
	"github.com/phylocite/phylocite/pkg/phylo"
	"github.com/phylocite/phylocite/pkg/sim"
	"github.com/phylocite/phylocite/pkg/traits"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating run and caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store run results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete simulate → assign → analyze pipeline and caches
// the run summary under the run key.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := r.prepare(&opts); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{Key: r.Keyer.RunKey(opts.runKeyOpts())}

	// Stages 1 and 2 only share the node count, fixed by the configuration.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		res, err := r.Simulate(gctx, opts)
		if err != nil {
			return fmt.Errorf("simulate: %w", err)
		}
		result.Simulation = res
		result.Stats.SimulateTime = time.Since(start)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		phenomes, err := r.AssignTraits(gctx, opts)
		if err != nil {
			return fmt.Errorf("assign traits: %w", err)
		}
		result.Phenomes = phenomes
		result.Stats.AssignTime = time.Since(start)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := result.Simulation
	result.Stats.Nodes = res.NumNodes()
	result.Stats.Edges = res.NumEdges()
	result.Stats.Generations = res.NumGenerations()
	r.Logger.Info("simulated network",
		"nodes", result.Stats.Nodes,
		"edges", result.Stats.Edges,
		"duration", result.Stats.SimulateTime)

	// Stage 3: Analyze
	start := time.Now()
	a, metrics, err := r.analyze(ctx, res.Parentage, result.Phenomes, res.GenLen, opts.MetricsConfig())
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	result.Analysis = a
	result.Metrics = metrics
	result.Stats.AnalyzeTime = time.Since(start)
	r.Logger.Info("analyzed network",
		"surviving", metrics.Surviving,
		"transmissions", metrics.Transmissions,
		"duration", result.Stats.AnalyzeTime)

	if data, err := json.Marshal(result.Summary()); err == nil {
		if err := r.Cache.Set(ctx, result.Key, data, cache.TTLRun); err == nil {
			observability.Cache().OnCacheSet(ctx, "run", len(data))
		} else {
			r.Logger.Warn("cache summary", "key", result.Key, "err", err)
		}
	}
	return result, nil
}

// Summarize returns the cached summary of the run opts describes, executing
// the run on a miss. The boolean reports a cache hit.
func (r *Runner) Summarize(ctx context.Context, opts Options) (*Summary, bool, error) {
	if err := r.prepare(&opts); err != nil {
		return nil, false, fmt.Errorf("invalid options: %w", err)
	}
	key := r.Keyer.RunKey(opts.runKeyOpts())
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var s Summary
		if err := json.Unmarshal(data, &s); err == nil {
			observability.Cache().OnCacheHit(ctx, "run")
			return &s, true, nil
		}
		// If deserialization fails, fall through to rerun
	}
	observability.Cache().OnCacheMiss(ctx, "run")

	res, err := r.Execute(ctx, opts)
	if err != nil {
		return nil, false, err
	}
	s := res.Summary()
	return &s, false, nil
}

// Simulate runs the citation simulator alone.
func (r *Runner) Simulate(ctx context.Context, opts Options) (*sim.Result, error) {
	if err := r.prepare(&opts); err != nil {
		return nil, err
	}
	s, err := sim.New(opts.Simulation, sim.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("simulating", "config", opts.Simulation.String())
	return s.Run(ctx)
}

// AssignTraits runs the trait assigner alone, sized to the simulated network.
func (r *Runner) AssignTraits(ctx context.Context, opts Options) ([]*roaring.Bitmap, error) {
	if err := r.prepare(&opts); err != nil {
		return nil, err
	}
	return traits.Assign(ctx, opts.TraitConfig(), traits.WithLogger(opts.Logger))
}

// Analyze runs the phylogeny analyzer on an existing network.
func (r *Runner) Analyze(ctx context.Context, parentage [][]int, phenomes []*roaring.Bitmap, genLen int, opts Options) (*phylo.Analysis, phylo.Metrics, error) {
	if err := r.prepare(&opts); err != nil {
		return nil, phylo.Metrics{}, err
	}
	return r.analyze(ctx, parentage, phenomes, genLen, opts.MetricsConfig())
}

func (r *Runner) analyze(ctx context.Context, parentage [][]int, phenomes []*roaring.Bitmap, genLen int, mc phylo.MetricsConfig) (*phylo.Analysis, phylo.Metrics, error) {
	a, err := phylo.Analyze(ctx, parentage, phenomes, genLen, phylo.WithLogger(r.Logger))
	if err != nil {
		return nil, phylo.Metrics{}, err
	}
	return a, a.Metrics(mc), nil
}

// prepare loads the keyword weight file, then applies defaults and validates.
func (r *Runner) prepare(opts *Options) error {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if opts.Traits.WeightsFile != "" && len(opts.Traits.KeywordWeights) == 0 {
		err := pio.OpenFile(opts.Traits.WeightsFile, func(rd stdio.Reader) error {
			w, err := pio.ReadKeywordWeights(rd)
			opts.Traits.KeywordWeights = w
			return err
		})
		if err != nil {
			return err
		}
	}
	return opts.ValidateAndSetDefaults()
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
