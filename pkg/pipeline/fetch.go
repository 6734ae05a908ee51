package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phylocite/phylocite/pkg/cache"
	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/observability"
	"github.com/phylocite/phylocite/pkg/phylo"
	"github.com/phylocite/phylocite/pkg/source"
	"github.com/phylocite/phylocite/pkg/source/mongo"
)

// Defaults for real network walks.
const (
	DefaultDepth     = 5
	DefaultThreshold = 400
)

// FetchOptions configures a walk of a real citation network.
type FetchOptions struct {
	Root      int64 `json:"root" toml:"root" yaml:"root"`
	Depth     int   `json:"depth" toml:"depth" yaml:"depth"`
	Threshold int   `json:"threshold" toml:"threshold" yaml:"threshold"`

	// Keywords keeps the most relevant keywords of each patent; zero keeps
	// all of them.
	Keywords int `json:"keywords,omitempty" toml:"keywords" yaml:"keywords"`

	Refresh bool `json:"refresh,omitempty" toml:"refresh" yaml:"refresh"`
}

// SetDefaults fills Depth.
func (o *FetchOptions) SetDefaults() {
	if o.Depth == 0 {
		o.Depth = DefaultDepth
	}
}

func (o *FetchOptions) keyOpts() cache.NetworkKeyOpts {
	return cache.NetworkKeyOpts{
		Root:      o.Root,
		Depth:     o.Depth,
		Threshold: o.Threshold,
		Keywords:  o.Keywords,
	}
}

// Fetch walks a real network out of store with caching. The boolean reports a
// cache hit.
func (r *Runner) Fetch(ctx context.Context, store mongo.Store, opts FetchOptions) (*source.Network, bool, error) {
	opts.SetDefaults()
	key := r.Keyer.NetworkKey("mongo", opts.keyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var net source.Network
			if err := json.Unmarshal(data, &net); err == nil {
				observability.Cache().OnCacheHit(ctx, "network")
				return &net, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "network")
	}

	f := mongo.NewFetcher(store, mongo.WithLogger(r.Logger), mongo.WithKeywords(opts.Keywords))
	net, err := f.WalkDown(ctx, opts.Root, opts.Depth, opts.Threshold)
	if err != nil {
		return nil, false, fmt.Errorf("walk down from %d: %w", opts.Root, err)
	}
	r.Logger.Info("fetched network",
		"root", opts.Root,
		"nodes", net.NumNodes(),
		"generations", len(net.Generations))

	if data, err := json.Marshal(net); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLNetwork); err == nil {
			observability.Cache().OnCacheSet(ctx, "network", len(data))
		}
	}
	return net, false, nil
}

// AnalyzeNetwork analyzes a fetched network. The youngest walk generation
// decides which traits survive.
func (r *Runner) AnalyzeNetwork(ctx context.Context, net *source.Network, opts AnalysisOptions) (*phylo.Analysis, phylo.Metrics, error) {
	if net == nil || net.NumNodes() == 0 {
		return nil, phylo.Metrics{}, errors.New(errors.ErrCodeMalformedInput, "empty network")
	}
	perNode := 0
	for _, p := range net.Phenomes {
		perNode = max(perNode, len(p))
	}
	mc := opts.metricsConfig(perNode, len(net.Vocabulary))
	return r.analyze(ctx, net.Parentage, net.Traits(), net.LastGenerationSize(), mc)
}
