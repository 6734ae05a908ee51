package pipeline

import (
	"context"
	"fmt"

	"github.com/phylocite/phylocite/pkg/cache"
	"github.com/phylocite/phylocite/pkg/observability"
	"github.com/phylocite/phylocite/pkg/phylo"
	"github.com/phylocite/phylocite/pkg/render"
	"github.com/phylocite/phylocite/pkg/render/nodelink"
)

// RenderOptions selects a diagram of an analyzed network.
type RenderOptions struct {
	View     string  `json:"view"`
	Format   string  `json:"format"`
	Founders []int   `json:"founders,omitempty"`
	Traits   []int   `json:"traits,omitempty"`
	Grid     bool    `json:"grid,omitempty"`
	Scale    float64 `json:"scale,omitempty"`
}

// SetDefaults selects the genealogy view in DOT format.
func (o *RenderOptions) SetDefaults() {
	if o.View == "" {
		o.View = ViewGenealogy
	}
	if o.Format == "" {
		o.Format = string(render.FormatDOT)
	}
}

func (o *RenderOptions) keyOpts() cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		View:     o.View,
		Format:   o.Format,
		Founders: o.Founders,
		Traits:   o.Traits,
		Grid:     o.Grid,
	}
}

// DOT builds the DOT source of a view.
func DOT(a *phylo.Analysis, opts RenderOptions) (string, error) {
	opts.SetDefaults()
	if err := ValidateView(opts.View); err != nil {
		return "", err
	}
	no := nodelink.Options{Founders: opts.Founders, Traits: opts.Traits, Grid: opts.Grid}
	if opts.View == ViewInheritance {
		return nodelink.Inheritance(a, no), nil
	}
	return nodelink.Genealogy(a, no), nil
}

// Render produces a diagram of the analysis of run runKey, caching the
// artifact. The boolean reports a cache hit.
func (r *Runner) Render(ctx context.Context, runKey string, a *phylo.Analysis, opts RenderOptions) ([]byte, bool, error) {
	opts.SetDefaults()
	format, err := render.ParseFormat(opts.Format)
	if err != nil {
		return nil, false, err
	}
	opts.Format = string(format)

	key := r.Keyer.ArtifactKey(runKey, opts.keyOpts())
	if runKey != "" {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return data, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	dot, err := DOT(a, opts)
	if err != nil {
		return nil, false, err
	}
	data, err := nodelink.Render(ctx, dot, format, opts.Scale)
	if err != nil {
		return nil, false, fmt.Errorf("render %s: %w", format, err)
	}

	if runKey != "" {
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return data, false, nil
}
