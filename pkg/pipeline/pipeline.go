// Package pipeline provides the simulate → assign → analyze pipeline for
// phylocite.
//
// This package implements the complete run that the CLI and the API share. By
// centralizing it, both entry points apply the same defaults, validation and
// caching.
//
// # Architecture
//
// A run consists of three stages:
//
//  1. Simulate: grow a citation network generation by generation ([sim])
//  2. Assign: attach a trait set to every node ([traits])
//  3. Analyze: compute closures, inheritance and metrics ([phylo])
//
// Simulation and trait assignment are independent given the node count, so
// [Runner.Execute] runs them concurrently and then analyzes.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Simulation.NumRecords = 5000
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Metrics.Transmissions)
//
// Real networks skip the first two stages:
//
//	net, _, err := runner.Fetch(ctx, store, fetchOpts)
//	a, metrics, err := runner.AnalyzeNetwork(ctx, net, opts.Analysis)
package pipeline

import (
	"io"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/charmbracelet/log"

	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/phylo"
	"github.com/phylocite/phylocite/pkg/render"
	"github.com/phylocite/phylocite/pkg/sim"
	"github.com/phylocite/phylocite/pkg/traits"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultTopK is the number of most inherited traits reported.
	DefaultTopK = 10

	// DefaultFounders is the number of founding nodes whose reach is measured.
	DefaultFounders = 10

	// DefaultUnrelatedLimit bounds the quadratic unrelated-overlap metric.
	DefaultUnrelatedLimit = 2000
)

// Views of a run that can be rendered.
const (
	ViewGenealogy   = "genealogy"
	ViewInheritance = "inheritance"
)

// ValidViews is the set of supported diagram views.
var ValidViews = map[string]bool{
	ViewGenealogy:   true,
	ViewInheritance: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// It decodes from JSON (API requests), TOML and YAML (config files).
type Options struct {
	Simulation sim.Config      `json:"simulation" toml:"simulation" yaml:"simulation"`
	Traits     TraitOptions    `json:"traits" toml:"traits" yaml:"traits"`
	Analysis   AnalysisOptions `json:"analysis" toml:"analysis" yaml:"analysis"`
	Output     OutputOptions   `json:"output" toml:"output" yaml:"output"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-" yaml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// TraitOptions configures trait assignment. The node count and generation
// length always follow the simulation.
type TraitOptions struct {
	NumTraits   int  `json:"num_traits" toml:"num_traits" yaml:"num_traits"`
	MinTraits   int  `json:"min_traits,omitempty" toml:"min_traits" yaml:"min_traits"`
	Averaged    bool `json:"averaged,omitempty" toml:"averaged" yaml:"averaged"`
	NumKeywords int  `json:"num_keywords" toml:"num_keywords" yaml:"num_keywords"`

	// WeightsFile names a keyword weight file (one weight per row). It is
	// read once by the Runner and ignored when KeywordWeights is set.
	WeightsFile    string    `json:"weights_file,omitempty" toml:"weights_file" yaml:"weights_file"`
	KeywordWeights []float64 `json:"keyword_weights,omitempty" toml:"keyword_weights" yaml:"keyword_weights"`

	Seed uint64 `json:"seed" toml:"seed" yaml:"seed"`
}

// AnalysisOptions configures the aggregate metrics.
type AnalysisOptions struct {
	TopK           int `json:"top_k" toml:"top_k" yaml:"top_k"`
	Founders       int `json:"founders" toml:"founders" yaml:"founders"`
	UnrelatedLimit int `json:"unrelated_limit" toml:"unrelated_limit" yaml:"unrelated_limit"`
}

// OutputOptions configures the files written by WriteOutputs.
type OutputOptions struct {
	Dir string `json:"dir,omitempty" toml:"dir" yaml:"dir"`

	// CountsPerGeneration writes one count row per generation instead of one
	// per node.
	CountsPerGeneration bool `json:"counts_per_generation,omitempty" toml:"counts_per_generation" yaml:"counts_per_generation"`

	// Closures includes ancestor and descendant sets in analysis.json.
	Closures bool `json:"closures,omitempty" toml:"closures" yaml:"closures"`

	// Views lists the DOT diagrams to write next to the CSV files.
	Views []string `json:"views,omitempty" toml:"views" yaml:"views"`

	Founders []int `json:"founders,omitempty" toml:"founders" yaml:"founders"`
	Traits   []int `json:"traits,omitempty" toml:"traits" yaml:"traits"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Key is the cache key of the run.
	Key string

	Simulation *sim.Result
	Phenomes   []*roaring.Bitmap
	Analysis   *phylo.Analysis
	Metrics    phylo.Metrics

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Nodes        int           `json:"nodes"`
	Edges        int           `json:"edges"`
	Generations  int           `json:"generations"`
	SimulateTime time.Duration `json:"simulate_time"`
	AssignTime   time.Duration `json:"assign_time"`
	AnalyzeTime  time.Duration `json:"analyze_time"`
}

// Summary is the cacheable digest of a run.
type Summary struct {
	Key     string        `json:"key"`
	Stats   Stats         `json:"stats"`
	Metrics phylo.Metrics `json:"metrics"`
}

// Summary returns the digest of r.
func (r *Result) Summary() Summary {
	return Summary{Key: r.Key, Stats: r.Stats, Metrics: r.Metrics}
}

// =============================================================================
// Options Methods
// =============================================================================

// DefaultOptions returns Options populated with every default value.
// Config files and API requests decode on top of it, so a zero written
// explicitly (for example age_exp = 0) is kept.
func DefaultOptions() Options {
	tc := traits.DefaultConfig()
	return Options{
		Simulation: sim.DefaultConfig(),
		Traits: TraitOptions{
			NumTraits:   tc.NumTraits,
			NumKeywords: tc.NumKeywords,
			Seed:        tc.Seed,
		},
		Analysis: AnalysisOptions{
			TopK:           DefaultTopK,
			Founders:       DefaultFounders,
			UnrelatedLimit: DefaultUnrelatedLimit,
		},
	}
}

// ValidateAndSetDefaults applies defaults and validates the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetDefaults fills the fields whose zero value is never valid.
func (o *Options) SetDefaults() {
	s := &o.Simulation
	if s.NumRecords == 0 {
		s.NumRecords = sim.DefaultNumRecords
	}
	if s.GenLen == 0 {
		s.GenLen = sim.DefaultGenLen
	}
	if s.Dist == "" {
		s.Dist = sim.DistFlat
	}
	if s.Policy == "" {
		s.Policy = sim.PolicyPrefAging
	}
	if s.PoolFactor == 0 {
		s.PoolFactor = sim.DefaultPoolFactor
	}
	if o.Traits.NumKeywords == 0 && len(o.Traits.KeywordWeights) == 0 {
		o.Traits.NumKeywords = traits.DefaultNumKeywords
	}
	if o.Analysis.TopK == 0 {
		o.Analysis.TopK = DefaultTopK
	}
	if o.Analysis.Founders == 0 {
		o.Analysis.Founders = DefaultFounders
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks every section. Trait weights named by WeightsFile are
// checked once loaded.
func (o *Options) Validate() error {
	if err := o.Simulation.Validate(); err != nil {
		return err
	}
	if o.Traits.WeightsFile == "" || len(o.Traits.KeywordWeights) > 0 {
		if err := o.TraitConfig().Validate(); err != nil {
			return err
		}
	}
	if err := errors.ValidateNonNegative("top_k", o.Analysis.TopK); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("founders", o.Analysis.Founders); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("unrelated_limit", o.Analysis.UnrelatedLimit); err != nil {
		return err
	}
	for _, v := range o.Output.Views {
		if err := ValidateView(v); err != nil {
			return err
		}
	}
	return nil
}

// TraitConfig returns the trait assignment configuration, sized to the
// network the simulation forms.
func (o *Options) TraitConfig() traits.Config {
	return traits.Config{
		NumRecords:     o.Simulation.NumNodes(),
		NumTraits:      o.Traits.NumTraits,
		MinTraits:      o.Traits.MinTraits,
		Averaged:       o.Traits.Averaged,
		NumKeywords:    o.Traits.NumKeywords,
		GenLen:         o.Simulation.GenLen,
		KeywordWeights: o.Traits.KeywordWeights,
		Seed:           o.Traits.Seed,
	}
}

// MetricsConfig returns the metrics configuration.
func (o *Options) MetricsConfig() phylo.MetricsConfig {
	return o.Analysis.metricsConfig(o.Traits.NumTraits, o.TraitConfig().Keywords())
}

func (a AnalysisOptions) metricsConfig(numTraits, numKeywords int) phylo.MetricsConfig {
	return phylo.MetricsConfig{
		NumTraits:      numTraits,
		NumKeywords:    numKeywords,
		TopK:           a.TopK,
		Founders:       a.Founders,
		UnrelatedLimit: a.UnrelatedLimit,
	}
}

// runKeyOpts is the part of Options that determines a run's outcome.
type runKeyOpts struct {
	Simulation sim.Config          `json:"simulation"`
	Traits     traits.Config       `json:"traits"`
	Metrics    phylo.MetricsConfig `json:"metrics"`
}

func (o *Options) runKeyOpts() runKeyOpts {
	return runKeyOpts{
		Simulation: o.Simulation,
		Traits:     o.TraitConfig(),
		Metrics:    o.MetricsConfig(),
	}
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateView checks that a view is valid.
func ValidateView(view string) error {
	if !ValidViews[view] {
		return errors.New(errors.ErrCodeInvalidConfiguration,
			"invalid view: %q (must be one of: genealogy, inheritance)", view)
	}
	return nil
}

// ValidateFormat checks that a render format is valid.
func ValidateFormat(format string) error {
	_, err := render.ParseFormat(format)
	return err
}
