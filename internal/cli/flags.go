package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/phylocite/phylocite/pkg/pipeline"
	"github.com/phylocite/phylocite/pkg/sim"
)

// optionFlags binds pipeline options to command flags. Scalar flags write
// straight into opts; enum and list flags go through local values and are
// applied only when set on the command line.
type optionFlags struct {
	opts pipeline.Options

	dist     string
	policy   string
	views    []string
	founders []int
	traits   []int
}

func newOptionFlags() *optionFlags {
	return &optionFlags{opts: pipeline.DefaultOptions()}
}

// localFlags are never replayed onto a loaded config file.
var localFlags = map[string]bool{
	"dist":               true,
	"policy":             true,
	"views":              true,
	"highlight-founders": true,
	"highlight-traits":   true,
}

func (f *optionFlags) addSimulation(cmd *cobra.Command) {
	s := &f.opts.Simulation
	fs := cmd.Flags()
	fs.IntVarP(&s.NumRecords, "records", "n", s.NumRecords, "number of records to grow the network to")
	fs.IntVarP(&s.NumParents, "parents", "p", s.NumParents, "mean number of parents per record")
	fs.IntVar(&s.MinParents, "min-parents", s.MinParents, "lowest parent count of the averaged distribution")
	fs.StringVar(&f.dist, "dist", string(s.Dist), "parent count distribution (flat, averaged, poisson)")
	f.addGenLen(cmd)
	fs.Float64Var(&s.AgeExp, "age-exp", s.AgeExp, "aging exponent")
	fs.Float64Var(&s.CitesExp, "cites-exp", s.CitesExp, "preferential attachment exponent")
	fs.StringVar(&f.policy, "policy", string(s.Policy), "attachment policy (uniform, preferential, aging, preferential+aging)")
	fs.IntVar(&s.PoolFactor, "pool-factor", s.PoolFactor, "parent pool size per generation, in multiples of gen-len*parents")
	fs.Uint64Var(&s.Seed, "seed", s.Seed, "simulation seed")
}

func (f *optionFlags) addGenLen(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.opts.Simulation.GenLen, "gen-len", "g", f.opts.Simulation.GenLen, "records per generation")
}

func (f *optionFlags) addTraits(cmd *cobra.Command) {
	t := &f.opts.Traits
	fs := cmd.Flags()
	fs.IntVar(&t.NumTraits, "num-traits", t.NumTraits, "mean number of traits per record")
	fs.IntVar(&t.MinTraits, "min-traits", t.MinTraits, "lowest trait count when --averaged-traits is set")
	fs.BoolVar(&t.Averaged, "averaged-traits", t.Averaged, "draw trait counts uniformly around --num-traits")
	fs.IntVarP(&t.NumKeywords, "keywords", "k", t.NumKeywords, "size of the keyword vocabulary")
	fs.StringVar(&t.WeightsFile, "weights", t.WeightsFile, "keyword weight file, one weight per row")
	fs.Uint64Var(&t.Seed, "trait-seed", t.Seed, "trait assignment seed")
}

func (f *optionFlags) addAnalysis(cmd *cobra.Command) {
	a := &f.opts.Analysis
	fs := cmd.Flags()
	fs.IntVar(&a.TopK, "top-k", a.TopK, "number of most inherited traits to report")
	fs.IntVar(&a.Founders, "reach", a.Founders, "number of founding records whose reach is measured")
	fs.IntVar(&a.UnrelatedLimit, "unrelated-limit", a.UnrelatedLimit, "records compared for unrelated overlap (0 compares all)")
}

func (f *optionFlags) addOutput(cmd *cobra.Command) {
	o := &f.opts.Output
	fs := cmd.Flags()
	fs.StringVarP(&o.Dir, "out", "o", o.Dir, "output directory (default: current directory)")
	fs.BoolVar(&o.CountsPerGeneration, "per-generation", o.CountsPerGeneration, "write one counts row per generation instead of per record")
	fs.BoolVar(&o.Closures, "closures", o.Closures, "include ancestor and descendant sets in analysis.json")
	fs.StringSliceVar(&f.views, "views", nil, "DOT diagrams to write (genealogy, inheritance)")
	f.addHighlights(cmd)
}

func (f *optionFlags) addHighlights(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntSliceVar(&f.founders, "highlight-founders", nil, "founders whose lineage is highlighted")
	fs.IntSliceVar(&f.traits, "highlight-traits", nil, "traits whose carriers are highlighted")
}

// resolve returns the options of a command invocation. When configPath is
// set, the file is loaded first and every flag given on the command line is
// applied over it.
func (f *optionFlags) resolve(cmd *cobra.Command, configPath string) (pipeline.Options, error) {
	fs := cmd.Flags()
	if configPath != "" {
		changed := make(map[string]string)
		fs.Visit(func(fl *pflag.Flag) {
			if !localFlags[fl.Name] {
				changed[fl.Name] = fl.Value.String()
			}
		})
		loaded, err := pipeline.LoadOptions(configPath)
		if err != nil {
			return pipeline.Options{}, err
		}
		f.opts = loaded
		for name, value := range changed {
			if err := fs.Set(name, value); err != nil {
				return pipeline.Options{}, err
			}
		}
	}

	if fs.Changed("dist") {
		d, err := sim.ParseDist(f.dist)
		if err != nil {
			return pipeline.Options{}, err
		}
		f.opts.Simulation.Dist = d
	}
	if fs.Changed("policy") {
		p, err := sim.ParsePolicy(f.policy)
		if err != nil {
			return pipeline.Options{}, err
		}
		f.opts.Simulation.Policy = p
	}
	if fs.Changed("views") {
		f.opts.Output.Views = f.views
	}
	if fs.Changed("highlight-founders") {
		f.opts.Output.Founders = f.founders
	}
	if fs.Changed("highlight-traits") {
		f.opts.Output.Traits = f.traits
	}
	if f.opts.Output.Dir == "" {
		f.opts.Output.Dir = "."
	}
	return f.opts, nil
}
