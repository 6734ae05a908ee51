package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/spf13/cobra"

	pio "github.com/phylocite/phylocite/pkg/io"
	"github.com/phylocite/phylocite/pkg/phylo"
	"github.com/phylocite/phylocite/pkg/pipeline"
	"github.com/phylocite/phylocite/pkg/traits"
)

// networkFiles names the parentage and phenome files of an existing network.
type networkFiles struct {
	parentage string
	phenomes  string
}

func (n *networkFiles) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&n.parentage, "parentage", pipeline.FileParentage, "parentage file")
	cmd.Flags().StringVar(&n.phenomes, "phenomes", pipeline.FilePhenomes, "phenome file")
}

func (n *networkFiles) read() ([][]int, []*roaring.Bitmap, error) {
	var parentage, rows [][]int
	err := pio.OpenFile(n.parentage, func(r io.Reader) (err error) {
		parentage, err = pio.ReadParentage(r)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	err = pio.OpenFile(n.phenomes, func(r io.Reader) (err error) {
		rows, err = pio.ReadPhenomes(r)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return parentage, traits.FromSlices(rows), nil
}

// analyzeFiles reads a network from disk and analyzes it with opts.
func (c *CLI) analyzeFiles(ctx context.Context, runner *pipeline.Runner, files networkFiles, opts pipeline.Options) (*phylo.Analysis, phylo.Metrics, error) {
	parentage, phenomes, err := files.read()
	if err != nil {
		return nil, phylo.Metrics{}, err
	}
	// The network is given, so the simulation section only carries gen_len.
	opts.Simulation.NumRecords = max(len(parentage), opts.Simulation.GenLen)

	prog := newProgress(loggerFromContext(ctx))
	a, m, err := runner.Analyze(ctx, parentage, phenomes, opts.Simulation.GenLen, opts)
	if err != nil {
		return nil, phylo.Metrics{}, err
	}
	prog.done(fmt.Sprintf("Analyzed %d nodes", a.NumNodes()))
	return a, m, nil
}

// analyzeCommand creates the analyze command for networks on disk.
func (c *CLI) analyzeCommand() *cobra.Command {
	f := newOptionFlags()
	var files networkFiles
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Measure trait inheritance in an existing network",
		Long: `Read parentage.csv and phenomes.csv, compute ancestor and descendant
closures and first-degree inheritance, then write analysis.json.

Traits are counted only when some record of the last generation still carries
them, so --gen-len must match the network.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.resolve(cmd, c.configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			a, m, err := c.analyzeFiles(ctx, runner, files, opts)
			if err != nil {
				return err
			}
			printStats(a.NumNodes(), a.NumCitations(), 0, false)
			printMetrics(m)

			res := &pipeline.Result{Analysis: a, Metrics: m}
			written, err := runner.WriteOutputs(ctx, opts.Output.Dir, res, opts.Output)
			printFiles(written)
			return err
		},
	}
	files.addFlags(cmd)
	f.addGenLen(cmd)
	f.addTraits(cmd)
	f.addAnalysis(cmd)
	f.addOutput(cmd)
	return cmd
}

// dotCommand creates the dot command: one diagram of a network on disk.
func (c *CLI) dotCommand() *cobra.Command {
	f := newOptionFlags()
	var (
		files  networkFiles
		ro     pipeline.RenderOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   "dot",
		Short: "Render a genealogy or inheritance diagram",
		Long: `Render a diagram of a network on disk. The genealogy view draws every
citation; the inheritance view labels citations with the traits passed on.
Formats other than dot are laid out with Graphviz.`,
		Example: `  phylocite dot --highlight-founders 0,1 > genealogy.dot
  phylocite dot --view inheritance -f svg -O inheritance.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateView(ro.View); err != nil {
				return err
			}
			if err := pipeline.ValidateFormat(ro.Format); err != nil {
				return err
			}
			opts, err := f.resolve(cmd, c.configPath)
			if err != nil {
				return err
			}
			ro.Founders = opts.Output.Founders
			ro.Traits = opts.Output.Traits

			ctx := cmd.Context()
			runner, err := c.newRunner(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			a, _, err := c.analyzeFiles(ctx, runner, files, opts)
			if err != nil {
				return err
			}
			data, _, err := runner.Render(ctx, "", a, ro)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := pio.CreateFile(output, func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}); err != nil {
				return err
			}
			printSuccess("Rendered %s view", ro.View)
			printFile(output)
			return nil
		},
	}
	files.addFlags(cmd)
	f.addGenLen(cmd)
	f.addHighlights(cmd)
	cmd.Flags().StringVar(&ro.View, "view", pipeline.ViewGenealogy, "diagram view (genealogy, inheritance)")
	cmd.Flags().StringVarP(&ro.Format, "format", "f", "dot", "output format (dot, svg, pdf, png)")
	cmd.Flags().BoolVar(&ro.Grid, "grid", false, "pin records to a grid, one row per generation")
	cmd.Flags().Float64Var(&ro.Scale, "scale", 1, "PNG scale factor")
	cmd.Flags().StringVarP(&output, "output", "O", "", "output file (default: stdout)")
	return cmd
}
