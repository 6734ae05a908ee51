package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phylocite/phylocite/pkg/pipeline"
)

// simulateCommand creates the simulate command: grow a network and write its
// parentage and citation counts.
func (c *CLI) simulateCommand() *cobra.Command {
	f := newOptionFlags()
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Grow a synthetic citation network",
		Long: `Grow a citation network generation by generation and write parentage.csv,
counts.csv and final_counts.csv.`,
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

			prog := newProgress(loggerFromContext(ctx))
			res, err := runner.Simulate(ctx, opts)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Simulated %d nodes", res.NumNodes()))
			printStats(res.NumNodes(), res.NumEdges(), res.NumGenerations(), false)

			files, err := runner.WriteOutputs(ctx, opts.Output.Dir, &pipeline.Result{Simulation: res}, opts.Output)
			printFiles(files)
			return err
		},
	}
	f.addSimulation(cmd)
	f.addOutput(cmd)
	return cmd
}

// traitsCommand creates the traits command: assign phenomes sized to the
// network a simulation with the same flags would form.
func (c *CLI) traitsCommand() *cobra.Command {
	f := newOptionFlags()
	cmd := &cobra.Command{
		Use:   "traits",
		Short: "Assign keyword traits to every record",
		Long: `Assign a set of keyword traits to every record of a network and write
phenomes.csv. The record count and generation length follow the simulation
flags.`,
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

			prog := newProgress(loggerFromContext(ctx))
			phenomes, err := runner.AssignTraits(ctx, opts)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Assigned traits to %d nodes", len(phenomes)))

			files, err := runner.WriteOutputs(ctx, opts.Output.Dir, &pipeline.Result{Phenomes: phenomes}, opts.Output)
			printFiles(files)
			return err
		},
	}
	f.addSimulation(cmd)
	f.addTraits(cmd)
	f.addOutput(cmd)
	return cmd
}

// runCommand creates the run command: the full simulate, assign and analyze
// pipeline.
func (c *CLI) runCommand() *cobra.Command {
	f := newOptionFlags()
	var summaryOnly bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate, assign traits and analyze inheritance",
		Long: `Run the whole pipeline and write every output file. With --summary-only the
metrics are printed and nothing is written; a cached summary of identical
options is reused.`,
		Example: `  phylocite run -n 5000 -g 500 --policy preferential --views genealogy
  phylocite run --config run.toml --seed 7 -o out/`,
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

			spin := newSpinnerWithContext(ctx, "Running pipeline...")
			spin.Start()

			if summaryOnly {
				sum, cached, err := runner.Summarize(ctx, opts)
				spin.Stop()
				if err != nil {
					return err
				}
				printStats(sum.Stats.Nodes, sum.Stats.Edges, sum.Stats.Generations, cached)
				printMetrics(sum.Metrics)
				return nil
			}

			res, err := runner.Execute(ctx, opts)
			if err != nil {
				spin.StopWithError("Run failed")
				return err
			}
			spin.StopWithSuccess(fmt.Sprintf("Analyzed %d nodes", res.Stats.Nodes))
			printStats(res.Stats.Nodes, res.Stats.Edges, res.Stats.Generations, false)
			printMetrics(res.Metrics)

			files, err := runner.WriteOutputs(ctx, opts.Output.Dir, res, opts.Output)
			printFiles(files)
			return err
		},
	}
	f.addSimulation(cmd)
	f.addTraits(cmd)
	f.addAnalysis(cmd)
	f.addOutput(cmd)
	cmd.Flags().BoolVar(&summaryOnly, "summary-only", false, "print metrics without writing files")
	return cmd
}
