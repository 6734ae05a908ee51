package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/phylocite/phylocite/pkg/errors"
	pio "github.com/phylocite/phylocite/pkg/io"
	"github.com/phylocite/phylocite/pkg/pipeline"
	"github.com/phylocite/phylocite/pkg/source/mongo"
)

const defaultMongoURI = "mongodb://localhost:27017"

// fetchCommand creates the fetch command: walk a real patent network down
// from a root and analyze it like a simulated one.
func (c *CLI) fetchCommand() *cobra.Command {
	f := newOptionFlags()
	var (
		fo         pipeline.FetchOptions
		uri        string
		database   string
		collection string
	)
	cmd := &cobra.Command{
		Use:   "fetch <patent-number>",
		Short: "Walk a patent citation network out of MongoDB",
		Long: `Walk the patents citing a root patent, generation by generation, keeping
only patents cited at least --threshold times. The walk is renumbered in
creation order, written as parentage.csv and phenomes.csv, and analyzed.`,
		Example: `  phylocite fetch 4237224 --depth 4 --threshold 300
  phylocite fetch 4237224 --mongo-uri mongodb://db:27017 --keywords 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.New(errors.ErrCodeInvalidConfiguration, "invalid patent number %q", args[0])
			}
			fo.Root = root

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

			store, err := mongo.Connect(ctx, uri, database, collection)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			spin := newSpinnerWithContext(ctx, fmt.Sprintf("Walking down from %d...", root))
			spin.Start()
			net, cached, err := runner.Fetch(ctx, store, fo)
			if err != nil {
				spin.StopWithError("Walk failed")
				return err
			}
			spin.StopWithSuccess(fmt.Sprintf("Fetched %d patents", net.NumNodes()))

			a, m, err := runner.AnalyzeNetwork(ctx, net, opts.Analysis)
			if err != nil {
				return err
			}
			printStats(net.NumNodes(), a.NumCitations(), len(net.Generations), cached)
			printMetrics(m)

			res := &pipeline.Result{Phenomes: net.Traits(), Analysis: a, Metrics: m}
			written, err := runner.WriteOutputs(ctx, opts.Output.Dir, res, opts.Output)
			if err != nil {
				printFiles(written)
				return err
			}
			path := filepath.Join(opts.Output.Dir, pipeline.FileParentage)
			if err := pio.CreateFile(path, func(w io.Writer) error { return pio.WriteRows(w, net.Parentage) }); err != nil {
				return err
			}
			printFiles(append(written, path))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&fo.Depth, "depth", pipeline.DefaultDepth, "generations to walk below the root")
	fs.IntVar(&fo.Threshold, "threshold", pipeline.DefaultThreshold, "minimum citation count of a kept patent")
	fs.IntVar(&fo.Keywords, "keywords", 0, "most relevant keywords kept per patent (0 keeps all)")
	fs.BoolVar(&fo.Refresh, "refresh", false, "ignore a cached walk")
	fs.StringVar(&uri, "mongo-uri", defaultMongoURI, "MongoDB connection string")
	fs.StringVar(&database, "db", mongo.DefaultDatabase, "database name")
	fs.StringVar(&collection, "collection", mongo.DefaultCollection, "collection name")
	f.addAnalysis(cmd)
	f.addOutput(cmd)
	return cmd
}
