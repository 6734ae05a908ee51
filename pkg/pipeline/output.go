package pipeline

import (
	"context"
	stdio "io"
	"os"
	"path/filepath"

	"github.com/phylocite/phylocite/pkg/errors"
	pio "github.com/phylocite/phylocite/pkg/io"
	"github.com/phylocite/phylocite/pkg/render"
	"github.com/phylocite/phylocite/pkg/traits"
)

// Output file names.
const (
	FileParentage   = "parentage.csv"
	FileCounts      = "counts.csv"
	FileFinalCounts = "final_counts.csv"
	FilePhenomes    = "phenomes.csv"
	FileAnalysis    = "analysis.json"
)

// WriteOutputs writes the files of res into dir and returns their paths.
// Every diagram named by out.Views is written as <view>.dot.
func (r *Runner) WriteOutputs(ctx context.Context, dir string, res *Result, out OutputOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create %s", dir)
	}

	var written []string
	write := func(name string, fn func(stdio.Writer) error) error {
		path := filepath.Join(dir, name)
		if err := pio.CreateFile(path, fn); err != nil {
			return err
		}
		written = append(written, path)
		r.Logger.Debug("wrote file", "path", path)
		return nil
	}

	if sr := res.Simulation; sr != nil {
		if err := write(FileParentage, func(w stdio.Writer) error { return pio.WriteRows(w, sr.Parentage) }); err != nil {
			return written, err
		}
		counts := sr.Snapshots
		if !out.CountsPerGeneration {
			counts = make([][]int, sr.NumNodes())
			for id := range counts {
				counts[id] = sr.Counts(id)
			}
		}
		if err := write(FileCounts, func(w stdio.Writer) error { return pio.WriteRows(w, counts) }); err != nil {
			return written, err
		}
		if err := write(FileFinalCounts, func(w stdio.Writer) error { return pio.WriteFinalCounts(w, sr.Final) }); err != nil {
			return written, err
		}
	}

	if res.Phenomes != nil {
		rows := traits.Slices(res.Phenomes)
		if err := write(FilePhenomes, func(w stdio.Writer) error { return pio.WriteRows(w, rows) }); err != nil {
			return written, err
		}
	}

	if a := res.Analysis; a != nil {
		m := res.Metrics
		opts := pio.AnalysisOptions{Closures: out.Closures, Metrics: &m}
		if err := write(FileAnalysis, func(w stdio.Writer) error { return pio.WriteAnalysisJSON(w, a, opts) }); err != nil {
			return written, err
		}
		for _, view := range out.Views {
			ro := RenderOptions{View: view, Format: string(render.FormatDOT), Founders: out.Founders, Traits: out.Traits}
			data, _, err := r.Render(ctx, res.Key, a, ro)
			if err != nil {
				return written, err
			}
			err = write(view+".dot", func(w stdio.Writer) error {
				_, err := w.Write(data)
				return err
			})
			if err != nil {
				return written, err
			}
		}
	}
	return written, nil
}
