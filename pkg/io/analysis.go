package io

import (
	"encoding/json"
	"io"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/phylo"
)

type analysisDoc struct {
	GenLen       int                   `json:"gen_len"`
	Nodes        int                   `json:"nodes"`
	Surviving    []uint32              `json:"surviving_traits"`
	Ancestors    [][]uint32            `json:"ancestors,omitempty"`
	Descendants  [][]uint32            `json:"descendants,omitempty"`
	Inheritance  []int                 `json:"inheritance_count"`
	Interactions [][]phylo.Interaction `json:"inheritance_interactions"`
	TraitTotals  map[int]int           `json:"trait_totals"`
	Metrics      *phylo.Metrics        `json:"metrics,omitempty"`
}

// AnalysisOptions controls what WriteAnalysisJSON includes.
type AnalysisOptions struct {
	// Closures includes the full ancestor and descendant sets, which grow
	// quadratically with the network.
	Closures bool
	// Metrics, when non-nil, is embedded as the "metrics" object.
	Metrics *phylo.Metrics
}

// WriteAnalysisJSON encodes an analysis as indented JSON.
func WriteAnalysisJSON(w io.Writer, a *phylo.Analysis, opts AnalysisOptions) error {
	doc := analysisDoc{
		GenLen:       a.GenLen,
		Nodes:        a.NumNodes(),
		Surviving:    a.Surviving.ToArray(),
		Inheritance:  a.Inheritance.Count,
		Interactions: a.Inheritance.Interactions,
		TraitTotals:  a.Inheritance.TraitTotals,
		Metrics:      opts.Metrics,
	}
	if opts.Closures {
		doc.Ancestors = bitmapRows(a.Ancestors)
		doc.Descendants = bitmapRows(a.Descendants)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "encode analysis")
	}
	return nil
}

func bitmapRows(sets []*roaring.Bitmap) [][]uint32 {
	out := make([][]uint32, len(sets))
	for i, s := range sets {
		out[i] = s.ToArray()
	}
	return out
}
