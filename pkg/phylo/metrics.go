package phylo

import (
	"cmp"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/stat"
)

// =============================================================================
// Relatedness
// =============================================================================

// IsAncestor reports whether anc is an ancestor of node.
func (a *Analysis) IsAncestor(anc, node int) bool {
	if node < 0 || node >= len(a.Ancestors) || anc < 0 {
		return false
	}
	return a.Ancestors[node].Contains(uint32(anc))
}

// Related reports whether one of x and y descends from the other.
func (a *Analysis) Related(x, y int) bool {
	return a.IsAncestor(x, y) || a.IsAncestor(y, x)
}

// Lineage returns the founders together with all of their descendants.
// Founders outside the network are ignored.
func (a *Analysis) Lineage(founders []int) *roaring.Bitmap {
	out := roaring.New()
	for _, f := range founders {
		if f < 0 || f >= len(a.Descendants) {
			continue
		}
		out.Add(uint32(f))
		out.Or(a.Descendants[f])
	}
	return out
}

// =============================================================================
// Trait overlap
// =============================================================================

// OverlapRelated is the mean number of traits shared across citations.
// It is 0 for a network without citations.
func (a *Analysis) OverlapRelated() float64 {
	var overlaps []float64
	for child, parents := range a.Parentage {
		for _, p := range parents {
			overlaps = append(overlaps, float64(a.Phenomes[child].AndCardinality(a.Phenomes[p])))
		}
	}
	if len(overlaps) == 0 {
		return 0
	}
	return stat.Mean(overlaps, nil)
}

// OverlapUnrelated is the mean number of traits shared by pairs of distinct
// nodes where neither descends from the other. Only the first limit nodes
// are compared; limit <= 0 compares every pair. It is 0 when no such pair
// exists.
func (a *Analysis) OverlapUnrelated(limit int) float64 {
	n := a.NumNodes()
	if limit > 0 && limit < n {
		n = limit
	}
	var sum float64
	pairs := 0
	for x := range n {
		for y := x + 1; y < n; y++ {
			// x < y, so only y can descend from x.
			if a.Ancestors[y].Contains(uint32(x)) {
				continue
			}
			sum += float64(a.Phenomes[x].AndCardinality(a.Phenomes[y]))
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

// Rate compares observed inheritance with what chance alone would produce.
type Rate struct {
	// Expected is the number of traits two random phenotypes of numTraits
	// keywords share on average, numTraits^2/numKeywords.
	Expected float64 `json:"expected"`
	// Actual is the number of surviving traits passed on per citation.
	Actual float64 `json:"actual"`
}

// InheritanceRate computes the expected and actual per-citation inheritance.
func (a *Analysis) InheritanceRate(numTraits, numKeywords int) Rate {
	var r Rate
	if numKeywords > 0 {
		r.Expected = float64(numTraits*numTraits) / float64(numKeywords)
	}
	if c := a.NumCitations(); c > 0 {
		r.Actual = float64(a.Inheritance.Total()) / float64(c)
	}
	return r
}

// TraitCount pairs a trait with how often it was inherited.
type TraitCount struct {
	Trait int `json:"trait"`
	Count int `json:"count"`
}

// TopTraits returns the k most inherited traits, most inherited first.
// Ties are broken by the smaller trait id. k <= 0 returns every trait.
func (a *Analysis) TopTraits(k int) []TraitCount {
	out := make([]TraitCount, 0, len(a.Inheritance.TraitTotals))
	for trait, c := range a.Inheritance.TraitTotals {
		out = append(out, TraitCount{Trait: trait, Count: c})
	}
	slices.SortFunc(out, func(x, y TraitCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Trait, y.Trait)
	})
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

// =============================================================================
// Founder reach
// =============================================================================

// Reach summarizes how many descendants a group of founders has.
type Reach struct {
	Founders int     `json:"founders"`
	Median   float64 `json:"median"`
	Max      int     `json:"max"`
	Mean     float64 `json:"mean"`
}

// FounderReach summarizes the descendant counts of the first n nodes.
func (a *Analysis) FounderReach(n int) Reach {
	n = min(max(n, 0), a.NumNodes())
	if n == 0 {
		return Reach{}
	}
	sizes := make([]float64, n)
	for i := range n {
		sizes[i] = float64(a.Descendants[i].GetCardinality())
	}
	slices.Sort(sizes)
	return Reach{
		Founders: n,
		Median:   (sizes[(n-1)/2] + sizes[n/2]) / 2,
		Max:      int(sizes[n-1]),
		Mean:     stat.Mean(sizes, nil),
	}
}

// =============================================================================
// Summary
// =============================================================================

// MetricsConfig selects which aggregate metrics to compute.
type MetricsConfig struct {
	NumTraits   int `json:"num_traits" toml:"num_traits" yaml:"num_traits"`
	NumKeywords int `json:"num_keywords" toml:"num_keywords" yaml:"num_keywords"`
	TopK        int `json:"top_k" toml:"top_k" yaml:"top_k"`
	Founders    int `json:"founders" toml:"founders" yaml:"founders"`

	// UnrelatedLimit bounds the quadratic unrelated-pair comparison to the
	// first UnrelatedLimit nodes. Zero compares every pair.
	UnrelatedLimit int `json:"unrelated_limit" toml:"unrelated_limit" yaml:"unrelated_limit"`
}

// Metrics is the aggregate summary of an analysis.
type Metrics struct {
	Nodes            int          `json:"nodes"`
	Citations        int          `json:"citations"`
	Surviving        int          `json:"surviving_traits"`
	Transmissions    int          `json:"transmissions"`
	OverlapRelated   float64      `json:"overlap_related"`
	OverlapUnrelated float64      `json:"overlap_unrelated"`
	Rate             Rate         `json:"rate"`
	TopTraits        []TraitCount `json:"top_traits"`
	Reach            Reach        `json:"founder_reach"`
}

// Metrics computes the aggregate summary.
func (a *Analysis) Metrics(cfg MetricsConfig) Metrics {
	return Metrics{
		Nodes:            a.NumNodes(),
		Citations:        a.NumCitations(),
		Surviving:        int(a.Surviving.GetCardinality()),
		Transmissions:    a.Inheritance.Total(),
		OverlapRelated:   a.OverlapRelated(),
		OverlapUnrelated: a.OverlapUnrelated(cfg.UnrelatedLimit),
		Rate:             a.InheritanceRate(cfg.NumTraits, cfg.NumKeywords),
		TopTraits:        a.TopTraits(cfg.TopK),
		Reach:            a.FounderReach(cfg.Founders),
	}
}
