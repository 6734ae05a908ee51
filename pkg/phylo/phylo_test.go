package phylo

import (
	"context"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/sim"
	"github.com/phylocite/phylocite/pkg/traits"
)

// diamond is 0->1, 0->2, 1->3, 2->3.
var diamond = [][]int{{}, {0}, {0}, {1, 2}}

func ids(bm *roaring.Bitmap) []uint32 { return bm.ToArray() }

func phen(rows ...[]uint32) []*roaring.Bitmap {
	out := make([]*roaring.Bitmap, len(rows))
	for i, r := range rows {
		out[i] = roaring.BitmapOf(r...)
	}
	return out
}

func TestDiamondClosures(t *testing.T) {
	anc := Ancestors(diamond)
	desc := Descendants(diamond)

	assert.Equal(t, []uint32{0, 1, 2}, ids(anc[3]))
	assert.Equal(t, []uint32{1, 2, 3}, ids(desc[0]))
	assert.Empty(t, ids(anc[0]))
	assert.Empty(t, ids(desc[3]))
	assert.Equal(t, []uint32{0}, ids(anc[1]))
	assert.Equal(t, []uint32{3}, ids(desc[2]))
}

func TestClosuresMutuallyConsistent(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.NumRecords = 300
	cfg.GenLen = 30
	cfg.NumParents = 3
	s, err := sim.New(cfg)
	require.NoError(t, err)
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	anc := Ancestors(res.Parentage)
	desc := Descendants(res.Parentage)
	n := res.NumNodes()
	for a := range n {
		for b := range n {
			assert.Equal(t, desc[a].Contains(uint32(b)), anc[b].Contains(uint32(a)), "a=%d b=%d", a, b)
		}
	}

	// Closures contain the parents and every parent's ancestors.
	for child, parents := range res.Parentage {
		for _, p := range parents {
			assert.True(t, anc[child].Contains(uint32(p)))
			assert.True(t, roaring.AndNot(anc[p], anc[child]).IsEmpty())
		}
	}
}

func TestClosuresIdempotent(t *testing.T) {
	parentage := [][]int{{}, {}, {0, 1}, {2}, {0, 3}, {1, 4}}
	a1, a2 := Ancestors(parentage), Ancestors(parentage)
	d1, d2 := Descendants(parentage), Descendants(parentage)
	for i := range parentage {
		assert.True(t, a1[i].Equals(a2[i]))
		assert.True(t, d1[i].Equals(d2[i]))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		parentage [][]int
		phenomes  []*roaring.Bitmap
		code      errors.Code
		row       int
	}{
		{"out of range", [][]int{{}, {5}}, nil, errors.ErrCodeMalformedInput, 1},
		{"negative", [][]int{{}, {}, {-1}}, nil, errors.ErrCodeMalformedInput, 2},
		{"self citation", [][]int{{}, {1}}, nil, errors.ErrCodeCyclicReference, 1},
		{"cites younger", [][]int{{}, {2}, {}}, nil, errors.ErrCodeCyclicReference, 1},
		{"duplicate parent", [][]int{{}, {0, 0}}, nil, errors.ErrCodeMalformedInput, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.parentage, tt.phenomes)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			row, ok := errors.Row(err)
			require.True(t, ok)
			assert.Equal(t, tt.row, row)
		})
	}

	err := Validate(diamond, phen([]uint32{1}))
	assert.True(t, errors.Is(err, errors.ErrCodeMalformedInput))
	assert.NoError(t, Validate(diamond, nil))
}

func TestSurvivingTraits(t *testing.T) {
	p := phen([]uint32{1}, []uint32{2}, []uint32{3, 4}, []uint32{4, 5})
	assert.Equal(t, []uint32{3, 4, 5}, ids(SurvivingTraits(p, 2)))
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, ids(SurvivingTraits(p, 10)))
}

func TestFirstDegree(t *testing.T) {
	// Trait 9 is shared by 0 and 1 but goes extinct.
	p := phen(
		[]uint32{1, 2, 9},
		[]uint32{1, 9},
		[]uint32{2, 3},
		[]uint32{1, 2, 3},
	)
	surviving := SurvivingTraits(p, 2)
	in := FirstDegree(diamond, p, surviving)

	assert.Equal(t, []int{2, 1, 2, 0}, in.Count)
	assert.Equal(t, []Interaction{{Child: 1, Trait: 1}, {Child: 2, Trait: 2}}, in.Interactions[0])
	assert.Equal(t, []Interaction{{Child: 3, Trait: 1}}, in.Interactions[1])
	assert.Equal(t, []Interaction{{Child: 3, Trait: 2}, {Child: 3, Trait: 3}}, in.Interactions[2])
	assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 1}, in.TraitTotals)
	assert.Equal(t, 5, in.Total())
	assert.Equal(t, 2, in.Shared(2, 3))
}

func TestInheritanceBoundedBySmallerPhenotype(t *testing.T) {
	ctx := context.Background()
	cfg := sim.DefaultConfig()
	cfg.NumRecords = 20
	cfg.GenLen = 5
	cfg.NumParents = 2
	s, err := sim.New(cfg)
	require.NoError(t, err)
	res, err := s.Run(ctx)
	require.NoError(t, err)

	p, err := traits.Assign(ctx, traits.Config{
		NumRecords: res.NumNodes(), NumTraits: 1, NumKeywords: 2, GenLen: 5, Seed: 3,
	})
	require.NoError(t, err)

	a, err := Analyze(ctx, res.Parentage, p, 5)
	require.NoError(t, err)
	for parent, its := range a.Inheritance.Interactions {
		for _, it := range its {
			limit := min(p[parent].GetCardinality(), p[it.Child].GetCardinality())
			assert.LessOrEqual(t, uint64(a.Inheritance.Shared(parent, it.Child)), limit)
			assert.LessOrEqual(t, a.Inheritance.Shared(parent, it.Child), 1)
		}
	}
}

func TestAnalyze(t *testing.T) {
	p := phen([]uint32{1, 2}, []uint32{1}, []uint32{2}, []uint32{1, 2})
	a, err := Analyze(context.Background(), diamond, p, 2)
	require.NoError(t, err)

	assert.Equal(t, []uint32{1, 2}, ids(a.Surviving))
	assert.Equal(t, []uint32{0, 1, 2}, ids(a.Ancestors[3]))
	assert.Equal(t, 4, a.Inheritance.Total())
	assert.True(t, a.IsAncestor(0, 3))
	assert.False(t, a.IsAncestor(1, 2))
	assert.False(t, a.Related(1, 2))
	assert.Equal(t, []uint32{1, 3}, ids(a.Lineage([]int{1, 99})))
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := Analyze(context.Background(), [][]int{{}, {1}}, nil, 1)
	assert.True(t, errors.Is(err, errors.ErrCodeCyclicReference))

	_, err = Analyze(context.Background(), diamond, nil, 0)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfiguration))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Analyze(ctx, diamond, nil, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeWithoutTraits(t *testing.T) {
	a, err := Analyze(context.Background(), diamond, nil, 1)
	require.NoError(t, err)
	assert.Zero(t, a.Inheritance.Total())
	assert.True(t, a.Surviving.IsEmpty())
}

func TestMetrics(t *testing.T) {
	p := phen([]uint32{1, 2}, []uint32{1}, []uint32{2, 3}, []uint32{1, 2})
	a, err := Analyze(context.Background(), diamond, p, 2)
	require.NoError(t, err)

	// Edges: (0,1)=1 (0,2)=1 (1,3)=1 (2,3)=1
	assert.InDelta(t, 1.0, a.OverlapRelated(), 1e-12)
	// Only pair (1,2) is unrelated, sharing nothing.
	assert.InDelta(t, 0.0, a.OverlapUnrelated(0), 1e-12)

	r := a.InheritanceRate(2, 4)
	assert.InDelta(t, 1.0, r.Expected, 1e-12)
	assert.InDelta(t, 1.0, r.Actual, 1e-12)

	assert.Equal(t, []TraitCount{{Trait: 1, Count: 2}, {Trait: 2, Count: 2}}, a.TopTraits(0))
	assert.Equal(t, []TraitCount{{Trait: 1, Count: 2}}, a.TopTraits(1))

	reach := a.FounderReach(4)
	assert.Equal(t, 4, reach.Founders)
	assert.Equal(t, 3, reach.Max)
	assert.InDelta(t, 1.0, reach.Median, 1e-12)
	assert.InDelta(t, 1.25, reach.Mean, 1e-12)

	m := a.Metrics(MetricsConfig{NumTraits: 2, NumKeywords: 4, TopK: 1, Founders: 2})
	assert.Equal(t, 4, m.Nodes)
	assert.Equal(t, 4, m.Citations)
	assert.Equal(t, 4, m.Transmissions)
	assert.Equal(t, 3, m.Surviving)
}
