package phylo

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/phylocite/phylocite/pkg/errors"
)

// checkEvery is how many nodes a sweep processes between context checks.
const checkEvery = 4096

// Validate checks that parentage describes a DAG over dense creation-ordered
// ids and that phenomes, when given, has one entry per node.
func Validate(parentage [][]int, phenomes []*roaring.Bitmap) error {
	n := len(parentage)
	if phenomes != nil && len(phenomes) != n {
		return errors.New(errors.ErrCodeMalformedInput,
			"%d phenotypes for %d nodes", len(phenomes), n)
	}
	for child, parents := range parentage {
		seen := make(map[int]struct{}, len(parents))
		for _, p := range parents {
			switch {
			case p < 0 || p >= n:
				return errors.AtRow(errors.ErrCodeMalformedInput, child,
					"parent %d of node %d is outside [0, %d)", p, child, n)
			case p >= child:
				return errors.AtRow(errors.ErrCodeCyclicReference, child,
					"parent %d is not older than child %d", p, child)
			}
			if _, dup := seen[p]; dup {
				return errors.AtRow(errors.ErrCodeMalformedInput, child,
					"node %d cites parent %d twice", child, p)
			}
			seen[p] = struct{}{}
		}
	}
	return nil
}

// Ancestors returns, for every node, the set of nodes it reaches by
// following citations backwards. parentage must already be valid.
func Ancestors(parentage [][]int) []*roaring.Bitmap {
	out, _ := ancestors(context.Background(), parentage)
	return out
}

// Descendants returns, for every node, the set of nodes that reach it.
// parentage must already be valid.
func Descendants(parentage [][]int) []*roaring.Bitmap {
	out, _ := descendants(context.Background(), parentage)
	return out
}

func ancestors(ctx context.Context, parentage [][]int) ([]*roaring.Bitmap, error) {
	anc := make([]*roaring.Bitmap, len(parentage))
	for child, parents := range parentage {
		if child%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		set := roaring.New()
		for _, p := range parents {
			set.Add(uint32(p))
			set.Or(anc[p])
		}
		set.RunOptimize()
		anc[child] = set
	}
	return anc, nil
}

func descendants(ctx context.Context, parentage [][]int) ([]*roaring.Bitmap, error) {
	n := len(parentage)
	children := make([][]int, n)
	for child, parents := range parentage {
		for _, p := range parents {
			children[p] = append(children[p], child)
		}
	}

	desc := make([]*roaring.Bitmap, n)
	for parent := n - 1; parent >= 0; parent-- {
		if parent%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		set := roaring.New()
		for _, c := range children[parent] {
			set.Add(uint32(c))
			set.Or(desc[c])
		}
		set.RunOptimize()
		desc[parent] = set
	}
	return desc, nil
}
