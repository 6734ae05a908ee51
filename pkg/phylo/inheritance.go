package phylo

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Interaction records that Child inherited Trait from the parent it is
// filed under.
type Interaction struct {
	Child int `json:"child"`
	Trait int `json:"trait"`
}

// Inheritance holds first-degree inheritance records.
type Inheritance struct {
	// Count[p] is the number of surviving traits p passed on, summed over
	// all of p's children.
	Count []int `json:"count"`

	// Interactions[p] lists every (child, trait) pair p passed on, ordered
	// by child, then trait.
	Interactions [][]Interaction `json:"interactions"`

	// TraitTotals counts how many times each trait was passed on.
	TraitTotals map[int]int `json:"trait_totals"`
}

// Total is the number of (parent, child, trait) transmissions.
func (in *Inheritance) Total() int {
	n := 0
	for _, c := range in.Count {
		n += c
	}
	return n
}

// Shared returns how many traits parent passed to child.
func (in *Inheritance) Shared(parent, child int) int {
	n := 0
	for _, it := range in.Interactions[parent] {
		if it.Child == child {
			n++
		}
	}
	return n
}

// SurvivingTraits returns the union of the phenotypes of the last genLen
// nodes. A genLen larger than the node count covers every node.
func SurvivingTraits(phenomes []*roaring.Bitmap, genLen int) *roaring.Bitmap {
	start := max(len(phenomes)-genLen, 0)
	if genLen <= 0 {
		start = len(phenomes)
	}
	return roaring.FastOr(phenomes[start:]...)
}

// FirstDegree computes, for every citation, the traits shared by parent and
// child that also appear in surviving.
func FirstDegree(parentage [][]int, phenomes []*roaring.Bitmap, surviving *roaring.Bitmap) *Inheritance {
	n := len(parentage)
	in := &Inheritance{
		Count:        make([]int, n),
		Interactions: make([][]Interaction, n),
		TraitTotals:  make(map[int]int),
	}
	for child, parents := range parentage {
		// Traits the child could have inherited at all.
		heritable := roaring.And(phenomes[child], surviving)
		if heritable.IsEmpty() {
			continue
		}
		for _, p := range parents {
			shared := roaring.And(phenomes[p], heritable)
			if shared.IsEmpty() {
				continue
			}
			in.Count[p] += int(shared.GetCardinality())
			it := shared.Iterator()
			for it.HasNext() {
				trait := int(it.Next())
				in.TraitTotals[trait]++
				in.Interactions[p] = append(in.Interactions[p], Interaction{Child: child, Trait: trait})
			}
		}
	}
	return in
}
