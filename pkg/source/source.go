// Package source turns externally identified citation networks into the dense
// form the analyzer consumes.
//
// Real networks arrive as edge lists between patent numbers, discovered in
// walk order. The analyzer requires ids 0..N-1 in creation order, with every
// parent strictly older than its child. [Reindex] produces that ordering with a
// topological sort, breaking ties by discovery order so that a walk which
// already respects creation order is left untouched.
package source

import (
	"container/heap"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/phylocite/phylocite/pkg/errors"
)

// Link is a citation edge between external ids: Child cites Parent.
type Link struct {
	Parent int64 `json:"parent" bson:"parent"`
	Child  int64 `json:"child" bson:"child"`
}

// Network is a citation network with dense ids.
type Network struct {
	// IDs maps a dense id to its external id.
	IDs []int64 `json:"ids"`

	// Generations lists dense ids per walk generation, root first.
	Generations [][]int `json:"generations,omitempty"`

	// Parentage lists each node's parents, ascending.
	Parentage [][]int `json:"parentage"`

	// Phenomes lists each node's keyword ids into Vocabulary.
	Phenomes [][]int `json:"phenomes,omitempty"`

	// Vocabulary maps keyword ids to keywords.
	Vocabulary []string `json:"vocabulary,omitempty"`
}

// NumNodes returns the number of nodes.
func (n *Network) NumNodes() int { return len(n.IDs) }

// Index returns a lookup from external id to dense id.
func (n *Network) Index() map[int64]int {
	idx := make(map[int64]int, len(n.IDs))
	for i, id := range n.IDs {
		idx[id] = i
	}
	return idx
}

// LastGenerationSize returns the size of the youngest walk generation, the
// natural generation length when analyzing the network. It falls back to the
// node count when no generations are recorded.
func (n *Network) LastGenerationSize() int {
	for i := len(n.Generations) - 1; i >= 0; i-- {
		if len(n.Generations[i]) > 0 {
			return len(n.Generations[i])
		}
	}
	return len(n.IDs)
}

// Traits returns the phenomes as bitmaps.
func (n *Network) Traits() []*roaring.Bitmap {
	out := make([]*roaring.Bitmap, len(n.IDs))
	for i := range out {
		out[i] = roaring.New()
		if i < len(n.Phenomes) {
			for _, k := range n.Phenomes[i] {
				out[i].Add(uint32(k))
			}
		}
	}
	return out
}

// Reindex assigns dense ids to ids, which lists every node in discovery order,
// so that every parent in links receives a smaller id than its child.
//
// Duplicate links collapse into one. Links naming an id absent from ids fail
// with MALFORMED_INPUT; a self citation or a citation cycle fails with
// CYCLIC_REFERENCE.
func Reindex(ids []int64, links []Link) (*Network, error) {
	order := make(map[int64]int, len(ids))
	for i, id := range ids {
		if _, dup := order[id]; dup {
			return nil, errors.AtRow(errors.ErrCodeMalformedInput, i, "duplicate node %d", id)
		}
		order[id] = i
	}

	children := make([][]int, len(ids))
	indegree := make([]int, len(ids))
	seen := make(map[Link]struct{}, len(links))
	for i, l := range links {
		p, ok := order[l.Parent]
		if !ok {
			return nil, errors.AtRow(errors.ErrCodeMalformedInput, i, "unknown parent %d", l.Parent)
		}
		c, ok := order[l.Child]
		if !ok {
			return nil, errors.AtRow(errors.ErrCodeMalformedInput, i, "unknown child %d", l.Child)
		}
		if p == c {
			return nil, errors.AtRow(errors.ErrCodeCyclicReference, i, "node %d cites itself", l.Parent)
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		children[p] = append(children[p], c)
		indegree[c]++
	}

	// Kahn's algorithm; the ready set yields the earliest discovered node.
	ready := &minHeap{}
	for i, d := range indegree {
		if d == 0 {
			heap.Push(ready, i)
		}
	}
	dense := make([]int, len(ids))
	net := &Network{IDs: make([]int64, 0, len(ids))}
	for ready.Len() > 0 {
		v := heap.Pop(ready).(int)
		dense[v] = len(net.IDs)
		net.IDs = append(net.IDs, ids[v])
		for _, c := range children[v] {
			indegree[c]--
			if indegree[c] == 0 {
				heap.Push(ready, c)
			}
		}
	}
	if len(net.IDs) != len(ids) {
		for i, d := range indegree {
			if d > 0 {
				return nil, errors.AtRow(errors.ErrCodeCyclicReference, i, "citation cycle through node %d", ids[i])
			}
		}
	}

	net.Parentage = make([][]int, len(ids))
	for p, cs := range children {
		for _, c := range cs {
			net.Parentage[dense[c]] = append(net.Parentage[dense[c]], dense[p])
		}
	}
	for _, ps := range net.Parentage {
		slices.Sort(ps)
	}
	return net, nil
}

// SetGenerations records walk generations given as external ids.
func (n *Network) SetGenerations(gens [][]int64) {
	idx := n.Index()
	n.Generations = make([][]int, len(gens))
	for g, ids := range gens {
		n.Generations[g] = make([]int, 0, len(ids))
		for _, id := range ids {
			if d, ok := idx[id]; ok {
				n.Generations[g] = append(n.Generations[g], d)
			}
		}
		slices.Sort(n.Generations[g])
	}
}

// SetKeywords builds the vocabulary and phenomes from each node's keywords,
// keeping at most perNode keywords per node (all when perNode <= 0).
// Keyword ids follow first appearance in dense id order.
func (n *Network) SetKeywords(keywords map[int64][]string, perNode int) {
	vocab := make(map[string]int)
	n.Vocabulary = n.Vocabulary[:0]
	n.Phenomes = make([][]int, len(n.IDs))
	for i, id := range n.IDs {
		words := keywords[id]
		if perNode > 0 && len(words) > perNode {
			words = words[:perNode]
		}
		for _, w := range words {
			k, ok := vocab[w]
			if !ok {
				k = len(n.Vocabulary)
				vocab[w] = k
				n.Vocabulary = append(n.Vocabulary, w)
			}
			if !slices.Contains(n.Phenomes[i], k) {
				n.Phenomes[i] = append(n.Phenomes[i], k)
			}
		}
		slices.Sort(n.Phenomes[i])
	}
}

type minHeap []int

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *minHeap) Pop() any {
	old := *h
	v := old[len(old)-1]
	*h = old[:len(old)-1]
	return v
}
