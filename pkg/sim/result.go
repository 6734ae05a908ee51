package sim

// Edge is one citation: Child cites Parent. Parent < Child always holds.
type Edge struct {
	Parent int `json:"parent"`
	Child  int `json:"child"`
}

// Result is the network produced by one simulation run.
//
// Snapshots holds one citation-count vector per closed generation, taken
// after the generation's last node picked its parents. Every node of a
// generation shares that generation's snapshot, so the counts of a node as
// of the moment its own generation closed are Snapshots[gen] (which is why a
// node's own entry there is always 0).
type Result struct {
	GenLen     int       `json:"gen_len"`
	Parentage  [][]int   `json:"parentage"`
	Snapshots  [][]int   `json:"snapshots"`
	Final      []int     `json:"final"`
	WeightSums []float64 `json:"weight_sums"`
}

// NumNodes is the number of nodes formed.
func (r *Result) NumNodes() int { return len(r.Parentage) }

// NumGenerations is the number of closed generations, including generation 0.
func (r *Result) NumGenerations() int { return len(r.Snapshots) }

// Generation returns the generation of node id.
func (r *Result) Generation(id int) int { return id / r.GenLen }

// Counts returns the citation-count snapshot taken when the generation of
// node id closed. The slice is shared; callers must not modify it.
func (r *Result) Counts(id int) []int {
	return r.Snapshots[r.Generation(id)]
}

// NumEdges is the total number of citations.
func (r *Result) NumEdges() int {
	n := 0
	for _, ps := range r.Parentage {
		n += len(ps)
	}
	return n
}

// Edges lists every citation ordered by child, then parent.
func (r *Result) Edges() []Edge {
	edges := make([]Edge, 0, r.NumEdges())
	for child, ps := range r.Parentage {
		for _, p := range ps {
			edges = append(edges, Edge{Parent: p, Child: child})
		}
	}
	return edges
}
