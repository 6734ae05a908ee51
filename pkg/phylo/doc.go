// Package phylo analyzes a finished citation network for inheritance of
// keyword traits.
//
// The input is a parentage list indexed by child id, where every parent id
// is smaller than its child, and one phenotype (keyword set) per node. From
// these the package derives:
//
//   - ancestor closures, in one forward sweep over ids
//   - descendant closures, in one reverse sweep over inverted edges
//   - the surviving traits, present anywhere in the final generation
//   - first-degree inheritance: for every citation the traits that parent and
//     child share and that survive to the end
//
// Closures and trait sets are [roaring.Bitmap] values. The two sweeps read
// the same immutable input and write disjoint outputs, so [Analyze] runs
// them concurrently.
//
// Ids must be dense and creation-ordered: [Validate] rejects an input whose
// references fall outside [0, n) with MALFORMED_INPUT and one where a parent
// id is not smaller than its child with CYCLIC_REFERENCE, both naming the
// offending row.
package phylo
