// Package io reads and writes the files exchanged between simulation,
// trait assignment and analysis.
//
// # File Formats
//
// Every file holds one comma-separated row of integers per line:
//
//   - parentage: row i lists the parents of node i (an empty row means no
//     parents)
//   - counts: one citation-count vector per row, as of the row's node (or
//     generation) closing
//   - phenomes: row i lists the trait ids of node i
//   - final counts: a single row, the final citation-count vector
//   - keyword weights: one non-negative weight per row, row i for keyword i
//
// For example, a four-node diamond network:
//
//	(empty line)
//	0
//	0
//	1,2
//
// # Errors
//
// Readers fail on the first bad record with a MALFORMED_INPUT error whose
// cause is an [errors.RowError] holding the 1-based line number. Failures
// of the underlying file or stream are IO_FAILURE errors. Nothing is
// retried.
//
// # Analysis Export
//
// [WriteAnalysisJSON] encodes closures, inheritance records and aggregate
// metrics of a [phylo.Analysis] as indented JSON for external renderers.
//
// [errors.RowError]: github.com/phylocite/phylocite/pkg/errors.RowError
// [phylo.Analysis]: github.com/phylocite/phylocite/pkg/phylo.Analysis
package io
