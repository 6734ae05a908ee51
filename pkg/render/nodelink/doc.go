// Package nodelink renders citation networks as node-link diagrams.
//
// # Overview
//
// This package produces Graphviz DOT source for inheritance diagrams: nodes
// are square markers ranked by generation, edges are citations. Two views
// are available:
//
//   - [Genealogy]: the lineage of a set of founders, with nodes and edges
//     highlighted where a selected trait is carried and passed on
//   - [Inheritance]: every first-degree inheritance edge of the network,
//     coloured by the trait it carries
//
// # Usage
//
//	dot := nodelink.Genealogy(analysis, nodelink.Options{
//	    Founders: []int{0, 1},
//	    Traits:   []int{3},
//	})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # Layout
//
// Every generation is a rank (rank=same subgraph) chained by an invisible
// guide so generations stack top to bottom in creation order. With
// [Options.Grid] set, nodes also receive pinned pos attributes laid out on
// a grid of one row per generation, for use with neato -n.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
