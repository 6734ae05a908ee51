// Package render converts rendered diagrams between output formats.
//
// The [nodelink] subpackage produces SVG from Graphviz DOT in process; the
// [ToPDF] and [ToPNG] functions convert that SVG further using the external
// rsvg-convert tool (from librsvg).
//
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// [nodelink]: github.com/phylocite/phylocite/pkg/render/nodelink
package render
