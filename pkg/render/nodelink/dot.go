package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/goccy/go-graphviz"

	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/phylo"
	"github.com/phylocite/phylocite/pkg/render"
)

// Rainbow is the default trait palette.
var Rainbow = []string{"red", "orange", "gold", "green", "blue", "purple"}

// Options configures diagram generation.
type Options struct {
	// Founders restricts Genealogy to these nodes and their descendants.
	// Empty means every node.
	Founders []int

	// Traits selects the highlighted traits. Genealogy marks nodes carrying
	// one and edges where both ends carry one; Inheritance keeps only edges
	// passing one on. Empty selects every trait in Inheritance and none in
	// Genealogy.
	Traits []int

	// Grid pins every node to a grid position, one row per generation,
	// spanning Width x Height inches.
	Grid   bool
	Width  float64
	Height float64

	// Palette colours traits in Inheritance. Defaults to Rainbow.
	Palette []string
}

const header = `  center=true;
  ratio=0.77;
  size=5;
  bgcolor="transparent";
  node [shape=square, style=filled, fixedsize=false, height=0.3, width=0.3, fillcolor=black, label=""];
  edge [arrowhead=none];
`

// Genealogy converts the lineage of Options.Founders to DOT.
func Genealogy(a *phylo.Analysis, opts Options) string {
	members := lineage(a, opts.Founders)
	selected := roaring.New()
	for _, t := range opts.Traits {
		if t >= 0 {
			selected.Add(uint32(t))
		}
	}
	carries := func(n int) bool {
		return !selected.IsEmpty() && a.Phenomes[n].Intersects(selected)
	}

	var buf bytes.Buffer
	buf.WriteString("digraph genealogy {\n")
	buf.WriteString(header)
	writeRanks(&buf, a, members, opts)

	buf.WriteString("\n")
	it := members.Iterator()
	for it.HasNext() {
		n := int(it.Next())
		if carries(n) {
			fmt.Fprintf(&buf, "  %d [color=red, fillcolor=red];\n", n)
		}
	}

	buf.WriteString("\n")
	for child, parents := range a.Parentage {
		if !members.Contains(uint32(child)) {
			continue
		}
		for _, p := range parents {
			if !members.Contains(uint32(p)) {
				continue
			}
			if carries(p) && carries(child) {
				fmt.Fprintf(&buf, "  %d -> %d [color=red, style=bold];\n", p, child)
			} else {
				fmt.Fprintf(&buf, "  %d -> %d [color=black];\n", p, child)
			}
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

// Inheritance converts every first-degree inheritance edge to DOT. An edge
// takes the colour of the smallest selected trait it carries and is bold
// when it carries more than one.
func Inheritance(a *phylo.Analysis, opts Options) string {
	palette := opts.Palette
	if len(palette) == 0 {
		palette = Rainbow
	}
	keep := func(trait int) bool {
		return len(opts.Traits) == 0 || slices.Contains(opts.Traits, trait)
	}

	all := roaring.New()
	all.AddRange(0, uint64(a.NumNodes()))

	var buf bytes.Buffer
	buf.WriteString("digraph inheritance {\n")
	buf.WriteString(header)
	writeRanks(&buf, a, all, opts)

	buf.WriteString("\n")
	for parent, its := range a.Inheritance.Interactions {
		// Interactions are ordered by child, then trait.
		for i := 0; i < len(its); {
			child := its[i].Child
			first, shared := -1, 0
			for ; i < len(its) && its[i].Child == child; i++ {
				if !keep(its[i].Trait) {
					continue
				}
				if first < 0 {
					first = its[i].Trait
				}
				shared++
			}
			if shared == 0 {
				continue
			}
			style := "solid"
			if shared > 1 {
				style = "bold"
			}
			fmt.Fprintf(&buf, "  %d -> %d [color=%q, style=%s];\n",
				parent, child, palette[first%len(palette)], style)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func lineage(a *phylo.Analysis, founders []int) *roaring.Bitmap {
	if len(founders) > 0 {
		return a.Lineage(founders)
	}
	all := roaring.New()
	all.AddRange(0, uint64(a.NumNodes()))
	return all
}

// writeRanks emits the invisible generation guide, one rank=same group per
// generation holding its members, and optional grid positions.
func writeRanks(buf *bytes.Buffer, a *phylo.Analysis, members *roaring.Bitmap, opts Options) {
	genLen := max(a.GenLen, 1)
	gens := (a.NumNodes() + genLen - 1) / genLen
	if gens == 0 {
		return
	}

	buf.WriteString("\n  { node [style=invis]; edge [style=invis]; ")
	for g := range gens {
		if g > 0 {
			buf.WriteString(" -> ")
		}
		fmt.Fprintf(buf, "gen_%d", g)
	}
	buf.WriteString("; }\n")

	for g := range gens {
		fmt.Fprintf(buf, "  { rank=same; gen_%d;", g)
		for n := g * genLen; n < min((g+1)*genLen, a.NumNodes()); n++ {
			if members.Contains(uint32(n)) {
				fmt.Fprintf(buf, " %d;", n)
			}
		}
		buf.WriteString(" }\n")
	}

	if !opts.Grid {
		return
	}
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = 10
	}
	if h <= 0 {
		h = 10
	}
	xincr := w / float64(max(genLen-1, 1))
	yincr := h / float64(max(gens-1, 1))
	it := members.Iterator()
	for it.HasNext() {
		n := int(it.Next())
		x := float64(n%genLen) * xincr
		y := h - float64(n/genLen)*yincr
		fmt.Fprintf(buf, "  %d [pos=\"%.2f,%.2f!\"];\n", n, x, y)
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales from its
// viewBox instead of Graphviz's point-based width and height.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// RenderPDF renders a DOT graph as PDF via SVG.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}

// Render produces dot in the requested format.
func Render(ctx context.Context, dot string, format render.Format, scale float64) ([]byte, error) {
	switch format {
	case render.FormatSVG:
		return RenderSVG(ctx, dot)
	case render.FormatPDF:
		return RenderPDF(ctx, dot)
	case render.FormatPNG:
		if scale <= 0 {
			scale = 1
		}
		return RenderPNG(ctx, dot, scale)
	}
	return []byte(dot), nil
}
