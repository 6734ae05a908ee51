package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/phylocite/phylocite/pkg/phylo"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan  = lipgloss.Color("36")  // Teal - primary actions
	colorGreen = lipgloss.Color("35")  // Green - success
	colorRed   = lipgloss.Color("167") // Soft red - errors
	colorWhite = lipgloss.Color("255") // Bright white - values
	colorGray  = lipgloss.Color("245") // Gray - secondary text
	colorDim   = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for section headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleKey = lipgloss.NewStyle().Foreground(colorGray).Width(20)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// =============================================================================
// File Output
// =============================================================================

func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printFiles(paths []string) {
	for _, p := range paths {
		printFile(p)
	}
}

// =============================================================================
// Stats Display
// =============================================================================

// printStats prints network statistics on a single line. Zero counts are
// left out.
func printStats(nodes, edges, generations int, cached bool) {
	fmt.Println(statsLine(nodes, edges, generations, cached))
}

func statsLine(nodes, edges, generations int, cached bool) string {
	var parts []string
	if nodes > 0 {
		parts = append(parts, fmt.Sprintf("%d nodes", nodes))
	}
	if edges > 0 {
		parts = append(parts, fmt.Sprintf("%d citations", edges))
	}
	if generations > 0 {
		parts = append(parts, fmt.Sprintf("%d generations", generations))
	}

	status := styleComputed.Render(iconFresh)
	if cached {
		status = styleCached.Render(iconCached)
	}

	var b strings.Builder
	b.WriteString("  ")
	for _, part := range parts {
		b.WriteString(StyleDim.Render(part))
		b.WriteString(StyleDim.Render(" · "))
	}
	b.WriteString(status)
	return b.String()
}

// =============================================================================
// Metrics Display
// =============================================================================

func printMetrics(m phylo.Metrics) {
	fmt.Print(metricsBlock(m))
}

func metricsBlock(m phylo.Metrics) string {
	var b strings.Builder
	row := func(key, value string) {
		b.WriteString(styleKey.Render(key) + " " + StyleValue.Render(value) + "\n")
	}

	b.WriteString("\n" + StyleTitle.Render("Inheritance") + "\n")
	row("surviving traits", fmt.Sprint(m.Surviving))
	row("transmissions", fmt.Sprint(m.Transmissions))
	row("per citation", fmt.Sprintf("%.3f (chance %.3f)", m.Rate.Actual, m.Rate.Expected))
	row("overlap related", fmt.Sprintf("%.3f", m.OverlapRelated))
	row("overlap unrelated", fmt.Sprintf("%.3f", m.OverlapUnrelated))

	if m.Reach.Founders > 0 {
		b.WriteString("\n" + StyleTitle.Render(fmt.Sprintf("Reach of %d founders", m.Reach.Founders)) + "\n")
		row("median", fmt.Sprintf("%.1f", m.Reach.Median))
		row("mean", fmt.Sprintf("%.1f", m.Reach.Mean))
		row("max", fmt.Sprint(m.Reach.Max))
	}

	if len(m.TopTraits) > 0 {
		b.WriteString("\n" + StyleTitle.Render("Most inherited traits") + "\n")
		for _, tc := range m.TopTraits {
			row(fmt.Sprintf("trait %d", tc.Trait), fmt.Sprint(tc.Count))
		}
	}
	return b.String()
}
