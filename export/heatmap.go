package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
	"golang.org/x/term"

	"github.com/wricardo/mowersim/sim/engine"
)

// Heatmap styles, from untouched to most cut
var (
	StyleBlocked = color.Style{color.FgRed}
	StyleBase    = color.Style{color.FgCyan, color.OpBold}
	StyleRobot   = color.Style{color.FgMagenta, color.OpBold}
	StyleUncut   = color.Style{color.FgGray}
	StyleLevels  = []color.Style{
		{color.FgYellow},
		{color.FgLightYellow},
		{color.FgLightGreen},
		{color.FgGreen},
		{color.FgGreen, color.OpBold},
	}
)

// Heatmap symbols
const (
	SymbolBlocked = '#'
	SymbolBase    = 'B'
	SymbolRobot   = 'R'
	SymbolUncut   = '.'
)

// HeatmapOptions controls RenderHeatmap
type HeatmapOptions struct {
	Cumulative bool
	Color      bool
	// MaxWidth truncates wide grids; 0 means no limit
	MaxWidth   int
	ShowRobots bool
}

// TerminalOptions enables color and fits the heatmap to stdout when it is a terminal
func TerminalOptions(cumulative bool) HeatmapOptions {
	fd := int(os.Stdout.Fd())
	opts := HeatmapOptions{Cumulative: cumulative, ShowRobots: true}
	if term.IsTerminal(fd) {
		opts.Color = true
		if width, _, err := term.GetSize(fd); err == nil {
			opts.MaxWidth = width
		}
	}
	return opts
}

// level maps a pass count to 1..len(StyleLevels)
func level(v, maxCount int) int {
	if v <= 0 || maxCount <= 0 {
		return 0
	}
	l := (v*len(StyleLevels) + maxCount - 1) / maxCount
	return min(l, len(StyleLevels))
}

// RenderHeatmap draws the pass counts of snap, one character per tile.
// Digits 1-5 grade the pass count relative to the busiest tile.
func RenderHeatmap(w io.Writer, snap engine.Snapshot, opts HeatmapOptions) error {
	passes := snap.CyclePasses
	title := fmt.Sprintf("cycle %d", snap.Cycle)
	if opts.Cumulative {
		passes = snap.TotalPasses
		title = fmt.Sprintf("cycles 1-%d", snap.Cycle)
	}

	maxCount := 0
	for r := range passes {
		for c, v := range passes[r] {
			if !snap.Blocked[r][c] && v > maxCount {
				maxCount = v
			}
		}
	}

	robots := make(map[engine.Position]bool)
	if opts.ShowRobots {
		for _, rb := range snap.Robots {
			robots[rb.Pos] = true
		}
	}

	cols := snap.Cols
	truncated := false
	if opts.MaxWidth > 0 && cols > opts.MaxWidth {
		cols = opts.MaxWidth
		truncated = true
	}

	paint := func(style color.Style, ch rune) string {
		if opts.Color {
			return style.Sprint(string(ch))
		}
		return string(ch)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d/%d reachable tiles cut, max %d passes\n", title, coveredOf(snap, opts.Cumulative), snap.ReachableTiles, maxCount)
	for r := 0; r < snap.Rows; r++ {
		for c := 0; c < cols; c++ {
			p := engine.Position{Row: r, Col: c}
			switch {
			case snap.Blocked[r][c]:
				b.WriteString(paint(StyleBlocked, SymbolBlocked))
			case robots[p]:
				b.WriteString(paint(StyleRobot, SymbolRobot))
			case p == snap.Base:
				b.WriteString(paint(StyleBase, SymbolBase))
			default:
				l := level(passes[r][c], maxCount)
				if l == 0 {
					b.WriteString(paint(StyleUncut, SymbolUncut))
				} else {
					b.WriteString(paint(StyleLevels[l-1], rune('0'+l)))
				}
			}
		}
		b.WriteByte('\n')
	}
	if truncated {
		fmt.Fprintf(&b, "(showing %d of %d columns)\n", cols, snap.Cols)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func coveredOf(snap engine.Snapshot, cumulative bool) int {
	if cumulative {
		return snap.TotalCovered
	}
	return snap.CycleCovered
}
