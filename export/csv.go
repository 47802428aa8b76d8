package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/wricardo/mowersim/sim/engine"
)

// Tile labels used in grid CSV files
const (
	LabelBase     = "base"
	LabelBlocked  = "blocked"
	LabelOpening  = "opening"
	LabelGuide    = "guideline"
	LabelGrass    = "grass"
	LabelIsolated = "isolated"
)

// scaled formats an index multiplied by the tile size
func scaled(i int, tileSize float64) string {
	if tileSize <= 0 {
		tileSize = 1
	}
	return strconv.FormatFloat(float64(i)*tileSize, 'f', -1, 64)
}

func columnHeaders(lead []string, cols int, tileSize float64) []string {
	header := append([]string(nil), lead...)
	for c := 0; c < cols; c++ {
		header = append(header, scaled(c, tileSize))
	}
	return header
}

// TileLabel names what occupies a tile of snap
func TileLabel(snap engine.Snapshot, p engine.Position) string {
	switch {
	case p == snap.Base:
		return LabelBase
	case snap.Blocked[p.Row][p.Col]:
		return LabelBlocked
	}
	switch snap.Resources[p.Row][p.Col] {
	case engine.Opening:
		return LabelOpening
	case engine.GuideLine:
		return LabelGuide
	}
	if id := snap.AreaIDs[p.Row][p.Col]; id > 0 && id <= len(snap.Areas) && snap.Areas[id-1].Kind == engine.Isolated {
		return LabelIsolated
	}
	return LabelGrass
}

// WriteGridCSV writes the tile labels of snap
func WriteGridCSV(w io.Writer, snap engine.Snapshot, mapIndex, repetition int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columnHeaders([]string{"map", "repetition", "x"}, snap.Cols, snap.TileSize)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, 0, snap.Cols+3)
	for r := 0; r < snap.Rows; r++ {
		row = append(row[:0], strconv.Itoa(mapIndex), strconv.Itoa(repetition), scaled(r, snap.TileSize))
		for c := 0; c < snap.Cols; c++ {
			row = append(row, TileLabel(snap, engine.Position{Row: r, Col: c}))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WritePassCSV writes the pass counts of snap, either for its cycle or
// cumulated over every cycle so far
func WritePassCSV(w io.Writer, snap engine.Snapshot, mapIndex, repetition int, cumulative bool) error {
	passes := snap.CyclePasses
	if cumulative {
		passes = snap.TotalPasses
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columnHeaders([]string{"map", "repetition", "cycle", "x"}, snap.Cols, snap.TileSize)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, 0, snap.Cols+4)
	for r := 0; r < snap.Rows; r++ {
		row = append(row[:0], strconv.Itoa(mapIndex), strconv.Itoa(repetition), strconv.Itoa(snap.Cycle), scaled(r, snap.TileSize))
		for c := 0; c < snap.Cols; c++ {
			row = append(row, strconv.Itoa(passes[r][c]))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteHistogramCSV writes pass-count histogram bins
func WriteHistogramCSV(w io.Writer, bins []engine.HistogramBin) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"low", "high", "tiles"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, b := range bins {
		if err := cw.Write([]string{strconv.Itoa(b.Low), strconv.Itoa(b.High), strconv.Itoa(b.Tiles)}); err != nil {
			return fmt.Errorf("failed to write bin: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
