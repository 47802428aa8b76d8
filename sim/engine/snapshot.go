package engine

// Snapshot is an immutable copy of the simulation at a cycle boundary (or
// on demand). Nothing in it aliases live engine state.
type Snapshot struct {
	Cycle          int             `json:"cycle"`
	Tick           int             `json:"tick"`
	CycleTicks     int             `json:"cycle_ticks"`
	Rows           int             `json:"rows"`
	Cols           int             `json:"cols"`
	TileSize       float64         `json:"tile_size"`
	Resources      [][]Resource    `json:"resources"`
	Blocked        [][]bool        `json:"blocked"`
	AreaIDs        [][]int         `json:"area_ids"`
	CyclePasses    [][]int         `json:"cycle_passes"`
	TotalPasses    [][]int         `json:"total_passes"`
	Areas          []AreaSummary   `json:"areas"`
	Base           Position        `json:"base"`
	Robots         []RobotSnapshot `json:"robots"`
	ReachableTiles int             `json:"reachable_tiles"`
	CycleCovered   int             `json:"cycle_covered"`
	TotalCovered   int             `json:"total_covered"`
}

// AreaSummary lists an area's outline for renderers
type AreaSummary struct {
	ID       int        `json:"id"`
	Kind     AreaKind   `json:"kind"`
	Shape    Shape      `json:"shape"`
	Size     int        `json:"size"`
	Boundary []Position `json:"boundary"`
	Openings []Position `json:"openings,omitempty"`
}

// RobotSnapshot is the frozen state of one robot
type RobotSnapshot struct {
	ID       int        `json:"id"`
	Pos      Position   `json:"pos"`
	Heading  Direction  `json:"heading"`
	Autonomy int        `json:"autonomy"`
	Capacity int        `json:"capacity"`
	State    RobotState `json:"state"`
	Moves    int        `json:"moves"`
	Bounces  int        `json:"bounces"`
}

// TakeSnapshot copies the grid, coverage and robots into a Snapshot
func TakeSnapshot(g *Grid, coverage *CoverageMap, robots []*Robot, cycle, tick, cycleTicks, reachable int, tileSize float64) Snapshot {
	s := Snapshot{
		Cycle:          cycle,
		Tick:           tick,
		CycleTicks:     cycleTicks,
		Rows:           g.rows,
		Cols:           g.cols,
		TileSize:       tileSize,
		Resources:      make([][]Resource, g.rows),
		Blocked:        make([][]bool, g.rows),
		AreaIDs:        make([][]int, g.rows),
		CyclePasses:    coverage.Matrix(false),
		TotalPasses:    coverage.Matrix(true),
		ReachableTiles: reachable,
		CycleCovered:   coverage.CoveredTiles(false),
		TotalCovered:   coverage.CoveredTiles(true),
	}
	for r := 0; r < g.rows; r++ {
		s.Resources[r] = make([]Resource, g.cols)
		s.Blocked[r] = make([]bool, g.cols)
		s.AreaIDs[r] = make([]int, g.cols)
		for c := 0; c < g.cols; c++ {
			t := g.Tile(Position{Row: r, Col: c})
			s.Resources[r][c] = t.Resource
			s.Blocked[r][c] = t.Blocked
			s.AreaIDs[r][c] = t.AreaID
		}
	}
	for _, a := range g.areas {
		s.Areas = append(s.Areas, AreaSummary{
			ID:       a.ID,
			Kind:     a.Kind,
			Shape:    a.Shape,
			Size:     len(a.Footprint()),
			Boundary: append([]Position(nil), a.Boundary()...),
			Openings: append([]Position(nil), a.Openings...),
		})
	}
	s.Base, _ = g.Base()
	for _, rb := range robots {
		s.Robots = append(s.Robots, RobotSnapshot{
			ID:       rb.ID,
			Pos:      rb.Pos,
			Heading:  rb.Heading,
			Autonomy: rb.Autonomy,
			Capacity: rb.Capacity,
			State:    rb.State,
			Moves:    rb.Moves,
			Bounces:  rb.Bounces,
		})
	}
	return s
}

// PassHistogram buckets the pass counts of every non-blocked tile into
// HistogramBins equal-width bins between 0 and the maximum count.
func (s Snapshot) PassHistogram(cumulative bool) []HistogramBin {
	passes := s.CyclePasses
	if cumulative {
		passes = s.TotalPasses
	}
	maxCount := 0
	for r := range passes {
		for c, v := range passes[r] {
			if !s.Blocked[r][c] && v > maxCount {
				maxCount = v
			}
		}
	}
	bins := HistogramBins
	if maxCount+1 < bins {
		bins = maxCount + 1
	}
	width := (maxCount + bins) / bins
	bins = (maxCount + width) / width
	hist := make([]HistogramBin, bins)
	for i := range hist {
		hist[i].Low = i * width
		hist[i].High = hist[i].Low + width - 1
	}
	for r := range passes {
		for c, v := range passes[r] {
			if s.Blocked[r][c] {
				continue
			}
			hist[v/width].Tiles++
		}
	}
	return hist
}

// HistogramBin counts the tiles whose pass count lies in [Low, High]
type HistogramBin struct {
	Low   int `json:"low"`
	High  int `json:"high"`
	Tiles int `json:"tiles"`
}
