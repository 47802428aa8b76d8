package engine

// CoverageMap counts robot passes per tile. It keeps a per-cycle layer,
// cleared by ResetCycle, and a cumulative layer that is never cleared.
type CoverageMap struct {
	rows, cols int
	cycle      []int
	total      []int
}

// NewCoverageMap allocates zeroed counters for a rows x cols grid
func NewCoverageMap(rows, cols int) *CoverageMap {
	return &CoverageMap{
		rows:  rows,
		cols:  cols,
		cycle: make([]int, rows*cols),
		total: make([]int, rows*cols),
	}
}

func (c *CoverageMap) index(p Position) (int, bool) {
	if p.Row < 0 || p.Row >= c.rows || p.Col < 0 || p.Col >= c.cols {
		return 0, false
	}
	return p.Row*c.cols + p.Col, true
}

// Increment adds one pass to p in both layers
func (c *CoverageMap) Increment(p Position) {
	if i, ok := c.index(p); ok {
		c.cycle[i]++
		c.total[i]++
	}
}

// Cycle returns the passes over p during the current cycle
func (c *CoverageMap) Cycle(p Position) int {
	if i, ok := c.index(p); ok {
		return c.cycle[i]
	}
	return 0
}

// Total returns the passes over p since the simulation started
func (c *CoverageMap) Total(p Position) int {
	if i, ok := c.index(p); ok {
		return c.total[i]
	}
	return 0
}

// CycleSum returns the sum of every per-cycle counter
func (c *CoverageMap) CycleSum() int {
	return sum(c.cycle)
}

// TotalSum returns the sum of every cumulative counter
func (c *CoverageMap) TotalSum() int {
	return sum(c.total)
}

// CoveredTiles returns how many tiles have at least one pass in the chosen layer
func (c *CoverageMap) CoveredTiles(cumulative bool) int {
	layer := c.cycle
	if cumulative {
		layer = c.total
	}
	n := 0
	for _, v := range layer {
		if v > 0 {
			n++
		}
	}
	return n
}

// ResetCycle clears the per-cycle layer
func (c *CoverageMap) ResetCycle() {
	for i := range c.cycle {
		c.cycle[i] = 0
	}
}

// Matrix copies a layer into a row-major [][]int
func (c *CoverageMap) Matrix(cumulative bool) [][]int {
	layer := c.cycle
	if cumulative {
		layer = c.total
	}
	out := make([][]int, c.rows)
	for r := 0; r < c.rows; r++ {
		out[r] = make([]int, c.cols)
		copy(out[r], layer[r*c.cols:(r+1)*c.cols])
	}
	return out
}

func sum(xs []int) int {
	s := 0
	for _, x := range xs {
		s += x
	}
	return s
}

// Cutter turns accepted moves into coverage increments
type Cutter struct {
	grid     *Grid
	coverage *CoverageMap
}

// NewCutter binds a cutter to a grid and its coverage map
func NewCutter(g *Grid, coverage *CoverageMap) *Cutter {
	return &Cutter{grid: g, coverage: coverage}
}

// OnMove records the pass of r from one tile to the next. The destination
// gets one pass; with a wider blade the tiles perpendicular to the heading
// are cut as well.
func (c *Cutter) OnMove(r *Robot, from, to Position, heading Direction) {
	c.coverage.Increment(to)
	if r.Width <= 1 {
		return
	}
	left, right := perpendicular(heading)
	for i := 1; i <= (r.Width-1)/2; i++ {
		c.cutSide(to, left, i)
	}
	for i := 1; i <= r.Width/2; i++ {
		c.cutSide(to, right, i)
	}
}

// cutSide cuts the tile steps tiles from center in direction d. The blade
// obeys the same walls as the robot, so isolated areas are only cut
// through their openings.
func (c *Cutter) cutSide(center Position, d Direction, steps int) {
	dr, dc := d.Delta()
	p := Position{Row: center.Row + dr*steps, Col: center.Col + dc*steps}
	if !c.grid.Occupiable(center, p) {
		return
	}
	c.coverage.Increment(p)
}

// perpendicular returns the left and right side directions relative to heading
func perpendicular(heading Direction) (Direction, Direction) {
	switch heading {
	case North:
		return West, East
	case NorthEast:
		return NorthWest, SouthEast
	case East:
		return North, South
	case SouthEast:
		return NorthEast, SouthWest
	case South:
		return East, West
	case SouthWest:
		return SouthEast, NorthWest
	case West:
		return South, North
	case NorthWest:
		return SouthWest, NorthEast
	}
	return DirNone, DirNone
}
