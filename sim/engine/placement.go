package engine

import (
	"fmt"
	"math/rand/v2"
)

// Initialize builds the grid described by cfg: base station first, then
// isolated areas, squared blocked areas, circled blocked areas, and finally
// guide lines. Any error aborts construction and no grid is returned.
func Initialize(cfg *SimulationConfig, rng *rand.Rand) (*Grid, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	g := NewGrid(cfg.Grid.Rows, cfg.Grid.Cols)

	base, err := chooseBase(g, cfg.BaseStation, rng)
	if err != nil {
		return nil, err
	}
	if err := g.SetBase(base); err != nil {
		return nil, err
	}

	switch cfg.Environment.Mode {
	case EnvironmentExplicit:
		err = placeExplicit(g, cfg.Environment.Areas, rng)
	default:
		err = placeRandom(g, cfg.Environment.Random, rng)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Environment.GuidelinesEnabled() {
		TagGuidelines(g)
	}
	return g, nil
}

func chooseBase(g *Grid, bs BaseStationConfig, rng *rand.Rand) (Position, error) {
	switch bs.Strategy {
	case BaseManual:
		if bs.Position == nil {
			return Position{}, configErrorf("base_station.position", "is required for the %s strategy", BaseManual)
		}
		return *bs.Position, nil
	case BaseCenter:
		return Position{Row: (g.rows - 1) / 2, Col: (g.cols - 1) / 2}, nil
	default:
		perimeter := perimeterTiles(g)
		return perimeter[rng.IntN(len(perimeter))], nil
	}
}

// perimeterTiles lists the outer ring of the grid in clockwise order from (0,0)
func perimeterTiles(g *Grid) []Position {
	var ring []Position
	if g.rows == 1 || g.cols == 1 {
		for r := 0; r < g.rows; r++ {
			for c := 0; c < g.cols; c++ {
				ring = append(ring, Position{Row: r, Col: c})
			}
		}
		return ring
	}
	for c := 0; c < g.cols; c++ {
		ring = append(ring, Position{Row: 0, Col: c})
	}
	for r := 1; r < g.rows; r++ {
		ring = append(ring, Position{Row: r, Col: g.cols - 1})
	}
	for c := g.cols - 2; c >= 0; c-- {
		ring = append(ring, Position{Row: g.rows - 1, Col: c})
	}
	for r := g.rows - 2; r > 0; r-- {
		ring = append(ring, Position{Row: r, Col: 0})
	}
	return ring
}

func placeExplicit(g *Grid, specs []AreaSpec, rng *rand.Rand) error {
	// isolated areas are committed first so their openings reserve access tiles
	ordered := make([]AreaSpec, 0, len(specs))
	for _, kind := range []AreaKind{Isolated, SquaredBlocked, CircledBlocked} {
		for _, s := range specs {
			if s.Kind == kind {
				ordered = append(ordered, s)
			}
		}
	}
	for _, s := range ordered {
		a := AreaFromSpec(s)
		if err := g.CanCommit(a); err != nil {
			return err
		}
		if a.Kind == Isolated {
			if len(s.Openings) > 0 {
				a.Openings = append([]Position(nil), s.Openings...)
			} else {
				openings, err := chooseOpenings(g, a, s.OpeningCount, rng)
				if err != nil {
					return err
				}
				a.Openings = openings
			}
		}
		if err := g.Commit(a); err != nil {
			return err
		}
	}
	return nil
}

func placeRandom(g *Grid, rc RandomAreaConfig, rng *rand.Rand) error {
	iso := rc.Isolated
	for i := 0; i < iso.Count; i++ {
		err := placeWithBudget(g, rc.MaxAttempts, func() (*Area, error) {
			var a *Area
			if iso.Shape == ShapeCircle {
				a = NewCircleArea(Isolated, randomPosition(g, rng), between(rng, iso.MinRadius, iso.MaxRadius))
			} else {
				a = NewRectArea(Isolated, randomPosition(g, rng), between(rng, iso.MinHeight, iso.MaxHeight), between(rng, iso.MinWidth, iso.MaxWidth))
			}
			if err := g.CanCommit(a); err != nil {
				return nil, err
			}
			openings, err := chooseOpenings(g, a, iso.Openings, rng)
			if err != nil {
				return nil, err
			}
			a.Openings = openings
			return a, nil
		})
		if err != nil {
			return err
		}
	}

	sq := rc.Squares
	for i := 0; i < sq.Count; i++ {
		err := placeWithBudget(g, rc.MaxAttempts, func() (*Area, error) {
			a := NewRectArea(SquaredBlocked, randomPosition(g, rng), between(rng, sq.MinHeight, sq.MaxHeight), between(rng, sq.MinWidth, sq.MaxWidth))
			return a, g.CanCommit(a)
		})
		if err != nil {
			return err
		}
	}

	ci := rc.Circles
	for i := 0; i < ci.Count; i++ {
		err := placeWithBudget(g, rc.MaxAttempts, func() (*Area, error) {
			a := NewCircleArea(CircledBlocked, randomPosition(g, rng), between(rng, ci.MinRadius, ci.MaxRadius))
			return a, g.CanCommit(a)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// placeWithBudget retries candidate until it yields a committable area or
// the attempt budget is exhausted.
func placeWithBudget(g *Grid, attempts int, candidate func() (*Area, error)) error {
	var last error
	for i := 0; i < attempts; i++ {
		a, err := candidate()
		if err != nil {
			last = err
			continue
		}
		a.Placement = PlacementRandom
		if err := g.Commit(a); err != nil {
			last = err
			continue
		}
		return nil
	}
	return &PlacementError{
		Kind:   Unsatisfiable,
		AreaID: len(g.areas) + 1,
		Detail: fmt.Sprintf("no valid position after %d attempts (last: %v)", attempts, last),
	}
}

// chooseOpenings draws count openings uniformly among the boundary tiles of a
// that have an accessible exterior neighbour.
func chooseOpenings(g *Grid, a *Area, count int, rng *rand.Rand) ([]Position, error) {
	if count < 1 {
		count = 1
	}
	var candidates []Position
	for _, p := range a.Boundary() {
		if _, err := g.openingAccess(a, p); err == nil {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) < count {
		return nil, &PlacementError{
			Kind:   InvalidOpening,
			AreaID: len(g.areas) + 1,
			Pos:    a.Center,
			Detail: fmt.Sprintf("need %d openings, only %d accessible boundary tiles", count, len(candidates)),
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	openings := append([]Position(nil), candidates[:count]...)
	sortPositions(openings)
	return openings, nil
}

func randomPosition(g *Grid, rng *rand.Rand) Position {
	return Position{Row: rng.IntN(g.rows), Col: rng.IntN(g.cols)}
}

// between returns a uniform integer in [lo, hi]
func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}
