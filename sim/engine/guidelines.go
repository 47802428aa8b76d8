package engine

// TagGuidelines marks the grid perimeter, the ring around every blocked
// area, and a line from the base station to the nearest isolated-area
// opening as GuideLine. Area tiles, openings and the base are never retagged.
func TagGuidelines(g *Grid) {
	for _, p := range perimeterTiles(g) {
		tagGuideline(g, p)
	}

	for _, a := range g.areas {
		if !a.IsBlocked() {
			continue
		}
		for _, p := range a.Footprint() {
			for _, d := range CardinalDirections {
				tagGuideline(g, p.Add(d))
			}
		}
	}

	base, ok := g.Base()
	if !ok {
		return
	}
	if target, found := nearestOpening(g, base); found {
		for _, p := range BresenhamLine(base, target) {
			tagGuideline(g, p)
		}
	}
}

func tagGuideline(g *Grid, p Position) {
	t := g.Tile(p)
	if t == nil || t.AreaID != 0 || t.Resource != Grass {
		return
	}
	if base, ok := g.Base(); ok && base == p {
		return
	}
	t.Resource = GuideLine
}

func nearestOpening(g *Grid, from Position) (Position, bool) {
	best := Position{}
	bestDist := -1
	for _, a := range g.areas {
		for _, o := range a.Openings {
			if d := ManhattanDistance(from, o); bestDist < 0 || d < bestDist {
				best, bestDist = o, d
			}
		}
	}
	return best, bestDist >= 0
}

// BresenhamLine returns the tiles of the discrete line from a to b, both ends included.
func BresenhamLine(a, b Position) []Position {
	dr := abs(b.Row - a.Row)
	dc := abs(b.Col - a.Col)
	sr := sign(b.Row - a.Row)
	sc := sign(b.Col - a.Col)
	err := dc - dr

	line := []Position{a}
	p := a
	for p != b {
		e2 := 2 * err
		if e2 > -dr {
			err -= dr
			p.Col += sc
		}
		if e2 < dc {
			err += dc
			p.Row += sr
		}
		line = append(line, p)
	}
	return line
}
