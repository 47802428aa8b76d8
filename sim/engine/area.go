package engine

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// Area is a committed region of the grid. Kind selects the variant; the
// geometric descriptor used depends on Shape.
type Area struct {
	ID        int           `json:"id"`
	Kind      AreaKind      `json:"kind"`
	Shape     Shape         `json:"shape"`
	Placement PlacementMode `json:"placement"`
	Center    Position      `json:"center"`
	Height    int           `json:"height,omitempty"`
	Width     int           `json:"width,omitempty"`
	Radius    int           `json:"radius,omitempty"`
	Tiles     []Position    `json:"tiles,omitempty"`
	Openings  []Position    `json:"openings,omitempty"`

	footprint []Position
	members   *mapset.Set[Position]
}

// NewRectArea builds a rectangle of height x width centred on center.
// Even sizes extend one tile further down/right than up/left.
func NewRectArea(kind AreaKind, center Position, height, width int) *Area {
	return &Area{Kind: kind, Shape: ShapeSquare, Center: center, Height: height, Width: width}
}

// NewCircleArea builds the set of tiles within radius of center
func NewCircleArea(kind AreaKind, center Position, radius int) *Area {
	return &Area{Kind: kind, Shape: ShapeCircle, Center: center, Radius: radius}
}

// NewTileArea builds an area from a literal list of tiles
func NewTileArea(kind AreaKind, tiles []Position) *Area {
	cp := make([]Position, len(tiles))
	copy(cp, tiles)
	center := Position{}
	if len(cp) > 0 {
		center = cp[0]
	}
	return &Area{Kind: kind, Shape: ShapeTiles, Center: center, Tiles: cp}
}

// AreaFromSpec converts an explicit geometry entry into an Area
func AreaFromSpec(s AreaSpec) *Area {
	var a *Area
	switch s.Shape {
	case ShapeCircle:
		a = NewCircleArea(s.Kind, s.Center, s.Radius)
	case ShapeTiles:
		a = NewTileArea(s.Kind, s.Tiles)
	default:
		a = NewRectArea(s.Kind, s.Center, s.Height, s.Width)
	}
	a.Placement = PlacementManual
	return a
}

// IsBlocked reports whether robots may never enter the area
func (a *Area) IsBlocked() bool {
	return a.Kind != Isolated
}

// Footprint returns every tile the area covers, in row-major order. The
// result may contain positions outside the grid; placement rejects those.
func (a *Area) Footprint() []Position {
	if a.footprint == nil {
		a.footprint = a.computeFootprint()
	}
	return a.footprint
}

func (a *Area) computeFootprint() []Position {
	var tiles []Position
	switch a.Shape {
	case ShapeCircle:
		r := a.Radius
		for dr := -r; dr <= r; dr++ {
			for dc := -r; dc <= r; dc++ {
				if dr*dr+dc*dc <= r*r {
					tiles = append(tiles, Position{Row: a.Center.Row + dr, Col: a.Center.Col + dc})
				}
			}
		}
	case ShapeTiles:
		seen := mapset.New[Position]()
		for _, p := range a.Tiles {
			if !seen.Has(p) {
				seen.Put(p)
				tiles = append(tiles, p)
			}
		}
		sortPositions(tiles)
	default:
		top := a.Center.Row - (a.Height-1)/2
		left := a.Center.Col - (a.Width-1)/2
		for r := top; r < top+a.Height; r++ {
			for c := left; c < left+a.Width; c++ {
				tiles = append(tiles, Position{Row: r, Col: c})
			}
		}
	}
	return tiles
}

// Contains reports whether p is part of the footprint
func (a *Area) Contains(p Position) bool {
	if a.members == nil {
		set := mapset.New[Position]()
		for _, fp := range a.Footprint() {
			set.Put(fp)
		}
		a.members = &set
	}
	return a.members.Has(p)
}

// Boundary returns the footprint tiles that have at least one 4-neighbour
// outside the footprint.
func (a *Area) Boundary() []Position {
	var boundary []Position
	for _, p := range a.Footprint() {
		for _, d := range CardinalDirections {
			if !a.Contains(p.Add(d)) {
				boundary = append(boundary, p)
				break
			}
		}
	}
	return boundary
}

// OnBoundary reports whether p is a boundary tile of the area
func (a *Area) OnBoundary(p Position) bool {
	if !a.Contains(p) {
		return false
	}
	for _, d := range CardinalDirections {
		if !a.Contains(p.Add(d)) {
			return true
		}
	}
	return false
}

// IsOpening reports whether p is one of the area's openings
func (a *Area) IsOpening(p Position) bool {
	for _, o := range a.Openings {
		if o == p {
			return true
		}
	}
	return false
}

func sortPositions(ps []Position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Row != ps[j].Row {
			return ps[i].Row < ps[j].Row
		}
		return ps[i].Col < ps[j].Col
	})
}
