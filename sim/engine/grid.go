package engine

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// Tile is a single cell of the lattice. Occupants are owned by the Grid.
type Tile struct {
	Pos      Position `json:"pos"`
	Resource Resource `json:"resource"`
	AreaID   int      `json:"area_id,omitempty"`
	Blocked  bool     `json:"blocked,omitempty"`

	occupants mapset.Set[int]
}

// Grid is the R x C lattice plus every committed area and the base station.
type Grid struct {
	rows, cols int
	tiles      []Tile
	areas      []*Area
	base       Position
	hasBase    bool
	reserved   mapset.Set[Position]
}

// NewGrid returns an all-grass grid with no areas and no base station
func NewGrid(rows, cols int) *Grid {
	g := &Grid{
		rows:     rows,
		cols:     cols,
		tiles:    make([]Tile, rows*cols),
		reserved: mapset.New[Position](),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			t := &g.tiles[r*cols+c]
			t.Pos = Position{Row: r, Col: c}
			t.Resource = Grass
			t.occupants = mapset.New[int]()
		}
	}
	return g
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }

// InBounds reports whether p lies inside the lattice
func (g *Grid) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < g.cols
}

// Tile returns the tile at p, or nil when p is out of bounds
func (g *Grid) Tile(p Position) *Tile {
	if !g.InBounds(p) {
		return nil
	}
	return &g.tiles[p.Row*g.cols+p.Col]
}

// Areas returns the committed areas in commit order
func (g *Grid) Areas() []*Area {
	return g.areas
}

// Area returns the area with the given id, or nil
func (g *Grid) Area(id int) *Area {
	if id < 1 || id > len(g.areas) {
		return nil
	}
	return g.areas[id-1]
}

// AreaAt returns the area covering p, or nil
func (g *Grid) AreaAt(p Position) *Area {
	t := g.Tile(p)
	if t == nil || t.AreaID == 0 {
		return nil
	}
	return g.Area(t.AreaID)
}

// Base returns the base station position and whether one has been set
func (g *Grid) Base() (Position, bool) {
	return g.base, g.hasBase
}

// SetBase places the base station. It must happen before any area is
// committed and must not land inside a footprint.
func (g *Grid) SetBase(p Position) error {
	if !g.InBounds(p) {
		return &PlacementError{Kind: OutOfBounds, Pos: p, Detail: "base station outside the grid"}
	}
	if g.Tile(p).AreaID != 0 {
		return &PlacementError{Kind: Overlap, AreaID: g.Tile(p).AreaID, Pos: p, Detail: "base station inside an area"}
	}
	g.base = p
	g.hasBase = true
	return nil
}

// IsBlocked reports whether p is out of bounds or part of a blocked area
func (g *Grid) IsBlocked(p Position) bool {
	t := g.Tile(p)
	return t == nil || t.Blocked
}

// IsOpening reports whether p is an opening of an isolated area
func (g *Grid) IsOpening(p Position) bool {
	t := g.Tile(p)
	return t != nil && t.Resource == Opening
}

// Occupiable reports whether a robot standing on from may step onto to.
// Robots never block each other.
func (g *Grid) Occupiable(from, to Position) bool {
	if g.IsBlocked(to) {
		return false
	}
	fromArea, toArea := g.isolatedAt(from), g.isolatedAt(to)
	if toArea == fromArea {
		return true
	}
	if fromArea != nil && !fromArea.IsOpening(from) {
		return false
	}
	if toArea != nil && !toArea.IsOpening(to) {
		return false
	}
	return true
}

func (g *Grid) isolatedAt(p Position) *Area {
	a := g.AreaAt(p)
	if a == nil || a.Kind != Isolated {
		return nil
	}
	return a
}

// Place puts robot id on p
func (g *Grid) Place(id int, p Position) {
	t := g.Tile(p)
	if t == nil || t.Blocked {
		violate("robot %d placed on blocked or out-of-bounds tile %s", id, p)
	}
	t.occupants.Put(id)
}

// Move transfers robot id from one tile to another
func (g *Grid) Move(id int, from, to Position) {
	t := g.Tile(to)
	if t == nil || t.Blocked {
		violate("robot %d moved onto blocked or out-of-bounds tile %s", id, to)
	}
	if src := g.Tile(from); src != nil {
		src.occupants.Remove(id)
	}
	t.occupants.Put(id)
}

// Remove takes robot id off p
func (g *Grid) Remove(id int, p Position) {
	if t := g.Tile(p); t != nil {
		t.occupants.Remove(id)
	}
}

// Occupants returns the robot ids on p in ascending order
func (g *Grid) Occupants(p Position) []int {
	t := g.Tile(p)
	if t == nil {
		return nil
	}
	ids := make([]int, 0, t.occupants.Size())
	t.occupants.Each(func(id int) {
		ids = append(ids, id)
	})
	sort.Ints(ids)
	return ids
}

// Reserve marks p so that no later area may cover it
func (g *Grid) Reserve(p Position) {
	g.reserved.Put(p)
}

// IsReserved reports whether p was reserved
func (g *Grid) IsReserved(p Position) bool {
	return g.reserved.Has(p)
}

// CanCommit checks whether a could be committed without modifying the grid
func (g *Grid) CanCommit(a *Area) error {
	for _, p := range a.Footprint() {
		if !g.InBounds(p) {
			return &PlacementError{Kind: OutOfBounds, AreaID: len(g.areas) + 1, Pos: p}
		}
	}
	for _, p := range a.Footprint() {
		t := g.Tile(p)
		if t.AreaID != 0 {
			return &PlacementError{Kind: Overlap, AreaID: len(g.areas) + 1, Pos: p, Detail: "tile belongs to area " + itoa(t.AreaID)}
		}
		if g.hasBase && p == g.base {
			return &PlacementError{Kind: Overlap, AreaID: len(g.areas) + 1, Pos: p, Detail: "tile holds the base station"}
		}
		if g.reserved.Has(p) {
			return &PlacementError{Kind: Overlap, AreaID: len(g.areas) + 1, Pos: p, Detail: "tile is reserved for an opening"}
		}
	}
	return nil
}

// Commit tags the area's tiles and assigns it the next id. Isolated areas
// must already carry their openings.
func (g *Grid) Commit(a *Area) error {
	if err := g.CanCommit(a); err != nil {
		return err
	}
	id := len(g.areas) + 1
	if a.Kind == Isolated {
		if len(a.Openings) == 0 {
			return &PlacementError{Kind: InvalidOpening, AreaID: id, Pos: a.Center, Detail: "isolated area has no opening"}
		}
		for _, o := range a.Openings {
			if _, err := g.openingAccess(a, o); err != nil {
				return &PlacementError{Kind: InvalidOpening, AreaID: id, Pos: o, Detail: err.Error()}
			}
		}
	}

	a.ID = id
	g.areas = append(g.areas, a)
	for _, p := range a.Footprint() {
		t := g.Tile(p)
		t.AreaID = id
		if a.IsBlocked() {
			t.Blocked = true
			t.Resource = Empty
		}
	}
	for _, o := range a.Openings {
		g.Tile(o).Resource = Opening
		access, _ := g.openingAccess(a, o)
		g.Reserve(access)
	}
	return nil
}

// openingAccess returns the exterior neighbour through which o is reached
func (g *Grid) openingAccess(a *Area, o Position) (Position, error) {
	if !a.OnBoundary(o) {
		return Position{}, errString("opening " + o.String() + " is not on the area boundary")
	}
	for _, d := range CardinalDirections {
		n := o.Add(d)
		if !g.InBounds(n) || a.Contains(n) {
			continue
		}
		if t := g.Tile(n); t.AreaID == 0 {
			return n, nil
		}
	}
	return Position{}, errString("opening " + o.String() + " has no accessible exterior neighbour")
}

// Reachable returns the tiles reachable from start using the given headings
func (g *Grid) Reachable(start Position, dirs []Direction) *mapset.Set[Position] {
	reachable := mapset.New[Position]()
	if g.IsBlocked(start) {
		return &reachable
	}
	queue := []Position{start}
	reachable.Put(start)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, d := range dirs {
			n := p.Add(d)
			if reachable.Has(n) || !g.Occupiable(p, n) {
				continue
			}
			reachable.Put(n)
			queue = append(queue, n)
		}
	}
	return &reachable
}

// CountResource returns the number of tiles tagged r
func (g *Grid) CountResource(r Resource) int {
	count := 0
	for i := range g.tiles {
		if g.tiles[i].Resource == r {
			count++
		}
	}
	return count
}
