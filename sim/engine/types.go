package engine

import (
	"fmt"
	"strings"
)

// Resource is the tag carried by a tile
type Resource string

const (
	Empty     Resource = "empty"
	Grass     Resource = "grass"
	GuideLine Resource = "guideline"
	Opening   Resource = "opening"

	// Validation constants
	MinGridSize          = 1
	MaxGridSize          = 1000
	MinAutonomy          = 1
	MaxCuttingWidth      = 9
	DefaultStepCost      = 1
	DefaultMaxAttempts   = 35
	DefaultTickBoundMult = 4
	HistogramBins        = 20
	WebSocketBufferSize  = 256
)

// Position is a tile coordinate; Row grows downwards, Col grows rightwards.
type Position struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// Add returns the position one step away in direction d
func (p Position) Add(d Direction) Position {
	dr, dc := d.Delta()
	return Position{Row: p.Row + dr, Col: p.Col + dc}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Direction is one of the eight compass headings. DirNone means "no heading yet".
type Direction int

const (
	DirNone Direction = iota
	North
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

var directionNames = map[Direction]string{
	DirNone:   "",
	North:     "n",
	NorthEast: "ne",
	East:      "e",
	SouthEast: "se",
	South:     "s",
	SouthWest: "sw",
	West:      "w",
	NorthWest: "nw",
}

// CardinalDirections are the four headings available to PingPong robots.
var CardinalDirections = []Direction{North, East, South, West}

// AllDirections are the eight headings available to Random robots.
var AllDirections = []Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

// RandomFallbackOrder is tried, in order, when a Random robot collides.
// The upper-left bias comes first.
var RandomFallbackOrder = []Direction{NorthWest, North, West, NorthEast, SouthWest, East, South, SouthEast}

// Delta returns the (row, col) offset of the direction
func (d Direction) Delta() (int, int) {
	switch d {
	case North:
		return -1, 0
	case NorthEast:
		return -1, 1
	case East:
		return 0, 1
	case SouthEast:
		return 1, 1
	case South:
		return 1, 0
	case SouthWest:
		return 1, -1
	case West:
		return 0, -1
	case NorthWest:
		return -1, -1
	}
	return 0, 0
}

// Reverse returns the heading rotated by 180 degrees
func (d Direction) Reverse() Direction {
	switch d {
	case North:
		return South
	case NorthEast:
		return SouthWest
	case East:
		return West
	case SouthEast:
		return NorthWest
	case South:
		return North
	case SouthWest:
		return NorthEast
	case West:
		return East
	case NorthWest:
		return SouthEast
	}
	return DirNone
}

// IsCardinal reports whether d is N, E, S or W
func (d Direction) IsCardinal() bool {
	return d == North || d == East || d == South || d == West
}

func (d Direction) String() string {
	return directionNames[d]
}

// MarshalText encodes the direction as its short compass name
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts short ("ne") and long ("northeast", "north-east") names.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection converts a compass name into a Direction
func ParseDirection(s string) (Direction, error) {
	normalized := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch normalized {
	case "":
		return DirNone, nil
	case "n", "north", "up":
		return North, nil
	case "ne", "northeast":
		return NorthEast, nil
	case "e", "east", "right":
		return East, nil
	case "se", "southeast":
		return SouthEast, nil
	case "s", "south", "down":
		return South, nil
	case "sw", "southwest":
		return SouthWest, nil
	case "w", "west", "left":
		return West, nil
	case "nw", "northwest":
		return NorthWest, nil
	}
	return DirNone, fmt.Errorf("unknown direction %q", s)
}

// BounceMode selects the collision strategy of a robot
type BounceMode string

const (
	PingPong BounceMode = "pingpong"
	Random   BounceMode = "random"
)

// Directions returns the headings a robot using this mode may take
func (m BounceMode) Directions() []Direction {
	if m == Random {
		return AllDirections
	}
	return CardinalDirections
}

// CuttingMode selects how a robot picks headings between collisions
type CuttingMode string

const (
	// CuttingRandom keeps a randomly drawn heading until a collision (straight-line runs).
	CuttingRandom CuttingMode = "random"
	// CuttingFree redraws the heading on every tick.
	CuttingFree CuttingMode = "free"
)

// RechargePolicy decides when a running cycle ends
type RechargePolicy string

const (
	// RechargeAny ends the run as soon as one robot is exhausted (default).
	RechargeAny RechargePolicy = "any"
	// RechargeAll keeps the run going until every robot is exhausted.
	RechargeAll RechargePolicy = "all"
)

// RobotState is the per-robot movement state
type RobotState string

const (
	RobotMoving     RobotState = "moving"
	RobotBlocked    RobotState = "blocked"
	RobotRecharging RobotState = "recharging"
)

// State is the scheduler state
type State string

const (
	StateExploring     State = "exploring"
	StateRunning       State = "running"
	StateRecharging    State = "recharging"
	StateCycleComplete State = "cycle_complete"
	StateFinished      State = "finished"
)

// AreaKind identifies the variant of an Area
type AreaKind string

const (
	SquaredBlocked AreaKind = "squared_blocked"
	CircledBlocked AreaKind = "circled_blocked"
	Isolated       AreaKind = "isolated"
)

// Shape is the geometric descriptor family of an Area
type Shape string

const (
	ShapeSquare Shape = "square"
	ShapeCircle Shape = "circle"
	ShapeTiles  Shape = "tiles"
)

// PlacementMode records how an area was committed
type PlacementMode string

const (
	PlacementManual PlacementMode = "manual"
	PlacementRandom PlacementMode = "random"
)

// Base station strategies
const (
	BaseManual    = "manual"
	BasePerimeter = "perimeter"
	BaseCenter    = "center"
)

// Environment modes
const (
	EnvironmentRandom   = "random"
	EnvironmentExplicit = "explicit"
)
