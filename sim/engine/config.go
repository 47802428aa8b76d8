package engine

import (
	"strconv"
	"strings"
)

// SimulationConfig is the complete description of one simulation. It is
// treated as immutable once ValidateConfig has accepted it.
type SimulationConfig struct {
	Name             string            `json:"name" yaml:"name"`
	Description      string            `json:"description" yaml:"description"`
	Seed             int64             `json:"seed" yaml:"seed"`
	Cycles           int               `json:"cycles" yaml:"cycles"`
	MaxTicksPerCycle int               `json:"max_ticks_per_cycle,omitempty" yaml:"max_ticks_per_cycle,omitempty"`
	RechargePolicy   RechargePolicy    `json:"recharge_policy,omitempty" yaml:"recharge_policy,omitempty"`
	Repetitions      int               `json:"repetitions,omitempty" yaml:"repetitions,omitempty"`
	Grid             GridConfig        `json:"grid" yaml:"grid"`
	Robot            RobotConfig       `json:"robot" yaml:"robot"`
	BaseStation      BaseStationConfig `json:"base_station" yaml:"base_station"`
	Environment      EnvironmentConfig `json:"environment" yaml:"environment"`
}

// GridConfig holds the lattice dimensions
type GridConfig struct {
	Rows     int     `json:"rows" yaml:"rows"`
	Cols     int     `json:"cols" yaml:"cols"`
	TileSize float64 `json:"tile_size,omitempty" yaml:"tile_size,omitempty"`
}

// RobotConfig holds per-robot parameters shared by every robot of a run
type RobotConfig struct {
	Count          int         `json:"count" yaml:"count"`
	BounceMode     BounceMode  `json:"bounce_mode" yaml:"bounce_mode"`
	CuttingMode    CuttingMode `json:"cutting_mode" yaml:"cutting_mode"`
	Autonomy       int         `json:"autonomy" yaml:"autonomy"`
	StepCost       int         `json:"step_cost,omitempty" yaml:"step_cost,omitempty"`
	CuttingWidth   int         `json:"cutting_width,omitempty" yaml:"cutting_width,omitempty"`
	InitialHeading string      `json:"initial_heading,omitempty" yaml:"initial_heading,omitempty"`
	Mover          string      `json:"mover,omitempty" yaml:"mover,omitempty"`
}

// BaseStationConfig selects where the charging base goes
type BaseStationConfig struct {
	Strategy string    `json:"strategy" yaml:"strategy"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
}

// EnvironmentConfig describes the areas committed on the grid
type EnvironmentConfig struct {
	Mode       string           `json:"mode" yaml:"mode"`
	Plugin     string           `json:"plugin,omitempty" yaml:"plugin,omitempty"`
	Guidelines *bool            `json:"guidelines,omitempty" yaml:"guidelines,omitempty"`
	Random     RandomAreaConfig `json:"random,omitempty" yaml:"random,omitempty"`
	Areas      []AreaSpec       `json:"areas,omitempty" yaml:"areas,omitempty"`
}

// GuidelinesEnabled reports whether guide lines should be tagged (default true)
func (e EnvironmentConfig) GuidelinesEnabled() bool {
	return e.Guidelines == nil || *e.Guidelines
}

// RandomAreaConfig holds the ranges used by random placement
type RandomAreaConfig struct {
	Squares     RectRange     `json:"squares,omitempty" yaml:"squares,omitempty"`
	Circles     CircleRange   `json:"circles,omitempty" yaml:"circles,omitempty"`
	Isolated    IsolatedRange `json:"isolated,omitempty" yaml:"isolated,omitempty"`
	MaxAttempts int           `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
}

// RectRange bounds the size of randomly placed rectangles
type RectRange struct {
	Count     int `json:"count" yaml:"count"`
	MinHeight int `json:"min_height" yaml:"min_height"`
	MaxHeight int `json:"max_height" yaml:"max_height"`
	MinWidth  int `json:"min_width" yaml:"min_width"`
	MaxWidth  int `json:"max_width" yaml:"max_width"`
}

// CircleRange bounds the radius of randomly placed circles
type CircleRange struct {
	Count     int `json:"count" yaml:"count"`
	MinRadius int `json:"min_radius" yaml:"min_radius"`
	MaxRadius int `json:"max_radius" yaml:"max_radius"`
}

// IsolatedRange bounds randomly placed isolated areas
type IsolatedRange struct {
	Count     int   `json:"count" yaml:"count"`
	Shape     Shape `json:"shape,omitempty" yaml:"shape,omitempty"`
	MinHeight int   `json:"min_height,omitempty" yaml:"min_height,omitempty"`
	MaxHeight int   `json:"max_height,omitempty" yaml:"max_height,omitempty"`
	MinWidth  int   `json:"min_width,omitempty" yaml:"min_width,omitempty"`
	MaxWidth  int   `json:"max_width,omitempty" yaml:"max_width,omitempty"`
	MinRadius int   `json:"min_radius,omitempty" yaml:"min_radius,omitempty"`
	MaxRadius int   `json:"max_radius,omitempty" yaml:"max_radius,omitempty"`
	Openings  int   `json:"openings,omitempty" yaml:"openings,omitempty"`
}

// AreaSpec is the explicit geometry of one area
type AreaSpec struct {
	Kind     AreaKind   `json:"kind" yaml:"kind"`
	Shape    Shape      `json:"shape,omitempty" yaml:"shape,omitempty"`
	Center   Position   `json:"center" yaml:"center"`
	Height   int        `json:"height,omitempty" yaml:"height,omitempty"`
	Width    int        `json:"width,omitempty" yaml:"width,omitempty"`
	Radius   int        `json:"radius,omitempty" yaml:"radius,omitempty"`
	Tiles    []Position `json:"tiles,omitempty" yaml:"tiles,omitempty"`
	Openings []Position `json:"openings,omitempty" yaml:"openings,omitempty"`
	// OpeningCount is used when Openings is empty: that many openings are drawn at random.
	OpeningCount int `json:"opening_count,omitempty" yaml:"opening_count,omitempty"`
}

// DefaultConfig returns a small, always-valid configuration
func DefaultConfig() *SimulationConfig {
	return &SimulationConfig{
		Name:           "default",
		Description:    "Open 10x10 lawn with a single ping-pong mower",
		Seed:           1,
		Cycles:         1,
		RechargePolicy: RechargeAny,
		Repetitions:    1,
		Grid:           GridConfig{Rows: 10, Cols: 10, TileSize: 1},
		Robot: RobotConfig{
			Count:        1,
			BounceMode:   PingPong,
			CuttingMode:  CuttingRandom,
			Autonomy:     50,
			StepCost:     DefaultStepCost,
			CuttingWidth: 1,
		},
		BaseStation: BaseStationConfig{Strategy: BaseManual, Position: &Position{}},
		Environment: EnvironmentConfig{Mode: EnvironmentExplicit},
	}
}

// Normalize fills in defaults for optional fields. It never overrides explicit values.
func (c *SimulationConfig) Normalize() {
	if c.Cycles == 0 {
		c.Cycles = 1
	}
	if c.Repetitions == 0 {
		c.Repetitions = 1
	}
	if c.RechargePolicy == "" {
		c.RechargePolicy = RechargeAny
	}
	if c.Grid.TileSize == 0 {
		c.Grid.TileSize = 1
	}
	if c.Robot.Count == 0 {
		c.Robot.Count = 1
	}
	c.Robot.BounceMode = BounceMode(strings.ToLower(string(c.Robot.BounceMode)))
	if c.Robot.BounceMode == "" {
		c.Robot.BounceMode = PingPong
	}
	cutting := strings.ToLower(string(c.Robot.CuttingMode))
	// "random-pingpong" style shorthands name both the cutting and the bounce mode
	if prefix, suffix, ok := strings.Cut(cutting, "-"); ok {
		cutting = prefix
		if c.Robot.BounceMode == PingPong && suffix == string(Random) {
			c.Robot.BounceMode = Random
		}
	}
	c.Robot.CuttingMode = CuttingMode(cutting)
	if c.Robot.CuttingMode == "" {
		c.Robot.CuttingMode = CuttingRandom
	}
	if c.Robot.StepCost == 0 {
		c.Robot.StepCost = DefaultStepCost
	}
	if c.Robot.CuttingWidth == 0 {
		c.Robot.CuttingWidth = 1
	}
	if c.MaxTicksPerCycle == 0 && c.Robot.Autonomy > 0 {
		c.MaxTicksPerCycle = DefaultTickBoundMult * c.Robot.Autonomy / c.Robot.StepCost
		if c.MaxTicksPerCycle < c.Robot.Autonomy {
			c.MaxTicksPerCycle = c.Robot.Autonomy
		}
	}
	if c.BaseStation.Strategy == "" {
		if c.BaseStation.Position != nil {
			c.BaseStation.Strategy = BaseManual
		} else {
			c.BaseStation.Strategy = BasePerimeter
		}
	}
	if c.Environment.Mode == "" {
		if len(c.Environment.Areas) > 0 {
			c.Environment.Mode = EnvironmentExplicit
		} else {
			c.Environment.Mode = EnvironmentRandom
		}
	}
	if c.Environment.Random.MaxAttempts == 0 {
		c.Environment.Random.MaxAttempts = DefaultMaxAttempts
	}
	if c.Environment.Random.Isolated.Shape == "" {
		c.Environment.Random.Isolated.Shape = ShapeSquare
	}
	if c.Environment.Random.Isolated.Count > 0 && c.Environment.Random.Isolated.Openings == 0 {
		c.Environment.Random.Isolated.Openings = 1
	}
	for i := range c.Environment.Areas {
		a := &c.Environment.Areas[i]
		if a.Shape == "" {
			switch {
			case len(a.Tiles) > 0:
				a.Shape = ShapeTiles
			case a.Kind == CircledBlocked:
				a.Shape = ShapeCircle
			default:
				a.Shape = ShapeSquare
			}
		}
		if a.Kind == Isolated && len(a.Openings) == 0 && a.OpeningCount == 0 {
			a.OpeningCount = 1
		}
	}
}

// ValidateConfig normalizes and checks a configuration, returning a *ConfigError
// naming the first offending field.
func ValidateConfig(c *SimulationConfig) error {
	if c == nil {
		return configErrorf("config", "must not be nil")
	}
	c.Normalize()

	if c.Name == "" {
		return configErrorf("name", "is required")
	}
	if c.Grid.Rows < MinGridSize || c.Grid.Rows > MaxGridSize {
		return configErrorf("grid.rows", "must be between %d and %d, got %d", MinGridSize, MaxGridSize, c.Grid.Rows)
	}
	if c.Grid.Cols < MinGridSize || c.Grid.Cols > MaxGridSize {
		return configErrorf("grid.cols", "must be between %d and %d, got %d", MinGridSize, MaxGridSize, c.Grid.Cols)
	}
	if c.Grid.TileSize < 0 {
		return configErrorf("grid.tile_size", "must be positive, got %g", c.Grid.TileSize)
	}
	if c.Cycles < 1 {
		return configErrorf("cycles", "must be at least 1, got %d", c.Cycles)
	}
	if c.Repetitions < 1 {
		return configErrorf("repetitions", "must be at least 1, got %d", c.Repetitions)
	}
	if c.MaxTicksPerCycle < 0 {
		return configErrorf("max_ticks_per_cycle", "must not be negative, got %d", c.MaxTicksPerCycle)
	}
	switch c.RechargePolicy {
	case RechargeAll, RechargeAny:
	default:
		return configErrorf("recharge_policy", "must be %q or %q, got %q", RechargeAny, RechargeAll, c.RechargePolicy)
	}

	if err := validateRobot(&c.Robot); err != nil {
		return err
	}
	if err := validateBaseStation(c); err != nil {
		return err
	}
	return validateEnvironment(c)
}

func validateRobot(r *RobotConfig) error {
	if r.Count < 1 {
		return configErrorf("robot.count", "must be at least 1, got %d", r.Count)
	}
	if r.Autonomy < MinAutonomy {
		return configErrorf("robot.autonomy", "must be at least %d, got %d", MinAutonomy, r.Autonomy)
	}
	if r.StepCost < 1 {
		return configErrorf("robot.step_cost", "must be at least 1, got %d", r.StepCost)
	}
	if r.CuttingWidth < 1 || r.CuttingWidth > MaxCuttingWidth {
		return configErrorf("robot.cutting_width", "must be between 1 and %d, got %d", MaxCuttingWidth, r.CuttingWidth)
	}
	switch r.BounceMode {
	case PingPong, Random:
	default:
		return configErrorf("robot.bounce_mode", "must be %q or %q, got %q", PingPong, Random, r.BounceMode)
	}
	switch r.CuttingMode {
	case CuttingRandom, CuttingFree:
	default:
		return configErrorf("robot.cutting_mode", "must be %q or %q, got %q", CuttingRandom, CuttingFree, r.CuttingMode)
	}
	heading, err := ParseDirection(r.InitialHeading)
	if err != nil {
		return configErrorf("robot.initial_heading", "%v", err)
	}
	if heading != DirNone && r.BounceMode == PingPong && !heading.IsCardinal() {
		return configErrorf("robot.initial_heading", "%s is not a cardinal heading, required by %s bounce", heading, PingPong)
	}
	return nil
}

func validateBaseStation(c *SimulationConfig) error {
	switch c.BaseStation.Strategy {
	case BaseManual:
		p := c.BaseStation.Position
		if p == nil {
			return configErrorf("base_station.position", "is required for the %s strategy", BaseManual)
		}
		if p.Row < 0 || p.Row >= c.Grid.Rows || p.Col < 0 || p.Col >= c.Grid.Cols {
			return configErrorf("base_station.position", "%s lies outside the %dx%d grid", p, c.Grid.Rows, c.Grid.Cols)
		}
	case BasePerimeter, BaseCenter:
	default:
		return configErrorf("base_station.strategy", "must be one of %s, %s, %s, got %q", BaseManual, BasePerimeter, BaseCenter, c.BaseStation.Strategy)
	}
	return nil
}

func validateEnvironment(c *SimulationConfig) error {
	env := &c.Environment
	switch env.Mode {
	case EnvironmentRandom:
		return validateRandomAreas(&env.Random)
	case EnvironmentExplicit:
		for i, a := range env.Areas {
			if err := validateAreaSpec(i, a); err != nil {
				return err
			}
		}
		return nil
	}
	return configErrorf("environment.mode", "must be %q or %q, got %q", EnvironmentRandom, EnvironmentExplicit, env.Mode)
}

func validateRandomAreas(r *RandomAreaConfig) error {
	if r.MaxAttempts < 1 {
		return configErrorf("environment.random.max_attempts", "must be at least 1, got %d", r.MaxAttempts)
	}
	if r.Squares.Count < 0 || r.Circles.Count < 0 || r.Isolated.Count < 0 {
		return configErrorf("environment.random", "area counts must not be negative")
	}
	if r.Squares.Count > 0 {
		if err := checkRange("environment.random.squares.height", r.Squares.MinHeight, r.Squares.MaxHeight); err != nil {
			return err
		}
		if err := checkRange("environment.random.squares.width", r.Squares.MinWidth, r.Squares.MaxWidth); err != nil {
			return err
		}
	}
	if r.Circles.Count > 0 {
		if err := checkRange("environment.random.circles.radius", r.Circles.MinRadius, r.Circles.MaxRadius); err != nil {
			return err
		}
	}
	iso := r.Isolated
	if iso.Count > 0 {
		switch iso.Shape {
		case ShapeSquare:
			if err := checkRange("environment.random.isolated.height", iso.MinHeight, iso.MaxHeight); err != nil {
				return err
			}
			if err := checkRange("environment.random.isolated.width", iso.MinWidth, iso.MaxWidth); err != nil {
				return err
			}
		case ShapeCircle:
			if err := checkRange("environment.random.isolated.radius", iso.MinRadius, iso.MaxRadius); err != nil {
				return err
			}
		default:
			return configErrorf("environment.random.isolated.shape", "must be %q or %q, got %q", ShapeSquare, ShapeCircle, iso.Shape)
		}
		if iso.Openings < 1 {
			return configErrorf("environment.random.isolated.openings", "must be at least 1, got %d", iso.Openings)
		}
	}
	return nil
}

func checkRange(field string, lo, hi int) error {
	if lo < 1 {
		return configErrorf(field, "minimum must be at least 1, got %d", lo)
	}
	if hi < lo {
		return configErrorf(field, "maximum %d is smaller than minimum %d", hi, lo)
	}
	return nil
}

func validateAreaSpec(i int, a AreaSpec) error {
	field := func(name string) string {
		return "environment.areas[" + strconv.Itoa(i) + "]." + name
	}
	switch a.Kind {
	case SquaredBlocked, CircledBlocked, Isolated:
	default:
		return configErrorf(field("kind"), "unknown area kind %q", a.Kind)
	}
	switch a.Shape {
	case ShapeSquare:
		if a.Height < 1 || a.Width < 1 {
			return configErrorf(field("height"), "height and width must be at least 1, got %dx%d", a.Height, a.Width)
		}
	case ShapeCircle:
		if a.Radius < 0 {
			return configErrorf(field("radius"), "must not be negative, got %d", a.Radius)
		}
	case ShapeTiles:
		if len(a.Tiles) == 0 {
			return configErrorf(field("tiles"), "must list at least one tile")
		}
	default:
		return configErrorf(field("shape"), "unknown shape %q", a.Shape)
	}
	if a.Kind == SquaredBlocked && a.Shape == ShapeCircle || a.Kind == CircledBlocked && a.Shape == ShapeSquare {
		return configErrorf(field("shape"), "shape %q does not match kind %q", a.Shape, a.Kind)
	}
	if a.Kind != Isolated && (len(a.Openings) > 0 || a.OpeningCount > 0) {
		return configErrorf(field("openings"), "only isolated areas have openings")
	}
	if a.OpeningCount < 0 {
		return configErrorf(field("opening_count"), "must not be negative, got %d", a.OpeningCount)
	}
	return nil
}
