package engine

// Robot is a mower. It is created at the base station and mutated once per tick.
type Robot struct {
	ID       int         `json:"id"`
	Pos      Position    `json:"pos"`
	Heading  Direction   `json:"heading"`
	Bounce   BounceMode  `json:"bounce_mode"`
	Cutting  CuttingMode `json:"cutting_mode"`
	Autonomy int         `json:"autonomy"`
	Capacity int         `json:"capacity"`
	StepCost int         `json:"step_cost"`
	Width    int         `json:"cutting_width"`
	State    RobotState  `json:"state"`
	Moves    int         `json:"moves"`
	Bounces  int         `json:"bounces"`
	Blocks   int         `json:"blocked_ticks"`

	initialHeading Direction
	grid           *Grid
}

// NewRobot creates a robot on the grid's base station. cfg must have been
// validated; an unknown initial heading panics with an InvariantViolation.
func NewRobot(id int, cfg RobotConfig, g *Grid) *Robot {
	heading, err := ParseDirection(cfg.InitialHeading)
	if err != nil {
		violate("robot %d: %v", id, err)
	}
	r := &Robot{
		ID:             id,
		Heading:        heading,
		Bounce:         cfg.BounceMode,
		Cutting:        cfg.CuttingMode,
		Autonomy:       cfg.Autonomy,
		Capacity:       cfg.Autonomy,
		StepCost:       cfg.StepCost,
		Width:          cfg.CuttingWidth,
		State:          RobotMoving,
		initialHeading: heading,
		grid:           g,
	}
	if r.StepCost < 1 {
		r.StepCost = DefaultStepCost
	}
	if r.Width < 1 {
		r.Width = 1
	}
	if g != nil {
		if base, ok := g.Base(); ok {
			r.Pos = base
			g.Place(id, base)
		}
	}
	return r
}

// Grid returns the grid the robot lives on
func (r *Robot) Grid() *Grid {
	return r.grid
}

// Exhausted reports whether the robot has no autonomy left
func (r *Robot) Exhausted() bool {
	return r.Autonomy <= 0
}

// spend deducts one step cost, never going below zero
func (r *Robot) spend() {
	r.Autonomy -= r.StepCost
	if r.Autonomy < 0 {
		r.Autonomy = 0
	}
}

// Recharge refills autonomy and returns the robot to the base station.
// The heading is reset so the next run starts afresh.
func (r *Robot) Recharge() {
	if r.grid == nil {
		violate("robot %d recharged without a grid", r.ID)
	}
	r.Autonomy = r.Capacity
	r.Heading = r.initialHeading
	r.State = RobotMoving
	if base, ok := r.grid.Base(); ok && base != r.Pos {
		r.grid.Move(r.ID, r.Pos, base)
		r.Pos = base
	}
}
