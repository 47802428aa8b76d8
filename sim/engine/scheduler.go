package engine

import (
	"context"
	"log"
)

// Milestone is reported to observers at every scheduler transition
type Milestone struct {
	From  State `json:"from"`
	To    State `json:"to"`
	Cycle int   `json:"cycle"`
	Tick  int   `json:"tick"`
}

// Observer receives scheduler notifications synchronously, on the
// scheduler's own goroutine.
type Observer interface {
	OnMilestone(m Milestone)
	OnCycleComplete(s Snapshot)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped.
type ObserverFuncs struct {
	Milestone     func(Milestone)
	CycleComplete func(Snapshot)
}

func (o ObserverFuncs) OnMilestone(m Milestone) {
	if o.Milestone != nil {
		o.Milestone(m)
	}
}

func (o ObserverFuncs) OnCycleComplete(s Snapshot) {
	if o.CycleComplete != nil {
		o.CycleComplete(s)
	}
}

// TickRecord is the trajectory entry of one robot for one tick
type TickRecord struct {
	Tick  int `json:"tick"`
	Cycle int `json:"cycle"`
	MoveOutcome
}

// Scheduler owns the grid, the robots and the coverage map and advances
// them one tick at a time.
type Scheduler struct {
	cfg      *SimulationConfig
	grid     *Grid
	robots   []*Robot
	mover    Mover
	cutter   *Cutter
	coverage *CoverageMap
	logger   *log.Logger

	observers []Observer
	state     State
	cycle     int
	tick      int
	cycleTick int
	reachable int
	snapshots []Snapshot
	lastTick  []TickRecord
}

// NewScheduler wires a scheduler around an initialized grid. Robots are
// created on the base station with ids 1..count.
func NewScheduler(cfg *SimulationConfig, g *Grid, mover Mover, logger *log.Logger, observers ...Observer) *Scheduler {
	if g == nil {
		violate("scheduler created without a grid")
	}
	coverage := NewCoverageMap(g.Rows(), g.Cols())
	s := &Scheduler{
		cfg:       cfg,
		grid:      g,
		mover:     mover,
		coverage:  coverage,
		cutter:    NewCutter(g, coverage),
		logger:    logger,
		observers: observers,
		state:     StateExploring,
	}
	for id := 1; id <= cfg.Robot.Count; id++ {
		s.robots = append(s.robots, NewRobot(id, cfg.Robot, g))
	}
	return s
}

// AddObserver registers an additional observer
func (s *Scheduler) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

func (s *Scheduler) State() State { return s.state }
func (s *Scheduler) Grid() *Grid { return s.grid }
func (s *Scheduler) Robots() []*Robot { return s.robots }
func (s *Scheduler) Coverage() *CoverageMap { return s.coverage }
func (s *Scheduler) CompletedCycles() int { return s.cycle }
func (s *Scheduler) TickCount() int { return s.tick }
func (s *Scheduler) CycleTick() int { return s.cycleTick }
func (s *Scheduler) ReachableTiles() int { return s.reachable }
func (s *Scheduler) LastTick() []TickRecord { return s.lastTick }
func (s *Scheduler) CycleSnapshots() []Snapshot { return s.snapshots }

// Snapshot takes an on-demand snapshot of the current state
func (s *Scheduler) Snapshot() Snapshot {
	return TakeSnapshot(s.grid, s.coverage, s.robots, s.currentCycle(), s.tick, s.cycleTick, s.reachable, s.cfg.Grid.TileSize)
}

// currentCycle is the 1-based number of the cycle in progress
func (s *Scheduler) currentCycle() int {
	if s.state == StateFinished {
		return s.cycle
	}
	return s.cycle + 1
}

// Tick advances the simulation by one tick and returns the resulting state.
// The first call performs the exploration before ticking; in Finished it does nothing.
func (s *Scheduler) Tick() State {
	switch s.state {
	case StateFinished:
		return s.state
	case StateExploring:
		s.explore()
	}

	s.lastTick = make([]TickRecord, 0, len(s.robots))
	for _, r := range s.robots {
		out := s.mover.Step(r)
		if out.Moved {
			s.cutter.OnMove(r, out.From, out.To, directionBetween(out.From, out.To))
		} else if out.State == RobotBlocked && s.logger != nil {
			s.logger.Printf("[DEBUG] robot %d blocked at %s heading %s (tick %d)", r.ID, r.Pos, r.Heading, s.tick+1)
		}
		if r.Autonomy < 0 || r.Autonomy > r.Capacity {
			violate("robot %d autonomy %d outside [0,%d]", r.ID, r.Autonomy, r.Capacity)
		}
		s.lastTick = append(s.lastTick, TickRecord{Tick: s.tick + 1, Cycle: s.cycle + 1, MoveOutcome: out})
	}
	s.tick++
	s.cycleTick++

	if s.shouldRecharge() {
		s.transition(StateRecharging)
		s.recharge()
	}
	return s.state
}

// Explore computes the reachable tiles and enters Running. It is a no-op
// outside the Exploring state.
func (s *Scheduler) Explore() {
	if s.state == StateExploring {
		s.explore()
	}
}

func (s *Scheduler) explore() {
	base, ok := s.grid.Base()
	if !ok {
		violate("exploring without a base station")
	}
	s.reachable = s.grid.Reachable(base, s.cfg.Robot.BounceMode.Directions()).Size()
	if s.logger != nil {
		s.logger.Printf("[DEBUG] %d tiles reachable from base %s", s.reachable, base)
	}
	s.transition(StateRunning)
}

func (s *Scheduler) shouldRecharge() bool {
	if s.cfg.MaxTicksPerCycle > 0 && s.cycleTick >= s.cfg.MaxTicksPerCycle {
		return true
	}
	exhausted := 0
	for _, r := range s.robots {
		if r.Exhausted() {
			exhausted++
		}
	}
	if s.cfg.RechargePolicy == RechargeAll {
		return exhausted == len(s.robots)
	}
	return exhausted > 0
}

// recharge refills every robot, finalizes the cycle snapshot and decides
// whether another cycle follows.
func (s *Scheduler) recharge() {
	for _, r := range s.robots {
		r.Recharge()
	}
	s.cycle++
	snap := TakeSnapshot(s.grid, s.coverage, s.robots, s.cycle, s.tick, s.cycleTick, s.reachable, s.cfg.Grid.TileSize)
	s.snapshots = append(s.snapshots, snap)
	s.transition(StateCycleComplete)
	for _, o := range s.observers {
		o.OnCycleComplete(snap)
	}

	if s.cycle >= s.cfg.Cycles {
		s.transition(StateFinished)
		return
	}
	s.coverage.ResetCycle()
	s.cycleTick = 0
	s.transition(StateRunning)
}

func (s *Scheduler) transition(to State) {
	m := Milestone{From: s.state, To: to, Cycle: s.cycle, Tick: s.tick}
	s.state = to
	if s.logger != nil {
		s.logger.Printf("[DEBUG] scheduler %s -> %s (cycle %d, tick %d)", m.From, m.To, m.Cycle, m.Tick)
	}
	for _, o := range s.observers {
		o.OnMilestone(m)
	}
}

// Run ticks until Finished. The context is checked between ticks, so a
// cancelled run always stops on a tick boundary.
func (s *Scheduler) Run(ctx context.Context) error {
	for s.state != StateFinished {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Tick()
	}
	return nil
}

// directionBetween returns the heading of a single step from a to b
func directionBetween(a, b Position) Direction {
	dr, dc := sign(b.Row-a.Row), sign(b.Col-a.Col)
	for _, d := range AllDirections {
		if r, c := d.Delta(); r == dr && c == dc {
			return d
		}
	}
	return DirNone
}
