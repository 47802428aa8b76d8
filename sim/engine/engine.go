package engine

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
)

// DefaultHistoryLimit bounds the trajectory kept in memory per simulation
const DefaultHistoryLimit = 10000

// Engine provides the main interface for simulation operations
type Engine interface {
	// Lifecycle
	State() State
	Status() *SimulationStatus
	IsFinished() bool
	Reset() error

	// Stepping
	Tick() State
	Advance(ticks int) int
	Run(ctx context.Context) error

	// Configuration
	Config() *SimulationConfig
	Seed() int64

	// Inspection
	Grid() *Grid
	Robots() []*Robot
	Snapshot() Snapshot
	CycleSnapshots() []Snapshot
	History() []TickRecord
	AddObserver(o Observer)
}

// SimulationStatus is the compact, JSON-friendly view of a running simulation
type SimulationStatus struct {
	Name             string          `json:"name"`
	State            State           `json:"state"`
	Cycle            int             `json:"cycle"`
	CompletedCycles  int             `json:"completed_cycles"`
	Cycles           int             `json:"cycles"`
	Tick             int             `json:"tick"`
	CycleTick        int             `json:"cycle_tick"`
	MaxTicksPerCycle int             `json:"max_ticks_per_cycle"`
	Rows             int             `json:"rows"`
	Cols             int             `json:"cols"`
	Base             Position        `json:"base"`
	ReachableTiles   int             `json:"reachable_tiles"`
	CycleCovered     int             `json:"cycle_covered"`
	TotalCovered     int             `json:"total_covered"`
	CycleCoverage    float64         `json:"cycle_coverage"`
	TotalCoverage    float64         `json:"total_coverage"`
	Robots           []RobotSnapshot `json:"robots"`
	Message          string          `json:"message"`
}

// Simulation implements the Engine interface
type Simulation struct {
	cfg          *SimulationConfig
	seed         int64
	logger       *log.Logger
	observers    []Observer
	historyLimit int

	sched   *Scheduler
	history []TickRecord
}

// Option customizes a Simulation
type Option func(*Simulation)

// WithSeed overrides the configured seed
func WithSeed(seed int64) Option {
	return func(s *Simulation) { s.seed = seed }
}

// WithLogger enables debug notices (blocked ticks, transitions)
func WithLogger(l *log.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithObserver registers an observer before the first tick
func WithObserver(o Observer) Option {
	return func(s *Simulation) { s.observers = append(s.observers, o) }
}

// WithHistoryLimit bounds the kept trajectory; 0 disables recording
func WithHistoryLimit(n int) Option {
	return func(s *Simulation) { s.historyLimit = n }
}

// NewRand returns the deterministic random source used for a seed
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// NewSimulation validates cfg, builds its grid and returns a simulation in
// the Exploring state.
func NewSimulation(cfg *SimulationConfig, opts ...Option) (*Simulation, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg:          cfg,
		seed:         cfg.Seed,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulation) build() error {
	env, err := LookupEnvironment(s.cfg.Environment.Plugin)
	if err != nil {
		return err
	}
	newMover, err := LookupMover(s.cfg.Robot.Mover)
	if err != nil {
		return err
	}

	rng := NewRand(s.seed)
	grid, err := env.Build(s.cfg, rng)
	if err != nil {
		return fmt.Errorf("failed to build environment: %w", err)
	}
	if _, ok := grid.Base(); !ok {
		return &PlacementError{Kind: Unsatisfiable, Detail: "environment has no base station"}
	}
	s.sched = NewScheduler(s.cfg, grid, newMover(rng), s.logger, s.observers...)
	s.history = nil
	return nil
}

// Config returns the validated configuration
func (s *Simulation) Config() *SimulationConfig {
	return s.cfg
}

// Seed returns the seed the simulation was built with
func (s *Simulation) Seed() int64 {
	return s.seed
}

// State returns the scheduler state
func (s *Simulation) State() State {
	return s.sched.State()
}

// IsFinished reports whether every configured cycle has completed
func (s *Simulation) IsFinished() bool {
	return s.sched.State() == StateFinished
}

// Tick advances one tick and records the trajectory
func (s *Simulation) Tick() State {
	state := s.sched.Tick()
	if s.historyLimit > 0 {
		s.history = append(s.history, s.sched.LastTick()...)
		if over := len(s.history) - s.historyLimit; over > 0 {
			s.history = append([]TickRecord(nil), s.history[over:]...)
		}
	}
	return state
}

// Advance runs up to ticks ticks, stopping early when Finished. It returns
// the number of ticks actually executed.
func (s *Simulation) Advance(ticks int) int {
	executed := 0
	for executed < ticks && !s.IsFinished() {
		s.Tick()
		executed++
	}
	return executed
}

// Run ticks until Finished or until ctx is cancelled
func (s *Simulation) Run(ctx context.Context) error {
	for !s.IsFinished() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Tick()
	}
	return nil
}

// Reset rebuilds the simulation from its configuration and seed. Observers
// stay registered.
func (s *Simulation) Reset() error {
	return s.build()
}

// AddObserver registers an observer for future transitions
func (s *Simulation) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
	s.sched.AddObserver(o)
}

func (s *Simulation) Grid() *Grid {
	return s.sched.Grid()
}

func (s *Simulation) Robots() []*Robot {
	return s.sched.Robots()
}

// Snapshot returns an on-demand snapshot of the current cycle
func (s *Simulation) Snapshot() Snapshot {
	return s.sched.Snapshot()
}

// CycleSnapshots returns the snapshots finalized at each completed cycle
func (s *Simulation) CycleSnapshots() []Snapshot {
	return s.sched.CycleSnapshots()
}

// History returns the recorded trajectory, oldest first
func (s *Simulation) History() []TickRecord {
	return s.history
}

// Status builds the compact status view
func (s *Simulation) Status() *SimulationStatus {
	sched := s.sched
	cov := sched.Coverage()
	base, _ := sched.Grid().Base()
	st := &SimulationStatus{
		Name:             s.cfg.Name,
		State:            sched.State(),
		Cycle:            sched.currentCycle(),
		CompletedCycles:  sched.CompletedCycles(),
		Cycles:           s.cfg.Cycles,
		Tick:             sched.TickCount(),
		CycleTick:        sched.CycleTick(),
		MaxTicksPerCycle: s.cfg.MaxTicksPerCycle,
		Rows:             s.cfg.Grid.Rows,
		Cols:             s.cfg.Grid.Cols,
		Base:             base,
		ReachableTiles:   sched.ReachableTiles(),
		CycleCovered:     cov.CoveredTiles(false),
		TotalCovered:     cov.CoveredTiles(true),
	}
	if st.ReachableTiles > 0 {
		st.CycleCoverage = float64(st.CycleCovered) / float64(st.ReachableTiles)
		st.TotalCoverage = float64(st.TotalCovered) / float64(st.ReachableTiles)
	}
	for _, r := range sched.Robots() {
		st.Robots = append(st.Robots, RobotSnapshot{
			ID:       r.ID,
			Pos:      r.Pos,
			Heading:  r.Heading,
			Autonomy: r.Autonomy,
			Capacity: r.Capacity,
			State:    r.State,
			Moves:    r.Moves,
			Bounces:  r.Bounces,
		})
	}
	st.Message = statusMessage(st)
	return st
}

func statusMessage(st *SimulationStatus) string {
	switch st.State {
	case StateExploring:
		return fmt.Sprintf("Exploring %dx%d lawn from base %s", st.Rows, st.Cols, st.Base)
	case StateFinished:
		return fmt.Sprintf("Finished %d cycles in %d ticks, %.1f%% of reachable lawn cut", st.CompletedCycles, st.Tick, st.TotalCoverage*100)
	}
	return fmt.Sprintf("Cycle %d/%d, tick %d: %.1f%% cut this cycle", st.Cycle, st.Cycles, st.CycleTick, st.CycleCoverage*100)
}
