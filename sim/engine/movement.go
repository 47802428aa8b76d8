package engine

import "math/rand/v2"

// Mover advances a single robot by one tick. Implementations may be
// registered by name with RegisterMover.
type Mover interface {
	Step(r *Robot) MoveOutcome
}

// MoveOutcome describes what happened to a robot during one tick
type MoveOutcome struct {
	RobotID int        `json:"robot_id"`
	From    Position   `json:"from"`
	To      Position   `json:"to"`
	Heading Direction  `json:"heading"`
	Moved   bool       `json:"moved"`
	Bounced bool       `json:"bounced,omitempty"`
	State   RobotState `json:"state"`
}

// DefaultMover implements the PingPong and Random bounce strategies with
// straight-run ("random") and per-tick ("free") cutting.
//
// A Random robot cutting straight runs keeps its heading while the run is
// open and applies RandomFallbackOrder only on a collision. A Random robot
// cutting freely walks RandomFallbackOrder from its first entry on every
// tick, so the upper-left tile is always attempted first.
type DefaultMover struct {
	rng *rand.Rand
}

// NewDefaultMover returns a mover drawing headings from rng
func NewDefaultMover(rng *rand.Rand) *DefaultMover {
	return &DefaultMover{rng: rng}
}

// Step attempts one move for r
func (m *DefaultMover) Step(r *Robot) MoveOutcome {
	g := r.grid
	if g == nil {
		violate("robot %d evaluated without a grid", r.ID)
	}
	out := MoveOutcome{RobotID: r.ID, From: r.Pos, To: r.Pos}

	if r.Exhausted() {
		r.State = RobotRecharging
		out.Heading = r.Heading
		out.State = r.State
		return out
	}

	switch {
	case r.Bounce == Random && r.Cutting == CuttingFree:
		// every tick starts over from the upper-left bias
		next, ok := m.firstOpen(r, r.Pos, DirNone)
		if !ok {
			return m.block(r, out)
		}
		r.Heading = next
	case r.Heading == DirNone || r.Cutting == CuttingFree:
		dirs := r.Bounce.Directions()
		r.Heading = dirs[m.rng.IntN(len(dirs))]
	}

	if !g.Occupiable(r.Pos, r.Pos.Add(r.Heading)) {
		next, ok := m.bounce(r, r.Pos)
		r.Bounces++
		out.Bounced = true
		r.Heading = next
		if !ok {
			return m.block(r, out)
		}
	}

	to := r.Pos.Add(r.Heading)
	g.Move(r.ID, r.Pos, to)
	r.Pos = to
	r.Moves++
	r.spend()
	r.State = RobotMoving

	// straight runs look one tile ahead so the turn happens as soon as the
	// run ends, not on the following tick
	if r.Cutting == CuttingRandom && !g.Occupiable(r.Pos, r.Pos.Add(r.Heading)) {
		if next, ok := m.bounce(r, r.Pos); ok || r.Bounce == PingPong {
			r.Heading = next
			r.Bounces++
			out.Bounced = true
		}
	}

	out.To = to
	out.Moved = true
	out.Heading = r.Heading
	out.State = r.State
	return out
}

// block leaves r in place for this tick with its current heading
func (m *DefaultMover) block(r *Robot, out MoveOutcome) MoveOutcome {
	r.State = RobotBlocked
	r.Blocks++
	out.Heading = r.Heading
	out.State = r.State
	return out
}

// bounce picks a new heading for r standing on from. The boolean is false
// when no heading is occupiable; the returned heading is then the one the
// robot keeps for the next tick.
func (m *DefaultMover) bounce(r *Robot, from Position) (Direction, bool) {
	if r.Bounce == Random {
		if d, ok := m.firstOpen(r, from, r.Heading); ok {
			return d, true
		}
		return r.Heading, false
	}
	reversed := r.Heading.Reverse()
	return reversed, r.grid.Occupiable(from, from.Add(reversed))
}

// firstOpen walks RandomFallbackOrder, skipping skip, and returns the first
// occupiable heading
func (m *DefaultMover) firstOpen(r *Robot, from Position, skip Direction) (Direction, bool) {
	for _, d := range RandomFallbackOrder {
		if d == skip {
			continue
		}
		if r.grid.Occupiable(from, from.Add(d)) {
			return d, true
		}
	}
	return DirNone, false
}
