package service

import (
	"time"

	"github.com/wricardo/mowersim/sim/engine"
)

// Event types reported in StepResult.Events
const (
	EventTransition    = "transition"
	EventCycleComplete = "cycle_complete"
	EventReset         = "reset"
)

// Stop reason codes reported by Step
const (
	StopFinished  = "finished"
	StopCancelled = "cancelled"
)

// MaxStepTicks bounds a single Step request
const MaxStepTicks = 100000

// SessionInfo provides information about a simulation session
type SessionInfo struct {
	ID             string                   `json:"id"`
	ConfigName     string                   `json:"config_name"`
	Seed           int64                    `json:"seed"`
	CreatedAt      time.Time                `json:"created_at"`
	LastAccessedAt time.Time                `json:"last_accessed_at"`
	Status         *engine.SimulationStatus `json:"status"`
	Config         *engine.SimulationConfig `json:"config"`
}

// SimulationEvent is a scheduler milestone as seen by clients
type SimulationEvent struct {
	Type      string       `json:"type"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
	From      engine.State `json:"from,omitempty"`
	To        engine.State `json:"to,omitempty"`
	Cycle     int          `json:"cycle"`
	Tick      int          `json:"tick"`
}

// StepResult contains the outcome of advancing a session
type StepResult struct {
	RequestedTicks int                      `json:"requested_ticks"`
	TicksExecuted  int                      `json:"ticks_executed"`
	Status         *engine.SimulationStatus `json:"status"`
	Events         []SimulationEvent        `json:"events"`
	Finished       bool                     `json:"finished"`
	StopReasonCode string                   `json:"stop_reason_code,omitempty"`
	Truncated      bool                     `json:"truncated,omitempty"`
	Limit          int                      `json:"limit,omitempty"`
	Message        string                   `json:"message"`
}

// HistoryOptions configures trajectory retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
	Robot int    `json:"robot,omitempty"`
}

// HistoryResponse contains a page of the recorded trajectory
type HistoryResponse struct {
	Ticks       []engine.TickRecord `json:"ticks"`
	TotalTicks  int                 `json:"total_ticks"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// SnapshotInfo summarizes one finalized cycle snapshot
type SnapshotInfo struct {
	Cycle          int     `json:"cycle"`
	Tick           int     `json:"tick"`
	CycleTicks     int     `json:"cycle_ticks"`
	ReachableTiles int     `json:"reachable_tiles"`
	CycleCovered   int     `json:"cycle_covered"`
	TotalCovered   int     `json:"total_covered"`
	CycleCoverage  float64 `json:"cycle_coverage"`
	TotalCoverage  float64 `json:"total_coverage"`
}

// ConfigInfo provides information about a simulation configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	Cycles      int    `json:"cycles"`
	Robots      int    `json:"robots"`
	Autonomy    int    `json:"autonomy"`
}

// NewSnapshotInfo summarizes snap
func NewSnapshotInfo(snap engine.Snapshot) *SnapshotInfo {
	info := &SnapshotInfo{
		Cycle:          snap.Cycle,
		Tick:           snap.Tick,
		CycleTicks:     snap.CycleTicks,
		ReachableTiles: snap.ReachableTiles,
		CycleCovered:   snap.CycleCovered,
		TotalCovered:   snap.TotalCovered,
	}
	if snap.ReachableTiles > 0 {
		info.CycleCoverage = float64(snap.CycleCovered) / float64(snap.ReachableTiles)
		info.TotalCoverage = float64(snap.TotalCovered) / float64(snap.ReachableTiles)
	}
	return info
}
