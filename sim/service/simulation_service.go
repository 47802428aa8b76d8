package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mowersim/sim/engine"
)

// SimulationService defines the main simulation operations
type SimulationService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string, seed *int64) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Simulation Operations
	Step(ctx context.Context, sessionID string, ticks int, reset bool) (*StepResult, error)
	RunToCompletion(ctx context.Context, sessionID string) (*StepResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.SimulationStatus, error)

	// Simulation State
	GetState(ctx context.Context, sessionID string) (*engine.SimulationStatus, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	GetSnapshot(ctx context.Context, sessionID string, cycle int) (*engine.Snapshot, error)
	ListSnapshots(ctx context.Context, sessionID string) ([]*SnapshotInfo, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.SimulationConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.SimulationConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.SimulationConfig, seed int64) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.SimulationConfig, seed int64) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles simulation configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.SimulationConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.SimulationConfig
	SaveConfig(name string, config *engine.SimulationConfig) error
}

// Session represents an active simulation run
type Session struct {
	ID             string
	ConfigID       string
	Engine         engine.Engine
	Config         *engine.SimulationConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu     sync.Mutex
	events []SimulationEvent
}

// NewSession builds the simulation for config and seed and wires its
// milestones into the session event buffer.
func NewSession(id, configID string, config *engine.SimulationConfig, seed int64, opts ...engine.Option) (*Session, error) {
	sess := &Session{
		ID:             id,
		ConfigID:       configID,
		Config:         config,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	opts = append([]engine.Option{engine.WithSeed(seed), engine.WithObserver(sess.observer())}, opts...)
	sim, err := engine.NewSimulation(config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}
	sess.Engine = sim
	return sess, nil
}

// DrainEvents returns and clears the events recorded since the last drain
func (s *Session) DrainEvents() []SimulationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events
	s.events = nil
	return events
}

func (s *Session) record(e SimulationEvent) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *Session) observer() engine.Observer {
	return engine.ObserverFuncs{
		Milestone: func(m engine.Milestone) {
			s.record(SimulationEvent{
				Type:      EventTransition,
				Message:   fmt.Sprintf("%s -> %s", m.From, m.To),
				Timestamp: time.Now(),
				From:      m.From,
				To:        m.To,
				Cycle:     m.Cycle,
				Tick:      m.Tick,
			})
		},
		CycleComplete: func(snap engine.Snapshot) {
			info := NewSnapshotInfo(snap)
			s.record(SimulationEvent{
				Type:      EventCycleComplete,
				Message:   fmt.Sprintf("Cycle %d complete: %.1f%% of reachable lawn cut", snap.Cycle, info.CycleCoverage*100),
				Timestamp: time.Now(),
				Cycle:     snap.Cycle,
				Tick:      snap.Tick,
			})
		},
	}
}
