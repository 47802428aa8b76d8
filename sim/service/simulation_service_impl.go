package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wricardo/mowersim/sim/engine"
)

// ErrSnapshotNotFound is returned when a cycle has not completed yet
var ErrSnapshotNotFound = errors.New("snapshot not found")

// simulationServiceImpl implements the SimulationService interface
type simulationServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewSimulationService creates a new simulation service instance
func NewSimulationService(sessions SessionManager, configs ConfigManager) SimulationService {
	return &simulationServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a display name
func (s *simulationServiceImpl) getConfigID(configName string) string {
	available, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range available {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *simulationServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		Seed:           sess.Engine.Seed(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Status:         sess.Engine.Status(),
		Config:         sess.Config,
	}
}

// CreateSession creates a new simulation session. A nil seed keeps the
// seed stored in the configuration.
func (s *simulationServiceImpl) CreateSession(ctx context.Context, configName string, seed *int64) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.SimulationConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			return nil, s.configNotFound(configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configName = s.getConfigID(config.Name)
	}

	runSeed := config.Seed
	if seed != nil {
		runSeed = *seed
	}

	sess, err := s.sessions.Create("", configName, config, runSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s.sessionInfo(sess), nil
}

func (s *simulationServiceImpl) configNotFound(configName string, err error) error {
	available, listErr := s.configs.ListConfigs()
	if listErr == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, cfg := range available {
			ids = append(ids, cfg.ConfigID)
		}
		return fmt.Errorf("failed to load config '%s' (available configs: %v): %w", configName, ids, err)
	}
	return fmt.Errorf("failed to load config '%s': %w", configName, err)
}

// GetSession retrieves session information
func (s *simulationServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *simulationServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *simulationServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Step advances a session by up to ticks ticks. It stops early when the
// simulation finishes or ctx is cancelled.
func (s *simulationServiceImpl) Step(ctx context.Context, sessionID string, ticks int, reset bool) (*StepResult, error) {
	if ticks < 0 {
		return nil, fmt.Errorf("ticks must be non-negative, got %d", ticks)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	var events []SimulationEvent
	if reset {
		if err := sess.Engine.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset simulation: %w", err)
		}
		sess.DrainEvents()
		events = append(events, SimulationEvent{
			Type:      EventReset,
			Message:   "Simulation reset to its initial state",
			Timestamp: time.Now(),
			To:        sess.Engine.State(),
		})
	}

	result := &StepResult{RequestedTicks: ticks}
	if ticks > MaxStepTicks {
		ticks = MaxStepTicks
		result.Truncated = true
		result.Limit = MaxStepTicks
	}

	for result.TicksExecuted < ticks && !sess.Engine.IsFinished() {
		if ctx.Err() != nil {
			result.StopReasonCode = StopCancelled
			break
		}
		sess.Engine.Tick()
		result.TicksExecuted++
	}

	s.finishStep(sess, result, events)
	return result, nil
}

// RunToCompletion ticks a session until every configured cycle completes
func (s *simulationServiceImpl) RunToCompletion(ctx context.Context, sessionID string) (*StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := &StepResult{}
	before := sess.Engine.Status().Tick
	if err := sess.Engine.Run(ctx); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		result.StopReasonCode = StopCancelled
	}
	result.TicksExecuted = sess.Engine.Status().Tick - before
	result.RequestedTicks = result.TicksExecuted

	s.finishStep(sess, result, nil)
	return result, nil
}

func (s *simulationServiceImpl) finishStep(sess *Session, result *StepResult, events []SimulationEvent) {
	result.Status = sess.Engine.Status()
	result.Events = append(events, sess.DrainEvents()...)
	if result.Events == nil {
		result.Events = []SimulationEvent{}
	}
	result.Finished = sess.Engine.IsFinished()
	if result.Finished && result.StopReasonCode == "" {
		result.StopReasonCode = StopFinished
	}
	result.Message = result.Status.Message

	if err := s.sessions.Save(sess.ID); err != nil {
		log.Printf("Warning: Failed to persist session %s: %v", sess.ID, err)
	}
}

// Reset rebuilds a session's simulation from its config and seed
func (s *simulationServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.SimulationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	if err := sess.Engine.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset simulation: %w", err)
	}
	sess.DrainEvents()
	return sess.Engine.Status(), nil
}

// GetState returns the current status of a session
func (s *simulationServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.SimulationStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	return sess.Engine.Status(), nil
}

// GetHistory returns a page of the recorded trajectory
func (s *simulationServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.History()
	if opts.Robot > 0 {
		filtered := make([]engine.TickRecord, 0, len(history)/max(1, sess.Config.Robot.Count))
		for _, rec := range history {
			if rec.RobotID == opts.Robot {
				filtered = append(filtered, rec)
			}
		}
		history = filtered
	}
	return paginate(history, opts), nil
}

func paginate(history []engine.TickRecord, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	ticks := []engine.TickRecord{}
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			ticks = append(ticks, history[i])
		}
	} else if start < total {
		ticks = append(ticks, history[start:end]...)
	}

	return &HistoryResponse{
		Ticks:       ticks,
		TotalTicks:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// GetSnapshot returns the snapshot finalized at the end of cycle. Cycle 0
// returns an on-demand snapshot of the cycle in progress.
func (s *simulationServiceImpl) GetSnapshot(ctx context.Context, sessionID string, cycle int) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	if cycle == 0 {
		snap := sess.Engine.Snapshot()
		return &snap, nil
	}
	snaps := sess.Engine.CycleSnapshots()
	if cycle < 0 || cycle > len(snaps) {
		return nil, fmt.Errorf("cycle %d (completed: %d): %w", cycle, len(snaps), ErrSnapshotNotFound)
	}
	snap := snaps[cycle-1]
	return &snap, nil
}

// ListSnapshots summarizes every finalized cycle snapshot
func (s *simulationServiceImpl) ListSnapshots(ctx context.Context, sessionID string) ([]*SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	snaps := sess.Engine.CycleSnapshots()
	result := make([]*SnapshotInfo, 0, len(snaps))
	for _, snap := range snaps {
		result = append(result, NewSnapshotInfo(snap))
	}
	return result, nil
}

// ListConfigs returns all available configurations
func (s *simulationServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific simulation configuration
func (s *simulationServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.SimulationConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a simulation configuration to disk
func (s *simulationServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.SimulationConfig) error {
	return s.configs.SaveConfig(configName, config)
}
