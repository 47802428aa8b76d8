package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mowersim/sim/engine"
	"github.com/wricardo/mowersim/sim/service"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	saves    int
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id, configID string, config *engine.SimulationConfig, seed int64) (*service.Session, error) {
	if id == "" {
		id = fmt.Sprintf("s%03d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}
	sess, err := service.NewSession(id, configID, config, seed)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = sess
	return sess, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	sess, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return sess, nil
}

func (m *MockSessionManager) GetOrCreate(id, configID string, config *engine.SimulationConfig, seed int64) (*service.Session, error) {
	if sess, exists := m.sessions[id]; exists {
		return sess, nil
	}
	return m.Create(id, configID, config, seed)
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if sess, exists := m.sessions[id]; exists {
		sess.LastAccessedAt = time.Now()
		return nil
	}
	return errors.New("session not found")
}

func (m *MockSessionManager) Save(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	m.saves++
	return nil
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.SimulationConfig
}

// edgeConfig is a single ping-pong mower that reaches the east edge of a
// 5x5 lawn and exhausts its autonomy on the fourth tick
func edgeConfig() *engine.SimulationConfig {
	base := engine.Position{Row: 0, Col: 0}
	return &engine.SimulationConfig{
		Name:        "Edge Run",
		Description: "Straight run to the east edge",
		Seed:        3,
		Cycles:      1,
		Grid:        engine.GridConfig{Rows: 5, Cols: 5},
		Robot: engine.RobotConfig{
			Count:          1,
			BounceMode:     engine.PingPong,
			CuttingMode:    engine.CuttingRandom,
			Autonomy:       4,
			InitialHeading: "e",
		},
		BaseStation: engine.BaseStationConfig{Strategy: engine.BaseManual, Position: &base},
		Environment: engine.EnvironmentConfig{Mode: engine.EnvironmentExplicit},
	}
}

func NewMockConfigManager() *MockConfigManager {
	cfg := edgeConfig()
	return &MockConfigManager{
		configs: map[string]*engine.SimulationConfig{
			"edge":    cfg,
			"default": cfg,
		},
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.SimulationConfig, error) {
	config, exists := m.configs[name]
	if !exists {
		return nil, errors.New("configuration not found")
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	return []*service.ConfigInfo{{Filename: "edge.json", ConfigID: "edge", Name: "Edge Run"}}, nil
}

func (m *MockConfigManager) GetDefault() *engine.SimulationConfig {
	return m.configs["default"]
}

func (m *MockConfigManager) SaveConfig(name string, config *engine.SimulationConfig) error {
	if err := engine.ValidateConfig(config); err != nil {
		return err
	}
	m.configs[name] = config
	return nil
}

func newService() (service.SimulationService, *MockSessionManager) {
	sessions := NewMockSessionManager()
	return service.NewSimulationService(sessions, NewMockConfigManager()), sessions
}

func TestSimulationService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	tests := []struct {
		name       string
		configName string
		seed       *int64
		wantConfig string
		wantSeed   int64
		wantErr    string
	}{
		{name: "default config", wantConfig: "edge", wantSeed: 3},
		{name: "named config", configName: "edge", wantConfig: "edge", wantSeed: 3},
		{name: "seed override", configName: "edge", seed: ptr(int64(77)), wantConfig: "edge", wantSeed: 77},
		{name: "unknown config", configName: "jungle", wantErr: "available configs: [edge]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.configName, tt.seed)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfig, info.ConfigName)
			assert.Equal(t, tt.wantSeed, info.Seed)
			assert.Equal(t, engine.StateExploring, info.Status.State)
			assert.Equal(t, "Edge Run", info.Config.Name)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestSimulationService_StepReportsEvents(t *testing.T) {
	ctx := context.Background()
	svc, sessions := newService()
	info, err := svc.CreateSession(ctx, "edge", nil)
	require.NoError(t, err)

	result, err := svc.Step(ctx, info.ID, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TicksExecuted)
	assert.False(t, result.Finished)
	assert.Equal(t, 2, result.Status.Tick)
	require.Len(t, result.Events, 1)
	assert.Equal(t, service.EventTransition, result.Events[0].Type)
	assert.Equal(t, engine.StateRunning, result.Events[0].To)

	result, err = svc.Step(ctx, info.ID, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 10, result.RequestedTicks)
	assert.Equal(t, 2, result.TicksExecuted, "stops when finished")
	assert.True(t, result.Finished)
	assert.Equal(t, service.StopFinished, result.StopReasonCode)

	var types []string
	for _, e := range result.Events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, service.EventCycleComplete)
	assert.Equal(t, engine.StateFinished, result.Events[len(result.Events)-1].To)
	assert.Equal(t, 2, sessions.saves, "every step persists the session")

	result, err = svc.Step(ctx, info.ID, 1, true)
	require.NoError(t, err)
	assert.Equal(t, service.EventReset, result.Events[0].Type)
	assert.Equal(t, 1, result.Status.Tick)
}

func TestSimulationService_StepValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	info, err := svc.CreateSession(ctx, "", nil)
	require.NoError(t, err)

	_, err = svc.Step(ctx, info.ID, -1, false)
	assert.Error(t, err)

	_, err = svc.Step(ctx, "nope", 1, false)
	assert.ErrorContains(t, err, "session not found")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	result, err := svc.Step(cancelled, info.ID, 3, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TicksExecuted)
	assert.Equal(t, service.StopCancelled, result.StopReasonCode)
}

func TestSimulationService_RunAndSnapshots(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	info, err := svc.CreateSession(ctx, "edge", nil)
	require.NoError(t, err)

	result, err := svc.RunToCompletion(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TicksExecuted)
	assert.True(t, result.Finished)
	assert.Contains(t, result.Message, "Finished 1 cycles")

	snaps, err := svc.ListSnapshots(ctx, info.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 4, snaps[0].CycleCovered)
	assert.Equal(t, 25, snaps[0].ReachableTiles)
	assert.InDelta(t, 4.0/25, snaps[0].CycleCoverage, 1e-9)

	snap, err := svc.GetSnapshot(ctx, info.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1, 1, 1}, snap.CyclePasses[0])

	live, err := svc.GetSnapshot(ctx, info.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, live.Tick)

	_, err = svc.GetSnapshot(ctx, info.ID, 2)
	assert.ErrorIs(t, err, service.ErrSnapshotNotFound)

	status, err := svc.Reset(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.StateExploring, status.State)
	snaps, err = svc.ListSnapshots(ctx, info.ID)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSimulationService_GetHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	info, err := svc.CreateSession(ctx, "edge", nil)
	require.NoError(t, err)
	_, err = svc.RunToCompletion(ctx, info.ID)
	require.NoError(t, err)

	tests := []struct {
		name      string
		opts      service.HistoryOptions
		wantTicks []int
		wantNext  bool
		wantPrev  bool
	}{
		{"default desc", service.HistoryOptions{}, []int{4, 3, 2, 1}, false, false},
		{"first page", service.HistoryOptions{Limit: 3}, []int{4, 3, 2}, true, false},
		{"second page", service.HistoryOptions{Limit: 3, Page: 2}, []int{1}, false, true},
		{"ascending", service.HistoryOptions{Limit: 2, Order: "asc"}, []int{1, 2}, true, false},
		{"other robot", service.HistoryOptions{Robot: 2}, []int{}, false, false},
		{"past the end", service.HistoryOptions{Limit: 2, Page: 5, Order: "asc"}, []int{}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.GetHistory(ctx, info.ID, tt.opts)
			require.NoError(t, err)
			got := []int{}
			for _, rec := range page.Ticks {
				got = append(got, rec.Tick)
			}
			assert.Equal(t, tt.wantTicks, got)
			assert.Equal(t, tt.wantNext, page.HasNext)
			assert.Equal(t, tt.wantPrev, page.HasPrevious)
		})
	}
}

func TestSimulationService_SessionsAndConfigs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	a, err := svc.CreateSession(ctx, "edge", nil)
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "edge", ptr(int64(9)))
	require.NoError(t, err)

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := svc.GetSession(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	require.NoError(t, svc.DeleteSession(ctx, a.ID))
	_, err = svc.GetSession(ctx, a.ID)
	assert.Error(t, err)

	cfg := edgeConfig()
	cfg.Name = "Saved"
	require.NoError(t, svc.SaveConfig(ctx, "saved", cfg))
	loaded, err := svc.LoadConfig(ctx, "saved")
	require.NoError(t, err)
	assert.Equal(t, "Saved", loaded.Name)

	bad := edgeConfig()
	bad.Grid.Rows = 0
	assert.ErrorIs(t, svc.SaveConfig(ctx, "bad", bad), engine.ErrInvalidConfig)

	configs, err := svc.ListConfigs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "edge", configs[0].ConfigID)
}
