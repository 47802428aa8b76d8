package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wricardo/mowersim/sim/config"
	"github.com/wricardo/mowersim/sim/engine"
	"github.com/wricardo/mowersim/sim/service"
	"github.com/wricardo/mowersim/sim/session"
	"github.com/wricardo/mowersim/transport/websocket"
)

// MockSimulationService implements service.SimulationService for testing
type MockSimulationService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string, seed *int64) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Simulation Operations
	StepFunc            func(ctx context.Context, sessionID string, ticks int, reset bool) (*service.StepResult, error)
	RunToCompletionFunc func(ctx context.Context, sessionID string) (*service.StepResult, error)
	ResetFunc           func(ctx context.Context, sessionID string) (*engine.SimulationStatus, error)

	// Simulation State
	GetStateFunc      func(ctx context.Context, sessionID string) (*engine.SimulationStatus, error)
	GetHistoryFunc    func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	GetSnapshotFunc   func(ctx context.Context, sessionID string, cycle int) (*engine.Snapshot, error)
	ListSnapshotsFunc func(ctx context.Context, sessionID string) ([]*service.SnapshotInfo, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.SimulationConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.SimulationConfig) error
}

func (m *MockSimulationService) CreateSession(ctx context.Context, configName string, seed *int64) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName, seed)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockSimulationService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "test-config", CreatedAt: time.Now()}, nil
}

func (m *MockSimulationService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockSimulationService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockSimulationService) Step(ctx context.Context, sessionID string, ticks int, reset bool) (*service.StepResult, error) {
	if m.StepFunc != nil {
		return m.StepFunc(ctx, sessionID, ticks, reset)
	}
	return &service.StepResult{
		RequestedTicks: ticks,
		TicksExecuted:  ticks,
		Status:         &engine.SimulationStatus{State: engine.StateRunning},
		Events:         []service.SimulationEvent{},
	}, nil
}

func (m *MockSimulationService) RunToCompletion(ctx context.Context, sessionID string) (*service.StepResult, error) {
	if m.RunToCompletionFunc != nil {
		return m.RunToCompletionFunc(ctx, sessionID)
	}
	return &service.StepResult{
		Status:   &engine.SimulationStatus{State: engine.StateFinished},
		Events:   []service.SimulationEvent{},
		Finished: true,
	}, nil
}

func (m *MockSimulationService) Reset(ctx context.Context, sessionID string) (*engine.SimulationStatus, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.SimulationStatus{State: engine.StateExploring}, nil
}

func (m *MockSimulationService) GetState(ctx context.Context, sessionID string) (*engine.SimulationStatus, error) {
	if m.GetStateFunc != nil {
		return m.GetStateFunc(ctx, sessionID)
	}
	return &engine.SimulationStatus{State: engine.StateExploring}, nil
}

func (m *MockSimulationService) GetHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetHistoryFunc != nil {
		return m.GetHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Ticks: []engine.TickRecord{}, Page: opts.Page, PageSize: opts.Limit, TotalPages: 1}, nil
}

func (m *MockSimulationService) GetSnapshot(ctx context.Context, sessionID string, cycle int) (*engine.Snapshot, error) {
	if m.GetSnapshotFunc != nil {
		return m.GetSnapshotFunc(ctx, sessionID, cycle)
	}
	return nil, service.ErrSnapshotNotFound
}

func (m *MockSimulationService) ListSnapshots(ctx context.Context, sessionID string) ([]*service.SnapshotInfo, error) {
	if m.ListSnapshotsFunc != nil {
		return m.ListSnapshotsFunc(ctx, sessionID)
	}
	return []*service.SnapshotInfo{}, nil
}

func (m *MockSimulationService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockSimulationService) LoadConfig(ctx context.Context, configName string) (*engine.SimulationConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.SimulationConfig{Name: configName, Description: "Test config"}, nil
}

func (m *MockSimulationService) SaveConfig(ctx context.Context, configName string, config *engine.SimulationConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

// Test helpers
func setupTestServer(mockService service.SimulationService) *Server {
	hub := websocket.NewHub()
	go hub.Run()
	return NewServer(mockService, hub)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	seed := int64(42)
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockSimulationService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Create session with default config",
			setupMock: func(m *MockSimulationService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string, seed *int64) (*service.SessionInfo, error) {
					if configName != "" || seed != nil {
						t.Errorf("Expected empty config and no seed, got %q %v", configName, seed)
					}
					return &service.SessionInfo{ID: "a1b2", ConfigName: "default"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "a1b2" {
					t.Errorf("Expected session ID a1b2, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with config and seed",
			requestBody: map[string]interface{}{"config_id": "garden", "seed": seed},
			setupMock: func(m *MockSimulationService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string, s *int64) (*service.SessionInfo, error) {
					if configName != "garden" || s == nil || *s != seed {
						t.Errorf("Expected garden/42, got %q %v", configName, s)
					}
					return &service.SessionInfo{ID: "c3d4", ConfigName: configName, Seed: *s}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.Seed != seed {
					t.Errorf("Expected seed %d, got %d", seed, resp.Seed)
				}
			},
		},
		{
			name: "Invalid configuration",
			setupMock: func(m *MockSimulationService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string, seed *int64) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("failed to create session: %w", &engine.PlacementError{Kind: engine.Unsatisfiable, Detail: "no room"})
				}
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockSimulationService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string, seed *int64) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockSimulationService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	mockService := &MockSimulationService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", ConfigName: "garden", LastAccessedAt: now.Add(-time.Hour)},
				{ID: "new", ConfigName: "garden", LastAccessedAt: now},
				{ID: "other", ConfigName: "default", LastAccessedAt: now.Add(-time.Minute)},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		name      string
		path      string
		wantIDs   []string
		wantTotal float64
	}{
		{"default order", "/api/sessions", []string{"new", "other", "old"}, 3},
		{"ascending with limit", "/api/sessions?order=asc&limit=2", []string{"old", "other"}, 3},
		{"filtered by config", "/api/sessions?config=garden", []string{"new", "old"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, makeRequest("GET", tt.path, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var resp struct {
				Total    float64                `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if resp.Total != tt.wantTotal {
				t.Errorf("Expected total %v, got %v", tt.wantTotal, resp.Total)
			}
			if len(resp.Sessions) != len(tt.wantIDs) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.wantIDs), len(resp.Sessions))
			}
			for i, id := range tt.wantIDs {
				if resp.Sessions[i].ID != id {
					t.Errorf("Expected session %d to be %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mockService := &MockSimulationService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID == "missing" {
				return nil, fmt.Errorf("session not found")
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "missing" {
				return fmt.Errorf("session not found")
			}
			return nil
		},
	}
	server := setupTestServer(mockService)

	if w := serve(server, makeRequest("GET", "/api/sessions/abcd", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/sessions/missing", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	w := serve(server, makeRequest("DELETE", "/api/sessions/abcd", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["message"] != "Session abcd deleted" {
		t.Errorf("Unexpected message %q", resp["message"])
	}
	if w := serve(server, makeRequest("DELETE", "/api/sessions/missing", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// Simulation Operation Tests

func TestStep(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		wantTicks      int
		wantReset      bool
		stepErr        error
		expectedStatus int
	}{
		{"empty body steps once", nil, 1, false, nil, http.StatusOK},
		{"explicit ticks", map[string]interface{}{"ticks": 25}, 25, false, nil, http.StatusOK},
		{"reset first", map[string]interface{}{"ticks": 3, "reset": true}, 3, true, nil, http.StatusOK},
		{"negative ticks", map[string]interface{}{"ticks": -1}, -1, false, fmt.Errorf("ticks must be non-negative"), http.StatusBadRequest},
		{"unknown session", map[string]interface{}{"ticks": 2}, 2, false, fmt.Errorf("session not found: x"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockSimulationService{
				StepFunc: func(ctx context.Context, sessionID string, ticks int, reset bool) (*service.StepResult, error) {
					if ticks != tt.wantTicks || reset != tt.wantReset {
						t.Errorf("Expected ticks=%d reset=%v, got ticks=%d reset=%v", tt.wantTicks, tt.wantReset, ticks, reset)
					}
					if tt.stepErr != nil {
						return nil, tt.stepErr
					}
					return &service.StepResult{
						RequestedTicks: ticks,
						TicksExecuted:  ticks,
						Status:         &engine.SimulationStatus{State: engine.StateRunning, Tick: ticks},
						Events:         []service.SimulationEvent{},
					}, nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions/abcd/step", tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Code == http.StatusOK {
				var resp service.StepResult
				parseResponse(t, w, &resp)
				if resp.TicksExecuted != tt.wantTicks {
					t.Errorf("Expected %d ticks executed, got %d", tt.wantTicks, resp.TicksExecuted)
				}
			}
		})
	}
}

func TestStepInvalidBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/sessions/abcd/step", bytes.NewBufferString("{not json"))
	w := serve(setupTestServer(&MockSimulationService{}), req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestRunToCompletionAndReset(t *testing.T) {
	server := setupTestServer(&MockSimulationService{})

	w := serve(server, makeRequest("POST", "/api/sessions/abcd/complete", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var result service.StepResult
	parseResponse(t, w, &result)
	if !result.Finished || result.Status.State != engine.StateFinished {
		t.Errorf("Expected finished run, got %+v", result)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/abcd/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Message string                   `json:"message"`
		State   *engine.SimulationStatus `json:"state"`
	}
	parseResponse(t, w, &resp)
	if resp.State.State != engine.StateExploring {
		t.Errorf("Expected exploring after reset, got %s", resp.State.State)
	}
}

func TestGetHistory(t *testing.T) {
	var got service.HistoryOptions
	mockService := &MockSimulationService{
		GetHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
			got = opts
			return &service.HistoryResponse{Ticks: []engine.TickRecord{}, Page: opts.Page, PageSize: opts.Limit}, nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		path string
		want service.HistoryOptions
	}{
		{"/api/sessions/abcd/history", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"/api/sessions/abcd/history?page=3&limit=5&order=asc&robot=2", service.HistoryOptions{Page: 3, Limit: 5, Order: "asc", Robot: 2}},
		{"/api/sessions/abcd/history?page=-1&limit=abc&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(server, makeRequest("GET", tt.path, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.want {
				t.Errorf("Expected options %+v, got %+v", tt.want, got)
			}
		})
	}
}

// Snapshot Tests

func testSnapshot() *engine.Snapshot {
	return &engine.Snapshot{
		Cycle:       2,
		Rows:        1,
		Cols:        3,
		TileSize:    0.25,
		Resources:   [][]engine.Resource{{engine.Grass, engine.Grass, engine.Grass}},
		Blocked:     [][]bool{{false, false, true}},
		AreaIDs:     [][]int{{0, 0, 1}},
		CyclePasses: [][]int{{0, 2, 0}},
		TotalPasses: [][]int{{1, 5, 0}},
		Areas:       []engine.AreaSummary{{ID: 1, Kind: engine.SquaredBlocked}},
		Base:        engine.Position{Row: 0, Col: 0},
	}
}

func TestSnapshots(t *testing.T) {
	var requested []int
	mockService := &MockSimulationService{
		GetSnapshotFunc: func(ctx context.Context, sessionID string, cycle int) (*engine.Snapshot, error) {
			requested = append(requested, cycle)
			if cycle > 2 {
				return nil, fmt.Errorf("cycle %d: %w", cycle, service.ErrSnapshotNotFound)
			}
			return testSnapshot(), nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("GET", "/api/sessions/abcd/snapshots/2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var snap engine.Snapshot
	parseResponse(t, w, &snap)
	if snap.Cycle != 2 {
		t.Errorf("Expected cycle 2, got %d", snap.Cycle)
	}

	if w := serve(server, makeRequest("GET", "/api/sessions/abcd/snapshots/9", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/abcd/snapshots/2/passes.csv?cumulative=true", nil))
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %q", ct)
	}
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse csv: %v", err)
	}
	if want := []string{"1", "1", "2", "0", "1", "5", "0"}; fmt.Sprint(records[1]) != fmt.Sprint(want) {
		t.Errorf("Expected row %v, got %v", want, records[1])
	}
	if want := []string{"map", "repetition", "cycle", "x", "0", "0.25", "0.5"}; fmt.Sprint(records[0]) != fmt.Sprint(want) {
		t.Errorf("Expected header %v, got %v", want, records[0])
	}

	w = serve(server, makeRequest("GET", "/api/sessions/abcd/snapshots/0/grid.csv", nil))
	records, err = csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse csv: %v", err)
	}
	if want := []string{"1", "1", "0", "base", "grass", "blocked"}; fmt.Sprint(records[1]) != fmt.Sprint(want) {
		t.Errorf("Expected row %v, got %v", want, records[1])
	}

	w = serve(server, makeRequest("GET", "/api/sessions/abcd/snapshots/2/histogram", nil))
	var hist struct {
		Bins []engine.HistogramBin `json:"bins"`
	}
	parseResponse(t, w, &hist)
	if len(hist.Bins) == 0 {
		t.Error("Expected histogram bins")
	}

	if fmt.Sprint(requested) != "[2 9 2 0 2]" {
		t.Errorf("Unexpected cycles requested: %v", requested)
	}
}

// Configuration Tests

func TestConfigs(t *testing.T) {
	var saved *engine.SimulationConfig
	mockService := &MockSimulationService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "default", Name: "Default Lawn"}}, nil
		},
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.SimulationConfig, error) {
			if configName != "garden" {
				return nil, fmt.Errorf("config not found")
			}
			return &engine.SimulationConfig{Name: "Garden"}, nil
		},
		SaveConfigFunc: func(ctx context.Context, configName string, cfg *engine.SimulationConfig) error {
			saved = cfg
			return engine.ValidateConfig(cfg)
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("GET", "/api/configs", nil))
	var configs []*service.ConfigInfo
	parseResponse(t, w, &configs)
	if len(configs) != 1 || configs[0].ConfigID != "default" {
		t.Errorf("Unexpected configs %+v", configs)
	}

	for _, path := range []string{"/api/configs/garden", "/api/configs/garden.yaml"} {
		if w := serve(server, makeRequest("GET", path, nil)); w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, w.Code)
		}
	}
	if w := serve(server, makeRequest("GET", "/api/configs/nope", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	cfg := engine.DefaultConfig()
	cfg.Name = "posted"
	w = serve(server, makeRequest("POST", "/api/configs", cfg))
	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if saved == nil || saved.Name != "posted" {
		t.Errorf("Expected config to be saved, got %+v", saved)
	}

	cfg.Robot.Autonomy = 0
	if w := serve(server, makeRequest("POST", "/api/configs", cfg)); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", w.Code)
	}
	if w := serve(server, makeRequest("POST", "/api/configs", map[string]string{"description": "anonymous"})); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	w := serve(setupTestServer(&MockSimulationService{}), makeRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestWebSocketRequiresSession(t *testing.T) {
	mockService := &MockSimulationService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			return nil, fmt.Errorf("session not found")
		},
	}
	server := setupTestServer(mockService)

	if w := serve(server, makeRequest("GET", "/ws", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/ws?session=gone", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// End-to-end through the real service stack

func TestServerWithRealService(t *testing.T) {
	configs, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	base := engine.Position{Row: 0, Col: 0}
	cfg := &engine.SimulationConfig{
		Name:        "Strip",
		Cycles:      2,
		Grid:        engine.GridConfig{Rows: 1, Cols: 6},
		Robot:       engine.RobotConfig{Count: 1, Autonomy: 5, InitialHeading: "e"},
		BaseStation: engine.BaseStationConfig{Strategy: engine.BaseManual, Position: &base},
		Environment: engine.EnvironmentConfig{Mode: engine.EnvironmentExplicit},
	}
	if err := configs.SaveConfig("strip", cfg); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	server := setupTestServer(service.NewSimulationService(session.NewManager(), configs))

	w := serve(server, makeRequest("POST", "/api/sessions", map[string]string{"config_id": "strip"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var info service.SessionInfo
	parseResponse(t, w, &info)

	w = serve(server, makeRequest("POST", "/api/sessions/"+info.ID+"/step", map[string]int{"ticks": 5}))
	var step service.StepResult
	parseResponse(t, w, &step)
	if step.TicksExecuted != 5 {
		t.Errorf("Expected 5 ticks, got %d", step.TicksExecuted)
	}
	if step.Status.CompletedCycles != 1 {
		t.Errorf("Expected first cycle complete, got %d", step.Status.CompletedCycles)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/"+info.ID+"/complete", nil))
	parseResponse(t, w, &step)
	if !step.Finished {
		t.Errorf("Expected finished run, got %+v", step.Status)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/"+info.ID+"/snapshots", nil))
	var snaps struct {
		Count int `json:"count"`
	}
	parseResponse(t, w, &snaps)
	if snaps.Count != 2 {
		t.Errorf("Expected 2 snapshots, got %d", snaps.Count)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/"+info.ID+"/snapshots/1/passes.csv", nil))
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse csv: %v", err)
	}
	if want := "[1 1 1 0 0 1 1 1 1 1]"; fmt.Sprint(records[1]) != want {
		t.Errorf("Expected cycle 1 passes %s, got %v", want, records[1])
	}
}
