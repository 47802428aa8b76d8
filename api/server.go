package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/mowersim/export"
	"github.com/wricardo/mowersim/sim/engine"
	"github.com/wricardo/mowersim/sim/service"
	"github.com/wricardo/mowersim/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.SimulationService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server
func NewServer(simService service.SimulationService, hub *websocket.Hub) *Server {
	s := &Server{
		service: simService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Simulation operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/step", s.handleStep).Methods("POST")
	api.HandleFunc("/sessions/{id}/complete", s.handleRunToCompletion).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Snapshots
	api.HandleFunc("/sessions/{id}/snapshots", s.handleListSnapshots).Methods("GET")
	api.HandleFunc("/sessions/{id}/snapshots/{cycle:[0-9]+}", s.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/sessions/{id}/snapshots/{cycle:[0-9]+}/passes.csv", s.handlePassesCSV).Methods("GET")
	api.HandleFunc("/sessions/{id}/snapshots/{cycle:[0-9]+}/grid.csv", s.handleGridCSV).Methods("GET")
	api.HandleFunc("/sessions/{id}/snapshots/{cycle:[0-9]+}/histogram", s.handleHistogram).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps service errors onto HTTP status codes
func errorStatus(err error) int {
	var perr *engine.PlacementError
	switch {
	case errors.Is(err, engine.ErrInvalidConfig), errors.As(err, &perr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrSnapshotNotFound):
		return http.StatusNotFound
	case strings.Contains(err.Error(), "not found"):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func cycleParam(r *http.Request) int {
	cycle, _ := strconv.Atoi(mux.Vars(r)["cycle"])
	return cycle
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"`
		Seed       *int64 `json:"seed,omitempty"`
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.ConfigName
	}

	session, err := s.service.CreateSession(r.Context(), configID, req.Seed)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	if configName := query.Get("config"); configName != "" {
		filtered := sessions[:0]
		for _, sess := range sessions {
			if sess.ConfigName == configName {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}
	total := len(sessions)

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Simulation Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetState(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	req := struct {
		Ticks int  `json:"ticks"`
		Reset bool `json:"reset,omitempty"`
	}{Ticks: 1}

	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := s.service.Step(r.Context(), sessionID, req.Ticks, req.Reset)
	if err != nil {
		if req.Ticks < 0 {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, errorStatus(err), err.Error())
		return
	}

	s.broadcast(sessionID, result)
	logStep("STEP", sessionID, result)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunToCompletion(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.RunToCompletion(r.Context(), sessionID)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	s.broadcast(sessionID, result)
	logStep("RUN", sessionID, result)
	respondJSON(w, http.StatusOK, result)
}

// broadcast pushes the new status and any finished cycles to websocket clients
func (s *Server) broadcast(sessionID string, result *service.StepResult) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastStatus(sessionID, result.Status)
	for _, e := range result.Events {
		if e.Type == service.EventCycleComplete {
			s.hub.BroadcastEvent(sessionID, websocket.EventCycleComplete, e)
		}
	}
}

// logStep prints a compact line per request for observability
func logStep(kind, sessionID string, result *service.StepResult) {
	st := result.Status
	stop := result.StopReasonCode
	if stop == "" {
		stop = "-"
	}
	log.Printf("[%s] session=%s exec=%d/%d state=%s cycle=%d tick=%d cut=%.1f%% stop=%s",
		kind, sessionID, result.TicksExecuted, result.RequestedTicks, st.State, st.Cycle, st.Tick, st.CycleCoverage*100, stop)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	if s.hub != nil {
		s.hub.BroadcastStatus(sessionID, state)
		s.hub.BroadcastEvent(sessionID, websocket.EventReset, nil)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Simulation reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}
	if robotStr := query.Get("robot"); robotStr != "" {
		if id, err := strconv.Atoi(robotStr); err == nil && id > 0 {
			opts.Robot = id
		}
	}

	history, err := s.service.GetHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Snapshot Handlers

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	snaps, err := s.service.ListSnapshots(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(snaps),
		"snapshots": snaps,
	})
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*engine.Snapshot, bool) {
	snap, err := s.service.GetSnapshot(r.Context(), mux.Vars(r)["id"], cycleParam(r))
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return nil, false
	}
	return snap, true
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePassesCSV(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	cumulative, _ := strconv.ParseBool(r.URL.Query().Get("cumulative"))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("cycle_%d.csv", snap.Cycle)))
	if err := export.WritePassCSV(w, *snap, 1, 1, cumulative); err != nil {
		log.Printf("Warning: failed to write passes csv: %v", err)
	}
}

func (s *Server) handleGridCSV(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="grid.csv"`)
	if err := export.WriteGridCSV(w, *snap, 1, 1); err != nil {
		log.Printf("Warning: failed to write grid csv: %v", err)
	}
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	cumulative, _ := strconv.ParseBool(r.URL.Query().Get("cumulative"))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cycle":      snap.Cycle,
		"cumulative": cumulative,
		"bins":       snap.PassHistogram(cumulative),
	})
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := mux.Vars(r)["name"]
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		configName = strings.TrimSuffix(configName, ext)
	}

	config, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var simConfig engine.SimulationConfig

	if err := json.NewDecoder(r.Body).Decode(&simConfig); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if simConfig.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	if err := s.service.SaveConfig(r.Context(), simConfig.Name, &simConfig); err != nil {
		respondError(w, errorStatus(err), fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": simConfig.Name,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
