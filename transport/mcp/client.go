package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mowersim/export"
	"github.com/wricardo/mowersim/sim/engine"
	"github.com/wricardo/mowersim/sim/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Mower Coverage Simulator",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Mower Coverage Simulator - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A simulation places obstacles on a lawn grid, then lets battery-limited
mowing robots bounce around it for a number of charge cycles. Each cycle
ends when the robots run flat and return to the base station.

AVAILABLE TOOLS:
- create_session: Create a simulation from a config (optional seed)
- list_sessions / get_session: Inspect sessions
- simulation_state: Scheduler state, cycle, tick and coverage
- step: Advance a number of ticks
- run_to_completion: Run every remaining cycle
- reset_simulation: Rebuild the lawn from the same seed
- tick_history: Page through robot moves
- get_snapshot: Coverage heatmap of a finished cycle (0 = live)
- list_configs: Available configurations
- describe_tile: What a tile is and how often it was cut
- simulation_instructions: Detailed explanation of the model`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new simulation session with optional config and seed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use (optional, defaults to the default config)",
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Random seed (optional, defaults to the config seed)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all simulation sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Simulation operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulation_state",
		Description: "Get the scheduler state, cycle, tick and coverage of a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleSimulationState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step",
		Description: "Advance the simulation by a number of ticks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"ticks": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Ticks to run (default 1, at most %d)", service.MaxStepTicks),
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before stepping",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleStep)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_to_completion",
		Description: "Run every remaining cycle of the simulation",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleRunToCompletion)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_simulation",
		Description: "Reset the simulation to its initial state with the same seed",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick_history",
		Description: "Get the recorded robot moves of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"robot": map[string]interface{}{
					"type":        "integer",
					"description": "Only moves of this robot ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTickHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_snapshot",
		Description: "Render the coverage heatmap of a cycle snapshot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"cycle": map[string]interface{}{
					"type":        "integer",
					"description": "Cycle number, 0 for the live state",
				},
				"cumulative": map[string]interface{}{
					"type":        "boolean",
					"description": "Show passes summed over every cycle so far",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSnapshot)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available simulation configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulation_instructions",
		Description: "Get a detailed explanation of the simulation model",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_tile",
		Description: "Describe a tile of the lawn: what it is, whether robots can reach it and how often it was cut",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the tile (0-based)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the tile (0-based)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleDescribeTile)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, name string) (int, bool) {
	v, ok := args[name].(float64)
	return int(v), ok
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if configID, _ := args["config_id"].(string); configID != "" {
		body["config_id"] = configID
	}
	if seed, ok := args["seed"].(float64); ok {
		body["seed"] = int64(seed)
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\nSeed: %d\n", session.ID, session.ConfigName, session.Seed)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		state := "unknown"
		if s.Status != nil {
			state = string(s.Status.State)
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Seed: %d, State: %s, Created: %s)\n",
			s.ID, s.ConfigName, s.Seed, state, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleSimulationState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var status engine.SimulationStatus
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStatus(&status)), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	reset, _ := args["reset"].(bool)
	ticks, ok := intArg(args, "ticks")
	if !ok {
		ticks = 1
	}

	body := map[string]interface{}{
		"ticks": ticks,
		"reset": reset,
	}

	var result service.StepResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/step"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStepResult(&result)), nil
}

func (c *Client) handleRunToCompletion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.StepResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/complete"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStepResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string                   `json:"message"`
		State   *engine.SimulationStatus `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatStatus(response.State))), nil
}

func (c *Client) handleTickHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	for _, name := range []string{"page", "limit", "robot"} {
		if v, ok := intArg(args, name); ok {
			params.Set(name, fmt.Sprint(v))
		}
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleGetSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	cycle, _ := intArg(args, "cycle")
	cumulative, _ := args["cumulative"].(bool)

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, fmt.Sprintf("/snapshots/%d", cycle)), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if err := export.RenderHeatmap(&b, snap, export.HeatmapOptions{Cumulative: cumulative, ShowRobots: cycle == 0}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b.WriteString(heatmapLegend)
	return mcp.NewToolResultText(b.String()), nil
}

const heatmapLegend = `
Legend: B = base station, R = robot, # = blocked, . = never cut,
1-5 = pass count relative to the most cut tile (5 = most)
`

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available Configurations (%d):\n\n", len(configs))
	for _, cfg := range configs {
		fmt.Fprintf(&b, "- %s: %s (%dx%d, %d cycles, %d robots, autonomy %d)\n",
			cfg.ConfigID, cfg.Name, cfg.Rows, cfg.Cols, cfg.Cycles, cfg.Robots, cfg.Autonomy)
		if cfg.Description != "" {
			fmt.Fprintf(&b, "  %s\n", cfg.Description)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `MOWER COVERAGE SIMULATOR

THE LAWN
The lawn is a grid of tiles. Configurations place obstacles on it:
- blocked areas (squares or circles) that robots can never enter
- isolated areas whose walls can only be crossed through an opening tile
- a base station where every robot starts and recharges
Guideline tiles mark the perimeter and the rings around obstacles.

THE ROBOTS
Each tick every robot with charge left moves one tile along its heading.
When the next tile is off the lawn, blocked, or a wall of an isolated area:
- ping-pong robots reverse their heading
- random robots pick a new heading, trying up and left first
A move costs autonomy. A robot that cannot move at all waits for free.
The blade cuts the tile it enters (wider blades also cut beside it).

CYCLES
exploring -> running -> recharging -> cycle_complete -> running ... -> finished
- exploring: reachable tiles are counted once, from the base station
- running: robots move until their autonomy is spent (or the tick bound)
- recharging: robots return to base and refill
- cycle_complete: a snapshot of the cycle is frozen
- finished: the configured number of cycles is done

COVERAGE
Every snapshot has two pass-count layers: passes in that cycle, and passes
summed over all cycles so far. Coverage is the share of reachable tiles cut
at least once.

RUNNING A SIMULATION
1. create_session (optionally with config_id and seed)
2. step a few ticks or run_to_completion
3. get_snapshot for each cycle to see where the lawn was cut
4. describe_tile to inspect single tiles
The same config and seed always reproduce the same run.`

func (c *Client) handleDescribeTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	row, rowOK := intArg(args, "row")
	col, colOK := intArg(args, "col")
	if !rowOK || !colOK {
		return mcp.NewToolResultError("row and col are required"), nil
	}

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/snapshots/0"), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if row < 0 || row >= snap.Rows || col < 0 || col >= snap.Cols {
		return mcp.NewToolResultError(fmt.Sprintf("Tile (%d, %d) is out of bounds. The lawn has %d rows and %d columns",
			row, col, snap.Rows, snap.Cols)), nil
	}

	return mcp.NewToolResultText(describeTile(&snap, engine.Position{Row: row, Col: col})), nil
}

func describeTile(snap *engine.Snapshot, p engine.Position) string {
	label := export.TileLabel(*snap, p)
	var description string
	switch label {
	case export.LabelBase:
		description = "Base station - robots start and recharge here"
	case export.LabelBlocked:
		description = "Blocked obstacle - robots can never enter"
	case export.LabelOpening:
		description = "Opening - the only way through the wall of an isolated area"
	case export.LabelGuide:
		description = "Guideline - lawn along the perimeter or around an obstacle"
	case export.LabelIsolated:
		description = "Inside an isolated area - reachable only through its opening"
	default:
		description = "Open lawn"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tile (%d, %d):\n", p.Row, p.Col)
	fmt.Fprintf(&b, "Type: %s\n", label)
	fmt.Fprintf(&b, "Description: %s\n", description)
	if id := snap.AreaIDs[p.Row][p.Col]; id > 0 && id <= len(snap.Areas) {
		area := snap.Areas[id-1]
		fmt.Fprintf(&b, "Area: #%d %s (%s, %d tiles)\n", area.ID, area.Kind, area.Shape, area.Size)
	}
	if !snap.Blocked[p.Row][p.Col] {
		fmt.Fprintf(&b, "Passes this cycle: %d\n", snap.CyclePasses[p.Row][p.Col])
		fmt.Fprintf(&b, "Passes in total: %d\n", snap.TotalPasses[p.Row][p.Col])
	}
	for _, r := range snap.Robots {
		if r.Pos == p {
			fmt.Fprintf(&b, "Robot %d is here (heading %s, autonomy %d/%d)\n", r.ID, r.Heading, r.Autonomy, r.Capacity)
		}
	}
	return b.String()
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nSeed: %d\nCreated: %s\n\n%s",
		session.ID, session.ConfigName, session.Seed,
		session.CreatedAt.Format(time.RFC3339),
		formatStatus(session.Status))
}

func formatStatus(status *engine.SimulationStatus) string {
	if status == nil {
		return "Status: unavailable"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "State: %s\n", status.State)
	fmt.Fprintf(&b, "Cycle: %d (completed %d)\n", status.Cycle, status.CompletedCycles)
	fmt.Fprintf(&b, "Tick: %d\n", status.Tick)
	fmt.Fprintf(&b, "Base station: %s\n", status.Base)
	if status.ReachableTiles > 0 {
		fmt.Fprintf(&b, "Coverage this cycle: %d/%d tiles (%.1f%%)\n",
			status.CycleCovered, status.ReachableTiles, status.CycleCoverage*100)
		fmt.Fprintf(&b, "Coverage overall: %d/%d tiles (%.1f%%)\n",
			status.TotalCovered, status.ReachableTiles, status.TotalCoverage*100)
	}
	for _, r := range status.Robots {
		fmt.Fprintf(&b, "Robot %d at %s heading %s, autonomy %d/%d, %s\n",
			r.ID, r.Pos, r.Heading, r.Autonomy, r.Capacity, r.State)
	}
	if status.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", status.Message)
	}
	return b.String()
}

func formatStepResult(result *service.StepResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Executed %d/%d ticks", result.TicksExecuted, result.RequestedTicks)
	if result.StopReasonCode != "" {
		fmt.Fprintf(&b, " (stopped: %s)", result.StopReasonCode)
	}
	if result.Truncated {
		fmt.Fprintf(&b, " (truncated to %d)", result.Limit)
	}
	b.WriteString("\n")

	if len(result.Events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, e := range result.Events {
			fmt.Fprintf(&b, "- [tick %d] %s\n", e.Tick, e.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatStatus(result.Status))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tick History (Page %d/%d), %d moves recorded\n\n",
		history.Page, history.TotalPages, history.TotalTicks)

	for _, rec := range history.Ticks {
		outcome := "moved"
		switch {
		case rec.Bounced && rec.Moved:
			outcome = "bounced"
		case !rec.Moved:
			outcome = string(rec.State)
		}
		fmt.Fprintf(&b, "tick %d cycle %d robot %d: %s -> %s heading %s (%s)\n",
			rec.Tick, rec.Cycle, rec.RobotID, rec.From, rec.To, rec.Heading, outcome)
	}
	if len(history.Ticks) == 0 {
		b.WriteString("(no moves recorded)\n")
	}
	return b.String()
}
