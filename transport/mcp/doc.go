// Package mcp exposes the simulator to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call is translated into a request
// against the REST API served by package api, so agents and browsers see
// the same sessions.
//
// MCP Tools:
//   - create_session: Create a session from a config, with an optional seed
//   - list_sessions / get_session: Inspect sessions
//   - simulation_state: Scheduler state, cycle, tick and coverage
//   - step: Advance a number of ticks, optionally after a reset
//   - run_to_completion: Run every remaining cycle
//   - reset_simulation: Rebuild the lawn from the session seed
//   - tick_history: Page through recorded robot moves
//   - get_snapshot: Text heatmap of a cycle snapshot (cycle 0 is live)
//   - list_configs: Available configurations
//   - describe_tile: Kind, area and pass counts of one tile
//   - simulation_instructions: Explanation of the model
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
