// Package api provides the HTTP REST API for the mower simulator.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "...", "seed": 42})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N&config=ID)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Simulation:
//   - GET /api/sessions/{id}/state - Current scheduler status and coverage
//   - POST /api/sessions/{id}/step - Advance ({"ticks": N, "reset": false})
//   - POST /api/sessions/{id}/complete - Run until every cycle is done
//   - POST /api/sessions/{id}/reset - Rebuild the lawn from the session seed
//   - GET /api/sessions/{id}/history - Paginated tick trajectory (?page&limit&order&robot)
//
// Snapshots (cycle 0 is a live snapshot):
//   - GET /api/sessions/{id}/snapshots - Summaries of finished cycles
//   - GET /api/sessions/{id}/snapshots/{cycle} - Full snapshot as JSON
//   - GET /api/sessions/{id}/snapshots/{cycle}/passes.csv - Pass counts (?cumulative=true)
//   - GET /api/sessions/{id}/snapshots/{cycle}/grid.csv - Tile labels
//   - GET /api/sessions/{id}/snapshots/{cycle}/histogram - Pass-count histogram
//
// Configuration:
//   - GET /api/configs - List configurations
//   - POST /api/configs - Validate and save a configuration
//   - GET /api/configs/{name} - Load a configuration
//
// WebSocket:
//   - GET /ws?session={id} - Status updates and cycle_complete events
//
// Errors are returned as JSON with an HTTP status code:
//
//	{"error": "error message"}
//
// Invalid configurations and placement failures map to 422, unknown
// sessions, configs and snapshots to 404.
package api
