// Package service provides the business logic layer for the mowing simulator.
//
// The service package implements:
//   - Multi-session simulation management
//   - Configuration listing and loading
//   - Tick stepping, run-to-completion and reset
//   - Trajectory history and per-cycle snapshot retrieval
//
// Core Interfaces:
//
// SimulationService is the main service interface providing high-level
// simulation operations. SessionManager handles session creation, retrieval
// and lifecycle. ConfigManager loads and validates simulation configurations.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the simulation engine. Each session owns its own engine.Simulation built
// from a config and a seed, so sessions never share random state.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr := config.NewManager("configs")
//	svc := service.NewSimulationService(sessionMgr, configMgr)
//
//	info, err := svc.CreateSession(ctx, "default", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := svc.Step(ctx, info.ID, 50, false)
//
// Sessions are identified by 4-character IDs. Because a simulation is fully
// determined by its config and seed, a session can be rebuilt from those two
// values plus its tick count.
package service
