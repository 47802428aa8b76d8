// Package session provides session management for the mowing simulator.
//
// A session is one simulation run: a validated configuration, a seed and the
// engine.Simulation built from them. The package implements:
//   - Thread-safe session storage and retrieval
//   - 4-character session ID generation
//   - Expiration of idle sessions
//   - Optional file persistence
//
// Persistence:
//
// FilePersistence stores the config id, the seed and the tick count of each
// session. Loading rebuilds the simulation from the same config and seed and
// replays it to the saved tick, which reproduces the exact state because a
// run is fully determined by those values.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", "default", cfg, cfg.Seed)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
package session
