// Package engine implements the lawn-mower coverage simulation.
//
// The engine package covers:
//   - Grid construction with blocked and isolated areas, openings and a base station
//   - Robot movement with PingPong and Random bounce strategies
//   - Per-tile coverage counting, per cycle and cumulative
//   - The autonomy and cycle scheduler (Exploring, Running, Recharging,
//     CycleComplete, Finished)
//   - Immutable snapshots for export collaborators
//
// Core Types:
//
// The Engine interface defines the main contract, implemented by Simulation.
// Grid owns tiles, areas and robot occupancy; Scheduler advances robots in
// ascending id order; SimulationConfig describes a run and is validated by
// ValidateConfig.
//
// Usage:
//
//	cfg := engine.DefaultConfig()
//	sim, err := engine.NewSimulation(cfg, engine.WithSeed(42))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := sim.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
//	for _, snap := range sim.CycleSnapshots() {
//		fmt.Println(snap.Cycle, snap.TotalCovered)
//	}
//
// Randomness:
//
// Every random draw (area placement, openings, base station, headings) comes
// from a single PCG source seeded by the configuration, so the same
// configuration and seed always produce the same trajectories and coverage.
package engine
