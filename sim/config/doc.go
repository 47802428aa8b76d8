// Package config provides configuration management for the mowing simulator.
//
// The config package handles:
//   - Loading simulation configurations from JSON or YAML files
//   - Validation through engine.ValidateConfig
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Configurations live in a directory (configs/ by default) as .json, .yaml
// or .yml files. The file name without extension is the config id used when
// creating sessions. Each configuration defines:
//   - Grid dimensions and tile size
//   - Robot count, bounce and cutting modes, autonomy and cutting width
//   - Base station strategy
//   - Either explicit areas or ranges for random placement
//   - Seed, cycles and recharge policy
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg, err := manager.LoadConfig("isolated_garden")
//
//	// Standalone files, as used by the command-line tools
//	cfg, err = config.LoadFile("runs/lawn.yaml")
package config
