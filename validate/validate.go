// Command validate provides a small CLI that validates the simulation
// configuration files (.json, .yaml, .yml) in the ../configs directory. It checks:
//   - document syntax
//   - field ranges and enum values (ConfigError)
//   - area placement with the configured seed (PlacementError)
//   - connectivity: the base station is not walled in
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mowersim/sim/config"
	"github.com/wricardo/mowersim/sim/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration file: field
// checks first, then placement of every area with the configured seed.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	cfg, err := config.Parse(data, filepath.Ext(filePath))
	if err != nil {
		result.fail("Invalid document: %v", err)
		return result
	}

	if err := engine.ValidateConfig(cfg); err != nil {
		var cfgErr *engine.ConfigError
		if errors.As(err, &cfgErr) {
			result.fail("Invalid field %s: %s", cfgErr.Field, cfgErr.Reason)
		} else {
			result.fail("Invalid config: %v", err)
		}
		return result
	}

	grid, err := engine.Initialize(cfg, engine.NewRand(cfg.Seed))
	if err != nil {
		var perr *engine.PlacementError
		if errors.As(err, &perr) {
			result.fail("Placement error [%s]: %v", perr.Kind, err)
		} else {
			result.fail("Placement failed: %v", err)
		}
		return result
	}

	connectivity := validateConnectivity(grid, cfg.Robot.BounceMode)
	if !connectivity.Valid {
		result.Valid = false
	}
	result.Errors = append(result.Errors, connectivity.Errors...)

	if result.Valid {
		base, _ := grid.Base()
		isolated := 0
		for _, a := range grid.Areas() {
			if a.Kind == engine.Isolated {
				isolated++
			}
		}
		result.info("Name: %s", cfg.Name)
		result.info("Grid: %dx%d", cfg.Grid.Rows, cfg.Grid.Cols)
		result.info("Base station: %s (%s)", base, cfg.BaseStation.Strategy)
		result.info("Areas: %d (%d isolated)", len(grid.Areas()), isolated)
		result.info("Robots: %d, autonomy %d, %s/%s", cfg.Robot.Count, cfg.Robot.Autonomy, cfg.Robot.BounceMode, cfg.Robot.CuttingMode)
		result.info("Cycles: %d", cfg.Cycles)
	}

	return result
}

// validateConnectivity flood-fills from the base station with the headings
// of the bounce mode. A base that cannot leave its own tile is an error;
// lawn hidden behind blocked areas is reported but allowed.
func validateConnectivity(grid *engine.Grid, mode engine.BounceMode) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	base, ok := grid.Base()
	if !ok {
		result.fail("Cannot validate connectivity: no base station")
		return result
	}

	free := 0
	for r := 0; r < grid.Rows(); r++ {
		for c := 0; c < grid.Cols(); c++ {
			if !grid.IsBlocked(engine.Position{Row: r, Col: c}) {
				free++
			}
		}
	}
	reachable := grid.Reachable(base, mode.Directions()).Size()

	switch {
	case reachable <= 1 && free > 1:
		result.fail("Connectivity failure: base station at %s is walled in", base)
	case reachable < free:
		result.info("Connectivity: %d/%d free tiles reachable (%d cut off)", reachable, free, free-reachable)
	default:
		result.info("Connectivity: all %d free tiles reachable", free)
	}
	return result
}

// main scans a config directory (../configs unless given) and validates
// each file, printing a concise report and exiting with non-zero status if
// any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	files, err := config.Files(configDir)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
