package config

import (
	"github.com/wricardo/mowersim/sim/engine"
)

// Check is the outcome of loading one config file and placing its areas
// with the configured seed
type Check struct {
	Path      string
	Config    *engine.SimulationConfig
	Reachable int
	Err       error
}

// CheckFile loads path and builds its grid. Err carries the
// *engine.ConfigError or *engine.PlacementError that stopped it.
func CheckFile(path string) Check {
	c := Check{Path: path}
	cfg, err := LoadFile(path)
	if err != nil {
		c.Err = err
		return c
	}
	c.Config = cfg

	grid, err := engine.Initialize(cfg, engine.NewRand(cfg.Seed))
	if err != nil {
		c.Err = err
		return c
	}
	base, _ := grid.Base()
	c.Reachable = grid.Reachable(base, cfg.Robot.BounceMode.Directions()).Size()
	return c
}

// CheckDir runs CheckFile on every config file in dir
func CheckDir(dir string) ([]Check, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	checks := make([]Check, 0, len(files))
	for _, path := range files {
		checks = append(checks, CheckFile(path))
	}
	return checks, nil
}
