// Command analyze prints quick, human-readable heuristics about the
// configuration files in a configs directory. For each file it places the
// areas with the configured seed and summarizes free, blocked and isolated
// tiles, the base station, and how much of the lawn a robot can reach.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wricardo/mowersim/sim/config"
	"github.com/wricardo/mowersim/sim/engine"
)

// Summary is the analysis of one committed grid
type Summary struct {
	Name       string
	Rows, Cols int
	Free       int
	Blocked    int
	Isolated   int
	Openings   int
	GuideLines int
	Base       engine.Position
	Reachable  int
	// Farthest is the largest move distance from the base to a reachable tile
	Farthest int
	Autonomy int
}

// ReachableFraction is the share of free tiles the robots can reach
func (s Summary) ReachableFraction() float64 {
	if s.Free == 0 {
		return 0
	}
	return float64(s.Reachable) / float64(s.Free)
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	files, err := config.Files(dir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analyzeConfig(os.Stdout, file)
	}
}

// summarize builds the grid of cfg with its own seed and counts its tiles
func summarize(cfg *engine.SimulationConfig) (Summary, error) {
	grid, err := engine.Initialize(cfg, engine.NewRand(cfg.Seed))
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		Name:       cfg.Name,
		Rows:       grid.Rows(),
		Cols:       grid.Cols(),
		GuideLines: grid.CountResource(engine.GuideLine),
		Autonomy:   cfg.Robot.Autonomy,
	}
	s.Base, _ = grid.Base()

	for _, a := range grid.Areas() {
		if a.Kind == engine.Isolated {
			s.Isolated += len(a.Footprint())
			s.Openings += len(a.Openings)
		}
	}
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			if grid.IsBlocked(engine.Position{Row: r, Col: c}) {
				s.Blocked++
			} else {
				s.Free++
			}
		}
	}

	reachable := grid.Reachable(s.Base, cfg.Robot.BounceMode.Directions())
	s.Reachable = reachable.Size()
	reachable.Each(func(p engine.Position) {
		s.Farthest = max(s.Farthest, engine.ManhattanDistance(s.Base, p))
	})
	return s, nil
}

func analyzeConfig(w io.Writer, path string) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		fmt.Fprintf(w, "Error loading config: %v\n", err)
		return
	}
	s, err := summarize(cfg)
	if err != nil {
		fmt.Fprintf(w, "Error placing areas: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Name: %s\n", s.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", s.Rows, s.Cols)
	fmt.Fprintf(w, "Base Station: %s\n", s.Base)
	fmt.Fprintf(w, "Free Tiles: %d\n", s.Free)
	fmt.Fprintf(w, "Blocked Tiles: %d\n", s.Blocked)
	fmt.Fprintf(w, "Isolated Tiles: %d (%d openings)\n", s.Isolated, s.Openings)
	fmt.Fprintf(w, "Guide Line Tiles: %d\n", s.GuideLines)
	fmt.Fprintf(w, "Reachable Tiles: %d (%.1f%% of free lawn)\n", s.Reachable, s.ReachableFraction()*100)

	if s.Reachable < s.Free {
		fmt.Fprintf(w, "⚠️  WARNING: %d free tiles can never be cut from the base station\n", s.Free-s.Reachable)
	} else {
		fmt.Fprintf(w, "✅ Every free tile is reachable from the base station\n")
	}

	if s.Farthest > s.Autonomy {
		fmt.Fprintf(w, "⚠️  WARNING: farthest reachable tile is %d moves away, autonomy is %d\n", s.Farthest, s.Autonomy)
	} else {
		fmt.Fprintf(w, "✅ Every reachable tile is within one charge of the base station\n")
	}
}
