// Command mowersim runs coverage simulations from configuration files and
// writes their results as CSV batches.
//
// Usage:
//
//	mowersim run [--seed N] [--repetitions N] [--output DIR] [--heatmap] CONFIG...
//	mowersim inspect [--seed N] [--csv] CONFIG
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mowersim/export"
	"github.com/wricardo/mowersim/sim/config"
	"github.com/wricardo/mowersim/sim/engine"
)

const version = "1.0.0"

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "mowersim",
		Usage:   "lawn mower coverage simulator",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "run every repetition of each config and export the results",
				ArgsUsage: "CONFIG...",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "base seed; repetition n uses seed+n-1 (default: the config seed)",
					},
					&cli.IntFlag{
						Name:    "repetitions",
						Aliases: []string{"n"},
						Usage:   "runs per config (default: the config repetitions)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "results",
						Usage:   "directory receiving the batch folder",
					},
					&cli.BoolFlag{
						Name:  "heatmap",
						Usage: "print the cumulative pass heatmap after each run",
					},
				},
				Action: runAction,
			},
			{
				Name:      "inspect",
				Usage:     "print the committed grid of a config",
				ArgsUsage: "CONFIG",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "placement seed (default: the config seed)",
					},
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "print the grid as CSV instead of a map",
					},
				},
				Action: inspectAction,
			},
		},
	}
}

// runOptions are the resolved flags of the run command
type runOptions struct {
	seed        *int64
	repetitions int
	output      string
	heatmap     bool
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() == 0 {
		return errors.New("run: at least one config file is required")
	}
	opts := runOptions{
		repetitions: cmd.Int("repetitions"),
		output:      cmd.String("output"),
		heatmap:     cmd.Bool("heatmap"),
	}
	if cmd.IsSet("seed") {
		seed := cmd.Int64("seed")
		opts.seed = &seed
	}
	if opts.repetitions < 0 {
		return errors.New("run: repetitions must not be negative")
	}

	batch, err := runBatch(ctx, cmd.Root().Writer, cmd.Args().Slice(), opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "Wrote %d runs to %s\n", len(batch.Runs), batch.Dir)
	return nil
}

// runBatch simulates each config file for its repetitions and writes one
// export batch holding all of them
func runBatch(ctx context.Context, w io.Writer, paths []string, opts runOptions) (*export.Batch, error) {
	// Parse everything up front so a typo in the last file fails before any output is written
	configs := make([]*engine.SimulationConfig, len(paths))
	for i, path := range paths {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		configs[i] = cfg
	}

	batch, err := export.NewBatch(opts.output)
	if err != nil {
		return nil, err
	}

	for i, base := range configs {
		reps := base.Repetitions
		if opts.repetitions > 0 {
			reps = opts.repetitions
		}
		seed := base.Seed
		if opts.seed != nil {
			seed = *opts.seed
		}

		for rep := 1; rep <= reps; rep++ {
			cfg := *base
			sim, err := engine.NewSimulation(&cfg,
				engine.WithSeed(seed+int64(rep-1)),
				engine.WithHistoryLimit(0))
			if err != nil {
				return nil, fmt.Errorf("%s (repetition %d): %w", paths[i], rep, err)
			}
			if err := sim.Run(ctx); err != nil {
				return nil, err
			}

			run, err := batch.WriteRun(i+1, rep, sim)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(w, "map %d rep %d: %s seed=%d cycles=%d ticks=%d coverage=%.1f%%\n",
				run.Map, run.Repetition, run.ConfigName, run.Seed, run.Cycles, run.Ticks, run.TotalCoverage*100)

			if opts.heatmap {
				if err := export.RenderHeatmap(w, sim.Snapshot(), export.TerminalOptions(true)); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := batch.WriteManifest(); err != nil {
		return nil, err
	}
	return batch, nil
}

func inspectAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return errors.New("inspect: exactly one config file is required")
	}
	cfg, err := config.LoadFile(cmd.Args().First())
	if err != nil {
		return err
	}
	var opts []engine.Option
	if cmd.IsSet("seed") {
		opts = append(opts, engine.WithSeed(cmd.Int64("seed")))
	}
	sim, err := engine.NewSimulation(cfg, opts...)
	if err != nil {
		return err
	}
	return inspect(cmd.Root().Writer, sim, cmd.Bool("csv"))
}

// inspect prints the placed areas and the grid of a simulation that has not started
func inspect(w io.Writer, sim *engine.Simulation, asCSV bool) error {
	snap := sim.Snapshot()
	if asCSV {
		return export.WriteGridCSV(w, snap, 1, 1)
	}

	cfg := sim.Config()
	fmt.Fprintf(w, "%s: %dx%d grid, seed %d, base station at %s\n", cfg.Name, snap.Rows, snap.Cols, sim.Seed(), snap.Base)
	for _, a := range snap.Areas {
		fmt.Fprintf(w, "  area %d: %s %s, %d tiles", a.ID, a.Kind, a.Shape, a.Size)
		if len(a.Openings) > 0 {
			fmt.Fprintf(w, ", openings %v", a.Openings)
		}
		fmt.Fprintln(w)
	}
	grid := sim.Grid()
	base, _ := grid.Base()
	reachable := grid.Reachable(base, cfg.Robot.BounceMode.Directions()).Size()
	fmt.Fprintf(w, "  reachable tiles: %d\n", reachable)

	return export.RenderHeatmap(w, snap, export.HeatmapOptions{})
}
