package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/mowersim/sim/engine"
)

// Batch groups the output files of one command-line run
type Batch struct {
	ID        uuid.UUID     `json:"id"`
	Dir       string        `json:"dir"`
	CreatedAt time.Time     `json:"created_at"`
	Runs      []RunManifest `json:"runs"`
}

// RunManifest describes the files written for one repetition of one map
type RunManifest struct {
	Map           int      `json:"map"`
	Repetition    int      `json:"repetition"`
	ConfigName    string   `json:"config_name"`
	Seed          int64    `json:"seed"`
	Cycles        int      `json:"cycles"`
	Ticks         int      `json:"ticks"`
	TotalCoverage float64  `json:"total_coverage"`
	Files         []string `json:"files"`
}

// NewBatch creates a fresh output directory below root
func NewBatch(root string) (*Batch, error) {
	b := &Batch{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
	}
	b.Dir = filepath.Join(root, fmt.Sprintf("%s_%s", b.CreatedAt.Format("2006-01-02_15-04-05"), b.ID.String()[:8]))
	if err := os.MkdirAll(b.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create batch directory: %w", err)
	}
	return b, nil
}

// WriteRun writes the grid, the per-cycle pass counts and histograms of a
// finished simulation and records them in the manifest
func (b *Batch) WriteRun(mapIndex, repetition int, sim engine.Engine) (*RunManifest, error) {
	status := sim.Status()
	run := RunManifest{
		Map:           mapIndex,
		Repetition:    repetition,
		ConfigName:    sim.Config().Name,
		Seed:          sim.Seed(),
		Cycles:        status.CompletedCycles,
		Ticks:         status.Tick,
		TotalCoverage: status.TotalCoverage,
	}
	prefix := fmt.Sprintf("map%d_rep%d", mapIndex, repetition)

	snaps := sim.CycleSnapshots()
	gridSnap := sim.Snapshot()
	if len(snaps) > 0 {
		gridSnap = snaps[0]
	}
	if err := b.writeFile(&run, prefix+"_grid.csv", func(f *os.File) error {
		return WriteGridCSV(f, gridSnap, mapIndex, repetition)
	}); err != nil {
		return nil, err
	}

	for _, snap := range snaps {
		name := fmt.Sprintf("%s_cycle_%d", prefix, snap.Cycle)
		if err := b.writeFile(&run, name+".csv", func(f *os.File) error {
			return WritePassCSV(f, snap, mapIndex, repetition, false)
		}); err != nil {
			return nil, err
		}
		if err := b.writeFile(&run, name+"_hist.csv", func(f *os.File) error {
			return WriteHistogramCSV(f, snap.PassHistogram(false))
		}); err != nil {
			return nil, err
		}
	}

	if n := len(snaps); n > 0 {
		if err := b.writeFile(&run, prefix+"_total.csv", func(f *os.File) error {
			return WritePassCSV(f, snaps[n-1], mapIndex, repetition, true)
		}); err != nil {
			return nil, err
		}
	}

	b.Runs = append(b.Runs, run)
	return &run, nil
}

func (b *Batch) writeFile(run *RunManifest, name string, write func(*os.File) error) error {
	f, err := os.Create(filepath.Join(b.Dir, name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	run.Files = append(run.Files, name)
	return nil
}

// WriteManifest saves the batch description as manifest.json
func (b *Batch) WriteManifest() error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(b.Dir, "manifest.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
