package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mowersim/sim/engine"
)

const validConfig = `{
	"name": "Test Config",
	"description": "Test configuration",
	"seed": 4,
	"cycles": 2,
	"grid": {"rows": 8, "cols": 8},
	"robot": {"count": 1, "bounce_mode": "pingpong", "autonomy": 20},
	"base_station": {"strategy": "manual", "position": {"row": 0, "col": 0}},
	"environment": {
		"areas": [
			{"kind": "squared_blocked", "center": {"row": 5, "col": 5}, "height": 2, "width": 2},
			{"kind": "isolated", "center": {"row": 2, "col": 5}, "height": 3, "width": 3,
			 "openings": [{"row": 3, "col": 5}]}
		]
	}
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	path := writeTemp(t, "valid.json", validConfig)

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected valid config, but got errors: %v", result.Errors)
	}
	if result.File != "valid.json" {
		t.Errorf("Expected file name valid.json, got %s", result.File)
	}

	joined := strings.Join(result.Errors, "\n")
	for _, want := range []string{
		"✓ Name: Test Config",
		"✓ Grid: 8x8",
		"✓ Base station: (0,0) (manual)",
		"✓ Areas: 2 (1 isolated)",
		"✓ Connectivity: all 60 free tiles reachable",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected info %q in %v", want, result.Errors)
		}
	}
}

func TestValidateConfig_YAML(t *testing.T) {
	path := writeTemp(t, "valid.yaml", `name: Yaml
grid: {rows: 4, cols: 4}
robot: {autonomy: 5}
base_station: {strategy: center}
environment: {mode: random}
`)
	result := validateConfig(path)
	if !result.Valid {
		t.Errorf("Expected valid YAML config, got errors: %v", result.Errors)
	}
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{
			name:    "invalid JSON",
			file:    "broken.json",
			content: `{"name": "test", invalid json}`,
			want:    "Invalid document",
		},
		{
			name:    "invalid YAML",
			file:    "broken.yaml",
			content: "name: [unterminated",
			want:    "Invalid document",
		},
		{
			name:    "zero autonomy",
			file:    "autonomy.json",
			content: `{"name": "x", "grid": {"rows": 4, "cols": 4}, "robot": {"autonomy": 0}}`,
			want:    "Invalid field robot.autonomy",
		},
		{
			name:    "unknown bounce mode",
			file:    "bounce.json",
			content: `{"name": "x", "grid": {"rows": 4, "cols": 4}, "robot": {"autonomy": 3, "bounce_mode": "zigzag"}}`,
			want:    "Invalid field robot.bounce_mode",
		},
		{
			name: "area covers the base station",
			file: "overlap.json",
			content: `{"name": "x", "grid": {"rows": 6, "cols": 6}, "robot": {"autonomy": 3},
				"base_station": {"strategy": "manual", "position": {"row": 2, "col": 2}},
				"environment": {"areas": [{"kind": "squared_blocked", "center": {"row": 2, "col": 2}, "height": 3, "width": 3}]}}`,
			want: "Placement error [overlap]",
		},
		{
			name: "area out of bounds",
			file: "bounds.json",
			content: `{"name": "x", "grid": {"rows": 6, "cols": 6}, "robot": {"autonomy": 3},
				"base_station": {"strategy": "manual", "position": {"row": 0, "col": 0}},
				"environment": {"areas": [{"kind": "circled_blocked", "center": {"row": 5, "col": 5}, "radius": 2}]}}`,
			want: "Placement error [out_of_bounds]",
		},
		{
			name: "random placement unsatisfiable",
			file: "crowded.json",
			content: `{"name": "x", "grid": {"rows": 5, "cols": 5}, "robot": {"autonomy": 3},
				"environment": {"mode": "random", "random": {"max_attempts": 5,
					"squares": {"count": 4, "min_height": 4, "max_height": 4, "min_width": 4, "max_width": 4}}}}`,
			want: "Placement error [unsatisfiable]",
		},
		{
			name: "walled in base",
			file: "walled.json",
			content: `{"name": "x", "grid": {"rows": 4, "cols": 4}, "robot": {"autonomy": 3},
				"base_station": {"strategy": "manual", "position": {"row": 0, "col": 0}},
				"environment": {"areas": [{"kind": "squared_blocked", "tiles": [{"row": 0, "col": 1}, {"row": 1, "col": 0}]}]}}`,
			want: "is walled in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateConfig(writeTemp(t, tt.file, tt.content))
			if result.Valid {
				t.Fatal("Expected invalid config")
			}
			if !containsPrefix(result.Errors, tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig(filepath.Join(t.TempDir(), "nonexistent.json"))
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !containsPrefix(result.Errors, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestValidateConnectivity(t *testing.T) {
	tests := []struct {
		name  string
		tiles []engine.Position
		valid bool
		want  string
	}{
		{"open lawn", nil, true, "✓ Connectivity: all 16 free tiles reachable"},
		{
			"wall cuts off a column",
			[]engine.Position{{Row: 0, Col: 2}, {Row: 1, Col: 2}, {Row: 2, Col: 2}, {Row: 3, Col: 2}},
			true,
			"✓ Connectivity: 8/12 free tiles reachable (4 cut off)",
		},
		{
			"base walled in",
			[]engine.Position{{Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 1}},
			false,
			"Connectivity failure: base station at (0,0) is walled in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := engine.NewGrid(4, 4)
			if err := grid.SetBase(engine.Position{Row: 0, Col: 0}); err != nil {
				t.Fatalf("SetBase failed: %v", err)
			}
			if len(tt.tiles) > 0 {
				if err := grid.Commit(engine.NewTileArea(engine.SquaredBlocked, tt.tiles)); err != nil {
					t.Fatalf("Commit failed: %v", err)
				}
			}

			result := validateConnectivity(grid, engine.PingPong)
			if result.Valid != tt.valid {
				t.Errorf("Expected valid=%v, got %v (%v)", tt.valid, result.Valid, result.Errors)
			}
			if !containsPrefix(result.Errors, tt.want) {
				t.Errorf("Expected %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestValidateConnectivity_NoBase(t *testing.T) {
	result := validateConnectivity(engine.NewGrid(3, 3), engine.Random)
	if result.Valid {
		t.Error("Expected invalid result without a base station")
	}
}

func TestBundledConfigs(t *testing.T) {
	dir := filepath.Join("..", "configs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Skip("configs directory not found")
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		t.Run(entry.Name(), func(t *testing.T) {
			result := validateConfig(filepath.Join(dir, entry.Name()))
			if !result.Valid {
				t.Errorf("Expected bundled config to be valid, got %v", result.Errors)
			}
		})
	}
}

func containsPrefix(messages []string, want string) bool {
	for _, m := range messages {
		if strings.Contains(m, want) {
			return true
		}
	}
	return false
}
