package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/mowersim/sim/engine"
)

func createValidConfig() *engine.SimulationConfig {
	base := engine.Position{Row: 0, Col: 0}
	return &engine.SimulationConfig{
		Name:        "Test Config",
		Description: "Test configuration",
		Seed:        42,
		Cycles:      2,
		Grid:        engine.GridConfig{Rows: 8, Cols: 8, TileSize: 0.5},
		Robot: engine.RobotConfig{
			Count:       1,
			BounceMode:  engine.PingPong,
			CuttingMode: engine.CuttingRandom,
			Autonomy:    20,
		},
		BaseStation: engine.BaseStationConfig{Strategy: engine.BaseManual, Position: &base},
		Environment: engine.EnvironmentConfig{
			Mode: engine.EnvironmentExplicit,
			Areas: []engine.AreaSpec{
				{Kind: engine.SquaredBlocked, Center: engine.Position{Row: 4, Col: 4}, Height: 2, Width: 2},
			},
		},
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.SimulationConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

const yamlConfig = `name: Isolated Garden
description: Garden bed with one gap
seed: 9
cycles: 3
grid:
  rows: 12
  cols: 12
  tile_size: 0.25
robot:
  count: 2
  bounce_mode: random
  cutting_mode: free
  autonomy: 80
  initial_heading: north-east
base_station:
  strategy: center
environment:
  areas:
    - kind: isolated
      center: {row: 3, col: 3}
      height: 3
      width: 3
      openings:
        - {row: 4, col: 3}
    - kind: circled_blocked
      center: {row: 9, col: 9}
      radius: 1
`

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		defaultConfig := createValidConfig()
		defaultConfig.Name = "Default"
		writeConfigFile(t, dir, "default", defaultConfig)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Default" {
			t.Errorf("Expected default config 'Default', got %q", got)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("missing default config", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed even without config files, got error: %v", err)
		}
		def := manager.GetDefault()
		if def == nil {
			t.Fatal("Expected default config to be available")
		}
		if err := engine.ValidateConfig(def); err != nil {
			t.Errorf("Expected minimal default to be valid, got %v", err)
		}
	})

	t.Run("first config when no default", func(t *testing.T) {
		dir := t.TempDir()
		cfg := createValidConfig()
		cfg.Name = "Alpha"
		writeConfigFile(t, dir, "alpha", cfg)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Alpha" {
			t.Errorf("Expected first config as default, got %q", got)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "default", createValidConfig())
	if err := os.WriteFile(filepath.Join(dir, "garden.yaml"), []byte(yamlConfig), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	invalid := createValidConfig()
	invalid.Robot.Autonomy = 0
	writeConfigFile(t, dir, "invalid", invalid)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("json by id", func(t *testing.T) {
		cfg, err := manager.LoadConfig("default")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.MaxTicksPerCycle != 80 {
			t.Errorf("Expected normalized tick bound 80, got %d", cfg.MaxTicksPerCycle)
		}
	})

	t.Run("yaml by id", func(t *testing.T) {
		cfg, err := manager.LoadConfig("garden")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Name != "Isolated Garden" || cfg.Robot.Count != 2 {
			t.Errorf("Unexpected config: %+v", cfg)
		}
		if cfg.Environment.Mode != engine.EnvironmentExplicit {
			t.Errorf("Expected explicit mode, got %q", cfg.Environment.Mode)
		}
		if cfg.Environment.Areas[1].Shape != engine.ShapeCircle {
			t.Errorf("Expected inferred circle shape, got %q", cfg.Environment.Areas[1].Shape)
		}
	})

	t.Run("yaml by filename", func(t *testing.T) {
		if _, err := manager.LoadConfig("garden.yaml"); err != nil {
			t.Errorf("Expected load by filename to succeed, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := manager.LoadConfig("nope")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := manager.LoadConfig("broken"); err == nil {
			t.Error("Expected parse error")
		}
	})

	t.Run("invalid keeps field detail", func(t *testing.T) {
		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("Expected ErrInvalidConfig, got %v", err)
		}
		var cfgErr *engine.ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "robot.autonomy" {
			t.Errorf("Expected ConfigError on robot.autonomy, got %v", err)
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "default", createValidConfig())
	if err := os.WriteFile(filepath.Join(dir, "garden.yml"), []byte(yamlConfig), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# configs"), 0644); err != nil {
		t.Fatal(err)
	}
	invalid := createValidConfig()
	invalid.Grid.Rows = 0
	writeConfigFile(t, dir, "zz_invalid", invalid)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("Expected 2 valid configs, got %d", len(configs))
	}
	if configs[0].ConfigID != "default" || configs[1].ConfigID != "garden" {
		t.Errorf("Expected [default garden], got [%s %s]", configs[0].ConfigID, configs[1].ConfigID)
	}
	garden := configs[1]
	if garden.Filename != "garden.yml" || garden.Rows != 12 || garden.Robots != 2 || garden.Cycles != 3 {
		t.Errorf("Unexpected config info: %+v", garden)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	cfg := createValidConfig()
	cfg.Name = "Saved"
	if err := manager.SaveConfig("saved", cfg); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
		t.Errorf("Expected saved.json on disk: %v", err)
	}

	yamlCfg := createValidConfig()
	yamlCfg.Name = "Saved YAML"
	if err := manager.SaveConfig("saved_yaml.yaml", yamlCfg); err != nil {
		t.Fatalf("Failed to save yaml config: %v", err)
	}
	loaded, err := LoadFile(filepath.Join(dir, "saved_yaml.yaml"))
	if err != nil {
		t.Fatalf("Failed to reload yaml config: %v", err)
	}
	if loaded.Name != "Saved YAML" || loaded.Environment.Areas[0].Height != 2 {
		t.Errorf("YAML round trip lost data: %+v", loaded)
	}

	bad := createValidConfig()
	bad.Robot.BounceMode = "zigzag"
	if err := manager.SaveConfig("bad", bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.json")); !os.IsNotExist(err) {
		t.Error("Expected invalid config not to be written")
	}
}

func TestManager_SetDefaultAndRefresh(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "default", createValidConfig())
	other := createValidConfig()
	other.Name = "Other"
	writeConfigFile(t, dir, "other", other)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if err := manager.SetDefault("other"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if manager.GetDefault().Name != "Other" {
		t.Errorf("Expected 'Other' as default, got %q", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("Failed to refresh: %v", err)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected only the default cached after refresh, got %d", manager.Count())
	}
	if manager.GetDefault().Name != "Test Config" {
		t.Errorf("Expected default.json after refresh, got %q", manager.GetDefault().Name)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "default", createValidConfig())
	for i := 1; i <= 5; i++ {
		cfg := createValidConfig()
		cfg.Name = fmt.Sprintf("Config%d", i)
		writeConfigFile(t, dir, fmt.Sprintf("config%d", i), cfg)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.LoadConfig(fmt.Sprintf("config%d", id%5+1)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 6 {
		t.Errorf("Expected 6 configs in cache, got %d", manager.Count())
	}
}

func TestParse_UnknownExtensionIsJSON(t *testing.T) {
	if _, err := Parse([]byte(yamlConfig), ".txt"); err == nil {
		t.Error("Expected YAML content to fail as JSON")
	}
	cfg, err := Parse([]byte(`{"name":"x","grid":{"rows":2,"cols":2},"robot":{"autonomy":3}}`), "")
	if err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if cfg.Grid.Rows != 2 {
		t.Errorf("Expected 2 rows, got %d", cfg.Grid.Rows)
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "b", createValidConfig())
	if err := os.WriteFile(filepath.Join(dir, "a.yml"), []byte(yamlConfig), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := Files(dir)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.json")}
	if fmt.Sprint(files) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, files)
	}

	if _, err := Files(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}
