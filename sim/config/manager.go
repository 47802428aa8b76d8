package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/mowersim/sim/engine"
	"github.com/wricardo/mowersim/sim/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultConfigID is tried first when picking the default configuration
const DefaultConfigID = "default"

// Extensions recognised as configuration files, in lookup order
var Extensions = []string{".json", ".yaml", ".yml"}

// Manager handles simulation configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.SimulationConfig
	configs       map[string]*engine.SimulationConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.SimulationConfig),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadFile reads, parses and validates a single configuration file
func LoadFile(path string) (*engine.SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrConfigNotFound)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := engine.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document. ext selects YAML for .yaml and
// .yml; anything else is read as JSON.
func Parse(data []byte, ext string) (*engine.SimulationConfig, error) {
	var cfg engine.SimulationConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	return &cfg, nil
}

// configID strips a known extension from name
func configID(name string) string {
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// findFile returns the path for a config id, trying every extension
func (m *Manager) findFile(name string) (string, bool) {
	if configID(name) != name {
		path := filepath.Join(m.configDir, name)
		_, err := os.Stat(path)
		return path, err == nil
	}
	for _, ext := range Extensions {
		path := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// LoadConfig loads a configuration by id (file name with or without extension)
func (m *Manager) LoadConfig(name string) (*engine.SimulationConfig, error) {
	id := configID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(name)
}

// loadLocked reads a config from disk; m.mu must be held for writing
func (m *Manager) loadLocked(name string) (*engine.SimulationConfig, error) {
	id := configID(name)
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	path, ok := m.findFile(name)
	if !ok {
		return nil, ErrConfigNotFound
	}

	config, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	m.configs[id] = config
	return config, nil
}

// ListConfigs returns information about all valid configurations, sorted by id
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !isConfigFile(entry.Name()) {
			continue
		}

		id := configID(entry.Name())
		if seen[id] {
			continue
		}

		config, err := m.LoadConfig(entry.Name())
		if err != nil {
			// Skip invalid configs
			continue
		}
		seen[id] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    id,
			Name:        config.Name,
			Description: config.Description,
			Rows:        config.Grid.Rows,
			Cols:        config.Grid.Cols,
			Cycles:      config.Cycles,
			Robots:      config.Robot.Count,
			Autonomy:    config.Robot.Autonomy,
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

func isConfigFile(name string) bool {
	return configID(name) != name
}

// Files lists the configuration files directly inside dir, sorted by name
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && isConfigFile(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.SimulationConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by id
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached configuration and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.SimulationConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig picks default.*, then the first valid config, then a
// built-in one
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultConfigID)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			config = m.createMinimalConfig()
		} else if config, err = m.LoadConfig(configs[0].Filename); err != nil {
			config = m.createMinimalConfig()
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig validates config and writes it to disk. The extension of name
// selects the format; names without one are saved as JSON.
func (m *Manager) SaveConfig(name string, config *engine.SimulationConfig) error {
	if err := engine.ValidateConfig(config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	filename := name
	if !isConfigFile(filename) {
		filename = name + ".json"
	}
	configPath := filepath.Join(m.configDir, filename)

	var data []byte
	var err error
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[configID(name)] = config
	m.mu.Unlock()

	return nil
}

// createMinimalConfig creates a minimal valid configuration
func (m *Manager) createMinimalConfig() *engine.SimulationConfig {
	cfg := engine.DefaultConfig()
	cfg.Name = "default"
	cfg.Description = "Default minimal configuration"
	cfg.Normalize()
	return cfg
}

// Count returns the number of cached configurations
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}
