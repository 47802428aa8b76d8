package engine

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
)

// EnvironmentPlugin builds the grid for a configuration. The built-in
// "default" plugin is Initialize.
type EnvironmentPlugin interface {
	Build(cfg *SimulationConfig, rng *rand.Rand) (*Grid, error)
}

// EnvironmentFunc adapts a function to EnvironmentPlugin
type EnvironmentFunc func(cfg *SimulationConfig, rng *rand.Rand) (*Grid, error)

func (f EnvironmentFunc) Build(cfg *SimulationConfig, rng *rand.Rand) (*Grid, error) {
	return f(cfg, rng)
}

// MoverFactory creates the mover used by a simulation
type MoverFactory func(rng *rand.Rand) Mover

var (
	pluginMu     sync.RWMutex
	environments = map[string]EnvironmentPlugin{
		"default": EnvironmentFunc(Initialize),
	}
	movers = map[string]MoverFactory{
		"default": func(rng *rand.Rand) Mover { return NewDefaultMover(rng) },
	}
)

// RegisterEnvironment makes an environment plugin available by name
func RegisterEnvironment(name string, p EnvironmentPlugin) {
	pluginMu.Lock()
	defer pluginMu.Unlock()
	environments[name] = p
}

// RegisterMover makes a robot plugin available by name
func RegisterMover(name string, f MoverFactory) {
	pluginMu.Lock()
	defer pluginMu.Unlock()
	movers[name] = f
}

// LookupEnvironment returns the named environment plugin ("" means default)
func LookupEnvironment(name string) (EnvironmentPlugin, error) {
	if name == "" {
		name = "default"
	}
	pluginMu.RLock()
	defer pluginMu.RUnlock()
	p, ok := environments[name]
	if !ok {
		return nil, fmt.Errorf("environment %q: %w", name, ErrUnknownPlugin)
	}
	return p, nil
}

// LookupMover returns the named mover factory ("" means default)
func LookupMover(name string) (MoverFactory, error) {
	if name == "" {
		name = "default"
	}
	pluginMu.RLock()
	defer pluginMu.RUnlock()
	f, ok := movers[name]
	if !ok {
		return nil, fmt.Errorf("mover %q: %w", name, ErrUnknownPlugin)
	}
	return f, nil
}

// PluginNames lists registered environment and mover names
func PluginNames() (envs []string, mvs []string) {
	pluginMu.RLock()
	defer pluginMu.RUnlock()
	for name := range environments {
		envs = append(envs, name)
	}
	for name := range movers {
		mvs = append(mvs, name)
	}
	sort.Strings(envs)
	sort.Strings(mvs)
	return envs, mvs
}
