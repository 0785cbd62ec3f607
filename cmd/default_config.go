package cmd

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/cachesim/sim"
)

// Config represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version     string                         `yaml:"version"`
	Hierarchies map[string]sim.HierarchyConfig `yaml:"hierarchies"`
	Generators  map[string]GeneratorPreset     `yaml:"generators"`
}

// GeneratorPreset describes a named synthetic trace in defaults.yaml.
type GeneratorPreset struct {
	AddressBits     int     `yaml:"address_bits"`
	NumAccesses     int     `yaml:"num_accesses"`
	ReuseRate       float64 `yaml:"reuse_rate"`
	WriteRate       float64 `yaml:"write_rate"`
	MaxInterArrival int64   `yaml:"max_inter_arrival"`
}

// loadDefaultsConfig parses defaults.yaml into a Config struct.
// Uses strict field checking: typos must cause errors.
func loadDefaultsConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading defaults file %s: %w", path, err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing defaults file %s: %w", path, err)
	}
	return cfg, nil
}

// Preset returns the named hierarchy. Fields the preset leaves out take their
// built-in default values.
func (c Config) Preset(name string) (sim.HierarchyConfig, error) {
	p, ok := c.Hierarchies[name]
	if !ok {
		return sim.HierarchyConfig{}, fmt.Errorf("unknown preset %q, available: %v", name, c.presetNames())
	}
	def := sim.DefaultHierarchyConfig()
	if p.BlockSizeBytes == 0 {
		p.BlockSizeBytes = def.BlockSizeBytes
	}
	if len(p.Layers) == 0 {
		p.Layers = def.Layers
	}
	if p.WritePolicy == "" {
		p.WritePolicy = def.WritePolicy
	}
	if p.MemoryLatencyCycles == 0 {
		p.MemoryLatencyCycles = def.MemoryLatencyCycles
	}
	if err := p.Validate(); err != nil {
		return sim.HierarchyConfig{}, fmt.Errorf("preset %q: %w", name, err)
	}
	return p, nil
}

func (c Config) presetNames() []string {
	names := make([]string, 0, len(c.Hierarchies))
	for n := range c.Hierarchies {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
