package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// MemoryLatency is the main-memory round trip, in cycles, charged when an
// access leaves the last layer.
const MemoryLatency int64 = 100

// WritePolicy selects how every layer of a hierarchy treats stores.
type WritePolicy string

const (
	// WriteBackAllocate defers stores to eviction and fills lines on write misses.
	WriteBackAllocate WritePolicy = "wb+wa"
	// WriteThroughNoAllocate forwards every store downward and never fills on a write miss.
	WriteThroughNoAllocate WritePolicy = "wt+nwa"
)

// ParseWritePolicy validates a write policy token.
func ParseWritePolicy(s string) (WritePolicy, error) {
	p := WritePolicy(s)
	if !p.Valid() {
		return "", configErrorf("write-policy", s, "must be %s or %s", WriteBackAllocate, WriteThroughNoAllocate)
	}
	return p, nil
}

func (p WritePolicy) Valid() bool {
	return p == WriteBackAllocate || p == WriteThroughNoAllocate
}

// WriteBack reports whether dirty lines are written to memory on eviction.
func (p WritePolicy) WriteBack() bool { return p == WriteBackAllocate }

// Allocates reports whether a write miss fills the line.
func (p WritePolicy) Allocates() bool { return p == WriteBackAllocate }

// LayerConfig groups the parameters of one cache level.
type LayerConfig struct {
	SizeBytes     int64 `yaml:"size_bytes"`     // total capacity, rounded up to a power of two
	LatencyCycles int64 `yaml:"latency_cycles"` // fixed cost charged on every access to the layer
	Ways          int   `yaml:"ways"`           // associativity
}

// HierarchyConfig is everything needed to build a Hierarchy.
type HierarchyConfig struct {
	BlockSizeBytes         int64         `yaml:"block_size_bytes"`         // line size shared by all layers
	Layers                 []LayerConfig `yaml:"layers"`                   // index 0 is closest to the initiator
	WritePolicy            WritePolicy   `yaml:"write_policy"`             // applied to every layer
	OutstandingAccessLimit int           `yaml:"outstanding_access_limit"` // K; 0 = fully sequential
	MemoryLatencyCycles    int64         `yaml:"memory_latency_cycles"`    // main-memory round trip
}

// DefaultHierarchyConfig returns the two-level hierarchy used when nothing
// else is configured.
func DefaultHierarchyConfig() HierarchyConfig {
	return HierarchyConfig{
		BlockSizeBytes: 64,
		Layers: []LayerConfig{
			{SizeBytes: 32000, LatencyCycles: 1, Ways: 4},
			{SizeBytes: 2000000, LatencyCycles: 50, Ways: 8},
		},
		WritePolicy:            WriteBackAllocate,
		OutstandingAccessLimit: 0,
		MemoryLatencyCycles:    MemoryLatency,
	}
}

// NewHierarchyConfig assembles a config from per-layer parameter lists, the
// shape the command line provides them in. Every list must have numLayers
// entries.
func NewHierarchyConfig(blockSize int64, numLayers int, sizes, cycles []int64, ways []int,
	writePolicy string, outstandingLimit int) (HierarchyConfig, error) {
	if numLayers < 1 {
		return HierarchyConfig{}, configErrorf("cache-layers", numLayers, "must be at least 1")
	}
	if len(sizes) != numLayers {
		return HierarchyConfig{}, configErrorf("cache-sizes", sizes, "length must equal the number of layers (%d)", numLayers)
	}
	if len(cycles) != numLayers {
		return HierarchyConfig{}, configErrorf("cache-cycles", cycles, "length must equal the number of layers (%d)", numLayers)
	}
	if len(ways) != numLayers {
		return HierarchyConfig{}, configErrorf("set-associativity", ways, "length must equal the number of layers (%d)", numLayers)
	}
	policy, err := ParseWritePolicy(writePolicy)
	if err != nil {
		return HierarchyConfig{}, err
	}

	cfg := HierarchyConfig{
		BlockSizeBytes:         blockSize,
		Layers:                 make([]LayerConfig, numLayers),
		WritePolicy:            policy,
		OutstandingAccessLimit: outstandingLimit,
		MemoryLatencyCycles:    MemoryLatency,
	}
	for i := 0; i < numLayers; i++ {
		cfg.Layers[i] = LayerConfig{SizeBytes: sizes[i], LatencyCycles: cycles[i], Ways: ways[i]}
	}
	return cfg, cfg.Validate()
}

// Normalized returns a copy with the block size and every layer size rounded
// up to the next power of two.
func (c HierarchyConfig) Normalized() HierarchyConfig {
	out := c
	out.BlockSizeBytes = NextPowerOfTwo(c.BlockSizeBytes)
	out.Layers = make([]LayerConfig, len(c.Layers))
	for i, l := range c.Layers {
		l.SizeBytes = NextPowerOfTwo(l.SizeBytes)
		out.Layers[i] = l
	}
	return out
}

// Validate checks the config after rounding. It returns the first violation
// as a *ConfigurationError.
func (c HierarchyConfig) Validate() error {
	if c.BlockSizeBytes <= 0 {
		return configErrorf("block-size", c.BlockSizeBytes, "must be positive")
	}
	if len(c.Layers) == 0 {
		return configErrorf("layers", 0, "at least one layer is required")
	}
	if !c.WritePolicy.Valid() {
		return configErrorf("write-policy", c.WritePolicy, "must be %s or %s", WriteBackAllocate, WriteThroughNoAllocate)
	}
	if c.OutstandingAccessLimit < 0 {
		return configErrorf("max-misses", c.OutstandingAccessLimit, "must be greater than or equal to 0")
	}
	if c.MemoryLatencyCycles < 0 {
		return configErrorf("memory-latency", c.MemoryLatencyCycles, "must be greater than or equal to 0")
	}
	n := c.Normalized()
	for i, l := range n.Layers {
		if c.Layers[i].SizeBytes <= 0 {
			return configErrorf(fmt.Sprintf("L%d size", i), c.Layers[i].SizeBytes, "must be positive")
		}
		if _, err := numSetsFor(l, n.BlockSizeBytes); err != nil {
			return fmt.Errorf("L%d: %w", i, err)
		}
		if l.LatencyCycles < 0 {
			return configErrorf(fmt.Sprintf("L%d latency", i), l.LatencyCycles, "must be greater than or equal to 0")
		}
	}
	return nil
}

// numSetsFor derives the set count of a layer whose sizes are already powers
// of two, checking it fits the address width.
func numSetsFor(l LayerConfig, blockSize int64) (int, error) {
	if l.Ways < 1 {
		return 0, configErrorf("ways", l.Ways, "must be at least 1")
	}
	if !isPowerOfTwo(blockSize) {
		return 0, configErrorf("block-size", blockSize, "must be a power of two")
	}
	if !isPowerOfTwo(l.SizeBytes) {
		return 0, configErrorf("size", l.SizeBytes, "must be a power of two")
	}
	lines := l.SizeBytes / blockSize
	if lines < int64(l.Ways) {
		return 0, configErrorf("ways", l.Ways, "a %d-byte layer holds only %d lines of %d bytes", l.SizeBytes, lines, blockSize)
	}
	sets := lines / int64(l.Ways)
	if !isPowerOfTwo(sets) || sets*int64(l.Ways) != lines {
		return 0, configErrorf("ways", l.Ways, "%d lines do not split into a power-of-two number of sets", lines)
	}
	if bitsRequired(int(sets))+bitsRequired(int(blockSize)) > AddressBits {
		return 0, configErrorf("size", l.SizeBytes, "exceeds the %d-bit address space", AddressBits)
	}
	return int(sets), nil
}

// ParseHierarchyConfig decodes a YAML hierarchy description. Fields missing
// from the document keep their DefaultHierarchyConfig values; unknown fields
// are an error.
func ParseHierarchyConfig(data []byte) (HierarchyConfig, error) {
	cfg := DefaultHierarchyConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return HierarchyConfig{}, fmt.Errorf("parsing hierarchy config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return HierarchyConfig{}, err
	}
	return cfg, nil
}

// LoadHierarchyConfig reads and parses a YAML hierarchy description.
func LoadHierarchyConfig(path string) (HierarchyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return HierarchyConfig{}, fmt.Errorf("reading hierarchy config %s: %w", path, err)
	}
	return ParseHierarchyConfig(data)
}
