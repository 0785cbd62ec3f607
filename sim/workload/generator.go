package workload

import (
	"fmt"

	"github.com/inference-sim/cachesim/sim"
)

// GeneratorConfig describes a synthetic trace.
type GeneratorConfig struct {
	AddressBits     int     // addresses are drawn from [0, 2^AddressBits)
	NumAccesses     int     // number of lines to generate
	ReuseRate       float64 // probability of repeating an earlier address
	WriteRate       float64 // probability of a write
	MaxInterArrival int64   // arrival time advances by a uniform draw in [0, MaxInterArrival]
	Seed            int64
}

// DefaultGeneratorConfig returns the generator defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		AddressBits:     sim.AddressBits,
		NumAccesses:     100,
		ReuseRate:       0.3,
		WriteRate:       0.5,
		MaxInterArrival: 4,
		Seed:            42,
	}
}

// Validate checks the generator parameters.
func (c GeneratorConfig) Validate() error {
	if c.AddressBits < 1 || c.AddressBits > sim.AddressBits {
		return fmt.Errorf("address size %d must be in [1, %d]", c.AddressBits, sim.AddressBits)
	}
	if c.NumAccesses < 0 {
		return fmt.Errorf("number of accesses %d must be non-negative", c.NumAccesses)
	}
	if c.ReuseRate < 0 || c.ReuseRate > 1 {
		return fmt.Errorf("reuse rate %v must be in [0, 1]", c.ReuseRate)
	}
	if c.WriteRate < 0 || c.WriteRate > 1 {
		return fmt.Errorf("write rate %v must be in [0, 1]", c.WriteRate)
	}
	if c.MaxInterArrival < 0 {
		return fmt.Errorf("max inter-arrival %d must be non-negative", c.MaxInterArrival)
	}
	return nil
}

// GenerateTrace creates a synthetic access sequence.
// Deterministic given the same config. Arrival times are non-decreasing.
func GenerateTrace(cfg GeneratorConfig) ([]TraceLine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	rng := NewPartitionedRNG(cfg.Seed)
	addrRNG := rng.ForStream(StreamAddress)
	reuseRNG := rng.ForStream(StreamReuse)
	modeRNG := rng.ForStream(StreamMode)
	arrivalRNG := rng.ForStream(StreamArrival)
	maxAddr := uint64(1)<<cfg.AddressBits - 1

	lines := make([]TraceLine, 0, cfg.NumAccesses)
	used := make([]uint32, 0, cfg.NumAccesses)
	clock := int64(0)
	for i := 0; i < cfg.NumAccesses; i++ {
		var addr uint32
		if i == 0 || reuseRNG.Float64() >= cfg.ReuseRate {
			addr = uint32(addrRNG.Int63n(int64(maxAddr) + 1))
			used = append(used, addr)
		} else {
			addr = used[reuseRNG.Intn(len(used))]
		}

		mode := sim.ModeRead
		if modeRNG.Float64() < cfg.WriteRate {
			mode = sim.ModeWrite
		}

		lines = append(lines, TraceLine{Mode: mode, Address: addr, Arrival: clock})
		clock += arrivalRNG.Int63n(cfg.MaxInterArrival + 1)
	}
	return lines, nil
}
