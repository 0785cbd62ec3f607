package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/cachesim/sim/workload"
)

var (
	genOutputPath      string
	genAddressBits     int
	genNumAccesses     int
	genReuseRate       float64
	genWriteRate       float64
	genMaxInterArrival int64
	genSeed            int64
	genBase            int
	genPreset          string
	genDefaultsPath    string
)

// generateCmd writes a synthetic trace file
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic memory trace",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		cfg, err := resolveGeneratorConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid generator configuration: %v", err)
		}
		lines, err := workload.GenerateTrace(cfg)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		file, err := os.Create(genOutputPath)
		if err != nil {
			logrus.Fatalf("Cannot create %s: %v", genOutputPath, err)
		}
		if err := workload.WriteTrace(file, lines, genBase, cfg.AddressBits); err != nil {
			_ = file.Close()
			logrus.Fatalf("%v", err)
		}
		if err := file.Close(); err != nil {
			logrus.Fatalf("Closing %s: %v", genOutputPath, err)
		}
		logrus.Infof("Wrote %d accesses to %s", len(lines), genOutputPath)
	},
}

// resolveGeneratorConfig starts from the built-in defaults or a named preset
// and applies the generator flags the user set explicitly.
func resolveGeneratorConfig(cmd *cobra.Command) (workload.GeneratorConfig, error) {
	cfg := workload.DefaultGeneratorConfig()
	if genPreset != "" {
		defaults, err := loadDefaultsConfig(genDefaultsPath)
		if err != nil {
			return workload.GeneratorConfig{}, err
		}
		p, ok := defaults.Generators[genPreset]
		if !ok {
			return workload.GeneratorConfig{}, fmt.Errorf("unknown generator preset %q. Check defaults.yaml for available generators", genPreset)
		}
		cfg.AddressBits = p.AddressBits
		cfg.NumAccesses = p.NumAccesses
		cfg.ReuseRate = p.ReuseRate
		cfg.WriteRate = p.WriteRate
		cfg.MaxInterArrival = p.MaxInterArrival
	}

	flags := cmd.Flags()
	if flags.Changed("addr-size") {
		cfg.AddressBits = genAddressBits
	}
	if flags.Changed("num-accesses") {
		cfg.NumAccesses = genNumAccesses
	}
	if flags.Changed("reuse-rate") {
		cfg.ReuseRate = genReuseRate
	}
	if flags.Changed("write-rate") {
		cfg.WriteRate = genWriteRate
	}
	if flags.Changed("max-inter-arrival") {
		cfg.MaxInterArrival = genMaxInterArrival
	}
	if flags.Changed("seed") {
		cfg.Seed = genSeed
	}
	return cfg, cfg.Validate()
}

// addGenerateFlags binds the generate flags of c, resetting them to their defaults.
func addGenerateFlags(c *cobra.Command) {
	def := workload.DefaultGeneratorConfig()

	c.Flags().StringVarP(&genOutputPath, "filename", "f", "default.trace", "Output trace file")
	c.Flags().IntVarP(&genAddressBits, "addr-size", "s", def.AddressBits, "Address size in bits")
	c.Flags().IntVarP(&genNumAccesses, "num-accesses", "a", def.NumAccesses, "Number of accesses to generate")
	c.Flags().IntVarP(&genBase, "base", "b", 10, "Number base of written addresses (e.g. 2, 10, 16)")
	c.Flags().Float64VarP(&genReuseRate, "reuse-rate", "r", def.ReuseRate, "Probability of reusing an earlier address")
	c.Flags().Float64Var(&genWriteRate, "write-rate", def.WriteRate, "Probability of a write")
	c.Flags().Int64Var(&genMaxInterArrival, "max-inter-arrival", def.MaxInterArrival, "Largest arrival-time step between accesses")
	c.Flags().Int64Var(&genSeed, "seed", def.Seed, "Seed for the random generator")
	c.Flags().StringVar(&genPreset, "preset", "", "Named generator from the defaults file")
	c.Flags().StringVar(&genDefaultsPath, "defaults-filepath", "defaults.yaml", "Path to defaults.yaml")
}

func init() {
	addGenerateFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}
