package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/cachesim/sim"
	"github.com/inference-sim/cachesim/sim/recording"
	"github.com/inference-sim/cachesim/sim/report"
	"github.com/inference-sim/cachesim/sim/trace"
	"github.com/inference-sim/cachesim/sim/workload"
)

var (
	// CLI flags for the hierarchy
	blockSize     int64   // Line size in bytes shared by all layers
	numLayers     int     // Number of cache layers
	cacheSizes    []int64 // Size in bytes of each layer
	cacheCycles   []int64 // Access latency of each layer
	associativity []int   // Ways of each layer
	writePolicy   string  // wb+wa or wt+nwa
	maxMisses     int     // Outstanding-access limit K
	memoryLatency int64   // Main-memory round trip in cycles

	// CLI flags for config sources
	configPath       string // YAML hierarchy description
	presetName       string // Named hierarchy in the defaults file
	defaultsFilePath string // Path to defaults.yaml

	// CLI flags for input and output
	logLevel    string // Log verbosity level
	tracePath   string // Trace file to replay
	addressBase int    // Number base of trace addresses
	debugLevel  int    // 0 silent, 1 final tables, 2 snapshot after every access
	cacheView   int    // How much of each layer to print
	traceLevel  string // Per-access decision trace
	resultsPath string // Metrics JSON output
	csvPath     string // Plot table to upsert
	csvKey      string // Key column of the plot table
	csvRow      string // Row key for this run
	recordRun   bool   // Persist this run to SQLite
	recordDB    string // SQLite file for recorded runs
	recordLabel string // Label stored with a recorded run
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cachesim",
	Short: "Multi-level set-associative LRU cache hierarchy simulator",
}

// runCmd replays a trace through a hierarchy built from the config sources and flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a memory trace through a cache hierarchy",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		if debugLevel < 0 || debugLevel > 2 {
			logrus.Fatalf("--debug-level must be 0, 1 or 2, got %d", debugLevel)
		}
		view, err := report.ParseCacheView(cacheView)
		if err != nil {
			logrus.Fatalf("Invalid --cache-view: %v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid --trace-level %q: must be none or accesses", traceLevel)
		}
		if tracePath == "" {
			logrus.Fatalf("No trace file provided. Use --tracefile.")
		}
		if _, err := os.Stat(tracePath); err != nil {
			logrus.Fatalf("The tracefile %s does not exist: %v", tracePath, err)
		}

		cfg, err := resolveHierarchyConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid hierarchy configuration: %v", err)
		}
		h, err := sim.NewHierarchy(cfg)
		if err != nil {
			logrus.Fatalf("Cannot build hierarchy: %v", err)
		}
		accesses, err := workload.LoadTrace(tracePath, addressBase)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		s := sim.NewSimulator(h, accesses, trace.TraceConfig{Level: trace.TraceLevel(traceLevel)})
		if debugLevel > 1 {
			s.OnAccess = func(a *sim.AccessRecord) {
				fmt.Println("\n<<<<<<<<<<< Instruction Access >>>>>>>>>>>")
				fmt.Println(a)
				if err := report.PrintHierarchy(os.Stdout, h, view); err != nil {
					logrus.Errorf("printing hierarchy: %v", err)
				}
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		m, err := s.Run(ctx)
		if err != nil {
			logrus.Fatalf("Replay stopped: %v", err)
		}

		if debugLevel > 0 {
			printFinalResults(h, s, m, view)
		}
		if err := exportResults(cfg, m); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

func setLogLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", name)
	}
	logrus.SetLevel(level)
}

// resolveHierarchyConfig merges the built-in defaults, an optional YAML file or
// preset, and the hierarchy flags the user set explicitly, in that order.
func resolveHierarchyConfig(cmd *cobra.Command) (sim.HierarchyConfig, error) {
	base := sim.DefaultHierarchyConfig()
	switch {
	case configPath != "" && presetName != "":
		return sim.HierarchyConfig{}, fmt.Errorf("--config and --preset are mutually exclusive")
	case configPath != "":
		cfg, err := sim.LoadHierarchyConfig(configPath)
		if err != nil {
			return sim.HierarchyConfig{}, err
		}
		base = cfg
	case presetName != "":
		defaults, err := loadDefaultsConfig(defaultsFilePath)
		if err != nil {
			return sim.HierarchyConfig{}, err
		}
		cfg, err := defaults.Preset(presetName)
		if err != nil {
			return sim.HierarchyConfig{}, err
		}
		base = cfg
	}

	flags := cmd.Flags()
	n := len(base.Layers)
	sizes := make([]int64, n)
	cycles := make([]int64, n)
	ways := make([]int, n)
	for i, l := range base.Layers {
		sizes[i], cycles[i], ways[i] = l.SizeBytes, l.LatencyCycles, l.Ways
	}
	block, policy, k := base.BlockSizeBytes, string(base.WritePolicy), base.OutstandingAccessLimit

	if flags.Changed("cache-layers") {
		n = numLayers
	}
	if flags.Changed("cache-sizes") {
		sizes = cacheSizes
	}
	if flags.Changed("cache-cycles") {
		cycles = cacheCycles
	}
	if flags.Changed("set-associativity") {
		ways = associativity
	}
	if flags.Changed("block-size") {
		block = blockSize
	}
	if flags.Changed("write-policy") {
		policy = writePolicy
	}
	if flags.Changed("max-misses") {
		k = maxMisses
	}

	cfg, err := sim.NewHierarchyConfig(block, n, sizes, cycles, ways, policy, k)
	if err != nil {
		return sim.HierarchyConfig{}, err
	}
	cfg.MemoryLatencyCycles = base.MemoryLatencyCycles
	if flags.Changed("memory-latency") {
		cfg.MemoryLatencyCycles = memoryLatency
	}
	return cfg, cfg.Validate()
}

func printFinalResults(h *sim.Hierarchy, s *sim.Simulator, m *sim.Metrics, view report.CacheView) {
	fmt.Println("\n************** Final Results ******************")
	if err := report.PrintHierarchy(os.Stdout, h, view); err != nil {
		logrus.Errorf("printing hierarchy: %v", err)
	}
	fmt.Println()
	if err := report.PrintAccesses(os.Stdout, s.Accesses); err != nil {
		logrus.Errorf("printing accesses: %v", err)
	}
	fmt.Println()
	if err := report.PrintMetrics(os.Stdout, m); err != nil {
		logrus.Errorf("printing metrics: %v", err)
	}
	if s.Trace != nil {
		summary := trace.Summarize(s.Trace)
		fmt.Printf("Trace: %d accesses, %d stalled (mean %.2f, max %d), hits by level %v\n",
			summary.TotalAccesses, summary.StalledAccesses, summary.MeanStall, summary.MaxStall, summary.HitsByLevel)
	}
	fmt.Printf("Program Finished In Time %s\n", s.WallTime)
}

// exportResults writes the optional JSON, CSV and SQLite outputs of a run.
func exportResults(cfg sim.HierarchyConfig, m *sim.Metrics) error {
	if resultsPath != "" {
		if err := m.SaveResults(resultsPath); err != nil {
			return err
		}
	}
	if csvPath != "" {
		row := csvRow
		if row == "" {
			row = filepath.Base(tracePath)
		}
		table := report.PlotTable{Path: csvPath, KeyColumn: csvKey}
		if err := table.Upsert(row, report.HitMissSeries(m)); err != nil {
			return err
		}
		logrus.Infof("Plot series for %q written to %s", row, csvPath)
	}
	if recordRun || recordDB != "" {
		rec, err := recording.New(recordDB)
		if err != nil {
			return err
		}
		defer rec.Close() //nolint:errcheck // nothing left to flush after commit
		label := recordLabel
		if label == "" {
			label = filepath.Base(tracePath)
		}
		runID, err := rec.RecordRun(label, cfg, m)
		if err != nil {
			return err
		}
		logrus.Infof("Recorded run %s", runID)
	}
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addRunFlags binds the run flags of c. Binding resets every flag variable to
// its default.
func addRunFlags(c *cobra.Command) {
	def := sim.DefaultHierarchyConfig()
	var defSizes, defCycles []int64
	var defWays []int
	for _, l := range def.Layers {
		defSizes = append(defSizes, l.SizeBytes)
		defCycles = append(defCycles, l.LatencyCycles)
		defWays = append(defWays, l.Ways)
	}

	// Hierarchy configs
	c.Flags().Int64VarP(&blockSize, "block-size", "b", def.BlockSizeBytes, "Block size in bytes")
	c.Flags().IntVarP(&numLayers, "cache-layers", "l", len(def.Layers), "Number of layers in the cache")
	c.Flags().Int64SliceVarP(&cacheSizes, "cache-sizes", "s", defSizes, "Comma-separated cache sizes in bytes, one per layer")
	c.Flags().Int64SliceVarP(&cacheCycles, "cache-cycles", "c", defCycles, "Comma-separated access latency of each layer")
	c.Flags().IntSliceVarP(&associativity, "set-associativity", "a", defWays, "Comma-separated set associativity of each layer")
	c.Flags().StringVarP(&writePolicy, "write-policy", "p", string(def.WritePolicy), "Write/allocate policy for all layers (wb+wa, wt+nwa)")
	c.Flags().IntVarP(&maxMisses, "max-misses", "m", def.OutstandingAccessLimit, "Accesses allowed in flight before a new one stalls (0 = sequential)")
	c.Flags().Int64Var(&memoryLatency, "memory-latency", def.MemoryLatencyCycles, "Main-memory round trip in cycles")

	// Config sources
	c.Flags().StringVar(&configPath, "config", "", "YAML hierarchy description")
	c.Flags().StringVar(&presetName, "preset", "", "Named hierarchy from the defaults file")
	c.Flags().StringVar(&defaultsFilePath, "defaults-filepath", "defaults.yaml", "Path to defaults.yaml")

	// Input and output
	c.Flags().StringVarP(&tracePath, "tracefile", "t", "", "Path to the trace of memory accesses")
	c.Flags().IntVar(&addressBase, "address-base", 10, "Number base of trace addresses")
	c.Flags().IntVarP(&debugLevel, "debug-level", "d", 1, "0 = no output, 1 = final results, 2 = snapshot after every access")
	c.Flags().IntVarP(&cacheView, "cache-view", "v", int(report.ViewValidSets), "0 = stats only, 1 = dirty sets, 2 = valid sets, 3 = all sets")
	c.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Per-access decision trace (none, accesses)")
	c.Flags().StringVar(&resultsPath, "results", "", "Write the metrics snapshot as JSON to this file")
	c.Flags().StringVar(&csvPath, "csv", "", "Upsert per-layer hit/miss series into this CSV plot table")
	c.Flags().StringVar(&csvKey, "csv-key", "config", "Key column name of the CSV plot table")
	c.Flags().StringVar(&csvRow, "csv-row", "", "Row key for this run (defaults to the trace file name)")
	c.Flags().BoolVar(&recordRun, "record", false, "Record this run in a SQLite database")
	c.Flags().StringVar(&recordDB, "record-db", "", "SQLite database for recorded runs (implies --record)")
	c.Flags().StringVar(&recordLabel, "record-label", "", "Label stored with the recorded run (defaults to the trace file name)")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
