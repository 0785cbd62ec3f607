package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/cachesim/sim/recording"
)

var runsDB string

// runsCmd lists the runs recorded with `run --record`
var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded runs, or show the layers of one run",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		if _, err := os.Stat(runsDB); err != nil {
			logrus.Fatalf("Run database %s not found: %v", runsDB, err)
		}
		rec, err := recording.New(runsDB)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		defer rec.Close() //nolint:errcheck // read-only use

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer tw.Flush() //nolint:errcheck // stdout

		if len(args) == 1 {
			layers, err := rec.LayerStats(args[0])
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			fmt.Fprintln(tw, "LEVEL\tNAME\tSIZE\tWAYS\tSETS\tLATENCY\tACCESSES\tHIT RATE\tEVICTIONS\tWRITEBACKS")
			for _, l := range layers {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%.4f\t%d\t%d\n", l.Level, l.Name, l.SizeBytes, l.Ways,
					l.NumSets, l.LatencyCycles, l.Accesses, l.HitRate, l.Evictions, l.Writebacks)
			}
			return
		}

		runs, err := rec.Runs()
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		fmt.Fprintln(tw, "RUN ID\tLABEL\tCREATED\tLAYERS\tPOLICY\tK\tACCESSES\tEND TIME\tMEAN EXEC\tMEAN STALL")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%d\t%d\t%.2f\t%.2f\n", r.RunID, r.Label,
				r.CreatedAt.Format("2006-01-02 15:04:05"), r.NumLayers, r.WritePolicy, r.OutstandingLimit,
				r.TotalAccesses, r.SimEndedTime, r.MeanExecution, r.MeanStall)
		}
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsDB, "record-db", "cachesim_runs.sqlite3", "SQLite database of recorded runs")

	rootCmd.AddCommand(runsCmd)
}
