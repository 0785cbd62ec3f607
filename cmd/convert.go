package cmd

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/cachesim/sim/workload"
)

var (
	convertInput  string
	convertOutput string
	convertBase   int
)

// convertCmd rewrites an external trace into the simulator's trace format
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert an external trace to the simulator's trace format",
	Long:  "Convert a trace whose addresses are in another base to decimal addresses and lower-case modes, filling in missing arrival times with the line number. Output goes to stdout unless --filename is set.",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		if convertInput == "" {
			logrus.Fatalf("No input trace provided. Use --convertfile.")
		}
		in, err := os.Open(convertInput)
		if err != nil {
			logrus.Fatalf("Cannot open %s: %v", convertInput, err)
		}
		defer in.Close() //nolint:errcheck // read-only file

		var out io.Writer = os.Stdout
		if convertOutput != "" {
			file, err := os.Create(convertOutput)
			if err != nil {
				logrus.Fatalf("Cannot create %s: %v", convertOutput, err)
			}
			defer file.Close() //nolint:errcheck // flushed by ConvertTrace
			out = file
		}

		if err := workload.ConvertTrace(in, out, convertBase); err != nil {
			logrus.Fatalf("Conversion failed: %v", err)
		}
		logrus.Infof("Converted %s", convertInput)
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertInput, "convertfile", "c", "", "Input trace to convert")
	convertCmd.Flags().StringVarP(&convertOutput, "filename", "f", "", "Output trace file (default stdout)")
	convertCmd.Flags().IntVarP(&convertBase, "base", "b", 2, "Number base of the input addresses (e.g. 2, 10, 16)")

	rootCmd.AddCommand(convertCmd)
}
