// Command tsrep replicates time-series databases between InfluxDB
// 1.8-style endpoints according to a directory of job descriptors,
// grounded on the teacher's cmd/qntx cobra entrypoint (see SPEC_FULL.md
// §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/tsreplicate/cmd/tsrep/commands"
	"github.com/teranos/tsreplicate/internal/logger"
)

var (
	verbose bool
	jsonLog bool
)

var rootCmd = &cobra.Command{
	Use:   "tsrep",
	Short: "tsrep - time-series database replication",
	Long: `tsrep replicates measurements between InfluxDB 1.8-style source and
destination databases according to a directory of YAML job descriptors.

Examples:
  tsrep run --config /config          # run every job descriptor once or under schedule
  tsrep run --config /config -v       # run with debug-level logging
  tsrep validate --config /config     # validate descriptors without running them`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(jsonLog, verbose); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json", false, "emit logs as JSON")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
