package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/tsreplicate/jobspec"
)

var validateConfigDir string

// ValidateCmd loads every job descriptor under --config and reports
// problems without running any job.
var ValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate job descriptors without running them",
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, loadErrs := jobspec.LoadAll(validateConfigDir)

		for _, err := range loadErrs {
			fmt.Fprintf(cmd.ErrOrStderr(), "invalid: %v\n", err)
		}
		for _, spec := range specs {
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", spec.Name)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d valid, %d invalid\n", len(specs), len(loadErrs))
		if len(loadErrs) > 0 {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	ValidateCmd.Flags().StringVar(&validateConfigDir, "config", "/config", "directory containing job descriptor YAML files")
}
