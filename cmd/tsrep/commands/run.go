package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/tsreplicate/jobspec"
	"github.com/teranos/tsreplicate/orchestrator"
	"github.com/teranos/tsreplicate/tsdb"
)

var configDir string

// RunCmd discovers every job descriptor under --config and runs them all,
// blocking until every run-to-completion job finishes; when any
// incremental-scheduled job exists, it keeps running until interrupted.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every job descriptor in the configuration directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		o := orchestrator.New(configDir, buildAdapters)
		os.Exit(orchestrator.RunUntilSignal(o))
		return nil
	},
}

func init() {
	RunCmd.Flags().StringVar(&configDir, "config", "/config", "directory containing job descriptor YAML files")
}

// buildAdapters constructs the source and destination transport clients
// for a job from its descriptor's endpoint configuration.
func buildAdapters(spec *jobspec.JobSpec) (source, dest tsdb.Adapter) {
	source = tsdb.NewClient(spec.Source.URL, tsdb.ClientOptions{
		Username:        spec.Source.User,
		Password:        spec.Source.Password,
		Timeout:         spec.Timeout(),
		MaxRetries:      spec.Options.Retries,
		RetryDelay:      spec.RetryDelay(),
		InsecureSkipTLS: spec.Source.SSL && !spec.Source.VerifySSL,
	})
	dest = tsdb.NewClient(spec.Destination.URL, tsdb.ClientOptions{
		Username:        spec.Destination.User,
		Password:        spec.Destination.Password,
		Timeout:         spec.Timeout(),
		MaxRetries:      spec.Options.Retries,
		RetryDelay:      spec.RetryDelay(),
		InsecureSkipTLS: spec.Destination.SSL && !spec.Destination.VerifySSL,
	})
	return source, dest
}
