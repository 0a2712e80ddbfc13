// Package cmd wires the controller's single long-running process behind a
// small cobra command tree, following the teacher's cmd/root.go +
// cmd/start.go split even though this controller has only one real
// subcommand: a daemon has no interactive UI, but the same "root command +
// subcommand" shape still gives operators `--help` and a place to add a
// future `reconcile-once` or `status` subcommand without restructuring.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "npm-docker-sync",
	Short: "Reconciles container labels into reverse-proxy manager state",
	Long: `npm-docker-sync watches a container host's lifecycle events and
reconciles declarative per-container labels into proxy hosts and streams on
a reverse-proxy manager's REST API, optionally mirroring that configuration
to one or more secondary instances.`,
}

// Execute runs the root command, dispatching to the requested subcommand.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
