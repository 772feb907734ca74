package main

import (
	"github.com/spf13/cobra"
)

var (
	flagConfigPath string
	flagVerbose    bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tscg",
		Short:         "Static call-graph analysis engine for TypeScript projects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "tscg.yaml", "path to the project configuration file")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug-level logging")

	root.AddCommand(newMeasureCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newManageCmd())
	root.AddCommand(newAssessCmd())
	return root
}
