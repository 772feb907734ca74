package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tscg-project/tscg/internal/diffutil"
)

func newManageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manage",
		Short: "Maintenance operations over the snapshot store",
	}
	cmd.AddCommand(newManageDiffCmd())
	return cmd
}

func newManageDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <before-snapshot-id> <after-snapshot-id>",
		Short: "Render a unified diff of two snapshots' function sets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStoreForRead()
			if err != nil {
				return err
			}
			defer db.Close()

			beforeFns, err := db.FunctionsBySnapshot(args[0])
			if err != nil {
				return err
			}
			afterFns, err := db.FunctionsBySnapshot(args[1])
			if err != nil {
				return err
			}

			out, err := diffutil.SnapshotDiff(
				diffutil.Snapshot{ID: args[0], Functions: beforeFns},
				diffutil.Snapshot{ID: args[1], Functions: afterFns},
			)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Println("no function-level differences")
				return nil
			}
			fmt.Print(out)
			return nil
		},
	}
}
