package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tscg-project/tscg/internal/config"
	"github.com/tscg-project/tscg/internal/logging"
	"github.com/tscg-project/tscg/internal/store"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <snapshot-id>",
		Short: "Query a committed snapshot's functions, edges, or types",
	}
	cmd.AddCommand(newInspectFunctionsCmd())
	cmd.AddCommand(newInspectEdgesCmd())
	cmd.AddCommand(newInspectTypeCmd())
	return cmd
}

func openStoreForRead() (*store.Store, error) {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(flagVerbose)
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.StoragePath, logger)
}

func newInspectFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions <snapshot-id>",
		Short: "List every function recorded in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStoreForRead()
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := db.FunctionsBySnapshot(args[0])
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Printf("%s %s %s %s:%d-%d\n", r.ID, r.Kind, r.Name, r.File, r.StartLine, r.EndLine)
			}
			return nil
		},
	}
}

func newInspectEdgesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edges <snapshot-id> <caller-id>",
		Short: "List every outgoing call edge from one function",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStoreForRead()
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := db.EdgesByCaller(args[0], args[1])
			if err != nil {
				return err
			}
			for _, r := range rows {
				callee := r.CalleeID
				if callee == "" {
					callee = r.CalleeName + " (unresolved)"
				}
				fmt.Printf("%s -> %s  [%s, confidence %.2f]\n", r.CallerID, callee, r.Resolution, r.Confidence)
			}
			return nil
		},
	}
}

func newInspectTypeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "type <snapshot-id> <name>",
		Short: "Show a type's members and implementers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStoreForRead()
			if err != nil {
				return err
			}
			defer db.Close()

			types, err := db.TypeByName(args[0], args[1])
			if err != nil {
				return err
			}
			if len(types) == 0 {
				fmt.Printf("no type named %q in snapshot %s\n", args[1], args[0])
				return nil
			}
			for _, t := range types {
				fmt.Printf("%s %s (%s) at %s\n", t.ID, t.Name, t.Kind, t.File)

				members, err := db.MembersOf(t.ID)
				if err != nil {
					return err
				}
				for _, m := range members {
					fmt.Printf("  member %s %s\n", m.Kind, m.Name)
				}

				implementers, err := db.ImplementersOf(args[0], t.ID)
				if err != nil {
					return err
				}
				for _, im := range implementers {
					fmt.Printf("  implemented by %s (%s)\n", im.Name, im.File)
				}
			}
			return nil
		},
	}
}
