package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tscg-project/tscg/internal/callgraph"
	"github.com/tscg-project/tscg/internal/config"
	"github.com/tscg-project/tscg/internal/logging"
	"github.com/tscg-project/tscg/internal/metrics"
	"github.com/tscg-project/tscg/internal/store"
)

func newMeasureCmd() *cobra.Command {
	var label string
	var priorSnapshot string

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Run the analysis pipeline and commit a new snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfigPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(flagVerbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			db, err := store.Open(cfg.StoragePath, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			reg := metrics.New(prometheus.NewRegistry())

			res, err := callgraph.Run(cfg, db, callgraph.RunOptions{
				Label:           label,
				PriorSnapshotID: priorSnapshot,
				Metrics:         reg,
			}, logger)
			if err != nil {
				return fmt.Errorf("measure: %w", err)
			}

			fmt.Printf("snapshot %s: %s functions, %s edges, %s types (%s unresolved, %s files skipped) in %s\n",
				res.SnapshotID,
				humanize.Comma(int64(res.FunctionCount)),
				humanize.Comma(int64(res.EdgeCount)),
				humanize.Comma(int64(res.TypeCount)),
				humanize.Comma(int64(res.UnresolvedCount)),
				humanize.Comma(int64(res.SkippedFiles)),
				res.Elapsed.Round(1e6))
			for _, w := range res.Warnings {
				fmt.Println("warning:", w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "human-readable label to attach to the snapshot")
	cmd.Flags().StringVar(&priorSnapshot, "prior-snapshot", "", "snapshot id Stage 8 resolves cross-snapshot calls against")
	return cmd
}
