package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"zombiezen.com/go/sqlite"

	"github.com/tscg-project/tscg/internal/model"
)

// newAssessCmd reports the resolution-level breakdown of a snapshot's call
// edges: how many edges each stage produced and what confidence band they
// fall in, the quickest way to judge how conservative a run turned out.
func newAssessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assess <snapshot-id>",
		Short: "Summarize a snapshot's call-edge resolution confidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStoreForRead()
			if err != nil {
				return err
			}
			defer db.Close()

			counts := make(map[string]int)
			var total int
			err = db.Query(
				`SELECT resolution, count(*) FROM call_edges WHERE snapshot_id = ? GROUP BY resolution`,
				[]any{args[0]},
				func(stmt *sqlite.Stmt) error {
					n := stmt.ColumnInt(1)
					counts[stmt.ColumnText(0)] = n
					total += n
					return nil
				})
			if err != nil {
				return err
			}

			if total == 0 {
				fmt.Printf("snapshot %s has no call edges\n", args[0])
				return nil
			}

			levels := make([]string, 0, len(counts))
			for level := range counts {
				levels = append(levels, level)
			}
			sort.Strings(levels)

			fmt.Printf("snapshot %s: %d edges\n", args[0], total)
			for _, level := range levels {
				n := counts[level]
				low, high := model.ConfidenceRange(model.ResolutionLevel(level))
				pct := 100 * float64(n) / float64(total)
				if low == high {
					fmt.Printf("  %-20s %6d (%5.1f%%)  confidence %.2f\n", level, n, pct, low)
				} else {
					fmt.Printf("  %-20s %6d (%5.1f%%)  confidence %.2f-%.2f\n", level, n, pct, low, high)
				}
			}
			return nil
		},
	}
}
