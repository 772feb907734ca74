// Package diffutil renders a unified diff between two snapshots' function
// sets, backing the CLI's `manage diff` subcommand.
package diffutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/tscg-project/tscg/internal/store"
)

// Snapshot is the subset of a store.Snapshot's contents diffutil compares.
// Built by the CLI from store.FunctionsBySnapshot results rather than
// depending on the model package's write-side types.
type Snapshot struct {
	ID        string
	Functions []store.FunctionRow
}

// SnapshotDiff renders a unified diff of the function sets of two
// snapshots, one sorted line per function (kind, name, file, line range).
// A function whose position changed shows as one removed and one added
// line. Identical snapshots produce an empty string.
func SnapshotDiff(before, after Snapshot) (string, error) {
	beforeLines := functionLines(before.Functions)
	afterLines := functionLines(after.Functions)

	body := unifiedBody(beforeLines, afterLines)
	if body == "" {
		return "", nil
	}

	fd := &diff.FileDiff{
		OrigName: before.ID,
		NewName:  after.ID,
		Hunks: []*diff.Hunk{{
			OrigStartLine: 1, OrigLines: int32(len(beforeLines)),
			NewStartLine: 1, NewLines: int32(len(afterLines)),
			Body: []byte(body),
		}},
	}
	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return "", fmt.Errorf("render snapshot diff: %w", err)
	}
	return string(out), nil
}

// functionLines renders each function as one sorted, stable text line so a
// line-oriented diff produces a readable function-level delta.
func functionLines(rows []store.FunctionRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, fmt.Sprintf("%s %s %s:%d-%d", r.Kind, r.Name, r.File, r.StartLine, r.EndLine))
	}
	sort.Strings(out)
	return out
}

// unifiedBody builds a hunk body marking lines present only in before with
// '-' and lines present only in after with '+', keeping shared lines as
// context. Good enough at function-count scale; it doesn't attempt a
// minimal edit script the way a line-level LCS diff would.
func unifiedBody(before, after []string) string {
	removed := onlyIn(before, after)
	added := onlyIn(after, before)
	if len(removed) == 0 && len(added) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, line := range before {
		if removed[line] {
			sb.WriteString("-" + line + "\n")
		} else {
			sb.WriteString(" " + line + "\n")
		}
	}
	for _, line := range after {
		if added[line] {
			sb.WriteString("+" + line + "\n")
		}
	}
	return sb.String()
}

func onlyIn(from, against []string) map[string]bool {
	in := make(map[string]bool, len(against))
	for _, l := range against {
		in[l] = true
	}
	out := make(map[string]bool)
	for _, l := range from {
		if !in[l] {
			out[l] = true
		}
	}
	return out
}
