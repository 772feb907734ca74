package callgraph

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/config"
	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/gitmeta"
	"github.com/tscg-project/tscg/internal/logging"
	"github.com/tscg-project/tscg/internal/metrics"
	"github.com/tscg-project/tscg/internal/model"
	"github.com/tscg-project/tscg/internal/registry"
	"github.com/tscg-project/tscg/internal/store"
	"github.com/tscg-project/tscg/internal/typesystem"
)

// RunOptions configures one end-to-end analysis run.
type RunOptions struct {
	Label           string
	Traces          []TraceEvent // optional runtime observations for Stage 5
	PriorSnapshotID string       // optional cross-snapshot lookup for Stage 8
	Metrics         *metrics.Registry
}

// Result summarizes a completed run for the CLI's final output line.
type Result struct {
	SnapshotID      string
	FunctionCount   int
	EdgeCount       int
	TypeCount       int
	UnresolvedCount int
	SkippedFiles    int
	Warnings        []string
	Elapsed         time.Duration
}

// Run executes the full staged pipeline over one project: load sources,
// build the Function Registry and type graph, run Stages 1 through 8 in
// their fixed order, then persist everything as one committed snapshot.
// A failure partway through aborts the snapshot transaction; nothing is
// left half-written.
func Run(cfg config.Config, db *store.Store, opts RunOptions, logger *zap.Logger) (Result, error) {
	start := time.Now()

	project, parseErrors := frontend.Load(cfg.ProjectRoot, frontend.Options{
		IncludeGlobs: cfg.IncludeGlobs, ExcludeGlobs: cfg.ExcludeGlobs,
	}, logger)
	for _, e := range parseErrors {
		logging.Recoverable(logger, "source load", e)
	}

	reg, regErrors := registry.Collect(project)
	for _, e := range regErrors {
		logging.Recoverable(logger, "function registry", e)
	}

	graph := typesystem.Build(project, reg, logger)

	state := NewState()

	if err := RunStage1(project, reg, state, logger.With(zap.String("stage", "local_exact"))); err != nil {
		return Result{}, fmt.Errorf("stage1: %w", err)
	}
	if err := RunStage2(project, reg, state, logger.With(zap.String("stage", "import_exact"))); err != nil {
		return Result{}, fmt.Errorf("stage2: %w", err)
	}
	if err := RunStage3(graph, reg, state, logger.With(zap.String("stage", "cha"))); err != nil {
		return Result{}, fmt.Errorf("stage3: %w", err)
	}
	if err := RunStage4(reg, state, logger.With(zap.String("stage", "rta"))); err != nil {
		return Result{}, fmt.Errorf("stage4: %w", err)
	}
	if len(opts.Traces) > 0 {
		if err := RunStage5(opts.Traces, state, logger.With(zap.String("stage", "runtime"))); err != nil {
			return Result{}, fmt.Errorf("stage5: %w", err)
		}
	}
	if err := RunStage6(state, logger.With(zap.String("stage", "external"))); err != nil {
		return Result{}, fmt.Errorf("stage6: %w", err)
	}
	if err := RunStage7(project, reg, cfg.CallbackPatterns, state, logger.With(zap.String("stage", "callback"))); err != nil {
		return Result{}, fmt.Errorf("stage7: %w", err)
	}
	if err := RunStage8(db, opts.PriorSnapshotID, state, reg, logger.With(zap.String("stage", "db_bridge"))); err != nil {
		return Result{}, fmt.Errorf("stage8: %w", err)
	}

	git := gitmeta.Collect(cfg.ProjectRoot, logger)
	snapMeta := model.Snapshot{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		Label:      opts.Label,
		SourceRoot: cfg.ProjectRoot,
		ConfigHash: cfg.Hash(),
		Git:        git,
	}

	tx, err := db.BeginSnapshot(snapMeta)
	if err != nil {
		return Result{}, fmt.Errorf("begin snapshot: %w", err)
	}

	if err := tx.SaveFunctions(reg.All()); err != nil {
		_ = tx.Abort(err)
		return Result{}, fmt.Errorf("save functions: %w", err)
	}

	edges := state.Edges()
	calleeFile := func(calleeID string) string {
		if fn := reg.ByID(calleeID); fn != nil {
			return fn.File
		}
		return ""
	}
	if err := tx.SaveEdges(edges, calleeFile); err != nil {
		_ = tx.Abort(err)
		return Result{}, fmt.Errorf("save edges: %w", err)
	}

	defs, members, rels := graph.Snapshot()
	if err := tx.SaveTypeSystem(defs, members, rels); err != nil {
		_ = tx.Abort(err)
		return Result{}, fmt.Errorf("save type system: %w", err)
	}

	unresolved := len(state.UnresolvedAfterStage1) + len(state.UnresolvedAfterStage2) + len(state.UnresolvedAfterCHA)
	tx.SetUnresolvedCount(unresolved)
	tx.SetSkippedFileCount(len(parseErrors))

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit snapshot: %w", err)
	}

	if opts.Metrics != nil {
		counts := make(map[string]int)
		for _, e := range edges {
			counts[string(e.Resolution)]++
		}
		opts.Metrics.ObserveEdges(counts)
	}

	res := Result{
		SnapshotID:      snapMeta.ID,
		FunctionCount:   reg.Len(),
		EdgeCount:       len(edges),
		TypeCount:       len(defs),
		UnresolvedCount: unresolved,
		SkippedFiles:    len(parseErrors),
		Warnings:        state.Warnings,
		Elapsed:         time.Since(start),
	}

	logger.Info("run complete",
		zap.String("snapshot_id", res.SnapshotID),
		zap.String("functions", humanize.Comma(int64(res.FunctionCount))),
		zap.String("edges", humanize.Comma(int64(res.EdgeCount))),
		zap.Duration("elapsed", res.Elapsed))

	return res, nil
}
