// Package gitmeta collects the repository identity (commit, branch, tag) a
// snapshot was taken against. Per-file churn and blame statistics are a
// quality-metric concern and live outside this engine.
package gitmeta

import (
	"bytes"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/model"
)

// Collect runs a handful of cheap git plumbing commands against dir.
// Failure is non-fatal: an empty GitMeta is returned and the failure is
// logged at debug level, matching the engine's original practice of never
// letting collaborator metadata abort a scan.
func Collect(dir string, logger *zap.Logger) model.GitMeta {
	meta := model.GitMeta{
		Commit: run(dir, "rev-parse", "HEAD"),
		Branch: run(dir, "rev-parse", "--abbrev-ref", "HEAD"),
		Tag:    run(dir, "describe", "--tags", "--abbrev=0"),
	}
	if meta.Commit == "" && logger != nil {
		logger.Debug("gitmeta.unavailable", zap.String("dir", dir))
	}
	return meta
}

func run(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(out.String())
}
