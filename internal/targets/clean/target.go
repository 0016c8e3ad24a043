// Package clean removes generated build and report state so the next run
// starts from scratch.
package clean

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rolegate/internal/artifact"
	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

const (
	targetID      = workflow.TargetClean
	targetVersion = "1.0.0"
)

// Target deletes the configured scratch paths plus the workspace reports
// and tmp directories.
type Target struct {
	*target.Base
}

// Register installs the clean target factory.
func Register(reg *target.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(targetID, func(target.Config) (target.Target, error) {
		return New(), nil
	})
}

// New constructs the clean target.
func New() *Target {
	info := target.Info{
		ID:          targetID,
		Name:        "Clean",
		Description: "Removes generated reports, coverage output, and configured scratch paths.",
		Version:     targetVersion,
		Concurrency: target.ConcurrencyProfile{Exclusive: true},
	}
	base := target.NewBase(info)
	return &Target{Base: &base}
}

// IsComplete always reports false: clean is an on-demand action.
func (t *Target) IsComplete(*target.Context) (bool, error) {
	return false, nil
}

// Run deletes the scratch paths. Paths are resolved against the project
// directory and must stay inside it.
func (t *Target) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(targetID, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	removed := 0
	paths := append([]string{}, ctx.Config.Project.Clean.Paths...)
	paths = append(paths, ctx.Workspace.ReportsPath(), filepath.Join(ctx.Workspace.Dir(), workflow.TmpDir))
	for _, raw := range paths {
		path, err := t.resolve(ctx, raw)
		if err != nil {
			return target.Result{Status: target.StatusFailed}, err
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: remove %s: %w", targetID, path, err)
		}
		runtime.Progressf(ctx, "removed %s", path)
		removed++
	}
	// Stale provenance would otherwise claim reports that no longer exist.
	for _, ref := range []artifact.Ref{artifact.CoverageProfile, artifact.CoverageHTML, artifact.QualityReport, artifact.PIIReport} {
		if err := ctx.Artifacts.Forget(ref); err != nil {
			return target.Result{Status: target.StatusFailed}, err
		}
	}
	if err := ctx.Workspace.EnsureDirs(); err != nil {
		return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: recreate workspace dirs: %w", targetID, err)
	}
	if removed == 0 {
		return target.Result{Status: target.StatusNoOp, Message: "nothing to clean"}, nil
	}
	return target.Result{Status: target.StatusCompleted, Message: fmt.Sprintf("removed %d paths", removed)}, nil
}

func (t *Target) resolve(ctx *target.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%s: empty clean path", targetID)
	}
	path := raw
	if !filepath.IsAbs(path) {
		path = filepath.Join(ctx.Config.ProjectDir, path)
	}
	path = filepath.Clean(path)
	root := filepath.Clean(ctx.Config.ProjectDir)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == "." {
		return "", fmt.Errorf("%s: refusing to remove %s outside the project", targetID, raw)
	}
	return path, nil
}
