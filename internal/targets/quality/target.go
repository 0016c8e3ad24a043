// Package quality sequences the configured style and lint commands and
// archives their combined output as the quality report.
package quality

import (
	"bytes"
	"fmt"

	"rolegate/internal/artifact"
	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

const (
	targetID      = workflow.TargetQuality
	targetVersion = "1.0.0"
)

// Target runs every configured quality command; the first non-zero exit
// fails the target. Output is captured either way.
type Target struct {
	*target.Base
}

// Register installs the quality target factory.
func Register(reg *target.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(targetID, func(target.Config) (target.Target, error) {
		return New(), nil
	})
}

// New constructs the quality target.
func New() *Target {
	info := target.Info{
		ID:          targetID,
		Name:        "Quality",
		Description: "Runs the configured style and lint commands.",
		Version:     targetVersion,
	}
	base := target.NewBase(info)
	base.SetOutputs(artifact.QualityReport)
	return &Target{Base: &base}
}

// IsComplete reports whether a current quality report exists.
func (t *Target) IsComplete(ctx *target.Context) (bool, error) {
	if err := runtime.ValidateContext(targetID, ctx); err != nil {
		return false, err
	}
	return runtime.ArtifactCurrent(ctx, targetID, targetVersion, artifact.QualityReport)
}

// Run executes the quality commands in order.
func (t *Target) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(targetID, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	commands := ctx.Config.Project.Quality.Commands
	if len(commands) == 0 {
		return target.Result{Status: target.StatusNoOp, Message: "no quality commands configured"}, nil
	}

	var report bytes.Buffer
	failed := ""
	for _, command := range commands {
		runtime.Progressf(ctx, "quality: %s", command)
		fmt.Fprintf(&report, "$ %s\n", command)
		result, err := ctx.Runner.Run(ctx.Context(), command)
		if err != nil {
			return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", targetID, err)
		}
		report.Write(result.CombinedOutput())
		if !result.Succeeded() {
			fmt.Fprintf(&report, "command exited with status %d\n", result.ExitCode)
			failed = command
			break
		}
	}

	path := artifact.QualityReport.Path(ctx.Workspace)
	if err := runtime.WriteReport(path, report.Bytes()); err != nil {
		return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", targetID, err)
	}
	if failed != "" {
		// The report is kept for inspection but not recorded: the target
		// stays incomplete and reruns next time.
		return target.Result{
			Status:  target.StatusFailed,
			Message: fmt.Sprintf("quality command failed: %s", failed),
		}, fmt.Errorf("%s: command failed: %s", targetID, failed)
	}
	if err := runtime.Record(ctx, targetID, targetVersion, artifact.QualityReport); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	return target.Result{Status: target.StatusCompleted, Message: fmt.Sprintf("%d commands passed", len(commands))}, nil
}
