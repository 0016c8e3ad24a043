// Package coverage runs the coverage command for an environment, renders the
// HTML report, and opens it in the default browser.
package coverage

import (
	"fmt"
	"os/exec"
	goruntime "runtime"
	"strings"

	"rolegate/internal/artifact"
	"rolegate/internal/config"
	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

const (
	targetID      = workflow.TargetCoverage
	targetVersion = "1.0.0"
)

// ConfigKeyEnvironment selects which environment's coverage command runs.
const ConfigKeyEnvironment = "environment"

// Target produces the coverage profile and HTML report artifacts.
type Target struct {
	*target.Base
	env string
	// openBrowser is swapped out in tests.
	openBrowser func(path string) error
}

// Register installs the coverage target factory.
func Register(reg *target.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(targetID, func(cfg target.Config) (target.Target, error) {
		env, _ := cfg[ConfigKeyEnvironment].(string)
		return New(env), nil
	})
}

// New constructs the coverage target.
func New(env string) *Target {
	info := target.Info{
		ID:          targetID,
		Name:        "Coverage",
		Description: "Runs tests with coverage, renders the HTML report, and opens it.",
		Version:     targetVersion,
	}
	base := target.NewBase(info)
	base.SetOutputs(artifact.CoverageProfile, artifact.CoverageHTML)
	return &Target{
		Base:        &base,
		env:         strings.TrimSpace(env),
		openBrowser: openInBrowser,
	}
}

// IsComplete reports whether both coverage artifacts are current.
func (t *Target) IsComplete(ctx *target.Context) (bool, error) {
	if err := runtime.ValidateContext(targetID, ctx); err != nil {
		return false, err
	}
	for _, ref := range []artifact.Ref{artifact.CoverageProfile, artifact.CoverageHTML} {
		current, err := runtime.ArtifactCurrent(ctx, targetID, targetVersion, ref)
		if err != nil || !current {
			return false, err
		}
	}
	return true, nil
}

// Run executes the coverage command and renders the report. The browser open
// is best effort: a headless machine still completes the target.
func (t *Target) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(targetID, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	env, err := t.selectEnvironment(ctx)
	if err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	if env.CoverageCommand == "" {
		return target.Result{Status: target.StatusNoOp, Message: fmt.Sprintf("no coverage command for %s", env.Name)}, nil
	}

	profilePath := artifact.CoverageProfile.Path(ctx.Workspace)
	htmlPath := artifact.CoverageHTML.Path(ctx.Workspace)
	command := expandPlaceholders(env.CoverageCommand, profilePath, htmlPath)
	runtime.Progressf(ctx, "coverage: %s", command)
	result, err := ctx.Runner.Run(ctx.Context(), command)
	if err != nil {
		return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", targetID, err)
	}
	if !result.Succeeded() {
		return target.Result{Status: target.StatusFailed},
			fmt.Errorf("%s: coverage command failed with exit %d: %s", targetID, result.ExitCode, firstLine(result.Stderr))
	}
	for _, ref := range []artifact.Ref{artifact.CoverageProfile, artifact.CoverageHTML} {
		if err := runtime.Record(ctx, targetID, targetVersion, ref, runtime.WithNote("environment", env.Name)); err != nil {
			return target.Result{Status: target.StatusFailed}, err
		}
	}
	if err := t.openBrowser(htmlPath); err != nil {
		runtime.Progressf(ctx, "coverage report at %s (browser open failed: %v)", htmlPath, err)
	}
	return target.Result{Status: target.StatusCompleted, Message: fmt.Sprintf("report at %s", htmlPath)}, nil
}

func (t *Target) selectEnvironment(ctx *target.Context) (config.Environment, error) {
	if t.env != "" {
		env, ok := ctx.Config.Environment(t.env)
		if !ok {
			return config.Environment{}, fmt.Errorf("%s: unknown environment %q", targetID, t.env)
		}
		return env, nil
	}
	envs := ctx.Config.Environments()
	if len(envs) == 0 {
		return config.Environment{}, fmt.Errorf("%s: no environments configured", targetID)
	}
	return envs[0], nil
}

// expandPlaceholders substitutes {profile} and {html} in the configured
// command with workspace paths.
func expandPlaceholders(command, profile, html string) string {
	command = strings.ReplaceAll(command, "{profile}", profile)
	command = strings.ReplaceAll(command, "{html}", html)
	return command
}

func openInBrowser(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

func firstLine(output []byte) string {
	text := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return text
}
