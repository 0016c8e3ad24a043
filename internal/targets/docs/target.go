// Package docs builds the project documentation via the configured command
// and opens the generated index.
package docs

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

const (
	targetID      = workflow.TargetDocs
	targetVersion = "1.0.0"
)

// Target builds and opens documentation.
type Target struct {
	*target.Base
	openBrowser func(path string) error
}

// Register installs the docs target factory.
func Register(reg *target.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(targetID, func(target.Config) (target.Target, error) {
		return New(), nil
	})
}

// New constructs the docs target.
func New() *Target {
	info := target.Info{
		ID:          targetID,
		Name:        "Docs",
		Description: "Builds the documentation and opens the index.",
		Version:     targetVersion,
	}
	base := target.NewBase(info)
	return &Target{Base: &base, openBrowser: openInBrowser}
}

// IsComplete always reports false: docs rebuild on every request.
func (t *Target) IsComplete(*target.Context) (bool, error) {
	return false, nil
}

// Run builds the docs and opens the configured index (best effort).
func (t *Target) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(targetID, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	cfg := ctx.Config.Project.Docs
	if strings.TrimSpace(cfg.BuildCommand) == "" {
		return target.Result{Status: target.StatusNoOp, Message: "no docs build command configured"}, nil
	}
	runtime.Progressf(ctx, "docs: %s", cfg.BuildCommand)
	result, err := ctx.Runner.Run(ctx.Context(), cfg.BuildCommand)
	if err != nil {
		return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", targetID, err)
	}
	if !result.Succeeded() {
		return target.Result{Status: target.StatusFailed},
			fmt.Errorf("%s: build failed with exit %d", targetID, result.ExitCode)
	}
	if cfg.Index != "" {
		index := cfg.Index
		if !filepath.IsAbs(index) {
			index = filepath.Join(ctx.Config.ProjectDir, index)
		}
		if _, statErr := os.Stat(index); statErr == nil {
			if openErr := t.openBrowser(index); openErr != nil {
				runtime.Progressf(ctx, "docs built at %s (browser open failed: %v)", index, openErr)
			}
		} else {
			runtime.Progressf(ctx, "docs built but index %s not found", index)
		}
	}
	return target.Result{Status: target.StatusCompleted, Message: "documentation built"}, nil
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
