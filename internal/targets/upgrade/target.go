// Package upgrade re-pins dependency manifests via the configured commands
// and refreshes the tool-version pin file from the resolved output.
package upgrade

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

const (
	targetID      = workflow.TargetUpgrade
	targetVersion = "1.0.0"
)

// Target upgrades pinned dependencies.
type Target struct {
	*target.Base
}

// Register installs the upgrade target factory.
func Register(reg *target.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(targetID, func(target.Config) (target.Target, error) {
		return New(), nil
	})
}

// New constructs the upgrade target.
func New() *Target {
	info := target.Info{
		ID:          targetID,
		Name:        "Upgrade",
		Description: "Re-pins dependency manifests and refreshes the tool version pin.",
		Version:     targetVersion,
		Concurrency: target.ConcurrencyProfile{Exclusive: true},
	}
	base := target.NewBase(info)
	return &Target{Base: &base}
}

// IsComplete always reports false: upgrades run on demand.
func (t *Target) IsComplete(*target.Context) (bool, error) {
	return false, nil
}

// Run executes the upgrade commands, then copies the version line matching
// the configured prefix from the resolved manifest into the pin file. Pinning
// the tool's own version separately keeps bootstrap installs stable even
// when the full manifest moves.
func (t *Target) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(targetID, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	cfg := ctx.Config.Project.Upgrade
	if len(cfg.Commands) == 0 && cfg.VersionSource == "" {
		return target.Result{Status: target.StatusNoOp, Message: "no upgrade commands configured"}, nil
	}
	for _, command := range cfg.Commands {
		runtime.Progressf(ctx, "upgrade: %s", command)
		result, err := ctx.Runner.Run(ctx.Context(), command)
		if err != nil {
			return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", targetID, err)
		}
		if !result.Succeeded() {
			return target.Result{Status: target.StatusFailed},
				fmt.Errorf("%s: command failed with exit %d: %s", targetID, result.ExitCode, command)
		}
	}
	if cfg.VersionSource != "" && cfg.VersionPrefix != "" && cfg.VersionPin != "" {
		if err := t.refreshPin(ctx, cfg.VersionSource, cfg.VersionPrefix, cfg.VersionPin); err != nil {
			return target.Result{Status: target.StatusFailed}, err
		}
	}
	return target.Result{Status: target.StatusCompleted, Message: "dependencies re-pinned"}, nil
}

func (t *Target) refreshPin(ctx *target.Context, source, prefix, pin string) error {
	sourcePath := resolvePath(ctx, source)
	pinPath := resolvePath(ctx, pin)

	file, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("%s: open %s: %w", targetID, sourcePath, err)
	}
	defer file.Close()

	var line string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		candidate := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(candidate, prefix) {
			line = candidate
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: read %s: %w", targetID, sourcePath, err)
	}
	if line == "" {
		return fmt.Errorf("%s: no line matching %q in %s", targetID, prefix, sourcePath)
	}
	if err := os.WriteFile(pinPath, []byte(line+"\n"), 0o644); err != nil {
		return fmt.Errorf("%s: write %s: %w", targetID, pinPath, err)
	}
	runtime.Progressf(ctx, "pinned %s", line)
	return nil
}

func resolvePath(ctx *target.Context, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ctx.Config.ProjectDir, path)
}
