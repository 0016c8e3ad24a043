package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"rolegate/internal/artifact"
	"rolegate/internal/config"
	"rolegate/internal/target"
	"rolegate/internal/workflow"
)

func newPluginContext(t *testing.T) *target.Context {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		ProjectDir:    root,
		WorkspacePath: filepath.Join(root, config.WorkspaceDir),
		Project:       config.ProjectConfig{Version: 1},
	}
	ws := workflow.NewWorkspace(cfg.ProjectDir, cfg.WorkspacePath, cfg.CatalogDir())
	if err := ws.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	return target.NewContext(cfg, ws, nil)
}

func TestCommandTargetRunsAndClaimsOutputs(t *testing.T) {
	ctx := newPluginContext(t)
	reportPath := artifact.QualityReport.Path(ctx.Workspace)
	def := TargetDefinition{
		ID:       "custom-lint",
		Version:  "1.0.0",
		Commands: []string{"echo lint clean > " + reportPath},
		Outputs:  []ArtifactBinding{{Artifact: artifact.QualityReport.ID}},
	}
	tgt, err := newCommandTarget(def, nil)
	if err != nil {
		t.Fatalf("build target: %v", err)
	}

	done, err := tgt.IsComplete(ctx)
	if err != nil || done {
		t.Fatalf("expected incomplete before run (done=%v err=%v)", done, err)
	}

	result, err := tgt.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != target.StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if _, err := os.Stat(reportPath); err != nil {
		t.Fatalf("report not written: %v", err)
	}

	done, err = tgt.IsComplete(ctx)
	if err != nil || !done {
		t.Fatalf("expected complete after run (done=%v err=%v)", done, err)
	}
}

func TestCommandTargetFailureStopsSequence(t *testing.T) {
	ctx := newPluginContext(t)
	marker := filepath.Join(ctx.Config.ProjectDir, "after")
	def := TargetDefinition{
		ID:       "flaky",
		Version:  "1.0.0",
		Commands: []string{"exit 3", "touch " + marker},
	}
	tgt, err := newCommandTarget(def, nil)
	if err != nil {
		t.Fatalf("build target: %v", err)
	}

	result, err := tgt.Run(ctx)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if result.Status != target.StatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Fatalf("later command should not run after failure")
	}
}

func TestCommandTargetWithoutOutputsAlwaysReruns(t *testing.T) {
	ctx := newPluginContext(t)
	def := TargetDefinition{
		ID:       "phony",
		Version:  "1.0.0",
		Commands: []string{"true"},
	}
	tgt, err := newCommandTarget(def, nil)
	if err != nil {
		t.Fatalf("build target: %v", err)
	}
	if _, err := tgt.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	done, err := tgt.IsComplete(ctx)
	if err != nil || done {
		t.Fatalf("phony targets never complete (done=%v err=%v)", done, err)
	}
}

func TestCommandTargetEnvReachesCommands(t *testing.T) {
	ctx := newPluginContext(t)
	out := filepath.Join(ctx.Config.ProjectDir, "env.txt")
	def := TargetDefinition{
		ID:       "env-check",
		Version:  "1.0.0",
		Commands: []string{"echo $PLUGIN_GREETING > " + out},
		Env:      map[string]string{"PLUGIN_GREETING": "bonjour"},
	}
	tgt, err := newCommandTarget(def, nil)
	if err != nil {
		t.Fatalf("build target: %v", err)
	}
	if _, err := tgt.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read env output: %v", err)
	}
	if string(data) != "bonjour\n" {
		t.Fatalf("unexpected env output: %q", data)
	}
}
