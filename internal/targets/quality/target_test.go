package quality

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolegate/internal/artifact"
	"rolegate/internal/config"
	"rolegate/internal/target"
	"rolegate/internal/workflow"
)

func newTestContext(t *testing.T, commands ...string) *target.Context {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		ProjectDir:    dir,
		WorkspacePath: filepath.Join(dir, config.WorkspaceDir),
		Project: config.ProjectConfig{
			Version: 1,
			Quality: config.QualityConfig{Commands: commands},
		},
	}
	ws := workflow.NewWorkspace(cfg.ProjectDir, cfg.WorkspacePath, cfg.CatalogDir())
	require.NoError(t, ws.EnsureDirs())
	return target.NewContext(cfg, ws, nil)
}

func TestRunCapturesOutputAndRecordsReport(t *testing.T) {
	ctx := newTestContext(t, "echo style ok", "true")

	tgt := New()
	result, err := tgt.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusCompleted, result.Status)

	report, err := os.ReadFile(artifact.QualityReport.Path(ctx.Workspace))
	require.NoError(t, err)
	assert.Contains(t, string(report), "$ echo style ok")
	assert.Contains(t, string(report), "style ok")

	done, err := tgt.IsComplete(ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRunStopsAtFirstFailureButKeepsReport(t *testing.T) {
	ctx := newTestContext(t, "echo before", "exit 4", "echo never-reached")

	tgt := New()
	result, err := tgt.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, target.StatusFailed, result.Status)

	report, err := os.ReadFile(artifact.QualityReport.Path(ctx.Workspace))
	require.NoError(t, err)
	assert.Contains(t, string(report), "before")
	assert.Contains(t, string(report), "exited with status 4")
	assert.NotContains(t, string(report), "never-reached")

	// A failing run leaves the target incomplete so it reruns.
	done, err := tgt.IsComplete(ctx)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestRunNoOpWithoutCommands(t *testing.T) {
	ctx := newTestContext(t)
	result, err := New().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusNoOp, result.Status)
}
