package upgrade

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolegate/internal/config"
	"rolegate/internal/target"
	"rolegate/internal/workflow"
)

func newTestContext(t *testing.T, cfg config.UpgradeConfig) *target.Context {
	t.Helper()
	dir := t.TempDir()
	conf := &config.Config{
		ProjectDir:    dir,
		WorkspacePath: filepath.Join(dir, config.WorkspaceDir),
		Project: config.ProjectConfig{
			Version: 1,
			Upgrade: cfg,
		},
	}
	ws := workflow.NewWorkspace(conf.ProjectDir, conf.WorkspacePath, conf.CatalogDir())
	require.NoError(t, ws.EnsureDirs())
	return target.NewContext(conf, ws, nil)
}

func TestRunExecutesCommandsAndRefreshesPin(t *testing.T) {
	ctx := newTestContext(t, config.UpgradeConfig{
		Commands:      []string{"echo resolving > upgrade.log"},
		VersionSource: "requirements.txt",
		VersionPrefix: "rolegate==",
		VersionPin:    "rolegate.pin",
	})
	source := "# resolved manifest\nsqlparse==0.5.0\nrolegate==2.4.1\nother==1.0.0\n"
	require.NoError(t, os.WriteFile(filepath.Join(ctx.Config.ProjectDir, "requirements.txt"), []byte(source), 0o644))

	result, err := New().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusCompleted, result.Status)

	pin, err := os.ReadFile(filepath.Join(ctx.Config.ProjectDir, "rolegate.pin"))
	require.NoError(t, err)
	assert.Equal(t, "rolegate==2.4.1\n", string(pin))
}

func TestRunFailsWhenPrefixNotFound(t *testing.T) {
	ctx := newTestContext(t, config.UpgradeConfig{
		VersionSource: "requirements.txt",
		VersionPrefix: "rolegate==",
		VersionPin:    "rolegate.pin",
	})
	require.NoError(t, os.WriteFile(filepath.Join(ctx.Config.ProjectDir, "requirements.txt"), []byte("other==1.0.0\n"), 0o644))

	_, err := New().Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no line matching")
}

func TestRunFailsOnCommandError(t *testing.T) {
	ctx := newTestContext(t, config.UpgradeConfig{Commands: []string{"exit 2"}})

	result, err := New().Run(ctx)
	require.Error(t, err)
	assert.Equal(t, target.StatusFailed, result.Status)
}

func TestRunNoOpWithoutConfig(t *testing.T) {
	ctx := newTestContext(t, config.UpgradeConfig{})
	result, err := New().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusNoOp, result.Status)
}

func TestUpgradeRequiresExclusiveExecution(t *testing.T) {
	assert.True(t, New().Info().RequiresExclusiveExecution())
}
