package coverage

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

func newTestContext(t *testing.T, envs ...config.Environment) *target.Context {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		ProjectDir:    dir,
		WorkspacePath: filepath.Join(dir, config.WorkspaceDir),
		Project: config.ProjectConfig{
			Version:      1,
			Environments: envs,
		},
	}
	ws := workflow.NewWorkspace(cfg.ProjectDir, cfg.WorkspacePath, cfg.CatalogDir())
	require.NoError(t, ws.EnsureDirs())
	return target.NewContext(cfg, ws, nil)
}

func TestRunProducesProfileAndReport(t *testing.T) {
	ctx := newTestContext(t, config.Environment{
		Name:            "default",
		TestCommand:     "true",
		CoverageCommand: "echo profile-data > {profile} && echo '<html></html>' > {html}",
	})

	var opened string
	tgt := New("")
	tgt.openBrowser = func(path string) error {
		opened = path
		return nil
	}

	result, err := tgt.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusCompleted, result.Status)
	assert.Equal(t, artifact.CoverageHTML.Path(ctx.Workspace), opened)

	profile, err := os.ReadFile(artifact.CoverageProfile.Path(ctx.Workspace))
	require.NoError(t, err)
	assert.Contains(t, string(profile), "profile-data")

	done, err := tgt.IsComplete(ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRunCompletesWhenBrowserFails(t *testing.T) {
	ctx := newTestContext(t, config.Environment{
		Name:            "default",
		TestCommand:     "true",
		CoverageCommand: "echo x > {profile} && echo y > {html}",
	})

	tgt := New("")
	tgt.openBrowser = func(string) error { return os.ErrNotExist }

	result, err := tgt.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusCompleted, result.Status)
}

func TestRunFailsWhenCommandFails(t *testing.T) {
	ctx := newTestContext(t, config.Environment{
		Name:            "default",
		TestCommand:     "true",
		CoverageCommand: "exit 9",
	})

	tgt := New("")
	tgt.openBrowser = func(string) error { return nil }

	result, err := tgt.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, target.StatusFailed, result.Status)

	done, err := tgt.IsComplete(ctx)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestRunNoOpWithoutCoverageCommand(t *testing.T) {
	ctx := newTestContext(t, config.Environment{Name: "default", TestCommand: "true"})

	tgt := New("")
	result, err := tgt.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusNoOp, result.Status)
}

func TestRunSelectsNamedEnvironment(t *testing.T) {
	ctx := newTestContext(t,
		config.Environment{Name: "a", TestCommand: "true"},
		config.Environment{Name: "b", TestCommand: "true", CoverageCommand: "echo p > {profile} && echo h > {html}"},
	)

	tgt := New("b")
	tgt.openBrowser = func(string) error { return nil }
	result, err := tgt.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusCompleted, result.Status)

	meta, ok, err := ctx.Artifacts.Metadata(artifact.CoverageProfile)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", meta.Notes["environment"])
}

func TestExpandPlaceholders(t *testing.T) {
	got := expandPlaceholders("cov -o {profile} --html {html}", "/tmp/p.out", "/tmp/r.html")
	assert.Equal(t, "cov -o /tmp/p.out --html /tmp/r.html", got)
}
