package translations

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolegate/internal/config"
	"rolegate/internal/i18n"
	"rolegate/internal/target"
	"rolegate/internal/workflow"
)

const sampleSource = `package sample

func T(s string) string { return s }

func Greet() string {
	return T("Grant access")
}

func Deny() string {
	return T("Access denied for %(user)s")
}
`

func newTestContext(t *testing.T, locales ...string) *target.Context {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(sampleSource), 0o644))

	cfg := &config.Config{
		ProjectDir:    dir,
		WorkspacePath: filepath.Join(dir, config.WorkspaceDir),
		Project: config.ProjectConfig{
			Version: 1,
			Translations: config.TranslationConfig{
				SourceLocale: "en",
				Locales:      locales,
				CatalogDir:   "locale",
			},
		},
	}
	ws := workflow.NewWorkspace(cfg.ProjectDir, cfg.WorkspacePath, cfg.CatalogDir())
	require.NoError(t, ws.EnsureDirs())
	return target.NewContext(cfg, ws, nil)
}

func writeLocaleCatalog(t *testing.T, ctx *target.Context, locale string, messages ...i18n.Message) {
	t.Helper()
	catalog, err := i18n.NewCatalog(locale)
	require.NoError(t, err)
	for _, msg := range messages {
		require.NoError(t, catalog.Add(msg))
	}
	path := ctx.Workspace.CatalogPath(locale)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, catalog.WritePO(file))
}

func readCatalog(t *testing.T, ctx *target.Context, locale string) *i18n.Catalog {
	t.Helper()
	file, err := os.Open(ctx.Workspace.CatalogPath(locale))
	require.NoError(t, err)
	defer file.Close()
	catalog, err := i18n.ParsePO(locale, file)
	require.NoError(t, err)
	return catalog
}

func TestExtractWritesTemplateAndMergesLocales(t *testing.T) {
	ctx := newTestContext(t, "fr")
	writeLocaleCatalog(t, ctx, "fr",
		i18n.Message{ID: "Grant access", Str: "Accorder l'accès"},
		i18n.Message{ID: "No longer in the sources", Str: "Obsolète"},
	)

	extract := NewExtract()
	result, err := extract.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusCompleted, result.Status)

	file, err := os.Open(ctx.Workspace.SourceCatalogPath())
	require.NoError(t, err)
	defer file.Close()
	template, err := i18n.ParsePO("en", file)
	require.NoError(t, err)
	assert.Equal(t, 2, template.Len())
	_, ok := template.Lookup("Grant access")
	assert.True(t, ok)

	fr := readCatalog(t, ctx, "fr")
	msg, ok := fr.Lookup("Grant access")
	require.True(t, ok)
	assert.Equal(t, "Accorder l'accès", msg.Str)
	_, ok = fr.Lookup("No longer in the sources")
	assert.False(t, ok, "stale entries should drop during merge")

	done, err := extract.IsComplete(ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestExtractFingerprintTracksSources(t *testing.T) {
	ctx := newTestContext(t)
	extract := NewExtract()
	_, err := extract.Run(ctx)
	require.NoError(t, err)

	before, err := extract.ArtifactFingerprints(ctx)
	require.NoError(t, err)

	extra := "package sample2\n\nfunc Translate(s string) string { return s }\n\nfunc Bye() string { return Translate(\"Goodbye\") }\n"
	require.NoError(t, os.WriteFile(filepath.Join(ctx.Config.ProjectDir, "extra.go"), []byte(extra), 0o644))

	after, err := extract.ArtifactFingerprints(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before["source-catalog"], after["source-catalog"])
}

func TestDummyGeneratesPseudoLocale(t *testing.T) {
	ctx := newTestContext(t)
	_, err := NewExtract().Run(ctx)
	require.NoError(t, err)

	dummy := NewDummy()
	result, err := dummy.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusCompleted, result.Status)

	catalog := readCatalog(t, ctx, workflow.DummyLocale)
	msg, ok := catalog.Lookup("Access denied for %(user)s")
	require.True(t, ok)
	assert.Contains(t, msg.Str, "%(user)s", "placeholders survive pseudo-translation")
	assert.Contains(t, msg.Str, "#")

	done, err := dummy.IsComplete(ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestCompileWritesRuntimeCatalogs(t *testing.T) {
	ctx := newTestContext(t)
	_, err := NewExtract().Run(ctx)
	require.NoError(t, err)
	_, err = NewDummy().Run(ctx)
	require.NoError(t, err)

	compile := NewCompile()
	result, err := compile.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusCompleted, result.Status)

	file, err := os.Open(ctx.Workspace.CompiledCatalogPath(workflow.DummyLocale))
	require.NoError(t, err)
	defer file.Close()
	compiled, err := i18n.ReadCompiled(file)
	require.NoError(t, err)
	assert.Equal(t, workflow.DummyLocale, compiled.Locale)
	assert.Len(t, compiled.Messages, 2)
}

func TestCompileNoOpWithoutCatalogs(t *testing.T) {
	ctx := newTestContext(t)
	result, err := NewCompile().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusNoOp, result.Status)
}

func TestCheckPassesOnFreshPipeline(t *testing.T) {
	ctx := newTestContext(t)
	_, err := NewExtract().Run(ctx)
	require.NoError(t, err)
	_, err = NewDummy().Run(ctx)
	require.NoError(t, err)
	_, err = NewCompile().Run(ctx)
	require.NoError(t, err)

	result, err := NewCheck().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusCompleted, result.Status)
}

func TestCheckFlagsStaleTemplate(t *testing.T) {
	ctx := newTestContext(t)
	_, err := NewExtract().Run(ctx)
	require.NoError(t, err)
	_, err = NewDummy().Run(ctx)
	require.NoError(t, err)
	_, err = NewCompile().Run(ctx)
	require.NoError(t, err)

	extra := "package sample2\n\nfunc Gettext(s string) string { return s }\n\nfunc More() string { return Gettext(\"A brand new string\") }\n"
	require.NoError(t, os.WriteFile(filepath.Join(ctx.Config.ProjectDir, "extra.go"), []byte(extra), 0o644))

	result, err := NewCheck().Run(ctx)
	require.Error(t, err)
	assert.Equal(t, target.StatusFailed, result.Status)
}

func TestCheckFlagsMissingDummy(t *testing.T) {
	ctx := newTestContext(t)
	_, err := NewExtract().Run(ctx)
	require.NoError(t, err)

	result, err := NewCheck().Run(ctx)
	require.Error(t, err)
	assert.Equal(t, target.StatusFailed, result.Status)
}

func TestPushAndPullAgainstService(t *testing.T) {
	ctx := newTestContext(t, "fr")
	_, err := NewExtract().Run(ctx)
	require.NoError(t, err)

	var pushed bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/api/projects/demo/template":
			pushed = true
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && r.URL.Path == "/api/projects/demo/catalogs/fr":
			w.Write([]byte("msgid \"\"\nmsgstr \"Language: fr\\n\"\n\nmsgid \"Grant access\"\nmsgstr \"Accorder l'accès\"\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ctx.Config.Project.Translations.Service = &config.ServiceConfig{URL: server.URL, Project: "demo"}

	pushResult, err := NewPush().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusCompleted, pushResult.Status)
	assert.True(t, pushed)

	pullResult, err := NewPull().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusCompleted, pullResult.Status)

	fr := readCatalog(t, ctx, "fr")
	msg, ok := fr.Lookup("Grant access")
	require.True(t, ok)
	assert.Equal(t, "Accorder l'accès", msg.Str)
}

func TestPullSkipsLocalesMissingOnService(t *testing.T) {
	ctx := newTestContext(t, "de")
	_, err := NewExtract().Run(ctx)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	ctx.Config.Project.Translations.Service = &config.ServiceConfig{URL: server.URL, Project: "demo"}

	result, err := NewPull().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusNoOp, result.Status)
}

func TestSyncTargetsNeedInputWithoutService(t *testing.T) {
	ctx := newTestContext(t)
	_, err := NewExtract().Run(ctx)
	require.NoError(t, err)

	pull, err := NewPull().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusNeedsInput, pull.Status)

	push, err := NewPush().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.StatusNeedsInput, push.Status)
}

func TestRegisterInstallsAllTranslationTargets(t *testing.T) {
	reg := target.NewRegistry()
	Register(reg)
	for _, id := range []string{
		workflow.TargetI18nExtract,
		workflow.TargetI18nDummy,
		workflow.TargetI18nCompile,
		workflow.TargetI18nPull,
		workflow.TargetI18nPush,
		workflow.TargetI18nCheck,
	} {
		tgt, err := reg.Resolve(id, nil)
		require.NoError(t, err, id)
		assert.Equal(t, id, tgt.Info().ID)
	}
}
