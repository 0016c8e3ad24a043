package translations

import (
	"fmt"
	"os"
	"path/filepath"

	"rolegate/internal/artifact"
	"rolegate/internal/i18n"
	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

// Compile turns every locale's editable catalog into the JSON form the
// translation runtime loads.
type Compile struct {
	*target.Base
}

// NewCompile constructs the compile target.
func NewCompile() *Compile {
	info := target.Info{
		ID:          workflow.TargetI18nCompile,
		Name:        "Compile Catalogs",
		Description: "Compiles editable locale catalogs into their runtime JSON form.",
		Version:     targetVersion,
	}
	base := target.NewBase(info)
	base.SetInputs(artifact.DummyCatalog)
	base.SetOutputs(artifact.CatalogTree)
	return &Compile{Base: &base}
}

// IsComplete reports whether the recorded catalog tree is current.
func (t *Compile) IsComplete(ctx *target.Context) (bool, error) {
	if err := runtime.ValidateContext(workflow.TargetI18nCompile, ctx); err != nil {
		return false, err
	}
	return runtime.ArtifactCurrent(ctx, workflow.TargetI18nCompile, targetVersion, artifact.CatalogTree)
}

// Run compiles each locale catalog that exists on disk. Locales without an
// editable catalog are skipped rather than failed: a freshly added locale
// only materializes after the next pull or extract.
func (t *Compile) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(workflow.TargetI18nCompile, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	cfg := translationConfig(ctx)

	compiled := 0
	for _, locale := range allLocales(cfg) {
		ok, err := t.compileLocale(ctx, locale)
		if err != nil {
			return target.Result{Status: target.StatusFailed}, err
		}
		if ok {
			compiled++
		}
	}
	if compiled == 0 {
		return target.Result{Status: target.StatusNoOp, Message: "no locale catalogs to compile"}, nil
	}
	if err := runtime.Record(ctx, workflow.TargetI18nCompile, targetVersion, artifact.CatalogTree,
		runtime.WithInputs(artifact.SourceCatalog, artifact.DummyCatalog)); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	return target.Result{
		Status:  target.StatusCompleted,
		Message: fmt.Sprintf("%d catalogs compiled", compiled),
	}, nil
}

func (t *Compile) compileLocale(ctx *target.Context, locale string) (bool, error) {
	source := ctx.Workspace.CatalogPath(locale)
	file, err := os.Open(source)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: open %s: %w", workflow.TargetI18nCompile, source, err)
	}
	catalog, parseErr := i18n.ParsePO(locale, file)
	file.Close()
	if parseErr != nil {
		return false, fmt.Errorf("%s: parse %s: %w", workflow.TargetI18nCompile, source, parseErr)
	}

	out := ctx.Workspace.CompiledCatalogPath(locale)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return false, fmt.Errorf("%s: ensure %s: %w", workflow.TargetI18nCompile, filepath.Dir(out), err)
	}
	dest, err := os.Create(out)
	if err != nil {
		return false, fmt.Errorf("%s: create %s: %w", workflow.TargetI18nCompile, out, err)
	}
	defer dest.Close()
	if err := i18n.Compile(catalog).WriteJSON(dest); err != nil {
		return false, fmt.Errorf("%s: write %s: %w", workflow.TargetI18nCompile, out, err)
	}
	runtime.Progressf(ctx, "compiled %s (%d messages)", locale, catalog.Len())
	return true, nil
}
