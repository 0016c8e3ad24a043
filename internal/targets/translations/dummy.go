package translations

import (
	"fmt"
	"time"

	"rolegate/internal/artifact"
	"rolegate/internal/i18n"
	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

// Dummy generates the accented pseudo-locale catalog from the extracted
// template. Running an app under the dummy locale makes untranslated strings
// and layout breakage jump out.
type Dummy struct {
	*target.Base
}

// NewDummy constructs the pseudo-locale target.
func NewDummy() *Dummy {
	info := target.Info{
		ID:          workflow.TargetI18nDummy,
		Name:        "Dummy Translations",
		Description: "Generates the accented pseudo-locale catalog from the source template.",
		Version:     targetVersion,
	}
	base := target.NewBase(info)
	base.SetInputs(artifact.SourceCatalog)
	base.SetOutputs(artifact.DummyCatalog)
	return &Dummy{Base: &base}
}

// IsComplete reports whether the recorded dummy catalog is current.
func (t *Dummy) IsComplete(ctx *target.Context) (bool, error) {
	if err := runtime.ValidateContext(workflow.TargetI18nDummy, ctx); err != nil {
		return false, err
	}
	return runtime.ArtifactCurrent(ctx, workflow.TargetI18nDummy, targetVersion, artifact.DummyCatalog)
}

// ArtifactFingerprints ties the dummy catalog to the template it was built
// from, so a fresh extraction reopens this target.
func (t *Dummy) ArtifactFingerprints(ctx *target.Context) (map[string]string, error) {
	if err := runtime.ValidateContext(workflow.TargetI18nDummy, ctx); err != nil {
		return nil, err
	}
	template, err := loadTemplate(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		artifact.DummyCatalog.ID: messagesFingerprint(template.Messages()),
	}, nil
}

// Run reads the template and writes the fully translated pseudo-locale.
func (t *Dummy) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(workflow.TargetI18nDummy, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	template, err := loadTemplate(ctx)
	if err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	dummy, err := i18n.DummyCatalog(workflow.DummyLocale, template)
	if err != nil {
		return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", workflow.TargetI18nDummy, err)
	}
	dummy.StampRevision(time.Now())
	if err := writeCatalog(ctx.Workspace.CatalogPath(workflow.DummyLocale), dummy); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	if err := runtime.Record(ctx, workflow.TargetI18nDummy, targetVersion, artifact.DummyCatalog,
		runtime.WithInputs(artifact.SourceCatalog),
		runtime.WithFingerprint(artifact.DummyCatalog, messagesFingerprint(template.Messages()))); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	return target.Result{
		Status:  target.StatusCompleted,
		Message: fmt.Sprintf("%d messages pseudo-translated", dummy.Len()),
	}, nil
}
