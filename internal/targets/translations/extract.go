package translations

import (
	"fmt"
	"os"
	"time"

	"rolegate/internal/artifact"
	"rolegate/internal/i18n"
	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

// Extract walks project sources for marked strings and refreshes the message
// template, then folds the new template into every locale catalog.
type Extract struct {
	*target.Base
}

// NewExtract constructs the extraction target.
func NewExtract() *Extract {
	info := target.Info{
		ID:          workflow.TargetI18nExtract,
		Name:        "Extract Messages",
		Description: "Extracts translatable strings into the source template and merges locale catalogs.",
		Version:     targetVersion,
	}
	base := target.NewBase(info)
	base.SetOutputs(artifact.SourceCatalog)
	return &Extract{Base: &base}
}

// IsComplete reports whether the recorded template matches this target.
// Source drift is caught separately through the fingerprint contract.
func (t *Extract) IsComplete(ctx *target.Context) (bool, error) {
	if err := runtime.ValidateContext(workflow.TargetI18nExtract, ctx); err != nil {
		return false, err
	}
	return runtime.ArtifactCurrent(ctx, workflow.TargetI18nExtract, targetVersion, artifact.SourceCatalog)
}

// ArtifactFingerprints rescans the sources so a recorded template goes stale
// as soon as marked strings change.
func (t *Extract) ArtifactFingerprints(ctx *target.Context) (map[string]string, error) {
	if err := runtime.ValidateContext(workflow.TargetI18nExtract, ctx); err != nil {
		return nil, err
	}
	messages, err := i18n.ExtractMessages(ctx.Config.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", workflow.TargetI18nExtract, err)
	}
	return map[string]string{
		artifact.SourceCatalog.ID: messagesFingerprint(messages),
	}, nil
}

// Run extracts messages, writes the template, and merges it into each
// configured locale catalog so translators only ever see live strings.
func (t *Extract) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(workflow.TargetI18nExtract, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	cfg := translationConfig(ctx)

	messages, err := i18n.ExtractMessages(ctx.Config.ProjectDir)
	if err != nil {
		return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", workflow.TargetI18nExtract, err)
	}
	template, err := i18n.BuildTemplate(cfg.SourceLocale, messages)
	if err != nil {
		return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", workflow.TargetI18nExtract, err)
	}
	template.StampRevision(time.Now())
	if err := writeCatalog(ctx.Workspace.SourceCatalogPath(), template); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	runtime.Progressf(ctx, "extracted %d messages", template.Len())

	merged := 0
	for _, locale := range cfg.Locales {
		added, mergeErr := t.mergeLocale(ctx, locale, template)
		if mergeErr != nil {
			return target.Result{Status: target.StatusFailed}, mergeErr
		}
		if added > 0 {
			runtime.Progressf(ctx, "%s: %d new untranslated messages", locale, added)
		}
		merged++
	}

	fingerprint := messagesFingerprint(messages)
	if err := runtime.Record(ctx, workflow.TargetI18nExtract, targetVersion, artifact.SourceCatalog,
		runtime.WithFingerprint(artifact.SourceCatalog, fingerprint)); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	return target.Result{
		Status:  target.StatusCompleted,
		Message: fmt.Sprintf("%d messages, %d locale catalogs merged", template.Len(), merged),
	}, nil
}

// mergeLocale folds the template into one locale catalog, creating it when
// the locale is new. Existing translations survive, stale entries drop.
func (t *Extract) mergeLocale(ctx *target.Context, locale string, template *i18n.Catalog) (int, error) {
	path := ctx.Workspace.CatalogPath(locale)
	catalog, err := t.openLocale(locale, path)
	if err != nil {
		return 0, err
	}
	added := catalog.Merge(template)
	catalog.StampRevision(time.Now())
	if err := writeCatalog(path, catalog); err != nil {
		return 0, err
	}
	return added, nil
}

func (t *Extract) openLocale(locale, path string) (*i18n.Catalog, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return i18n.NewCatalog(locale)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: open %s: %w", workflow.TargetI18nExtract, path, err)
	}
	defer file.Close()
	catalog, parseErr := i18n.ParsePO(locale, file)
	if parseErr != nil {
		return nil, fmt.Errorf("%s: parse %s: %w", workflow.TargetI18nExtract, path, parseErr)
	}
	return catalog, nil
}
