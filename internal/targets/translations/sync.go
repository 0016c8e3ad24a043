package translations

import (
	"errors"
	"fmt"
	"time"

	"rolegate/internal/artifact"
	"rolegate/internal/i18n"
	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

// Pull downloads locale catalogs from the configured translation service.
type Pull struct {
	*target.Base
}

// NewPull constructs the pull target.
func NewPull() *Pull {
	info := target.Info{
		ID:          workflow.TargetI18nPull,
		Name:        "Pull Translations",
		Description: "Downloads locale catalogs from the translation service.",
		Version:     targetVersion,
	}
	base := target.NewBase(info)
	return &Pull{Base: &base}
}

// IsComplete always reports false: remote state can change at any time.
func (t *Pull) IsComplete(*target.Context) (bool, error) {
	return false, nil
}

// Run fetches every configured locale and writes the catalogs locally. When
// the local template exists, each pulled catalog is merged against it so
// entries the service still carries for deleted strings do not come back.
func (t *Pull) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(workflow.TargetI18nPull, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	client, err := serviceClient(ctx)
	if err != nil {
		return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", workflow.TargetI18nPull, err)
	}
	if client == nil {
		return target.Result{
			Status:  target.StatusNeedsInput,
			Message: "no translation service configured; set translations.service in the project config",
		}, nil
	}
	template, templateErr := loadTemplate(ctx)
	if templateErr != nil {
		template = nil
	}

	cfg := translationConfig(ctx)
	pulled := 0
	for _, locale := range cfg.Locales {
		catalog, pullErr := client.PullCatalog(ctx.Context(), locale)
		if pullErr != nil {
			if errors.Is(pullErr, i18n.ErrCatalogNotFound) {
				runtime.Progressf(ctx, "%s: not on the service yet, skipping", locale)
				continue
			}
			return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: pull %s: %w", workflow.TargetI18nPull, locale, pullErr)
		}
		if template != nil {
			catalog.Merge(template)
		}
		catalog.StampRevision(time.Now())
		if err := writeCatalog(ctx.Workspace.CatalogPath(locale), catalog); err != nil {
			return target.Result{Status: target.StatusFailed}, err
		}
		runtime.Progressf(ctx, "pulled %s (%d messages)", locale, catalog.Len())
		pulled++
	}
	if pulled == 0 {
		return target.Result{Status: target.StatusNoOp, Message: "no catalogs available on the service"}, nil
	}
	return target.Result{
		Status:  target.StatusCompleted,
		Message: fmt.Sprintf("%d catalogs pulled", pulled),
	}, nil
}

// Push uploads the extracted template to the translation service. It sits
// behind a manual gate in the built-in pipeline: pushing rewrites the string
// set translators work against.
type Push struct {
	*target.Base
}

// NewPush constructs the push target.
func NewPush() *Push {
	info := target.Info{
		ID:          workflow.TargetI18nPush,
		Name:        "Push Template",
		Description: "Uploads the extracted message template to the translation service.",
		Version:     targetVersion,
	}
	base := target.NewBase(info)
	base.SetInputs(artifact.SourceCatalog)
	return &Push{Base: &base}
}

// IsComplete always reports false: pushes are explicit actions.
func (t *Push) IsComplete(*target.Context) (bool, error) {
	return false, nil
}

// Run uploads the current template.
func (t *Push) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(workflow.TargetI18nPush, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	client, err := serviceClient(ctx)
	if err != nil {
		return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", workflow.TargetI18nPush, err)
	}
	if client == nil {
		return target.Result{
			Status:  target.StatusNeedsInput,
			Message: "no translation service configured; set translations.service in the project config",
		}, nil
	}
	template, err := loadTemplate(ctx)
	if err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	if err := client.PushTemplate(ctx.Context(), template); err != nil {
		return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", workflow.TargetI18nPush, err)
	}
	return target.Result{
		Status:  target.StatusCompleted,
		Message: fmt.Sprintf("template with %d messages pushed", template.Len()),
	}, nil
}
