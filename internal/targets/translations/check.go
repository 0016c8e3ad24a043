package translations

import (
	"fmt"
	"os"
	"strings"

	"rolegate/internal/artifact"
	"rolegate/internal/i18n"
	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

// Check verifies the catalog pipeline is internally consistent: the template
// matches the sources, the dummy catalog matches the template, and every
// compiled catalog parses. CI runs this to catch unregenerated catalogs in
// review.
type Check struct {
	*target.Base
}

// NewCheck constructs the validation target.
func NewCheck() *Check {
	info := target.Info{
		ID:          workflow.TargetI18nCheck,
		Name:        "Validate Translations",
		Description: "Verifies the template, dummy catalog, and compiled catalogs are up to date.",
		Version:     targetVersion,
	}
	base := target.NewBase(info)
	base.SetInputs(artifact.SourceCatalog, artifact.DummyCatalog, artifact.CatalogTree)
	return &Check{Base: &base}
}

// IsComplete always reports false so validation runs on every request.
func (t *Check) IsComplete(*target.Context) (bool, error) {
	return false, nil
}

// Run collects every inconsistency before failing, so one run reports the
// full set of regeneration steps needed.
func (t *Check) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(workflow.TargetI18nCheck, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	var problems []string

	template, err := loadTemplate(ctx)
	if err != nil {
		problems = append(problems, fmt.Sprintf("template unreadable (run %s): %v", workflow.TargetI18nExtract, err))
	} else {
		problems = append(problems, t.checkTemplate(ctx, template)...)
		problems = append(problems, t.checkDummy(ctx, template)...)
	}
	problems = append(problems, t.checkCompiled(ctx)...)

	if len(problems) > 0 {
		for _, problem := range problems {
			runtime.Progressf(ctx, "validate: %s", problem)
		}
		return target.Result{Status: target.StatusFailed},
			fmt.Errorf("%s: %d problems found", workflow.TargetI18nCheck, len(problems))
	}
	return target.Result{Status: target.StatusCompleted, Message: "catalogs are up to date"}, nil
}

// checkTemplate re-extracts from the sources and compares message sets.
func (t *Check) checkTemplate(ctx *target.Context, template *i18n.Catalog) []string {
	messages, err := i18n.ExtractMessages(ctx.Config.ProjectDir)
	if err != nil {
		return []string{fmt.Sprintf("source scan failed: %v", err)}
	}
	if messagesFingerprint(messages) != messagesFingerprint(template.Messages()) {
		return []string{fmt.Sprintf("template is stale against the sources (run %s)", workflow.TargetI18nExtract)}
	}
	return nil
}

// checkDummy regenerates the pseudo-locale in memory and compares it with
// the catalog on disk.
func (t *Check) checkDummy(ctx *target.Context, template *i18n.Catalog) []string {
	path := ctx.Workspace.CatalogPath(workflow.DummyLocale)
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return []string{fmt.Sprintf("dummy catalog missing (run %s)", workflow.TargetI18nDummy)}
	}
	if err != nil {
		return []string{fmt.Sprintf("dummy catalog unreadable: %v", err)}
	}
	defer file.Close()
	onDisk, err := i18n.ParsePO(workflow.DummyLocale, file)
	if err != nil {
		return []string{fmt.Sprintf("dummy catalog unparseable: %v", err)}
	}
	expected, err := i18n.DummyCatalog(workflow.DummyLocale, template)
	if err != nil {
		return []string{fmt.Sprintf("dummy regeneration failed: %v", err)}
	}

	var problems []string
	for _, want := range expected.Messages() {
		got, ok := onDisk.Lookup(want.ID)
		if !ok || got.Str != want.Str {
			problems = append(problems, fmt.Sprintf("dummy catalog is stale (run %s)", workflow.TargetI18nDummy))
			break
		}
	}
	if len(problems) == 0 && onDisk.Len() != expected.Len() {
		problems = append(problems, fmt.Sprintf("dummy catalog carries stale entries (run %s)", workflow.TargetI18nDummy))
	}
	return problems
}

// checkCompiled verifies every on-disk editable catalog has a parseable
// compiled counterpart.
func (t *Check) checkCompiled(ctx *target.Context) []string {
	cfg := translationConfig(ctx)
	var problems []string
	for _, locale := range allLocales(cfg) {
		if _, err := os.Stat(ctx.Workspace.CatalogPath(locale)); err != nil {
			continue
		}
		compiledPath := ctx.Workspace.CompiledCatalogPath(locale)
		file, err := os.Open(compiledPath)
		if os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("%s: compiled catalog missing (run %s)", locale, workflow.TargetI18nCompile))
			continue
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: compiled catalog unreadable: %v", locale, err))
			continue
		}
		compiled, readErr := i18n.ReadCompiled(file)
		file.Close()
		if readErr != nil {
			problems = append(problems, fmt.Sprintf("%s: compiled catalog unparseable: %v", locale, readErr))
			continue
		}
		if !strings.EqualFold(compiled.Locale, locale) {
			problems = append(problems, fmt.Sprintf("%s: compiled catalog claims locale %q", locale, compiled.Locale))
		}
	}
	return problems
}
