package workflow

// Built-in target identifiers. Target implementations register factories
// under these IDs; the development pipeline composes them.
const (
	TargetClean       = "clean"
	TargetQuality     = "quality"
	TargetPIICheck    = "pii-check"
	TargetTest        = "test"
	TargetTestAll     = "test-all"
	TargetValidate    = "validate"
	TargetCoverage    = "coverage"
	TargetDocs        = "docs"
	TargetUpgrade     = "upgrade"
	TargetI18nExtract = "i18n-extract"
	TargetI18nDummy   = "i18n-dummy"
	TargetI18nCompile = "i18n-compile"
	TargetI18nPull    = "i18n-pull"
	TargetI18nPush    = "i18n-push"
	TargetI18nCheck   = "i18n-validate"
)

// GatedTargets lists built-in targets that need explicit approval before the
// driver may run them. Pushing the template rewrites the string set
// translators work against, so it never happens as a side effect.
func GatedTargets() []string {
	return []string{TargetI18nPush}
}

// DevPipeline returns the built-in development pipeline. Requesting a target
// pulls its dependencies in first, so `rolegate validate` runs quality, the
// PII scan, and the full test matrix; targets with no edges (clean, docs,
// upgrade) only run when asked for.
func DevPipeline() (Definition, error) {
	def := Definition{
		ID:          "dev",
		Name:        "Development workflow",
		Description: "Quality gates, tests, docs, and translation management",
		Targets: []TargetRef{
			{TargetID: TargetClean},
			{TargetID: TargetQuality},
			{TargetID: TargetPIICheck},
			{TargetID: TargetTest},
			{TargetID: TargetTestAll},
			{TargetID: TargetCoverage},
			{TargetID: TargetDocs},
			{TargetID: TargetUpgrade},
			{TargetID: TargetI18nExtract},
			{TargetID: TargetI18nDummy, DependsOn: []string{TargetI18nExtract}},
			{TargetID: TargetI18nCompile, DependsOn: []string{TargetI18nDummy}},
			{TargetID: TargetI18nPull},
			{TargetID: TargetI18nPush, DependsOn: []string{TargetI18nExtract}},
			{TargetID: TargetI18nCheck, DependsOn: []string{TargetI18nExtract, TargetI18nDummy, TargetI18nCompile}},
			{TargetID: TargetValidate, DependsOn: []string{TargetQuality, TargetPIICheck, TargetTestAll}},
		},
		Runtime: RuntimeConfig{MaxParallel: 2},
	}
	return def.Normalized()
}
