package workflow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefinitionNormalizedMergesInlineDependencies(t *testing.T) {
	def := Definition{
		ID: "dev",
		Targets: []TargetRef{
			{TargetID: "quality"},
			{TargetID: "validate", DependsOn: []string{"quality"}},
		},
		Graph: DependencyGraph{
			"validate": {"quality"},
		},
	}
	normalized, err := def.Normalized()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	deps := normalized.Dependencies("validate")
	if len(deps) != 1 || deps[0] != "quality" {
		t.Fatalf("unexpected dependencies: %v", deps)
	}
}

func TestDefinitionValidateRejectsUnknownGraphNodes(t *testing.T) {
	def := Definition{
		ID:      "dev",
		Targets: []TargetRef{{TargetID: "quality"}},
		Graph:   DependencyGraph{"quality": {"ghost"}},
	}
	if err := def.Validate(); err == nil {
		t.Fatal("expected validation error for unknown dependency")
	}
}

func TestDefinitionValidateRejectsDuplicateInstances(t *testing.T) {
	def := Definition{
		ID: "dev",
		Targets: []TargetRef{
			{TargetID: "quality"},
			{TargetID: "quality"},
		},
	}
	if err := def.Validate(); err == nil {
		t.Fatal("expected validation error for duplicate instance ids")
	}
}

func TestDefinitionCloneIsDeep(t *testing.T) {
	def := Definition{
		ID: "dev",
		Targets: []TargetRef{
			{TargetID: "quality", DependsOn: []string{"clean"}, Config: TargetConfig{"key": "value"}},
			{TargetID: "clean"},
		},
		Graph:    DependencyGraph{"quality": {"clean"}},
		Metadata: map[string]string{"owner": "tools"},
	}
	clone := def.Clone()
	clone.Targets[0].DependsOn[0] = "mutated"
	clone.Graph["quality"][0] = "mutated"
	clone.Metadata["owner"] = "mutated"

	if def.Targets[0].DependsOn[0] != "clean" {
		t.Fatal("clone shares DependsOn slice")
	}
	if def.Graph["quality"][0] != "clean" {
		t.Fatal("clone shares graph slice")
	}
	if def.Metadata["owner"] != "tools" {
		t.Fatal("clone shares metadata map")
	}
}

func TestDevPipelineIsValid(t *testing.T) {
	def, err := DevPipeline()
	if err != nil {
		t.Fatalf("dev pipeline: %v", err)
	}
	deps := def.Dependencies(TargetValidate)
	want := map[string]bool{TargetQuality: true, TargetPIICheck: true, TargetTestAll: true}
	if len(deps) != len(want) {
		t.Fatalf("unexpected validate dependencies: %v", deps)
	}
	for _, dep := range deps {
		if !want[dep] {
			t.Fatalf("unexpected validate dependency %s", dep)
		}
	}
	if deps := def.Dependencies(TargetClean); len(deps) != 0 {
		t.Fatalf("clean must have no dependencies, got %v", deps)
	}
	if deps := def.Dependencies(TargetI18nCompile); len(deps) != 1 || deps[0] != TargetI18nDummy {
		t.Fatalf("unexpected compile dependencies: %v", deps)
	}
}

func TestParseDefinitionYAML(t *testing.T) {
	payload := []byte(`
id: custom
name: Custom pipeline
targets:
  - target: quality
  - target: validate
    depends_on: [quality]
runtime:
  max_parallel: 4
`)
	def, err := ParseDefinitionYAML(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.ID != "custom" {
		t.Fatalf("unexpected id %s", def.ID)
	}
	if def.Runtime.MaxParallel != 4 {
		t.Fatalf("unexpected max parallel %d", def.Runtime.MaxParallel)
	}
	deps := def.Dependencies("validate")
	if len(deps) != 1 || deps[0] != "quality" {
		t.Fatalf("unexpected dependencies: %v", deps)
	}
}

func TestParseDefinitionYAMLRejectsEmptyPayload(t *testing.T) {
	if _, err := ParseDefinitionYAML([]byte("  \n")); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestLoadProjectDefinitionFallsBackToBuiltin(t *testing.T) {
	dir := t.TempDir()
	def, err := LoadProjectDefinition(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if def.ID != "dev" {
		t.Fatalf("expected builtin pipeline, got %s", def.ID)
	}
}

func TestLoadProjectDefinitionPrefersOverride(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("id: custom\nname: Custom\ntargets:\n  - target: quality\n")
	if err := os.WriteFile(filepath.Join(dir, PipelineFileName), payload, 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	def, err := LoadProjectDefinition(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if def.ID != "custom" {
		t.Fatalf("expected override pipeline, got %s", def.ID)
	}
}

func TestWorkspacePaths(t *testing.T) {
	ws := NewWorkspace("/project", "/project/.rolegate", "/project/locale")
	if got := ws.EngineStatePath(); got != "/project/.rolegate/state/engine.json" {
		t.Fatalf("unexpected engine state path %s", got)
	}
	if got := ws.CoverageHTMLPath(); got != "/project/.rolegate/reports/coverage/coverage.html" {
		t.Fatalf("unexpected coverage path %s", got)
	}
	if got := ws.CatalogPath("eo"); got != "/project/locale/eo/messages.po" {
		t.Fatalf("unexpected catalog path %s", got)
	}
	if got := ws.CompiledCatalogPath("fr"); got != "/project/locale/fr/messages.json" {
		t.Fatalf("unexpected compiled path %s", got)
	}
	if got := ws.TestReportPath("Django 4.2"); got != "/project/.rolegate/reports/tests-django-4-2.txt" {
		t.Fatalf("unexpected test report path %s", got)
	}
}
