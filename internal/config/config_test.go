package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	workspace := filepath.Join(projectDir, ".rolegate")
	if err := os.MkdirAll(workspace, 0755); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, WorkspacePath: workspace, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.DefaultTarget() != defaultTargetID {
		t.Fatalf("expected default target %q, got %q", defaultTargetID, c.DefaultTarget())
	}
	if len(c.Environments()) != 1 || c.Environments()[0].Name != "default" {
		t.Fatalf("expected a single default environment, got %+v", c.Environments())
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	workspace := filepath.Join(projectDir, ".rolegate")
	if err := os.MkdirAll(workspace, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
environments:
  - name: default
    test_command: go test ./...
  - name: race
    test_command: go test -race ./...
quality:
  commands:
    - gofmt -l .
translations:
  source_locale: en
  locales: [eo, "rtl", en]
  catalog_dir: conf/locale
  service:
    url: https://translate.example.com
    project: rolegate
rbac:
  feature_role_mapping:
    enterprise_admin:
      - coupon-management
      - data-api-access
targets:
  default: validate
  available:
    - validate
    - coverage
`)
	if err := os.WriteFile(filepath.Join(workspace, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, WorkspacePath: workspace, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if len(c.Environments()) != 2 {
		t.Fatalf("expected 2 environments, got %d", len(c.Environments()))
	}
	if _, ok := c.Environment("RACE"); !ok {
		t.Fatalf("expected case-insensitive environment lookup")
	}
	// The source locale is filtered out of the translated-locale list.
	locales := c.Project.Translations.Locales
	if len(locales) != 2 || locales[0] != "eo" || locales[1] != "rtl" {
		t.Fatalf("unexpected locales: %+v", locales)
	}
	if !strings.HasPrefix(c.CatalogDir(), projectDir) {
		t.Fatalf("expected catalog dir under project, got %s", c.CatalogDir())
	}
	roles := c.FeatureRoleMapping()["enterprise_admin"]
	if len(roles) != 2 || roles[0] != "coupon-management" {
		t.Fatalf("unexpected feature role mapping: %+v", roles)
	}
	if c.DefaultTarget() != "validate" {
		t.Fatalf("wrong default target: %s", c.DefaultTarget())
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	projectDir := t.TempDir()
	workspace := filepath.Join(projectDir, ".rolegate")
	if err := os.MkdirAll(workspace, 0755); err != nil {
		t.Fatal(err)
	}
	bad := strings.TrimSpace(`
version: 1
environments:
  - name: default
    test_command: go test ./...
  - name: default
    test_command: go test -count=2 ./...
`)
	if err := os.WriteFile(filepath.Join(workspace, "config.yaml"), []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, WorkspacePath: workspace, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err == nil {
		t.Fatal("expected duplicate environment name to fail validation")
	}

	badService := strings.TrimSpace(`
version: 1
translations:
  service:
    url: https://translate.example.com
`)
	if err := os.WriteFile(filepath.Join(workspace, "config.yaml"), []byte(badService), 0644); err != nil {
		t.Fatal(err)
	}
	if err := c.loadProjectConfig(); err == nil {
		t.Fatal("expected service without project to fail validation")
	}
}

func TestInitWorkspaceCreatesLayoutAndConfig(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitWorkspace(projectDir); err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	for _, dir := range []string{"logs", "state", "reports", "targets", "tmp"} {
		info, err := os.Stat(filepath.Join(projectDir, WorkspaceDir, dir))
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(projectDir, WorkspaceDir, "config.yaml")); err != nil {
		t.Fatalf("expected seeded config.yaml: %v", err)
	}
	// A second init must not clobber an edited config.
	custom := []byte("version: 1\ntargets:\n  default: coverage\n")
	if err := os.WriteFile(filepath.Join(projectDir, WorkspaceDir, "config.yaml"), custom, 0644); err != nil {
		t.Fatal(err)
	}
	if err := InitWorkspace(projectDir); err != nil {
		t.Fatalf("InitWorkspace (second): %v", err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.DefaultTarget() != "coverage" {
		t.Fatalf("expected edited config to survive re-init, got %s", cfg.DefaultTarget())
	}
}

func TestSetDefaultTargetPersists(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitWorkspace(projectDir); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetDefaultTarget("coverage"); err != nil {
		t.Fatalf("SetDefaultTarget: %v", err)
	}
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.DefaultTarget() != "coverage" {
		t.Fatalf("expected persisted default target, got %s", reloaded.DefaultTarget())
	}
}
