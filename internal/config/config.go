// internal/config/config.go
//
// This package handles configuration and the .rolegate directory structure.
// Every project that uses rolegate gets a .rolegate/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// WorkspaceDir is the name of the directory we create in each project
	WorkspaceDir = ".rolegate"

	defaultTargetID = "validate"

	defaultCatalogDir = "locale"

	defaultSourceLocale = "en"
)

const defaultProjectConfigYAML = `# rolegate project configuration
version: 1

# Environments the test suite runs against. "validate" runs every entry.
environments:
  - name: default
    test_command: go test ./...

quality:
  commands:
    - gofmt -l .
    - go vet ./...

clean:
  paths:
    - .rolegate/reports
    - .rolegate/tmp

docs:
  build_command: go run ./tools/docgen
  index: docs/_build/index.html

upgrade:
  commands:
    - go get -u ./...
    - go mod tidy

pii:
  include:
    - ./...
  annotation: pii

translations:
  source_locale: en
  locales: []
  catalog_dir: locale
  # service:
  #   url: https://translate.example.com
  #   project: rolegate
  #   token_env: TRANSLATION_SERVICE_TOKEN

rbac:
  feature_role_mapping: {}

targets:
  default: validate
`

// Environment declares one test environment entry inside .rolegate/config.yaml.
type Environment struct {
	Name            string `yaml:"name"`
	TestCommand     string `yaml:"test_command"`
	CoverageCommand string `yaml:"coverage_command,omitempty"`
}

// QualityConfig lists the style/lint commands the quality target sequences.
type QualityConfig struct {
	Commands []string `yaml:"commands"`
}

// CleanConfig lists filesystem paths removed by the clean target.
type CleanConfig struct {
	Paths []string `yaml:"paths"`
}

// DocsConfig describes how documentation is built and where it lands.
type DocsConfig struct {
	BuildCommand string `yaml:"build_command"`
	Index        string `yaml:"index,omitempty"`
}

// UpgradeConfig drives dependency re-pinning.
type UpgradeConfig struct {
	Commands []string `yaml:"commands"`
	// The line of VersionSource matching VersionPrefix is copied into
	// VersionPin after the upgrade commands finish.
	VersionSource string `yaml:"version_source,omitempty"`
	VersionPrefix string `yaml:"version_prefix,omitempty"`
	VersionPin    string `yaml:"version_pin,omitempty"`
}

// PIIConfig scopes the PII annotation scan.
type PIIConfig struct {
	Include    []string `yaml:"include"`
	Annotation string   `yaml:"annotation,omitempty"`
}

// ServiceConfig points at the external translation service.
type ServiceConfig struct {
	URL      string `yaml:"url"`
	Project  string `yaml:"project"`
	TokenEnv string `yaml:"token_env,omitempty"`
}

// TranslationConfig drives catalog extraction, compilation, and syncing.
type TranslationConfig struct {
	SourceLocale string         `yaml:"source_locale"`
	Locales      []string       `yaml:"locales"`
	CatalogDir   string         `yaml:"catalog_dir"`
	Service      *ServiceConfig `yaml:"service,omitempty"`
}

// RBACConfig holds the system-role to feature-role mapping the library
// consults when resolving implicit access from JWT claims.
type RBACConfig struct {
	FeatureRoleMapping map[string][]string `yaml:"feature_role_mapping"`
}

// TargetConfig captures workflow target preferences.
type TargetConfig struct {
	Default   string   `yaml:"default"`
	Available []string `yaml:"available,omitempty"`
}

// ProjectConfig models .rolegate/config.yaml.
type ProjectConfig struct {
	Version      int               `yaml:"version"`
	Environments []Environment     `yaml:"environments"`
	Quality      QualityConfig     `yaml:"quality"`
	Clean        CleanConfig       `yaml:"clean"`
	Docs         DocsConfig        `yaml:"docs"`
	Upgrade      UpgradeConfig     `yaml:"upgrade"`
	PII          PIIConfig         `yaml:"pii"`
	Translations TranslationConfig `yaml:"translations"`
	RBAC         RBACConfig        `yaml:"rbac"`
	Targets      TargetConfig      `yaml:"targets"`
}

// Config holds the runtime configuration for rolegate.
type Config struct {
	// ProjectDir is the directory where the user ran `rolegate` from
	ProjectDir string

	// WorkspacePath is ProjectDir/.rolegate
	WorkspacePath string

	Project ProjectConfig
}

// InitWorkspace creates the .rolegate directory structure in the given
// project directory. This is called on every CLI startup.
//
// Structure created:
// .rolegate/
// ├── logs/      <- runner log files
// ├── state/     <- persisted run state between invocations
// ├── reports/   <- coverage and quality reports
// ├── targets/   <- custom target definitions (yaml or go)
// └── tmp/       <- scratch space cleaned by the clean target
func InitWorkspace(projectDir string) error {
	workspace := filepath.Join(projectDir, WorkspaceDir)

	dirs := []string{
		filepath.Join(workspace, "logs"),
		filepath.Join(workspace, "state"),
		filepath.Join(workspace, "reports"),
		filepath.Join(workspace, "reports", "coverage"),
		filepath.Join(workspace, "targets"),
		filepath.Join(workspace, "tmp"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if err := ensureProjectConfig(filepath.Join(workspace, "config.yaml")); err != nil {
		return err
	}

	return nil
}

// NewConfig creates a new Config instance populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:    projectDir,
		WorkspacePath: filepath.Join(projectDir, WorkspaceDir),
		Project:       defaultProjectConfig(),
	}

	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.WorkspacePath, "logs")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.WorkspacePath, "state")
}

// ReportsDir returns the path to the reports directory
func (c *Config) ReportsDir() string {
	return filepath.Join(c.WorkspacePath, "reports")
}

// CoverageDir returns the directory that holds coverage profiles and HTML.
func (c *Config) CoverageDir() string {
	return filepath.Join(c.ReportsDir(), "coverage")
}

// TargetsDir returns the directory scanned for custom target definitions.
func (c *Config) TargetsDir() string {
	return filepath.Join(c.WorkspacePath, "targets")
}

// TmpDir returns the scratch directory.
func (c *Config) TmpDir() string {
	return filepath.Join(c.WorkspacePath, "tmp")
}

// CatalogDir returns the resolved translation catalog directory.
func (c *Config) CatalogDir() string {
	dir := strings.TrimSpace(c.Project.Translations.CatalogDir)
	if dir == "" {
		dir = defaultCatalogDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(c.ProjectDir, dir)
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.WorkspacePath, "config.yaml")
}

// Environments returns the configured test environments.
func (c *Config) Environments() []Environment {
	return c.Project.Environments
}

// Environment looks up a test environment by name.
func (c *Config) Environment(name string) (Environment, bool) {
	for _, env := range c.Project.Environments {
		if strings.EqualFold(env.Name, strings.TrimSpace(name)) {
			return env, true
		}
	}
	return Environment{}, false
}

// FeatureRoleMapping returns the configured system-to-feature role mapping.
func (c *Config) FeatureRoleMapping() map[string][]string {
	return c.Project.RBAC.FeatureRoleMapping
}

// DefaultTarget returns the configured default workflow target identifier.
func (c *Config) DefaultTarget() string {
	return c.Project.Targets.Default
}

// SetDefaultTarget updates the default target identifier and persists the
// value back to .rolegate/config.yaml. The target ID is also appended to the
// available list so the dashboard can surface it on future launches.
func (c *Config) SetDefaultTarget(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("config: target id is required")
	}
	c.Project.Targets.Default = id
	if !contains(c.Project.Targets.Available, id) {
		c.Project.Targets.Available = append(c.Project.Targets.Available, id)
	}
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Environments: []Environment{
			{Name: "default", TestCommand: "go test ./..."},
		},
		Quality: QualityConfig{
			Commands: []string{"gofmt -l .", "go vet ./..."},
		},
		Clean: CleanConfig{
			Paths: []string{
				filepath.Join(WorkspaceDir, "reports"),
				filepath.Join(WorkspaceDir, "tmp"),
			},
		},
		Upgrade: UpgradeConfig{
			Commands: []string{"go get -u ./...", "go mod tidy"},
		},
		PII: PIIConfig{
			Include:    []string{"./..."},
			Annotation: "pii",
		},
		Translations: TranslationConfig{
			SourceLocale: defaultSourceLocale,
			CatalogDir:   defaultCatalogDir,
		},
		RBAC: RBACConfig{FeatureRoleMapping: map[string][]string{}},
		Targets: TargetConfig{
			Default: defaultTargetID,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if len(pc.Environments) == 0 {
		pc.Environments = []Environment{{Name: "default", TestCommand: "go test ./..."}}
	}
	if pc.RBAC.FeatureRoleMapping == nil {
		pc.RBAC.FeatureRoleMapping = map[string][]string{}
	}
	if strings.TrimSpace(pc.PII.Annotation) == "" {
		pc.PII.Annotation = "pii"
	}
}

func (pc *ProjectConfig) normalize(base string) {
	for i := range pc.Environments {
		pc.Environments[i].normalize()
	}
	pc.Docs.Index = resolvePath(base, pc.Docs.Index)
	pc.Upgrade.VersionSource = resolvePath(base, pc.Upgrade.VersionSource)
	pc.Upgrade.VersionPin = resolvePath(base, pc.Upgrade.VersionPin)
	pc.Translations.normalize()
	pc.Targets.Default = strings.TrimSpace(pc.Targets.Default)
	if pc.Targets.Default == "" {
		pc.Targets.Default = defaultTargetID
	}
	if len(pc.Targets.Available) > 0 && !contains(pc.Targets.Available, pc.Targets.Default) {
		pc.Targets.Available = append(pc.Targets.Available, pc.Targets.Default)
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	seen := map[string]struct{}{}
	for i := range pc.Environments {
		if err := pc.Environments[i].validate(); err != nil {
			return fmt.Errorf("environments[%d]: %w", i, err)
		}
		key := strings.ToLower(pc.Environments[i].Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("environments[%d]: duplicate name %s", i, pc.Environments[i].Name)
		}
		seen[key] = struct{}{}
	}
	if err := pc.Translations.validate(); err != nil {
		return fmt.Errorf("translations: %w", err)
	}
	if strings.TrimSpace(pc.Targets.Default) == "" {
		return fmt.Errorf("targets.default is required")
	}
	return nil
}

func (env *Environment) normalize() {
	env.Name = strings.TrimSpace(env.Name)
	env.TestCommand = strings.TrimSpace(env.TestCommand)
	env.CoverageCommand = strings.TrimSpace(env.CoverageCommand)
}

func (env Environment) validate() error {
	if env.Name == "" {
		return fmt.Errorf("name is required")
	}
	if env.TestCommand == "" {
		return fmt.Errorf("test_command is required for %s", env.Name)
	}
	return nil
}

func (tc *TranslationConfig) normalize() {
	tc.SourceLocale = strings.TrimSpace(tc.SourceLocale)
	if tc.SourceLocale == "" {
		tc.SourceLocale = defaultSourceLocale
	}
	tc.CatalogDir = strings.TrimSpace(tc.CatalogDir)
	if tc.CatalogDir == "" {
		tc.CatalogDir = defaultCatalogDir
	}
	cleaned := tc.Locales[:0]
	for _, locale := range tc.Locales {
		locale = strings.TrimSpace(locale)
		if locale != "" && !strings.EqualFold(locale, tc.SourceLocale) {
			cleaned = append(cleaned, locale)
		}
	}
	tc.Locales = cleaned
	if tc.Service != nil {
		tc.Service.URL = strings.TrimSpace(tc.Service.URL)
		tc.Service.Project = strings.TrimSpace(tc.Service.Project)
		tc.Service.TokenEnv = strings.TrimSpace(tc.Service.TokenEnv)
	}
}

func (tc TranslationConfig) validate() error {
	if tc.Service != nil {
		if tc.Service.URL == "" {
			return fmt.Errorf("service.url is required when a service is configured")
		}
		if tc.Service.Project == "" {
			return fmt.Errorf("service.project is required when a service is configured")
		}
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.WorkspacePath, 0o755); err != nil {
		return fmt.Errorf("config: ensure workspace dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
