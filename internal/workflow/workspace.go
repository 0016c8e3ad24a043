// internal/workflow/workspace.go
//
// Defines the workspace directory structure and file constants. All run
// state and generated reports live in .rolegate/ so they stay out of the
// project's own tree.

package workflow

import (
	"os"
	"path/filepath"
	"strings"
)

// Directory names within .rolegate/
const (
	StateDir   = "state"
	ReportsDir = "reports"
	TmpDir     = "tmp"
)

// File names for run artifacts
const (
	FileEngineState     = "engine.json"
	FileCoverageProfile = "coverage.out"
	FileCoverageHTML    = "coverage.html"
	FileQualityReport   = "quality.txt"
	FilePIIReport       = "pii.txt"
	FileSourceCatalog   = "messages.pot"
)

// Catalog file suffixes inside the locale directory.
const (
	CatalogSuffix         = ".po"
	CompiledCatalogSuffix = ".json"
)

// DummyLocale is the pseudo-locale generated by the dummy translation target.
const DummyLocale = "eo"

// Workspace resolves the paths targets read and write. It is the single
// owner of layout knowledge so targets and artifacts never join paths
// themselves.
type Workspace struct {
	// projectDir is the directory the user ran rolegate from.
	projectDir string
	// workspacePath is projectDir/.rolegate.
	workspacePath string
	// catalogDir holds translation catalogs (usually projectDir/locale).
	catalogDir string
}

// NewWorkspace creates a workspace rooted at the project directory.
func NewWorkspace(projectDir, workspacePath, catalogDir string) *Workspace {
	return &Workspace{
		projectDir:    projectDir,
		workspacePath: workspacePath,
		catalogDir:    catalogDir,
	}
}

// ProjectDir returns the project root.
func (w *Workspace) ProjectDir() string {
	return w.projectDir
}

// Dir returns the workspace root (.rolegate).
func (w *Workspace) Dir() string {
	return w.workspacePath
}

// StatePath returns the state directory (.rolegate/state).
func (w *Workspace) StatePath() string {
	return filepath.Join(w.workspacePath, StateDir)
}

// EngineStatePath returns the persisted engine snapshot path.
func (w *Workspace) EngineStatePath() string {
	return filepath.Join(w.StatePath(), FileEngineState)
}

// ArtifactMetaDir returns the directory holding artifact metadata sidecars.
func (w *Workspace) ArtifactMetaDir() string {
	return filepath.Join(w.StatePath(), "artifacts")
}

// ReportsPath returns the reports directory (.rolegate/reports).
func (w *Workspace) ReportsPath() string {
	return filepath.Join(w.workspacePath, ReportsDir)
}

// CoverageProfilePath returns the raw coverage profile location.
func (w *Workspace) CoverageProfilePath() string {
	return filepath.Join(w.ReportsPath(), "coverage", FileCoverageProfile)
}

// CoverageHTMLPath returns the rendered coverage report location.
func (w *Workspace) CoverageHTMLPath() string {
	return filepath.Join(w.ReportsPath(), "coverage", FileCoverageHTML)
}

// QualityReportPath returns the captured linter output location.
func (w *Workspace) QualityReportPath() string {
	return filepath.Join(w.ReportsPath(), FileQualityReport)
}

// PIIReportPath returns the PII scan report location.
func (w *Workspace) PIIReportPath() string {
	return filepath.Join(w.ReportsPath(), FilePIIReport)
}

// TestReportPath returns the test log location for one environment.
func (w *Workspace) TestReportPath(env string) string {
	name := "tests-" + sanitizeName(env) + ".txt"
	return filepath.Join(w.ReportsPath(), name)
}

// CatalogDir returns the translation catalog root.
func (w *Workspace) CatalogDir() string {
	return w.catalogDir
}

// SourceCatalogPath returns the extracted message template location.
func (w *Workspace) SourceCatalogPath() string {
	return filepath.Join(w.catalogDir, FileSourceCatalog)
}

// CatalogPath returns the editable catalog for a locale.
func (w *Workspace) CatalogPath(locale string) string {
	return filepath.Join(w.catalogDir, locale, "messages"+CatalogSuffix)
}

// CompiledCatalogPath returns the runtime catalog for a locale.
func (w *Workspace) CompiledCatalogPath(locale string) string {
	return filepath.Join(w.catalogDir, locale, "messages"+CompiledCatalogSuffix)
}

// EnsureDirs creates the directories targets write into. Callers run this
// once at startup; targets may still create locale subdirectories on demand.
func (w *Workspace) EnsureDirs() error {
	dirs := []string{
		w.StatePath(),
		w.ArtifactMetaDir(),
		w.ReportsPath(),
		filepath.Join(w.ReportsPath(), "coverage"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
