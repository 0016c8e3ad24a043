// Package artifact defines the filesystem-level contracts (inputs/outputs)
// that targets exchange. Each artifact has a stable identifier, kind, and a
// resolver that maps to the actual path for the current workspace. Because
// most outputs are produced by external tools, provenance lives in metadata
// sidecar files under .rolegate/state/artifacts rather than inside the
// artifacts themselves.

package artifact

import (
	"fmt"
	"path/filepath"
	"time"

	"rolegate/internal/workflow"
)

// Kind captures the storage shape of an artifact.
type Kind string

const (
	// KindFile represents a regular file owned by an external tool or target.
	KindFile Kind = "file"
	// KindMarker represents an empty file used as a marker/flag.
	KindMarker Kind = "marker"
	// KindDirectory represents a directory that must exist and be non-empty.
	KindDirectory Kind = "directory"
)

// PathResolver returns the fully-qualified path to an artifact for the
// current workspace.
type PathResolver func(*workflow.Workspace) string

// Ref declares a stable identifier and metadata for an artifact.
type Ref struct {
	ID          string
	Name        string
	Description string
	Kind        Kind
	Optional    bool
	path        PathResolver
}

// Path resolves the artifact path for the provided workspace.
func (r Ref) Path(ws *workflow.Workspace) string {
	if ws == nil || r.path == nil {
		return ""
	}
	return filepath.Clean(r.path(ws))
}

// Validate ensures the reference is well-formed.
func (r Ref) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("artifact: id is required")
	}
	if r.Kind == "" {
		return fmt.Errorf("artifact: kind is required for %s", r.ID)
	}
	if r.path == nil {
		return fmt.Errorf("artifact: path resolver missing for %s", r.ID)
	}
	return nil
}

// Metadata captures provenance stored in the artifact's sidecar file.
type Metadata struct {
	ArtifactID string            `json:"artifact_id"`
	TargetID   string            `json:"target_id"`
	Version    string            `json:"version"`
	Pipeline   string            `json:"pipeline,omitempty"`
	Inputs     []string          `json:"inputs,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Checksum   string            `json:"checksum,omitempty"`
	Notes      map[string]string `json:"notes,omitempty"`
}

// WithDefaults ensures metadata carries the artifact ID and timestamps.
func (m Metadata) WithDefaults(ref Ref, now time.Time) Metadata {
	clone := m
	if clone.ArtifactID == "" {
		clone.ArtifactID = ref.ID
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now.UTC()
	} else {
		clone.CreatedAt = clone.CreatedAt.UTC()
	}
	return clone
}

// ValidateFor ensures metadata matches the artifact contract.
func (m Metadata) ValidateFor(ref Ref) error {
	if m.ArtifactID != ref.ID {
		return fmt.Errorf("artifact: metadata id %s does not match ref %s", m.ArtifactID, ref.ID)
	}
	if m.TargetID == "" {
		return fmt.Errorf("artifact: target id is required for %s", ref.ID)
	}
	if m.Version == "" {
		return fmt.Errorf("artifact: version is required for %s", ref.ID)
	}
	return nil
}

// State captures the readiness of an artifact on disk.
type State string

const (
	StateMissing State = "missing"
	StateReady   State = "ready"
	StateInvalid State = "invalid"
	StateError   State = "error"
)

// CheckResult captures Store.Check results.
type CheckResult struct {
	Ref      Ref
	Path     string
	State    State
	Metadata *Metadata
	Err      error
}

// helper to register global references
func register(ref Ref) Ref {
	if refs == nil {
		refs = map[string]Ref{}
	}
	refs[ref.ID] = ref
	return ref
}

var refs map[string]Ref

// Lookup returns a registered artifact reference by ID.
func Lookup(id string) (Ref, bool) {
	ref, ok := refs[id]
	return ref, ok
}

// newFileRef creates a file artifact reference helper.
func newFileRef(id, name, desc string, resolver PathResolver) Ref {
	return Ref{
		ID:          id,
		Name:        name,
		Description: desc,
		Kind:        KindFile,
		path:        resolver,
	}
}

// newDirectoryRef creates a directory reference helper.
func newDirectoryRef(id, name, desc string, resolver PathResolver) Ref {
	return Ref{
		ID:          id,
		Name:        name,
		Description: desc,
		Kind:        KindDirectory,
		path:        resolver,
	}
}

// Canonical artifact references for the development pipeline.
var (
	CoverageProfile = register(newFileRef("coverage-profile", "Coverage Profile", "Raw coverage profile produced by the test runner", func(ws *workflow.Workspace) string { return ws.CoverageProfilePath() }))
	CoverageHTML    = register(newFileRef("coverage-html", "Coverage Report", "Rendered HTML coverage report", func(ws *workflow.Workspace) string { return ws.CoverageHTMLPath() }))
	QualityReport   = register(newFileRef("quality-report", "Quality Report", "Captured output of the style and lint commands", func(ws *workflow.Workspace) string { return ws.QualityReportPath() }))
	PIIReport       = register(newFileRef("pii-report", "PII Report", "Findings of the PII annotation scan", func(ws *workflow.Workspace) string { return ws.PIIReportPath() }))
	SourceCatalog   = register(newFileRef("source-catalog", "Source Catalog", "Extracted message template (messages.pot)", func(ws *workflow.Workspace) string { return ws.SourceCatalogPath() }))
	DummyCatalog    = register(newFileRef("dummy-catalog", "Dummy Catalog", "Generated pseudo-locale catalog", func(ws *workflow.Workspace) string { return ws.CatalogPath(workflow.DummyLocale) }))
	CatalogTree     = register(newDirectoryRef("catalog-tree", "Catalog Tree", "Locale directory holding per-language catalogs", func(ws *workflow.Workspace) string { return ws.CatalogDir() }))
)
