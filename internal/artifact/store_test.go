package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"rolegate/internal/workflow"
)

func testWorkspace(t *testing.T) *workflow.Workspace {
	t.Helper()
	projectDir := t.TempDir()
	ws := workflow.NewWorkspace(projectDir, filepath.Join(projectDir, ".rolegate"), filepath.Join(projectDir, "locale"))
	if err := ws.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	return ws
}

func TestCheckMissingArtifact(t *testing.T) {
	ws := testWorkspace(t)
	store := NewStore(ws)

	result := store.Check(QualityReport)
	if result.State != StateMissing {
		t.Fatalf("expected missing state, got %s (err=%v)", result.State, result.Err)
	}
}

func TestRecordAndCheckRoundTrip(t *testing.T) {
	ws := testWorkspace(t)
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store := NewStore(ws, WithClock(func() time.Time { return fixed }))

	path := QualityReport.Path(ws)
	if err := os.WriteFile(path, []byte("all clean\n"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	meta, err := store.Record(QualityReport, Metadata{TargetID: "quality", Version: "1"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if meta.Checksum == "" {
		t.Fatal("expected checksum to be computed for file artifacts")
	}
	if !meta.CreatedAt.Equal(fixed) {
		t.Fatalf("expected clock time %v, got %v", fixed, meta.CreatedAt)
	}

	result := store.Check(QualityReport)
	if result.State != StateReady {
		t.Fatalf("expected ready state, got %s (err=%v)", result.State, result.Err)
	}
	if result.Metadata == nil || result.Metadata.TargetID != "quality" {
		t.Fatalf("unexpected metadata: %+v", result.Metadata)
	}
}

func TestCheckDetectsOutsideEdits(t *testing.T) {
	ws := testWorkspace(t)
	store := NewStore(ws)

	path := QualityReport.Path(ws)
	if err := os.WriteFile(path, []byte("original\n"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if _, err := store.Record(QualityReport, Metadata{TargetID: "quality", Version: "1"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := os.WriteFile(path, []byte("edited by hand\n"), 0o644); err != nil {
		t.Fatalf("rewrite artifact: %v", err)
	}

	result := store.Check(QualityReport)
	if result.State != StateInvalid {
		t.Fatalf("expected invalid state after edit, got %s", result.State)
	}
}

func TestCheckArtifactWithoutProvenance(t *testing.T) {
	ws := testWorkspace(t)
	store := NewStore(ws)

	if err := os.WriteFile(QualityReport.Path(ws), []byte("orphan\n"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	result := store.Check(QualityReport)
	if result.State != StateInvalid {
		t.Fatalf("expected invalid for artifact without provenance, got %s", result.State)
	}
}

func TestCheckDirectoryArtifact(t *testing.T) {
	ws := testWorkspace(t)
	store := NewStore(ws)

	if result := store.Check(CatalogTree); result.State != StateMissing {
		t.Fatalf("expected missing for absent catalog dir, got %s", result.State)
	}
	if err := os.MkdirAll(ws.CatalogDir(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if result := store.Check(CatalogTree); result.State != StateMissing {
		t.Fatalf("expected missing for empty catalog dir, got %s", result.State)
	}

	localeDir := filepath.Join(ws.CatalogDir(), "eo")
	if err := os.MkdirAll(localeDir, 0o755); err != nil {
		t.Fatalf("mkdir locale: %v", err)
	}
	if _, err := store.Record(CatalogTree, Metadata{TargetID: "i18n-dummy", Version: "1"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if result := store.Check(CatalogTree); result.State != StateReady {
		t.Fatalf("expected ready for populated catalog dir, got %s (err=%v)", result.State, result.Err)
	}
}

func TestForgetRemovesProvenance(t *testing.T) {
	ws := testWorkspace(t)
	store := NewStore(ws)

	if err := os.WriteFile(PIIReport.Path(ws), []byte("ok\n"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if _, err := store.Record(PIIReport, Metadata{TargetID: "pii-check", Version: "1"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Forget(PIIReport); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, found, err := store.Metadata(PIIReport); err != nil || found {
		t.Fatalf("expected no metadata after forget (found=%v err=%v)", found, err)
	}
	// forgetting twice is fine
	if err := store.Forget(PIIReport); err != nil {
		t.Fatalf("second forget: %v", err)
	}
}
