package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"rolegate/internal/workflow"
)

// Store inspects and records artifacts for a workspace. Provenance lives in
// sidecar JSON files keyed by artifact ID so external tools can own the
// artifact bytes themselves.
type Store struct {
	ws  *workflow.Workspace
	now func() time.Time
}

// StoreOption customises store construction.
type StoreOption func(*Store)

// WithClock overrides the store clock (used by tests).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an artifact store bound to a workspace.
func NewStore(ws *workflow.Workspace, opts ...StoreOption) *Store {
	store := &Store{ws: ws, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Workspace exposes the bound workspace.
func (s *Store) Workspace() *workflow.Workspace {
	return s.ws
}

func (s *Store) metaPath(ref Ref) string {
	return filepath.Join(s.ws.ArtifactMetaDir(), ref.ID+".json")
}

// Check reports whether the artifact exists, and whether its recorded
// provenance still matches the bytes on disk.
func (s *Store) Check(ref Ref) CheckResult {
	result := CheckResult{Ref: ref, Path: ref.Path(s.ws)}
	if err := ref.Validate(); err != nil {
		result.State = StateError
		result.Err = err
		return result
	}

	info, err := os.Stat(result.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		result.State = StateMissing
		return result
	case err != nil:
		result.State = StateError
		result.Err = fmt.Errorf("artifact: stat %s: %w", result.Path, err)
		return result
	}

	switch ref.Kind {
	case KindDirectory:
		if !info.IsDir() {
			result.State = StateInvalid
			result.Err = fmt.Errorf("artifact: %s is not a directory", result.Path)
			return result
		}
		empty, err := dirEmpty(result.Path)
		if err != nil {
			result.State = StateError
			result.Err = err
			return result
		}
		if empty {
			result.State = StateMissing
			return result
		}
	case KindFile, KindMarker:
		if info.IsDir() {
			result.State = StateInvalid
			result.Err = fmt.Errorf("artifact: %s is a directory, expected a file", result.Path)
			return result
		}
	}

	meta, err := s.readMetadata(ref)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// The artifact exists but nothing recorded it; treat it as stale so
		// the owning target re-runs and claims it.
		result.State = StateInvalid
		return result
	case err != nil:
		result.State = StateError
		result.Err = err
		return result
	}
	result.Metadata = &meta

	if err := meta.ValidateFor(ref); err != nil {
		result.State = StateInvalid
		result.Err = err
		return result
	}
	if ref.Kind == KindFile && meta.Checksum != "" {
		sum, err := fileChecksum(result.Path)
		if err != nil {
			result.State = StateError
			result.Err = err
			return result
		}
		if sum != meta.Checksum {
			result.State = StateInvalid
			result.Err = fmt.Errorf("artifact: %s changed since it was recorded", ref.ID)
			return result
		}
	}

	result.State = StateReady
	return result
}

// Record writes provenance for an artifact that a target just produced. File
// artifacts get a content checksum so later runs can detect outside edits.
func (s *Store) Record(ref Ref, meta Metadata) (Metadata, error) {
	if err := ref.Validate(); err != nil {
		return Metadata{}, err
	}
	meta = meta.WithDefaults(ref, s.now())
	if err := meta.ValidateFor(ref); err != nil {
		return Metadata{}, err
	}
	path := ref.Path(s.ws)
	if _, err := os.Stat(path); err != nil {
		return Metadata{}, fmt.Errorf("artifact: record %s: %w", ref.ID, err)
	}
	if ref.Kind == KindFile {
		sum, err := fileChecksum(path)
		if err != nil {
			return Metadata{}, err
		}
		meta.Checksum = sum
	}
	if err := s.writeMetadata(ref, meta); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// Forget removes recorded provenance without touching the artifact itself.
func (s *Store) Forget(ref Ref) error {
	err := os.Remove(s.metaPath(ref))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("artifact: forget %s: %w", ref.ID, err)
	}
	return nil
}

// Metadata returns the recorded provenance for an artifact, if any.
func (s *Store) Metadata(ref Ref) (Metadata, bool, error) {
	meta, err := s.readMetadata(ref)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Metadata{}, false, nil
	case err != nil:
		return Metadata{}, false, err
	}
	return meta, true, nil
}

func (s *Store) readMetadata(ref Ref) (Metadata, error) {
	content, err := os.ReadFile(s.metaPath(ref))
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(content, &meta); err != nil {
		return Metadata{}, fmt.Errorf("artifact: decode metadata for %s: %w", ref.ID, err)
	}
	return meta, nil
}

func (s *Store) writeMetadata(ref Ref, meta Metadata) error {
	if err := os.MkdirAll(s.ws.ArtifactMetaDir(), 0o755); err != nil {
		return fmt.Errorf("artifact: ensure metadata dir: %w", err)
	}
	content, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode metadata for %s: %w", ref.ID, err)
	}
	if err := os.WriteFile(s.metaPath(ref), append(content, '\n'), 0o644); err != nil {
		return fmt.Errorf("artifact: write metadata for %s: %w", ref.ID, err)
	}
	return nil
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("artifact: open %s: %w", path, err)
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("artifact: hash %s: %w", path, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func dirEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, fmt.Errorf("artifact: read dir %s: %w", path, err)
	}
	return len(entries) == 0, nil
}
