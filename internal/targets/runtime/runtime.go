// Package runtime holds helpers shared by target implementations: context
// validation, artifact recording, and completion checks against recorded
// provenance.
package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rolegate/internal/artifact"
	"rolegate/internal/target"
)

// MetadataOption customizes the metadata recorded for an artifact.
type MetadataOption func(*artifact.Metadata)

// WithInputs records the upstream artifact identifiers in metadata.
func WithInputs(refs ...artifact.Ref) MetadataOption {
	return func(meta *artifact.Metadata) {
		if len(refs) == 0 {
			return
		}
		ids := make([]string, 0, len(refs))
		for _, ref := range refs {
			if ref.ID != "" {
				ids = append(ids, ref.ID)
			}
		}
		if len(ids) > 0 {
			meta.Inputs = ids
		}
	}
}

// WithFingerprint records a fingerprint value for the provided artifact.
func WithFingerprint(ref artifact.Ref, value string) MetadataOption {
	return func(meta *artifact.Metadata) {
		if strings.TrimSpace(value) == "" {
			return
		}
		if meta.Notes == nil {
			meta.Notes = map[string]string{}
		}
		meta.Notes[target.FingerprintNoteKey(ref.ID)] = value
	}
}

// WithNote records an arbitrary note on the metadata.
func WithNote(key, value string) MetadataOption {
	return func(meta *artifact.Metadata) {
		if key == "" {
			return
		}
		if meta.Notes == nil {
			meta.Notes = map[string]string{}
		}
		meta.Notes[key] = value
	}
}

// ValidateContext ensures targets receive a usable context.
func ValidateContext(targetID string, ctx *target.Context) error {
	if ctx == nil {
		return fmt.Errorf("%s: context is nil", targetID)
	}
	if ctx.Config == nil {
		return fmt.Errorf("%s: config is required", targetID)
	}
	if ctx.Workspace == nil {
		return fmt.Errorf("%s: workspace is required", targetID)
	}
	if ctx.Artifacts == nil {
		return fmt.Errorf("%s: artifact store is required", targetID)
	}
	if ctx.Runner == nil {
		return fmt.Errorf("%s: command runner is required", targetID)
	}
	return nil
}

// Record claims an artifact for a target by writing its provenance sidecar.
func Record(ctx *target.Context, targetID, version string, ref artifact.Ref, opts ...MetadataOption) error {
	meta := artifact.Metadata{
		ArtifactID: ref.ID,
		TargetID:   targetID,
		Version:    version,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&meta)
		}
	}
	if _, err := ctx.Artifacts.Record(ref, meta); err != nil {
		return fmt.Errorf("%s: record %s: %w", targetID, ref.ID, err)
	}
	return nil
}

// ArtifactCurrent reports whether the artifact exists and its provenance
// matches the owning target and version. Targets use this from IsComplete.
func ArtifactCurrent(ctx *target.Context, targetID, version string, ref artifact.Ref) (bool, error) {
	result := ctx.Artifacts.Check(ref)
	switch result.State {
	case artifact.StateReady:
		meta := result.Metadata
		if meta == nil || meta.TargetID != targetID || meta.Version != version {
			return false, nil
		}
		return true, nil
	case artifact.StateMissing, artifact.StateInvalid:
		return false, nil
	default:
		return false, result.Err
	}
}

// WriteReport writes a report file, creating parent directories as needed.
func WriteReport(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("runtime: ensure report dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("runtime: write report %s: %w", path, err)
	}
	return nil
}

// Progressf prints a user-facing progress line.
func Progressf(ctx *target.Context, format string, args ...any) {
	if ctx == nil || ctx.Stdout == nil {
		return
	}
	fmt.Fprintf(ctx.Stdout, format+"\n", args...)
}
