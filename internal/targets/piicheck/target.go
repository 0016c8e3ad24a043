// Package piicheck statically scans persisted data models for missing PII
// annotations. Any exported struct with database-mapped fields must declare,
// per exported field, whether it carries personal data, via a `pii:"..."`
// struct tag or a `// pii:` comment on the field.
package piicheck

import (
	"bytes"
	"fmt"

	"rolegate/internal/artifact"
	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

const (
	targetID      = workflow.TargetPIICheck
	targetVersion = "1.0.0"
)

// Target runs the annotation scan and archives the findings report.
type Target struct {
	*target.Base
}

// Register installs the pii-check target factory.
func Register(reg *target.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(targetID, func(target.Config) (target.Target, error) {
		return New(), nil
	})
}

// New constructs the pii-check target.
func New() *Target {
	info := target.Info{
		ID:          targetID,
		Name:        "PII Check",
		Description: "Verifies data models declare PII annotations on every exported field.",
		Version:     targetVersion,
	}
	base := target.NewBase(info)
	base.SetOutputs(artifact.PIIReport)
	return &Target{Base: &base}
}

// IsComplete reports whether a current scan report exists.
func (t *Target) IsComplete(ctx *target.Context) (bool, error) {
	if err := runtime.ValidateContext(targetID, ctx); err != nil {
		return false, err
	}
	return runtime.ArtifactCurrent(ctx, targetID, targetVersion, artifact.PIIReport)
}

// Run scans the configured include roots and writes the report. Findings
// fail the target.
func (t *Target) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(targetID, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	cfg := ctx.Config.Project.PII
	roots := cfg.Include
	if len(roots) == 0 {
		roots = []string{"."}
	}
	scanner := NewScanner(cfg.Annotation)

	var findings []Finding
	scanned := 0
	for _, root := range roots {
		result, err := scanner.ScanDir(resolveRoot(ctx, root))
		if err != nil {
			return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", targetID, err)
		}
		findings = append(findings, result.Findings...)
		scanned += result.ModelsScanned
	}

	var report bytes.Buffer
	fmt.Fprintf(&report, "scanned %d data models\n", scanned)
	for _, finding := range findings {
		fmt.Fprintf(&report, "%s: %s.%s missing %s annotation\n", finding.Position, finding.Struct, finding.Field, scanner.Annotation())
	}
	if len(findings) == 0 {
		fmt.Fprintln(&report, "all exported model fields are annotated")
	}
	path := artifact.PIIReport.Path(ctx.Workspace)
	if err := runtime.WriteReport(path, report.Bytes()); err != nil {
		return target.Result{Status: target.StatusFailed}, fmt.Errorf("%s: %w", targetID, err)
	}
	if len(findings) > 0 {
		return target.Result{
			Status:  target.StatusFailed,
			Message: fmt.Sprintf("%d fields missing annotations", len(findings)),
		}, fmt.Errorf("%s: %d fields missing annotations", targetID, len(findings))
	}
	if err := runtime.Record(ctx, targetID, targetVersion, artifact.PIIReport); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	return target.Result{Status: target.StatusCompleted, Message: fmt.Sprintf("%d models scanned", scanned)}, nil
}

func resolveRoot(ctx *target.Context, root string) string {
	if root == "." || root == "" {
		return ctx.Config.ProjectDir
	}
	return ctx.Workspace.ProjectDir() + "/" + root
}
