package resolver

import (
	"errors"
	"path/filepath"
	"testing"

	"rolegate/internal/artifact"
	"rolegate/internal/target"
	"rolegate/internal/workflow"
)

func TestResolverRefreshSetsStates(t *testing.T) {
	stubs := map[string]*stubTarget{
		"extract": newStubTarget("extract", true, nil),
		"dummy":   newStubTarget("dummy", false, nil),
		"compile": newStubTarget("compile", false, nil),
	}
	res := buildResolver(t, stubs)
	ctx := newTestContext(t)

	if err := res.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	extract := mustNode(t, res, "extract")
	dummy := mustNode(t, res, "dummy")
	compile := mustNode(t, res, "compile")

	if extract.State != NodeStateComplete {
		t.Fatalf("expected extract complete, got %s", extract.State)
	}
	if dummy.State != NodeStateReady {
		t.Fatalf("expected dummy ready, got %s", dummy.State)
	}
	if compile.State != NodeStateBlocked {
		t.Fatalf("expected compile blocked, got %s", compile.State)
	}
	if len(compile.BlockedBy) != 1 || compile.BlockedBy[0] != "dummy" {
		t.Fatalf("compile blocked by %+v", compile.BlockedBy)
	}

	ready := res.Ready()
	if len(ready) != 1 || ready[0].ID != "dummy" {
		t.Fatalf("unexpected ready set: %#v", ready)
	}
}

func TestResolverQueueOrdersDependencies(t *testing.T) {
	stubs := map[string]*stubTarget{
		"extract": newStubTarget("extract", false, nil),
		"dummy":   newStubTarget("dummy", false, nil),
		"compile": newStubTarget("compile", false, nil),
	}
	res := buildResolver(t, stubs)
	ctx := newTestContext(t)

	if err := res.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	queue, err := res.Queue("compile")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(queue) != 3 {
		t.Fatalf("expected 3 queued targets, got %d", len(queue))
	}
	if queue[0].ID != "extract" || queue[1].ID != "dummy" || queue[2].ID != "compile" {
		t.Fatalf("unexpected order: %s -> %s -> %s", queue[0].ID, queue[1].ID, queue[2].ID)
	}
}

func TestResolverRefreshPropagatesErrors(t *testing.T) {
	stubs := map[string]*stubTarget{
		"extract": newStubTarget("extract", true, nil),
		"dummy":   newStubTarget("dummy", false, errors.New("boom")),
		"compile": newStubTarget("compile", false, nil),
	}
	res := buildResolver(t, stubs)
	ctx := newTestContext(t)

	if err := res.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	dummy := mustNode(t, res, "dummy")
	if dummy.State != NodeStateError {
		t.Fatalf("expected dummy error state, got %s", dummy.State)
	}
	if dummy.Err == nil || dummy.Err.Error() != "boom" {
		t.Fatalf("unexpected dummy error: %v", dummy.Err)
	}
	compile := mustNode(t, res, "compile")
	if compile.State != NodeStateBlocked {
		t.Fatalf("expected compile blocked by error, got %s", compile.State)
	}
	if len(compile.BlockedBy) != 1 || compile.BlockedBy[0] != "dummy" {
		t.Fatalf("unexpected compile blockers: %+v", compile.BlockedBy)
	}
}

func TestResolverStaleOutputReopensCompleteTarget(t *testing.T) {
	stubs := map[string]*stubTarget{
		"extract": newStubTarget("extract", true, nil),
		"dummy":   newStubTarget("dummy", true, nil),
		"compile": newStubTarget("compile", true, nil),
	}
	// extract claims the quality-report slot but never records metadata, so
	// the artifact comes back missing and the target drops to pending.
	stubs["extract"].outputs = []artifact.Ref{artifact.QualityReport}
	res := buildResolver(t, stubs)
	ctx := newTestContext(t)

	if err := res.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	extract := mustNode(t, res, "extract")
	if extract.State != NodeStateReady {
		t.Fatalf("expected extract reopened as ready, got %s", extract.State)
	}
	report, ok := extract.Artifacts[artifact.QualityReport.ID]
	if !ok {
		t.Fatal("expected artifact report for quality-report")
	}
	if report.Status != target.ArtifactStatusMissing {
		t.Fatalf("expected missing artifact status, got %s", report.Status)
	}
}

func buildResolver(t *testing.T, stubs map[string]*stubTarget) *Resolver {
	t.Helper()
	reg := target.NewRegistry()
	for id, stub := range stubs {
		stub := stub
		reg.MustRegister(id, func(target.Config) (target.Target, error) {
			return stub, nil
		})
	}
	def := workflow.Definition{
		ID: "test-pipeline",
		Targets: []workflow.TargetRef{
			{TargetID: "extract"},
			{TargetID: "dummy", DependsOn: []string{"extract"}},
			{TargetID: "compile", DependsOn: []string{"dummy"}},
		},
	}
	res, err := New(def, reg)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return res
}

func newTestContext(t *testing.T) *target.Context {
	t.Helper()
	projectDir := t.TempDir()
	ws := workflow.NewWorkspace(projectDir, filepath.Join(projectDir, ".rolegate"), filepath.Join(projectDir, "locale"))
	if err := ws.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	return target.NewContext(nil, ws, nil)
}

func mustNode(t *testing.T, res *Resolver, id string) *Node {
	t.Helper()
	node, ok := res.Node(id)
	if !ok {
		t.Fatalf("missing node %s", id)
	}
	return node
}

type stubTarget struct {
	info     target.Info
	complete bool
	err      error
	outputs  []artifact.Ref
}

func newStubTarget(id string, complete bool, err error) *stubTarget {
	return &stubTarget{
		info: target.Info{
			ID:      id,
			Name:    "stub " + id,
			Version: "1.0.0",
		},
		complete: complete,
		err:      err,
	}
}

func (s *stubTarget) Info() target.Info {
	return s.info
}

func (s *stubTarget) Inputs() []artifact.Ref {
	return nil
}

func (s *stubTarget) Outputs() []artifact.Ref {
	return append([]artifact.Ref{}, s.outputs...)
}

func (s *stubTarget) IsComplete(*target.Context) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.complete, nil
}

func (s *stubTarget) Run(*target.Context) (target.Result, error) {
	return target.Result{Status: target.StatusCompleted}, nil
}
