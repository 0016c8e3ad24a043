package engine

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rolegate/internal/artifact"
	"rolegate/internal/target"
	"rolegate/internal/workflow"
	"rolegate/internal/workflow/scheduler"
)

func TestEngineStartPersistsState(t *testing.T) {
	env := newEngineTest(t, map[string]*fakeTarget{
		"quality": newFakeTarget("quality"),
		"test":    newFakeTarget("test"),
	})
	def := workflow.Definition{
		ID: "dev",
		Targets: []workflow.TargetRef{
			{TargetID: "quality"},
			{TargetID: "test", DependsOn: []string{"quality"}},
		},
	}

	state, err := env.engine.Start(env.ctx, StartRequest{Definition: def})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if state.RunID == "" {
		t.Fatal("expected a run id")
	}
	if state.Status != EngineStatusRunning {
		t.Fatalf("expected running status, got %s", state.Status)
	}
	if len(state.Runnable) != 1 || state.Runnable[0] != "quality" {
		t.Fatalf("unexpected runnable set: %v", state.Runnable)
	}

	loaded, err := env.engine.View()
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if loaded.RunID != state.RunID {
		t.Fatalf("expected persisted run id %s, got %s", state.RunID, loaded.RunID)
	}
}

func TestEngineClaimMarksRunning(t *testing.T) {
	env := newEngineTest(t, map[string]*fakeTarget{
		"quality": newFakeTarget("quality"),
	})
	def := workflow.Definition{
		ID:      "dev",
		Targets: []workflow.TargetRef{{TargetID: "quality"}},
	}
	if _, err := env.engine.Start(env.ctx, StartRequest{Definition: def}); err != nil {
		t.Fatalf("start: %v", err)
	}

	result, err := env.engine.Claim(env.ctx, ClaimRequest{})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(result.Claims) != 1 || result.Claims[0].ID != "quality" {
		t.Fatalf("unexpected claims: %+v", result.Claims)
	}
	if len(result.State.Runtime.Running) != 1 || result.State.Runtime.Running[0] != "quality" {
		t.Fatalf("expected quality marked running, got %v", result.State.Runtime.Running)
	}
	if len(result.State.Runnable) != 0 {
		t.Fatalf("expected empty runnable after claim, got %v", result.State.Runnable)
	}

	// A second claim must not hand out the same target.
	again, err := env.engine.Claim(env.ctx, ClaimRequest{})
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(again.Claims) != 0 {
		t.Fatalf("expected no claims while running, got %+v", again.Claims)
	}
}

func TestEngineUpdateReleasesAndCompletes(t *testing.T) {
	stubs := map[string]*fakeTarget{
		"quality": newFakeTarget("quality"),
	}
	env := newEngineTest(t, stubs)
	def := workflow.Definition{
		ID:      "dev",
		Targets: []workflow.TargetRef{{TargetID: "quality"}},
	}
	if _, err := env.engine.Start(env.ctx, StartRequest{Definition: def}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.engine.Claim(env.ctx, ClaimRequest{}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	stubs["quality"].markComplete()
	state, err := env.engine.Update(env.ctx, UpdateRequest{Results: []TargetStatusUpdate{
		{ID: "quality", Result: target.Result{Status: target.StatusCompleted}},
	}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if state.Status != EngineStatusComplete {
		t.Fatalf("expected complete status, got %s (%s)", state.Status, state.StatusReason)
	}
	if len(state.Runtime.Running) != 0 {
		t.Fatalf("expected running set released, got %v", state.Runtime.Running)
	}
	run, ok := state.Runs["quality"]
	if !ok || run.Status != target.StatusCompleted {
		t.Fatalf("expected recorded run, got %+v", state.Runs)
	}
}

func TestEngineUpdateSurfacesFailure(t *testing.T) {
	env := newEngineTest(t, map[string]*fakeTarget{
		"quality": newFakeTarget("quality"),
	})
	def := workflow.Definition{
		ID:      "dev",
		Targets: []workflow.TargetRef{{TargetID: "quality"}},
	}
	if _, err := env.engine.Start(env.ctx, StartRequest{Definition: def}); err != nil {
		t.Fatalf("start: %v", err)
	}

	state, err := env.engine.Update(env.ctx, UpdateRequest{Results: []TargetStatusUpdate{
		{ID: "quality", Result: target.Result{Status: target.StatusFailed}, Err: errors.New("lint errors")},
	}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if state.Status != EngineStatusError {
		t.Fatalf("expected error status, got %s", state.Status)
	}
	if state.StatusReason == "" {
		t.Fatal("expected a status reason naming the failed target")
	}
}

func TestDriverRunsPipelineToCompletion(t *testing.T) {
	stubs := map[string]*fakeTarget{
		"quality":   newFakeTarget("quality"),
		"pii-check": newFakeTarget("pii-check"),
		"test-all":  newFakeTarget("test-all"),
		"validate":  newFakeTarget("validate"),
	}
	env := newEngineTest(t, stubs)
	def := workflow.Definition{
		ID: "dev",
		Targets: []workflow.TargetRef{
			{TargetID: "quality"},
			{TargetID: "pii-check"},
			{TargetID: "test-all"},
			{TargetID: "validate", DependsOn: []string{"quality", "pii-check", "test-all"}},
		},
		Runtime: workflow.RuntimeConfig{MaxParallel: 2},
	}
	driver, err := NewDriver(env.engine, env.registry)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	var events []Event
	state, err := driver.Run(env.ctx, def, RunOptions{OnEvent: func(ev Event) {
		events = append(events, ev)
	}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state.Status != EngineStatusComplete {
		t.Fatalf("expected complete status, got %s (%s)", state.Status, state.StatusReason)
	}
	for id, stub := range stubs {
		if stub.runCount() != 1 {
			t.Fatalf("expected %s to run once, ran %d times", id, stub.runCount())
		}
	}
	// validate must have run after its dependencies.
	order := finishedOrder(events)
	if order[len(order)-1] != "validate" {
		t.Fatalf("expected validate to finish last, got order %v", order)
	}
}

func TestDriverStopsAtUnapprovedGate(t *testing.T) {
	stubs := map[string]*fakeTarget{
		"i18n-extract": newFakeTarget("i18n-extract"),
		"i18n-push":    newFakeTarget("i18n-push"),
	}
	env := newEngineTest(t, stubs)
	def := workflow.Definition{
		ID: "dev",
		Targets: []workflow.TargetRef{
			{TargetID: "i18n-extract"},
			{TargetID: "i18n-push", DependsOn: []string{"i18n-extract"}},
		},
	}
	driver, err := NewDriver(env.engine, env.registry)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	state, err := driver.Run(env.ctx, def, RunOptions{
		Targets: []string{"i18n-push"},
		ManualGates: map[string]scheduler.ManualGateState{
			"i18n-push": {Required: true, Approved: false, Note: "confirm upload"},
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stubs["i18n-push"].runCount() != 0 {
		t.Fatal("gated target must not run without approval")
	}
	if stubs["i18n-extract"].runCount() != 1 {
		t.Fatalf("expected dependency to run, ran %d times", stubs["i18n-extract"].runCount())
	}
	if state.Status != EngineStatusBlocked {
		t.Fatalf("expected blocked status, got %s", state.Status)
	}
	reason, ok := state.Skipped["i18n-push"]
	if !ok || reason.Reason != scheduler.SkipReasonManualGate {
		t.Fatalf("expected manual gate skip, got %+v", state.Skipped)
	}
}

func TestDriverContinuesAfterTargetFailure(t *testing.T) {
	stubs := map[string]*fakeTarget{
		"quality": newFakeTarget("quality"),
	}
	stubs["quality"].failWith = errors.New("lint errors")
	env := newEngineTest(t, stubs)
	def := workflow.Definition{
		ID:      "dev",
		Targets: []workflow.TargetRef{{TargetID: "quality"}},
	}
	driver, err := NewDriver(env.engine, env.registry)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	state, err := driver.Run(env.ctx, def, RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state.Status != EngineStatusError {
		t.Fatalf("expected error status, got %s", state.Status)
	}
	run, ok := state.Runs["quality"]
	if !ok || run.Status != target.StatusFailed {
		t.Fatalf("expected failed run record, got %+v", state.Runs)
	}
}

type engineTest struct {
	engine   *Engine
	registry *target.Registry
	ctx      *target.Context
}

func newEngineTest(t *testing.T, stubs map[string]*fakeTarget) *engineTest {
	t.Helper()
	reg := target.NewRegistry()
	for id, stub := range stubs {
		stub := stub
		reg.MustRegister(id, func(target.Config) (target.Target, error) {
			return stub, nil
		})
	}
	projectDir := t.TempDir()
	ws := workflow.NewWorkspace(projectDir, filepath.Join(projectDir, ".rolegate"), filepath.Join(projectDir, "locale"))
	if err := ws.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	eng, err := New(reg, NewRepository(ws), WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return &engineTest{
		engine:   eng,
		registry: reg,
		ctx:      target.NewContext(nil, ws, nil),
	}
}

func finishedOrder(events []Event) []string {
	var order []string
	for _, ev := range events {
		if ev.Type == EventTargetFinished {
			order = append(order, ev.ID)
		}
	}
	return order
}

// fakeTarget completes after its first successful run, mirroring how real
// targets report completion once their artifacts exist.
type fakeTarget struct {
	mu       sync.Mutex
	info     target.Info
	complete bool
	runs     int
	failWith error
}

func newFakeTarget(id string) *fakeTarget {
	return &fakeTarget{
		info: target.Info{
			ID:      id,
			Name:    "fake " + id,
			Version: "1.0.0",
		},
	}
}

func (f *fakeTarget) Info() target.Info {
	return f.info
}

func (f *fakeTarget) Inputs() []artifact.Ref {
	return nil
}

func (f *fakeTarget) Outputs() []artifact.Ref {
	return nil
}

func (f *fakeTarget) IsComplete(*target.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.complete, nil
}

func (f *fakeTarget) Run(*target.Context) (target.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	if f.failWith != nil {
		return target.Result{Status: target.StatusFailed, Message: f.failWith.Error()}, f.failWith
	}
	f.complete = true
	return target.Result{Status: target.StatusCompleted}, nil
}

func (f *fakeTarget) markComplete() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.complete = true
}

func (f *fakeTarget) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}
