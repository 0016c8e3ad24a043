package engine

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"rolegate/internal/target"
	"rolegate/internal/workflow"
	"rolegate/internal/workflow/scheduler"
)

// Driver runs a pipeline to completion by repeatedly claiming runnable
// targets from the engine and executing them in parallel batches.
type Driver struct {
	engine   *Engine
	registry *target.Registry
}

// NewDriver wires a driver to an engine and its target registry.
func NewDriver(eng *Engine, registry *target.Registry) (*Driver, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine: driver requires an engine")
	}
	if registry == nil {
		return nil, fmt.Errorf("engine: driver requires a target registry")
	}
	return &Driver{engine: eng, registry: registry}, nil
}

// EventType enumerates driver progress notifications.
type EventType string

const (
	EventTargetStarted  EventType = "target-started"
	EventTargetFinished EventType = "target-finished"
	EventTargetSkipped  EventType = "target-skipped"
)

// Event describes driver progress for UI consumers.
type Event struct {
	Type   EventType
	ID     string
	Result target.Result
	Skip   scheduler.SkipReason
	Err    error
}

// RunOptions configures a driver run.
type RunOptions struct {
	// Targets narrows the run to the named instances plus their dependencies.
	Targets []string
	// MaxParallel caps concurrent target execution. Zero uses the pipeline's
	// configured limit.
	MaxParallel int
	// ManualGates carries approval state for gated targets; an unapproved
	// gate leaves the target pending and the run ends blocked.
	ManualGates map[string]scheduler.ManualGateState
	// OnEvent, when set, receives progress notifications. Called from the
	// driver goroutine only.
	OnEvent func(Event)
}

// Run starts the definition and drives it until nothing more can execute.
// Target failures do not abort the batch; the engine surfaces them in the
// final state. The returned state's Status tells the caller how the run
// ended (complete, blocked, or error).
func (d *Driver) Run(ctx *target.Context, def workflow.Definition, opts RunOptions) (State, error) {
	if ctx == nil {
		return State{}, fmt.Errorf("engine: target context is required")
	}
	overrides := &RuntimeOverrides{}
	if opts.Targets != nil {
		targets := cloneStrings(opts.Targets)
		overrides.Targets = &targets
	}
	if opts.MaxParallel > 0 {
		overrides.MaxParallel = &opts.MaxParallel
	}
	if opts.ManualGates != nil {
		gates := cloneManualGates(opts.ManualGates)
		overrides.ManualGates = &gates
	}
	state, err := d.engine.Start(ctx, StartRequest{Definition: def, Runtime: overrides})
	if err != nil {
		return State{}, err
	}
	for {
		if err := ctx.Context().Err(); err != nil {
			return state, fmt.Errorf("engine: run cancelled: %w", err)
		}
		result, err := d.engine.Claim(ctx, ClaimRequest{})
		if err != nil {
			return state, err
		}
		state = result.State
		if len(result.Claims) == 0 {
			d.emitSkips(opts.OnEvent, state)
			// Ready-but-unclaimable nodes (manual gates, concurrency holds)
			// leave the status at running; the driver cannot make progress,
			// so report blocked instead.
			if state.Status == EngineStatusRunning {
				state.Status = EngineStatusBlocked
				state.StatusReason = blockReason(state.Skipped)
			}
			return state, nil
		}
		updates, err := d.runBatch(ctx, state, result.Claims, opts.OnEvent)
		if err != nil {
			return state, err
		}
		state, err = d.engine.Update(ctx, UpdateRequest{Results: updates})
		if err != nil {
			return state, err
		}
		// A failed target would otherwise be claimed again on the next pass.
		if state.Status == EngineStatusError {
			return state, nil
		}
	}
}

func (d *Driver) runBatch(ctx *target.Context, state State, claims []WorkClaim, onEvent func(Event)) ([]TargetStatusUpdate, error) {
	var (
		mu      sync.Mutex
		updates []TargetStatusUpdate
	)
	group, groupCtx := errgroup.WithContext(ctx.Context())
	runCtx := ctx.WithContext(groupCtx)
	for _, claim := range claims {
		claim := claim
		if onEvent != nil {
			onEvent(Event{Type: EventTargetStarted, ID: claim.ID})
		}
		group.Go(func() error {
			update := d.runOne(runCtx, state, claim)
			mu.Lock()
			updates = append(updates, update)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if onEvent != nil {
		for _, update := range updates {
			onEvent(Event{Type: EventTargetFinished, ID: update.ID, Result: update.Result, Err: update.Err})
		}
	}
	return updates, nil
}

func (d *Driver) runOne(ctx *target.Context, state State, claim WorkClaim) TargetStatusUpdate {
	update := TargetStatusUpdate{ID: claim.ID}
	ref, ok := findTargetRef(state.Definition, claim.ID)
	if !ok {
		update.Err = fmt.Errorf("engine: claim %s not found in definition", claim.ID)
		update.Result = target.Result{Status: target.StatusFailed}
		return update
	}
	tgt, err := d.registry.Resolve(ref.TargetID, convertConfig(ref.Config))
	if err != nil {
		update.Err = err
		update.Result = target.Result{Status: target.StatusFailed}
		return update
	}
	result, err := tgt.Run(ctx)
	update.Result = result
	update.Err = err
	if err != nil && update.Result.Status == "" {
		update.Result.Status = target.StatusFailed
	}
	return update
}

func (d *Driver) emitSkips(onEvent func(Event), state State) {
	if onEvent == nil || len(state.Skipped) == 0 {
		return
	}
	for id, reason := range state.Skipped {
		onEvent(Event{Type: EventTargetSkipped, ID: id, Skip: reason})
	}
}

func blockReason(skipped map[string]scheduler.SkipReason) string {
	for id, reason := range skipped {
		if reason.Reason == scheduler.SkipReasonManualGate {
			return fmt.Sprintf("%s: %s", id, reason.Detail)
		}
	}
	for id, reason := range skipped {
		return fmt.Sprintf("%s: %s", id, reason.Detail)
	}
	return "no runnable targets"
}

func findTargetRef(def workflow.Definition, instanceID string) (workflow.TargetRef, bool) {
	for _, ref := range def.Targets {
		if ref.InstanceID() == instanceID {
			return ref, true
		}
	}
	return workflow.TargetRef{}, false
}

func convertConfig(cfg workflow.TargetConfig) target.Config {
	if len(cfg) == 0 {
		return nil
	}
	out := make(target.Config, len(cfg))
	for key, value := range cfg {
		out[key] = value
	}
	return out
}
