package engine

import (
	"fmt"

	"rolegate/internal/target"
)

// ClaimRequest asks the engine to reserve runnable targets for execution.
type ClaimRequest struct {
	Runtime *RuntimeOverrides
	// Limit caps how many runnable targets may be claimed at once. Zero means "all".
	Limit int
	// Targets restricts claims to a subset of runnable target IDs. When empty,
	// every runnable target is eligible.
	Targets []string
}

// WorkClaim describes a runnable target that has been reserved for execution.
type WorkClaim struct {
	ID          string                    `json:"id"`
	TargetID    string                    `json:"target_id"`
	Name        string                    `json:"name"`
	Description string                    `json:"description,omitempty"`
	Optional    bool                      `json:"optional,omitempty"`
	Concurrency target.ConcurrencyProfile `json:"concurrency"`
}

// ClaimResult returns the new engine state plus the reserved targets.
type ClaimResult struct {
	Claims []WorkClaim
	State  State
}

// Claim reserves runnable targets, marks them as running, and persists the
// new engine snapshot so other workers observe the updated runtime state.
func (e *Engine) Claim(ctx *target.Context, req ClaimRequest) (ClaimResult, error) {
	if ctx == nil {
		return ClaimResult{}, fmt.Errorf("engine: target context is required")
	}
	current, err := e.repo.Load()
	if err != nil {
		return ClaimResult{}, err
	}
	runtime := applyRuntimeOverrides(current.Runtime, req.Runtime)
	state, err := e.buildState(ctx, current.Definition, runtime, current.Runs)
	if err != nil {
		return ClaimResult{}, err
	}
	state.RunID = current.RunID
	state.PipelineID = current.PipelineID
	runnable := filterClaimable(state.Runnable, req.Targets)
	limit := len(runnable)
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	claimIDs := make([]string, limit)
	copy(claimIDs, runnable[:limit])
	claims := make([]WorkClaim, 0, len(claimIDs))
	for _, id := range claimIDs {
		status, ok := findTargetStatus(state.Nodes, id)
		if !ok {
			continue
		}
		claims = append(claims, WorkClaim{
			ID:          status.ID,
			TargetID:    status.TargetID,
			Name:        status.Name,
			Description: status.Description,
			Optional:    status.Optional,
			Concurrency: status.Concurrency,
		})
	}
	state.Runtime.Running = appendRunning(state.Runtime.Running, claimIDs)
	state.Runnable = stripIDs(state.Runnable, claimIDs)
	state.Status, state.StatusReason = deriveEngineStatus(state.Nodes, state.Runtime, state.Runs)
	state.UpdatedAt = e.now()
	if err := e.repo.Save(state); err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{Claims: claims, State: state}, nil
}

func findTargetStatus(nodes []TargetStatus, id string) (TargetStatus, bool) {
	for _, node := range nodes {
		if node.ID == id {
			return node, true
		}
	}
	return TargetStatus{}, false
}
