package target

import (
	"fmt"

	"rolegate/internal/artifact"
)

// Info describes a target's identity and intent.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
	Concurrency ConcurrencyProfile
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("target: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("target: name is required for %s", i.ID)
	}
	if i.Version == "" {
		return fmt.Errorf("target: version is required for %s", i.ID)
	}
	if err := i.Concurrency.validate(i.ID); err != nil {
		return err
	}
	return nil
}

// ConcurrencyProfile declares how many scheduler slots a target consumes and
// whether it requires exclusive execution.
type ConcurrencyProfile struct {
	// Slots describes how many scheduler capacity units are required to run
	// the target. Zero or negative values default to one slot.
	Slots int
	// Exclusive forces the target to run with nothing else in flight. Used by
	// targets that mutate the project tree (clean, upgrade).
	Exclusive bool
}

func (p ConcurrencyProfile) slotsOrDefault() int {
	if p.Slots <= 0 {
		return 1
	}
	return p.Slots
}

func (p ConcurrencyProfile) validate(targetID string) error {
	if p.Slots < 0 {
		return fmt.Errorf("target: concurrency slots must be >= 0 for %s", targetID)
	}
	return nil
}

// SlotCost returns how many scheduler slots the target consumes simultaneously.
func (i Info) SlotCost() int {
	return i.Concurrency.slotsOrDefault()
}

// RequiresExclusiveExecution reports whether the target must run alone.
func (i Info) RequiresExclusiveExecution() bool {
	return i.Concurrency.Exclusive
}

// Result captures the outcome of a target execution.
type Result struct {
	Status  Status
	Message string
}

// Status enumerates target run outcomes.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusNoOp       Status = "no-op"
	StatusNeedsInput Status = "needs-input"
	StatusFailed     Status = "failed"
)

// Target is implemented by every runnable unit of the pipeline.
type Target interface {
	Info() Info
	Inputs() []artifact.Ref
	Outputs() []artifact.Ref
	IsComplete(ctx *Context) (bool, error)
	Run(ctx *Context) (Result, error)
}
