package plugins

import (
	"fmt"
	"strings"

	"rolegate/internal/artifact"
	"rolegate/internal/target"
)

// commandTarget adapts a TargetDefinition into the target runtime: it runs
// the declared commands through the shared shell runner and claims any
// declared output artifacts on success.
type commandTarget struct {
	*target.Base
	definition TargetDefinition
	outputs    []artifact.Ref
	config     target.Config
}

func newCommandTarget(def TargetDefinition, overrides target.Config) (*commandTarget, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	normalized := def.Normalized()
	inputs, err := resolveBindings(normalized.Inputs)
	if err != nil {
		return nil, err
	}
	outputs, err := resolveBindings(normalized.Outputs)
	if err != nil {
		return nil, err
	}
	info := target.Info{
		ID:          normalized.ID,
		Name:        defaultTargetName(normalized),
		Description: normalized.Description,
		Version:     normalized.Version,
		Concurrency: normalized.Concurrency,
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	base := target.NewBase(info)
	base.SetInputs(inputs...)
	base.SetOutputs(outputs...)
	return &commandTarget{
		Base:       &base,
		definition: normalized,
		outputs:    outputs,
		config:     mergeConfigs(normalized.Config, overrides),
	}, nil
}

// IsComplete checks declared outputs against recorded provenance. Targets
// without outputs behave like phony make targets and always rerun.
func (t *commandTarget) IsComplete(ctx *target.Context) (bool, error) {
	if len(t.outputs) == 0 {
		return false, nil
	}
	if err := validateCommandContext(t.definition.ID, ctx); err != nil {
		return false, err
	}
	for _, ref := range t.outputs {
		result := ctx.Artifacts.Check(ref)
		switch result.State {
		case artifact.StateReady:
			meta := result.Metadata
			if meta == nil || meta.TargetID != t.definition.ID || meta.Version != t.definition.Version {
				return false, nil
			}
		case artifact.StateMissing:
			if ref.Optional {
				continue
			}
			return false, nil
		case artifact.StateInvalid:
			return false, nil
		default:
			return false, result.Err
		}
	}
	return true, nil
}

// Run executes the definition's commands in order. The first non-zero exit
// fails the target; outputs are only claimed after every command passes.
func (t *commandTarget) Run(ctx *target.Context) (target.Result, error) {
	if err := validateCommandContext(t.definition.ID, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	runner := ctx.Runner
	if len(t.definition.Env) > 0 {
		runner = runner.WithEnv(t.definition.Env)
	}
	for _, command := range t.definition.Commands {
		fmt.Fprintf(ctx.Stdout, "%s: %s\n", t.definition.ID, command)
		result, err := runner.Run(ctx.Context(), command)
		if err != nil {
			return target.Result{Status: target.StatusFailed}, fmt.Errorf("plugin %s: %w", t.definition.ID, err)
		}
		if !result.Succeeded() {
			return target.Result{Status: target.StatusFailed},
				fmt.Errorf("plugin %s: command failed with exit %d: %s", t.definition.ID, result.ExitCode, command)
		}
	}
	for _, ref := range t.outputs {
		meta := artifact.Metadata{
			ArtifactID: ref.ID,
			TargetID:   t.definition.ID,
			Version:    t.definition.Version,
		}
		if _, err := ctx.Artifacts.Record(ref, meta); err != nil {
			return target.Result{Status: target.StatusFailed}, fmt.Errorf("plugin %s: record %s: %w", t.definition.ID, ref.ID, err)
		}
	}
	return target.Result{
		Status:  target.StatusCompleted,
		Message: fmt.Sprintf("%d commands passed", len(t.definition.Commands)),
	}, nil
}

func validateCommandContext(id string, ctx *target.Context) error {
	if ctx == nil {
		return fmt.Errorf("plugin %s: context is nil", id)
	}
	if ctx.Runner == nil {
		return fmt.Errorf("plugin %s: command runner is required", id)
	}
	if ctx.Artifacts == nil {
		return fmt.Errorf("plugin %s: artifact store is required", id)
	}
	return nil
}

func resolveBindings(bindings []ArtifactBinding) ([]artifact.Ref, error) {
	if len(bindings) == 0 {
		return nil, nil
	}
	refs := make([]artifact.Ref, 0, len(bindings))
	for _, binding := range bindings {
		ref, err := binding.Resolve()
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func defaultTargetName(def TargetDefinition) string {
	if def.Name != "" {
		return def.Name
	}
	words := strings.Split(def.ID, "-")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func mergeConfigs(base, overrides target.Config) target.Config {
	if len(base) == 0 && len(overrides) == 0 {
		return nil
	}
	merged := make(target.Config, len(base)+len(overrides))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range overrides {
		merged[key] = value
	}
	return merged
}
