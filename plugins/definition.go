// Package plugins loads custom target definitions from a project's
// .rolegate/targets directory. Definitions are declarative: an ID, the shell
// commands to run, and optional artifact bindings that let custom targets
// participate in freshness tracking like the built-ins.
package plugins

import (
	"fmt"
	"strings"

	"rolegate/internal/artifact"
	"rolegate/internal/target"
)

// TargetDefinition describes a command-driven custom target loaded from YAML
// or an interpreted Go file.
type TargetDefinition struct {
	ID          string                    `json:"id" yaml:"id"`
	Name        string                    `json:"name,omitempty" yaml:"name,omitempty"`
	Description string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string                    `json:"version" yaml:"version"`
	Commands    []string                  `json:"commands" yaml:"commands"`
	Env         map[string]string         `json:"env,omitempty" yaml:"env,omitempty"`
	Inputs      []ArtifactBinding         `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs     []ArtifactBinding         `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Concurrency target.ConcurrencyProfile `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Config      target.Config             `json:"config,omitempty" yaml:"config,omitempty"`
}

// Normalized returns a trimmed, copy-on-write variant of the definition.
func (def TargetDefinition) Normalized() TargetDefinition {
	clone := TargetDefinition{
		ID:          strings.TrimSpace(def.ID),
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
		Version:     strings.TrimSpace(def.Version),
		Concurrency: def.Concurrency,
	}
	for _, command := range def.Commands {
		command = strings.TrimSpace(command)
		if command != "" {
			clone.Commands = append(clone.Commands, command)
		}
	}
	if len(def.Env) > 0 {
		clone.Env = make(map[string]string, len(def.Env))
		for key, value := range def.Env {
			trimmedKey := strings.TrimSpace(key)
			if trimmedKey == "" {
				continue
			}
			clone.Env[trimmedKey] = strings.TrimSpace(value)
		}
	}
	if len(def.Inputs) > 0 {
		clone.Inputs = make([]ArtifactBinding, len(def.Inputs))
		for i, binding := range def.Inputs {
			clone.Inputs[i] = binding.normalized()
		}
	}
	if len(def.Outputs) > 0 {
		clone.Outputs = make([]ArtifactBinding, len(def.Outputs))
		for i, binding := range def.Outputs {
			clone.Outputs[i] = binding.normalized()
		}
	}
	if len(def.Config) > 0 {
		clone.Config = make(target.Config, len(def.Config))
		for key, value := range def.Config {
			trimmed := strings.TrimSpace(key)
			if trimmed == "" {
				continue
			}
			clone.Config[trimmed] = value
		}
	}
	return clone
}

// Validate ensures the definition is well-formed and references known
// artifacts.
func (def TargetDefinition) Validate() error {
	normalized := def.Normalized()
	if normalized.ID == "" {
		return fmt.Errorf("plugin: id is required")
	}
	if normalized.Version == "" {
		return fmt.Errorf("plugin %s: version is required", normalized.ID)
	}
	if len(normalized.Commands) == 0 {
		return fmt.Errorf("plugin %s: at least one command is required", normalized.ID)
	}
	if err := validateBindings("inputs", normalized.Inputs); err != nil {
		return fmt.Errorf("plugin %s: %w", normalized.ID, err)
	}
	if err := validateBindings("outputs", normalized.Outputs); err != nil {
		return fmt.Errorf("plugin %s: %w", normalized.ID, err)
	}
	return nil
}

// ArtifactBinding references a declared artifact ID and whether it is optional.
type ArtifactBinding struct {
	Artifact string `json:"artifact" yaml:"artifact"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
}

func (binding ArtifactBinding) normalized() ArtifactBinding {
	return ArtifactBinding{
		Artifact: strings.TrimSpace(binding.Artifact),
		Optional: binding.Optional,
	}
}

// Validate ensures the binding references a known artifact.
func (binding ArtifactBinding) Validate() error {
	normalized := binding.normalized()
	if normalized.Artifact == "" {
		return fmt.Errorf("artifact id is required")
	}
	if _, ok := artifact.Lookup(normalized.Artifact); !ok {
		return fmt.Errorf("artifact %s is not registered", normalized.Artifact)
	}
	return nil
}

// Resolve returns the artifact reference declared by the binding. Optional
// flags override the default optionality set by the artifact catalog.
func (binding ArtifactBinding) Resolve() (artifact.Ref, error) {
	normalized := binding.normalized()
	ref, ok := artifact.Lookup(normalized.Artifact)
	if !ok {
		return artifact.Ref{}, fmt.Errorf("artifact %s is not registered", normalized.Artifact)
	}
	ref.Optional = normalized.Optional
	return ref, nil
}

func validateBindings(label string, bindings []ArtifactBinding) error {
	if len(bindings) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(bindings))
	for idx, binding := range bindings {
		if err := binding.Validate(); err != nil {
			return fmt.Errorf("%s[%d]: %w", label, idx, err)
		}
		key := binding.normalized().Artifact
		if _, exists := seen[key]; exists {
			return fmt.Errorf("%s[%d]: duplicate artifact %s", label, idx, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
