package workflow

import (
	"fmt"
	"sort"
)

// DependencyGraph maps pipeline-scoped target identifiers to the target IDs
// they depend on. The resolver treats the keys as aliases that correspond to
// TargetRef.InstanceID().
type DependencyGraph map[string][]string

// Clone returns a deep copy of the graph.
func (g DependencyGraph) Clone() DependencyGraph {
	if len(g) == 0 {
		return nil
	}
	out := make(DependencyGraph, len(g))
	for key, deps := range g {
		if len(deps) == 0 {
			out[key] = nil
			continue
		}
		clone := make([]string, len(deps))
		copy(clone, deps)
		out[key] = clone
	}
	return out
}

// Definition declares an executable pipeline graph composed of targets plus
// any metadata required to render it on the dashboard.
type Definition struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Targets     []TargetRef       `json:"targets" yaml:"targets"`
	Graph       DependencyGraph   `json:"graph,omitempty" yaml:"graph,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Runtime     RuntimeConfig     `json:"runtime,omitempty" yaml:"runtime,omitempty"`
}

// Clone returns a deep copy of the definition.
func (def Definition) Clone() Definition {
	clone := Definition{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Metadata:    cloneStringMap(def.Metadata),
		Graph:       def.Graph.Clone(),
		Runtime:     def.Runtime,
	}
	if len(def.Targets) > 0 {
		clone.Targets = make([]TargetRef, len(def.Targets))
		for i, ref := range def.Targets {
			clone.Targets[i] = ref.Clone()
		}
	}
	return clone
}

// Validate ensures the definition is self-consistent.
func (def Definition) Validate() error {
	if def.ID == "" {
		return fmt.Errorf("workflow: id is required")
	}
	if len(def.Targets) == 0 {
		return fmt.Errorf("workflow %s: at least one target is required", def.ID)
	}
	seen := map[string]struct{}{}
	for idx, ref := range def.Targets {
		if err := ref.Validate(); err != nil {
			return fmt.Errorf("workflow %s target[%d]: %w", def.ID, idx, err)
		}
		instanceID := ref.InstanceID()
		if _, exists := seen[instanceID]; exists {
			return fmt.Errorf("workflow %s: duplicate target instance id %s", def.ID, instanceID)
		}
		seen[instanceID] = struct{}{}
	}
	for key, deps := range def.Graph {
		if _, ok := seen[key]; !ok {
			return fmt.Errorf("workflow %s: graph references unknown target %s", def.ID, key)
		}
		for _, dep := range deps {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("workflow %s: graph dependency %s -> %s references unknown target", def.ID, key, dep)
			}
		}
	}
	if err := def.Runtime.validate(); err != nil {
		return fmt.Errorf("workflow %s runtime: %w", def.ID, err)
	}
	return nil
}

// Normalized clones the definition, merges any inline target dependencies
// into the graph, and validates the result.
func (def Definition) Normalized() (Definition, error) {
	clone := def.Clone()
	if clone.Graph == nil {
		clone.Graph = DependencyGraph{}
	}
	for _, ref := range clone.Targets {
		id := ref.InstanceID()
		clone.Graph[id] = mergeDependencies(clone.Graph[id], ref.DependsOn)
	}
	clone.Runtime = clone.Runtime.normalized()
	if err := clone.Validate(); err != nil {
		return Definition{}, err
	}
	return clone, nil
}

// RuntimeConfig configures execution constraints for a pipeline.
type RuntimeConfig struct {
	MaxParallel int `json:"max_parallel,omitempty" yaml:"max_parallel,omitempty"`
}

func (cfg RuntimeConfig) normalized() RuntimeConfig {
	if cfg.MaxParallel < 0 {
		cfg.MaxParallel = 0
	}
	return cfg
}

func (cfg RuntimeConfig) validate() error {
	if cfg.MaxParallel < 0 {
		return fmt.Errorf("max_parallel must be >= 0")
	}
	return nil
}

// TargetIDs returns the pipeline-scoped identifiers in declaration order.
func (def Definition) TargetIDs() []string {
	ids := make([]string, 0, len(def.Targets))
	for _, ref := range def.Targets {
		ids = append(ids, ref.InstanceID())
	}
	return ids
}

// Dependencies returns the dependency list for a target instance.
func (def Definition) Dependencies(id string) []string {
	if def.Graph == nil {
		return nil
	}
	deps := def.Graph[id]
	if len(deps) == 0 {
		return nil
	}
	clone := make([]string, len(deps))
	copy(clone, deps)
	return clone
}

// TargetRef describes how a pipeline composes and configures a target.
type TargetRef struct {
	ID          string       `json:"id,omitempty" yaml:"id,omitempty"`
	TargetID    string       `json:"target" yaml:"target"`
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	DependsOn   []string     `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Config      TargetConfig `json:"config,omitempty" yaml:"config,omitempty"`
	Optional    bool         `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Clone returns a deep copy of the target reference.
func (ref TargetRef) Clone() TargetRef {
	clone := TargetRef{
		ID:          ref.ID,
		TargetID:    ref.TargetID,
		Name:        ref.Name,
		Description: ref.Description,
		Optional:    ref.Optional,
	}
	if len(ref.DependsOn) > 0 {
		clone.DependsOn = cloneStringSlice(ref.DependsOn)
	}
	if len(ref.Config) > 0 {
		clone.Config = ref.Config.Clone()
	}
	return clone
}

// TargetConfig carries target-specific overrides (opaque to the runtime).
type TargetConfig map[string]any

// Clone returns a shallow copy of the config map.
func (cfg TargetConfig) Clone() TargetConfig {
	if len(cfg) == 0 {
		return nil
	}
	clone := make(TargetConfig, len(cfg))
	for key, value := range cfg {
		clone[key] = value
	}
	return clone
}

// InstanceID returns the pipeline-local identifier used by dependency graphs.
func (ref TargetRef) InstanceID() string {
	if ref.ID != "" {
		return ref.ID
	}
	return ref.TargetID
}

// Validate ensures the reference is usable.
func (ref TargetRef) Validate() error {
	if ref.TargetID == "" {
		return fmt.Errorf("workflow: target id is required")
	}
	deps := append([]string{}, ref.DependsOn...)
	sort.Strings(deps)
	for i := 1; i < len(deps); i++ {
		if deps[i] == deps[i-1] {
			return fmt.Errorf("workflow: target %s has duplicate dependency on %s", ref.InstanceID(), deps[i])
		}
	}
	return nil
}

func mergeDependencies(existing, adds []string) []string {
	if len(adds) == 0 && len(existing) == 0 {
		return nil
	}
	set := map[string]struct{}{}
	for _, id := range existing {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	for _, id := range adds {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func cloneStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	clone := make([]string, len(values))
	copy(clone, values)
	return clone
}

func cloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	clone := make(map[string]string, len(values))
	for key, value := range values {
		clone[key] = value
	}
	return clone
}
