package resolver

import (
	"fmt"
	"sort"
	"strings"

	"rolegate/internal/artifact"
	"rolegate/internal/target"
	"rolegate/internal/workflow"
)

// NodeState represents the resolver's understanding of a target's readiness.
type NodeState string

const (
	NodeStateUnknown  NodeState = "unknown"
	NodeStatePending  NodeState = "pending"
	NodeStateReady    NodeState = "ready"
	NodeStateBlocked  NodeState = "blocked"
	NodeStateComplete NodeState = "complete"
	NodeStateError    NodeState = "error"
)

// Node captures a pipeline target instance plus its dependency metadata.
type Node struct {
	ID           string
	Ref          workflow.TargetRef
	Target       target.Target
	Dependencies []string
	Dependents   []string

	State     NodeState
	BlockedBy []string
	Err       error

	Artifacts    map[string]ArtifactReport
	fingerprints map[string]string
}

// ArtifactReport captures the resolver's understanding of an output artifact.
type ArtifactReport struct {
	Ref                 artifact.Ref
	Status              target.ArtifactStatus
	Metadata            *artifact.Metadata
	Err                 error
	StoredFingerprint   string
	ExpectedFingerprint string
}

// Resolver builds and evaluates the pipeline dependency graph.
type Resolver struct {
	definition workflow.Definition
	nodes      map[string]*Node
	orderedIDs []string
}

// New constructs a resolver for the provided pipeline definition. Targets are
// instantiated via the registry immediately so downstream code can run them.
func New(def workflow.Definition, registry *target.Registry) (*Resolver, error) {
	if registry == nil {
		return nil, fmt.Errorf("workflow: target registry is required")
	}
	normalized, err := def.Normalized()
	if err != nil {
		return nil, err
	}
	nodes := make(map[string]*Node, len(normalized.Targets))
	ordered := make([]string, 0, len(normalized.Targets))
	for _, ref := range normalized.Targets {
		id := ref.InstanceID()
		tgt, err := registry.Resolve(ref.TargetID, convertConfig(ref.Config))
		if err != nil {
			return nil, fmt.Errorf("workflow %s target %s: %w", normalized.ID, id, err)
		}
		node := &Node{
			ID:           id,
			Ref:          ref,
			Target:       tgt,
			Dependencies: normalized.Dependencies(id),
		}
		nodes[id] = node
		ordered = append(ordered, id)
	}
	for _, node := range nodes {
		for _, depID := range node.Dependencies {
			dep, ok := nodes[depID]
			if !ok {
				return nil, fmt.Errorf("workflow %s: dependency %s referenced by %s not declared", normalized.ID, depID, node.ID)
			}
			dep.Dependents = append(dep.Dependents, node.ID)
		}
	}
	for _, node := range nodes {
		if len(node.Dependents) > 1 {
			sort.Strings(node.Dependents)
		}
	}
	return &Resolver{
		definition: normalized,
		nodes:      nodes,
		orderedIDs: ordered,
	}, nil
}

// Definition returns a clone of the resolver's pipeline definition.
func (r *Resolver) Definition() workflow.Definition {
	return r.definition.Clone()
}

// Nodes returns the nodes in pipeline declaration order.
func (r *Resolver) Nodes() []*Node {
	out := make([]*Node, 0, len(r.orderedIDs))
	for _, id := range r.orderedIDs {
		if node, ok := r.nodes[id]; ok {
			out = append(out, node)
		}
	}
	return out
}

// Node retrieves a specific target node by pipeline instance ID.
func (r *Resolver) Node(id string) (*Node, bool) {
	node, ok := r.nodes[id]
	return node, ok
}

// Refresh re-evaluates target completion status and dependency readiness
// using the provided target context. Callers should invoke Refresh before
// querying for runnable targets so the snapshot reflects on-disk artifacts.
func (r *Resolver) Refresh(ctx *target.Context) error {
	if ctx == nil {
		return fmt.Errorf("workflow: target context is required")
	}
	for _, node := range r.nodes {
		node.Err = nil
		node.BlockedBy = nil
		node.Artifacts = nil
		node.fingerprints = nil
		node.State = NodeStateUnknown
		if fpProvider, ok := node.Target.(target.Fingerprinter); ok {
			fingerprints, err := fpProvider.ArtifactFingerprints(ctx)
			if err != nil {
				node.State = NodeStateError
				node.Err = fmt.Errorf("workflow: fingerprints for %s: %w", node.ID, err)
				continue
			}
			if len(fingerprints) > 0 {
				node.fingerprints = fingerprints
			}
		}
		complete, err := node.Target.IsComplete(ctx)
		if err != nil {
			node.State = NodeStateError
			node.Err = err
			continue
		}
		if complete {
			node.State = NodeStateComplete
		} else {
			node.State = NodeStatePending
		}
	}
	for _, node := range r.nodes {
		if node.State == NodeStateError {
			continue
		}
		r.refreshArtifacts(ctx, node)
		if node.State == NodeStateComplete && node.hasArtifactIssues() {
			node.State = NodeStatePending
		}
	}
	for _, node := range r.nodes {
		if node.State == NodeStateComplete || node.State == NodeStateError {
			continue
		}
		blockers := r.blockers(node)
		if len(blockers) == 0 {
			node.State = NodeStateReady
		} else {
			node.State = NodeStateBlocked
			node.BlockedBy = blockers
		}
	}
	return nil
}

// Ready returns nodes that are runnable because all dependencies are complete.
func (r *Resolver) Ready() []*Node {
	var ready []*Node
	for _, id := range r.orderedIDs {
		node := r.nodes[id]
		if node.State == NodeStateReady {
			ready = append(ready, node)
		}
	}
	return ready
}

// Queue returns targets that must run to satisfy the requested instances. If
// none are provided, every incomplete target is considered. Dependencies come
// before the targets that require them; already-complete targets are skipped.
func (r *Resolver) Queue(requested ...string) ([]*Node, error) {
	if len(requested) == 0 {
		requested = append([]string{}, r.orderedIDs...)
	}
	visited := make(map[string]bool, len(requested))
	ordered := make([]*Node, 0, len(r.nodes))
	var visit func(string) error
	visit = func(id string) error {
		if visited[id] {
			return nil
		}
		node, ok := r.nodes[id]
		if !ok {
			return fmt.Errorf("workflow: unknown target %s", id)
		}
		visited[id] = true
		for _, dep := range node.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		if node.State != NodeStateComplete {
			ordered = append(ordered, node)
		}
		return nil
	}
	for _, id := range requested {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

func (r *Resolver) blockers(node *Node) []string {
	if len(node.Dependencies) == 0 {
		return nil
	}
	blockers := make([]string, 0, len(node.Dependencies))
	for _, depID := range node.Dependencies {
		dep, ok := r.nodes[depID]
		if !ok || dep.State != NodeStateComplete {
			blockers = append(blockers, depID)
		}
	}
	if len(blockers) == 0 {
		return nil
	}
	return blockers
}

func (r *Resolver) refreshArtifacts(ctx *target.Context, node *Node) {
	outputs := node.Target.Outputs()
	if len(outputs) == 0 {
		node.Artifacts = nil
		return
	}
	if node.Artifacts == nil {
		node.Artifacts = make(map[string]ArtifactReport, len(outputs))
	} else {
		for key := range node.Artifacts {
			delete(node.Artifacts, key)
		}
	}
	for _, ref := range outputs {
		report := r.CheckArtifact(ctx, node, ref)
		node.Artifacts[ref.ID] = report
	}
}

func (n *Node) hasArtifactIssues() bool {
	if len(n.Artifacts) == 0 {
		return false
	}
	for _, report := range n.Artifacts {
		switch report.Status {
		case target.ArtifactStatusFresh, target.ArtifactStatusReady:
			continue
		default:
			return true
		}
	}
	return false
}

// CheckArtifact evaluates a single artifact and returns its resolver status.
func (r *Resolver) CheckArtifact(ctx *target.Context, node *Node, ref artifact.Ref) ArtifactReport {
	report := ArtifactReport{Ref: ref, Status: target.ArtifactStatusUnknown}
	if ctx == nil || ctx.Artifacts == nil {
		report.Status = target.ArtifactStatusError
		report.Err = fmt.Errorf("workflow: artifact store unavailable")
		r.emitInvalidation(ctx, node, report, target.InvalidationReasonCheckError)
		return report
	}
	result := ctx.Artifacts.Check(ref)
	report.Metadata = result.Metadata
	switch result.State {
	case artifact.StateMissing:
		report.Status = target.ArtifactStatusMissing
		r.emitInvalidation(ctx, node, report, target.InvalidationReasonMissing)
	case artifact.StateInvalid:
		report.Err = result.Err
		report.Status = target.ArtifactStatusInvalid
		r.emitInvalidation(ctx, node, report, target.InvalidationReasonInvalidMetadata)
	case artifact.StateError:
		report.Err = result.Err
		if report.Err == nil {
			report.Err = fmt.Errorf("workflow: %s encountered an unknown error", ref.ID)
		}
		report.Status = target.ArtifactStatusError
		r.emitInvalidation(ctx, node, report, target.InvalidationReasonCheckError)
	case artifact.StateReady:
		info := node.Target.Info()
		meta := result.Metadata
		if meta == nil {
			report.Status = target.ArtifactStatusInvalid
			report.Err = fmt.Errorf("workflow: %s missing metadata", ref.ID)
			r.emitInvalidation(ctx, node, report, target.InvalidationReasonInvalidMetadata)
			break
		}
		if meta.TargetID != info.ID {
			report.Status = target.ArtifactStatusInvalid
			report.Err = fmt.Errorf("workflow: %s created by %s expected %s", ref.ID, meta.TargetID, info.ID)
			r.emitInvalidation(ctx, node, report, target.InvalidationReasonInvalidMetadata)
			break
		}
		if meta.Version != info.Version {
			report.Status = target.ArtifactStatusOutdated
			r.emitInvalidation(ctx, node, report, target.InvalidationReasonVersionMismatch)
			break
		}
		expected, hasExpected, fpErr := r.expectedFingerprint(ctx, node, ref)
		if fpErr != nil {
			report.Status = target.ArtifactStatusError
			report.Err = fpErr
			r.emitInvalidation(ctx, node, report, target.InvalidationReasonCheckError)
			break
		}
		if !hasExpected {
			report.Status = target.ArtifactStatusReady
			break
		}
		stored := fingerprintFromMetadata(meta, ref.ID)
		report.ExpectedFingerprint = expected
		report.StoredFingerprint = stored
		if strings.TrimSpace(stored) == "" {
			report.Status = target.ArtifactStatusReady
			break
		}
		if stored != expected {
			report.Status = target.ArtifactStatusOutdated
			r.emitInvalidation(ctx, node, report, target.InvalidationReasonFingerprint)
			break
		}
		report.Status = target.ArtifactStatusFresh
	default:
		report.Status = target.ArtifactStatusUnknown
	}
	return report
}

func (r *Resolver) expectedFingerprint(ctx *target.Context, node *Node, ref artifact.Ref) (string, bool, error) {
	if node == nil {
		return "", false, nil
	}
	if node.fingerprints == nil {
		provider, ok := node.Target.(target.Fingerprinter)
		if !ok {
			return "", false, nil
		}
		fingerprints, err := provider.ArtifactFingerprints(ctx)
		if err != nil {
			return "", false, err
		}
		node.fingerprints = fingerprints
	}
	value, ok := node.fingerprints[ref.ID]
	if !ok || strings.TrimSpace(value) == "" {
		return "", false, nil
	}
	return value, true, nil
}

func fingerprintFromMetadata(meta *artifact.Metadata, artifactID string) string {
	if meta == nil || len(meta.Notes) == 0 {
		return ""
	}
	return meta.Notes[target.FingerprintNoteKey(artifactID)]
}

func (r *Resolver) emitInvalidation(ctx *target.Context, node *Node, report ArtifactReport, reason target.ArtifactInvalidationReason) {
	handler, ok := node.Target.(target.ArtifactInvalidationHandler)
	if !ok {
		return
	}
	event := target.ArtifactInvalidation{
		Artifact:            report.Ref,
		Status:              report.Status,
		Reason:              reason,
		StoredFingerprint:   report.StoredFingerprint,
		ExpectedFingerprint: report.ExpectedFingerprint,
		Metadata:            report.Metadata,
		Err:                 report.Err,
	}
	if err := handler.OnArtifactInvalidation(ctx, event); err != nil {
		node.State = NodeStateError
		node.Err = err
	}
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
