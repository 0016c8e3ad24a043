// Package resolver contains the dependency resolver core for target-based
// pipelines. It inspects pipeline definitions, instantiates targets from the
// registry, and evaluates dependency readiness for the engine.
package resolver
