// Package engine ties the pipeline resolver and scheduler together. It
// exposes a persistence-backed engine that can start new runs, resume
// existing ones, and incrementally update scheduler decisions as targets
// complete or fail.
package engine
