// Package targets wires the built-in target implementations into a registry.
package targets

import (
	"rolegate/internal/target"
	"rolegate/internal/targets/clean"
	"rolegate/internal/targets/coverage"
	"rolegate/internal/targets/docs"
	"rolegate/internal/targets/piicheck"
	"rolegate/internal/targets/quality"
	"rolegate/internal/targets/testsuite"
	"rolegate/internal/targets/translations"
	"rolegate/internal/targets/upgrade"
)

// RegisterBuiltins installs all of the built-in target factories into the
// provided registry.
func RegisterBuiltins(reg *target.Registry) {
	if reg == nil {
		return
	}
	clean.Register(reg)
	quality.Register(reg)
	piicheck.Register(reg)
	testsuite.Register(reg)
	coverage.Register(reg)
	docs.Register(reg)
	upgrade.Register(reg)
	translations.Register(reg)
}
