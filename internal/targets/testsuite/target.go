// Package testsuite runs the project test commands. The "test" target runs
// one environment; "test-all" runs the whole configured matrix. Both are
// always rerun when requested, like phony make targets.
package testsuite

import (
	"bytes"
	"fmt"
	"strings"

	"rolegate/internal/config"
	"rolegate/internal/target"
	"rolegate/internal/targets/runtime"
	"rolegate/internal/workflow"
)

const targetVersion = "1.0.0"

// ConfigKeyEnvironment selects the environment for the single-env target.
const ConfigKeyEnvironment = "environment"

// Target executes test commands for one or all environments.
type Target struct {
	*target.Base
	all bool
	env string
}

// Register installs both test target factories.
func Register(reg *target.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(workflow.TargetTest, func(cfg target.Config) (target.Target, error) {
		env, _ := cfg[ConfigKeyEnvironment].(string)
		return New(false, env), nil
	})
	reg.MustRegister(workflow.TargetTestAll, func(target.Config) (target.Target, error) {
		return New(true, ""), nil
	})
}

// New constructs a test target. When all is set the env argument is ignored
// and every configured environment runs.
func New(all bool, env string) *Target {
	id := workflow.TargetTest
	name := "Test"
	desc := "Runs the test suite for one environment."
	if all {
		id = workflow.TargetTestAll
		name = "Test All"
		desc = "Runs the test suite across every configured environment."
	}
	info := target.Info{
		ID:          id,
		Name:        name,
		Description: desc,
		Version:     targetVersion,
	}
	base := target.NewBase(info)
	return &Target{Base: &base, all: all, env: strings.TrimSpace(env)}
}

// IsComplete always reports false: test targets rerun on every request.
func (t *Target) IsComplete(*target.Context) (bool, error) {
	return false, nil
}

// Run executes the selected environments in order and archives per-env logs.
func (t *Target) Run(ctx *target.Context) (target.Result, error) {
	if err := runtime.ValidateContext(t.Info().ID, ctx); err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	envs, err := t.selectEnvironments(ctx)
	if err != nil {
		return target.Result{Status: target.StatusFailed}, err
	}
	if len(envs) == 0 {
		return target.Result{Status: target.StatusNoOp, Message: "no test environments configured"}, nil
	}
	for _, env := range envs {
		if err := t.runEnvironment(ctx, env); err != nil {
			return target.Result{
				Status:  target.StatusFailed,
				Message: fmt.Sprintf("%s failed", env.Name),
			}, err
		}
	}
	return target.Result{Status: target.StatusCompleted, Message: fmt.Sprintf("%d environments passed", len(envs))}, nil
}

func (t *Target) selectEnvironments(ctx *target.Context) ([]config.Environment, error) {
	all := ctx.Config.Environments()
	if t.all {
		return all, nil
	}
	if t.env == "" {
		if len(all) == 0 {
			return nil, nil
		}
		return all[:1], nil
	}
	env, ok := ctx.Config.Environment(t.env)
	if !ok {
		return nil, fmt.Errorf("%s: unknown environment %q", t.Info().ID, t.env)
	}
	return []config.Environment{env}, nil
}

func (t *Target) runEnvironment(ctx *target.Context, env config.Environment) error {
	id := t.Info().ID
	runtime.Progressf(ctx, "%s: %s", env.Name, env.TestCommand)
	result, err := ctx.Runner.Run(ctx.Context(), env.TestCommand)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	var report bytes.Buffer
	fmt.Fprintf(&report, "$ %s\n", env.TestCommand)
	report.Write(result.CombinedOutput())
	path := ctx.Workspace.TestReportPath(env.Name)
	if err := runtime.WriteReport(path, report.Bytes()); err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	if !result.Succeeded() {
		return fmt.Errorf("%s: %s tests failed with exit %d (log: %s)", id, env.Name, result.ExitCode, path)
	}
	return nil
}
