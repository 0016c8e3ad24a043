package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"rolegate/internal/journal"
	"rolegate/internal/targets/testsuite"
	"rolegate/internal/workflow"
	"rolegate/internal/workflow/engine"
	"rolegate/internal/workflow/resolver"
	"rolegate/internal/workflow/scheduler"
)

// newTargetCommand builds the standard headless subcommand for one built-in
// workflow target.
func newTargetCommand(c *cli, targetID, short string) *cobra.Command {
	return &cobra.Command{
		Use:   targetID,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runTarget(cmd.OutOrStdout(), targetID, nil)
		},
	}
}

// newTestCommand is the single-environment test runner. --watch keeps it
// resident and reruns the suite when source files change.
func newTestCommand(c *cli) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   workflow.TargetTest,
		Short: "Run the test suite in one environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !watch {
				return c.runTarget(cmd.OutOrStdout(), workflow.TargetTest, nil)
			}
			watcher := testsuite.NewWatcher(testsuite.New(false, c.envName))
			return watcher.Watch(c.ctx)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rerun tests when source files change")
	return cmd
}

// newGraphCommand prints the resolved execution order for a target, or for
// the whole pipeline when no target is named.
func newGraphCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [target]",
		Short: "Print the resolved target execution order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := resolver.New(c.definition, c.registry)
			if err != nil {
				return err
			}
			var requested []string
			if len(args) == 1 {
				requested = args
			}
			nodes, err := res.Queue(requested...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, node := range nodes {
				deps := ""
				if len(node.Dependencies) > 0 {
					deps = "  <- " + strings.Join(node.Dependencies, ", ")
				}
				fmt.Fprintf(out, "%2d. %s%s\n", i+1, node.ID, deps)
			}
			return nil
		},
	}
}

// runTarget drives one pipeline run for the named target and streams progress
// to out. approved lists gated targets the user has already signed off on.
func (c *cli) runTarget(out io.Writer, targetID string, approved []string) error {
	gates := make(map[string]scheduler.ManualGateState)
	for _, id := range workflow.GatedTargets() {
		gates[id] = scheduler.ManualGateState{
			Required: true,
			Approved: contains(approved, id),
			Note:     "requires explicit approval",
		}
	}

	eng, err := engine.New(c.registry, engine.NewRepository(c.ws))
	if err != nil {
		return err
	}
	driver, err := engine.NewDriver(eng, c.registry)
	if err != nil {
		return err
	}

	state, err := driver.Run(c.ctx, c.definition, engine.RunOptions{
		Targets:     []string{targetID},
		ManualGates: gates,
		OnEvent:     func(e engine.Event) { printEvent(out, e) },
	})
	if err != nil {
		return err
	}

	switch state.Status {
	case engine.EngineStatusComplete:
		c.history.Record(targetID, journal.OutcomeComplete, "")
		fmt.Fprintf(out, "%s: complete\n", targetID)
		return nil
	case engine.EngineStatusBlocked:
		blocked := blockedGateIDs(state)
		if len(blocked) > 0 {
			c.history.Record(targetID, journal.OutcomeBlocked, "awaiting approval: "+strings.Join(blocked, ", "))
			return fmt.Errorf("%s blocked: %s awaiting approval (rerun with --yes or approve in the dashboard)",
				targetID, strings.Join(blocked, ", "))
		}
		c.history.Record(targetID, journal.OutcomeBlocked, state.StatusReason)
		return fmt.Errorf("%s blocked: %s", targetID, state.StatusReason)
	case engine.EngineStatusError:
		c.history.Record(targetID, journal.OutcomeFailed, state.StatusReason)
		if state.StatusReason != "" {
			return fmt.Errorf("%s failed: %s", targetID, state.StatusReason)
		}
		return fmt.Errorf("%s failed", targetID)
	default:
		return fmt.Errorf("%s finished in unexpected state %s", targetID, state.Status)
	}
}

// newHistoryCommand prints the tail of the run history journal.
func newHistoryCommand(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent workflow run outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lines := c.history.Recent(limit)
			if len(lines) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded yet")
				return nil
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func printEvent(out io.Writer, e engine.Event) {
	switch e.Type {
	case engine.EventTargetStarted:
		fmt.Fprintf(out, "==> %s\n", e.ID)
	case engine.EventTargetFinished:
		if e.Err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", e.ID, e.Err)
			return
		}
		if e.Result.Message != "" {
			fmt.Fprintf(out, "ok   %s: %s\n", e.ID, e.Result.Message)
			return
		}
		fmt.Fprintf(out, "ok   %s\n", e.ID)
	case engine.EventTargetSkipped:
		if e.Skip.Reason == scheduler.SkipReasonManualGate {
			fmt.Fprintf(out, "hold %s: %s\n", e.ID, e.Skip.Detail)
		}
	}
}

func blockedGateIDs(state engine.State) []string {
	var ids []string
	for id, reason := range state.Skipped {
		if reason.Reason == scheduler.SkipReasonManualGate {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
