package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rolegate/internal/config"
	"rolegate/internal/journal"
	"rolegate/internal/logging"
	"rolegate/internal/target"
	"rolegate/internal/targets"
	"rolegate/internal/targets/coverage"
	"rolegate/internal/targets/testsuite"
	"rolegate/internal/tui"
	"rolegate/internal/workflow"
	"rolegate/plugins"
)

// cli carries the state shared by every subcommand. Populated once in the
// root command's PersistentPreRunE so subcommands only deal with their own
// flags.
type cli struct {
	projectDir string
	verbose    bool
	envName    string

	cfg        *config.Config
	ws         *workflow.Workspace
	log        *zap.Logger
	ctx        *target.Context
	registry   *target.Registry
	definition workflow.Definition
	history    *journal.Journal
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "rolegate",
		Short: "Development workflow runner for rolegate projects",
		Long: "rolegate drives a project's development workflow: quality gates,\n" +
			"PII annotation checks, the test matrix, coverage, docs, and\n" +
			"translation catalog management. Run it bare for the interactive\n" +
			"dashboard, or invoke a target directly as a subcommand.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
		RunE: func(*cobra.Command, []string) error {
			return c.runDashboard()
		},
	}

	root.PersistentFlags().StringVarP(&c.projectDir, "project", "p", ".", "project directory to operate on")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.envName, "env", "", "test environment to use for test and coverage targets")

	root.AddCommand(
		newTargetCommand(c, workflow.TargetClean, "Remove generated build and report artifacts"),
		newTargetCommand(c, workflow.TargetQuality, "Run the configured style and lint checks"),
		newTargetCommand(c, workflow.TargetPIICheck, "Verify data models carry PII annotations"),
		newTestCommand(c),
		newTargetCommand(c, workflow.TargetTestAll, "Run the test suite in every configured environment"),
		newTargetCommand(c, workflow.TargetValidate, "Run quality, PII, and the full test matrix"),
		newTargetCommand(c, workflow.TargetCoverage, "Produce and open the coverage report"),
		newTargetCommand(c, workflow.TargetDocs, "Build and open the project documentation"),
		newTargetCommand(c, workflow.TargetUpgrade, "Re-pin dependencies to their latest versions"),
		newTranslationsCommand(c),
		newGraphCommand(c),
		newHistoryCommand(c),
	)
	return root
}

// setup initializes the workspace, logging, registry, and pipeline definition
// for the resolved project directory.
func (c *cli) setup(cmd *cobra.Command) error {
	projectDir, err := resolveProjectDir(c.projectDir)
	if err != nil {
		return err
	}
	c.projectDir = projectDir

	if err := config.InitWorkspace(projectDir); err != nil {
		return fmt.Errorf("initialize workspace: %w", err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return err
	}
	c.cfg = cfg

	log, err := logging.New(projectDir, logging.Options{Verbose: c.verbose})
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	c.log = log

	c.ws = workflow.NewWorkspace(cfg.ProjectDir, cfg.WorkspacePath, cfg.CatalogDir())
	if err := c.ws.EnsureDirs(); err != nil {
		return err
	}

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cobra.OnFinalize(cancel)
	c.ctx = target.NewContext(cfg, c.ws, log).
		WithContext(runCtx).
		WithStdout(cmd.OutOrStdout())

	registry, err := c.buildRegistry(cfg)
	if err != nil {
		return err
	}
	c.registry = registry

	def, err := workflow.LoadProjectDefinition(cfg.WorkspacePath)
	if err != nil {
		return err
	}
	c.definition = c.applyEnvironment(def)

	c.history, err = journal.Open(filepath.Join(cfg.LogsDir(), journal.FileName))
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	return nil
}

func (c *cli) buildRegistry(cfg *config.Config) (*target.Registry, error) {
	registry := target.NewRegistry()
	targets.RegisterBuiltins(registry)
	if err := plugins.RegisterCustomTargets(registry, cfg); err != nil {
		return nil, fmt.Errorf("load custom targets: %w", err)
	}
	return registry, nil
}

// applyEnvironment threads --env into the test and coverage target configs.
func (c *cli) applyEnvironment(def workflow.Definition) workflow.Definition {
	if c.envName == "" {
		return def
	}
	def = def.Clone()
	for i, ref := range def.Targets {
		switch ref.TargetID {
		case workflow.TargetTest:
			def.Targets[i].Config = setConfig(ref.Config, testsuite.ConfigKeyEnvironment, c.envName)
		case workflow.TargetCoverage:
			def.Targets[i].Config = setConfig(ref.Config, coverage.ConfigKeyEnvironment, c.envName)
		}
	}
	return def
}

func setConfig(cfg workflow.TargetConfig, key string, value any) workflow.TargetConfig {
	if cfg == nil {
		cfg = workflow.TargetConfig{}
	}
	cfg[key] = value
	return cfg
}

// runDashboard launches the interactive bubbletea dashboard.
func (c *cli) runDashboard() error {
	app, err := tui.NewApp(c.cfg, c.ctx,
		tui.WithRegistryFactory(func(*config.Config) (*target.Registry, error) {
			return c.registry, nil
		}),
		tui.WithDefinitionLoader(func(string) (workflow.Definition, error) {
			return c.definition, nil
		}),
	)
	if err != nil {
		return err
	}
	program := tea.NewProgram(app, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func resolveProjectDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("project directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project path %s is not a directory", abs)
	}
	return abs, nil
}
