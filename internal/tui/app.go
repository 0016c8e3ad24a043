// internal/tui/app.go
//
// The interactive dashboard for rolegate. It uses bubbletea, which follows
// The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rolegate/internal/config"
	"rolegate/internal/target"
	"rolegate/internal/workflow"
)

// appState represents which "screen" we're on.
type appState int

const (
	stateTargetSelect appState = iota // Target picker (the dashboard home)
	stateRunning                      // A pipeline run in progress or finished
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true).Padding(0, 1)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Padding(0, 1)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	defaultMarker = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
)

// RegistryFactory builds the target registry for a project (built-ins plus
// custom targets). Injected so tests can supply a canned registry.
type RegistryFactory func(*config.Config) (*target.Registry, error)

// DefinitionLoader resolves the pipeline definition for the project.
type DefinitionLoader func(workspaceDir string) (workflow.Definition, error)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithRegistryFactory overrides how the dashboard builds its registry.
func WithRegistryFactory(factory RegistryFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.registryFactory = factory
		}
	}
}

// WithDefinitionLoader overrides the pipeline definition loader.
func WithDefinitionLoader(loader DefinitionLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loader = loader
		}
	}
}

// App is the top-level bubbletea model.
type App struct {
	config          *config.Config
	ctx             *target.Context
	registryFactory RegistryFactory
	loader          DefinitionLoader

	state      appState
	targetList list.Model
	run        *runView
	definition workflow.Definition
	registry   *target.Registry
	width      int
	height     int
	err        error
}

// targetItem adapts a pipeline target for the bubbles list.
type targetItem struct {
	id          string
	name        string
	description string
	isDefault   bool
}

func (i targetItem) Title() string {
	if i.isDefault {
		return i.name + " " + defaultMarker.Render("(default)")
	}
	return i.name
}
func (i targetItem) Description() string { return i.description }
func (i targetItem) FilterValue() string { return i.id + " " + i.name }

// NewApp builds the dashboard model.
func NewApp(cfg *config.Config, ctx *target.Context, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tui: config is required")
	}
	if ctx == nil {
		return nil, fmt.Errorf("tui: target context is required")
	}
	app := &App{
		config: cfg,
		ctx:    ctx,
		loader: workflow.LoadProjectDefinition,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.registryFactory == nil {
		return nil, fmt.Errorf("tui: registry factory is required")
	}

	def, err := app.loader(cfg.WorkspacePath)
	if err != nil {
		return nil, err
	}
	app.definition = def
	registry, err := app.registryFactory(cfg)
	if err != nil {
		return nil, err
	}
	app.registry = registry
	app.targetList = buildTargetList(def, registry, cfg.DefaultTarget())
	return app, nil
}

func buildTargetList(def workflow.Definition, registry *target.Registry, defaultID string) list.Model {
	items := make([]list.Item, 0, len(def.Targets))
	for _, ref := range def.Targets {
		item := targetItem{
			id:        ref.InstanceID(),
			name:      ref.InstanceID(),
			isDefault: ref.InstanceID() == defaultID,
		}
		if tgt, err := registry.Resolve(ref.TargetID, nil); err == nil {
			info := tgt.Info()
			item.name = info.Name
			item.description = info.Description
		}
		items = append(items, item)
	}
	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 0, 0)
	l.Title = "rolegate targets"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	return l
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.targetList.SetSize(m.Width, m.Height-2)
		return a, nil
	case tea.KeyMsg:
		if a.state == stateTargetSelect {
			return a.updateTargetSelect(m)
		}
	}
	if a.state == stateRunning && a.run != nil {
		cmd := a.run.Update(msg)
		if a.run.returnToMenu {
			a.state = stateTargetSelect
			a.run = nil
			return a, nil
		}
		return a, cmd
	}
	var cmd tea.Cmd
	a.targetList, cmd = a.targetList.Update(msg)
	return a, cmd
}

func (a *App) updateTargetSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.targetList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		a.targetList, cmd = a.targetList.Update(msg)
		return a, cmd
	}
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "enter":
		item, ok := a.targetList.SelectedItem().(targetItem)
		if !ok {
			return a, nil
		}
		a.run = newRunView(a, item.id)
		a.state = stateRunning
		return a, a.run.Init()
	case "d":
		item, ok := a.targetList.SelectedItem().(targetItem)
		if !ok {
			return a, nil
		}
		if err := a.config.SetDefaultTarget(item.id); err != nil {
			a.err = err
			return a, nil
		}
		a.targetList = buildTargetList(a.definition, a.registry, a.config.DefaultTarget())
		a.targetList.SetSize(a.width, a.height-2)
		return a, nil
	}
	var cmd tea.Cmd
	a.targetList, cmd = a.targetList.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if a.state == stateRunning && a.run != nil {
		return a.run.View()
	}
	var b strings.Builder
	b.WriteString(a.targetList.View())
	b.WriteString("\n")
	if a.err != nil {
		b.WriteString(errorStyle.Render(a.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter: run • d: set default • /: filter • q: quit"))
	return b.String()
}
