package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rolegate/internal/workflow"
	"rolegate/internal/workflow/engine"
	"rolegate/internal/workflow/resolver"
	"rolegate/internal/workflow/scheduler"
)

var (
	labelStyleReady    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyleBlocked  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStyleRunning  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	labelStyleGate     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	labelStyleSkipped  = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	labelStyleComplete = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	detailTextStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

// runView drives one pipeline run and renders its progress.
type runView struct {
	app      *App
	targetID string

	gates   map[string]scheduler.ManualGateState
	log     []string
	state   *engine.State
	err     error
	done    bool
	gateIDs []string // gated targets that blocked the last run

	eventCh chan engine.Event
	doneCh  chan runOutcome

	returnToMenu bool
}

type runOutcome struct {
	state engine.State
	err   error
}

type runEventMsg struct{ event engine.Event }

type runDoneMsg struct{ outcome runOutcome }

func newRunView(app *App, targetID string) *runView {
	gates := make(map[string]scheduler.ManualGateState)
	for _, id := range workflow.GatedTargets() {
		gates[id] = scheduler.ManualGateState{Required: true, Note: "requires approval (press y)"}
	}
	return &runView{
		app:      app,
		targetID: targetID,
		gates:    gates,
	}
}

// Init launches the driver in the background and starts listening for events.
func (v *runView) Init() tea.Cmd {
	v.done = false
	v.err = nil
	v.gateIDs = nil
	v.eventCh = make(chan engine.Event, 16)
	v.doneCh = make(chan runOutcome, 1)

	eventCh, doneCh := v.eventCh, v.doneCh
	app, targetID := v.app, v.targetID
	gates := cloneGates(v.gates)
	go func() {
		defer close(eventCh)
		outcome := runOutcome{}
		eng, err := engine.New(app.registry, engine.NewRepository(app.ctx.Workspace))
		if err != nil {
			outcome.err = err
			doneCh <- outcome
			return
		}
		driver, err := engine.NewDriver(eng, app.registry)
		if err != nil {
			outcome.err = err
			doneCh <- outcome
			return
		}
		state, err := driver.Run(app.ctx, app.definition, engine.RunOptions{
			Targets:     []string{targetID},
			ManualGates: gates,
			OnEvent:     func(e engine.Event) { eventCh <- e },
		})
		outcome.state = state
		outcome.err = err
		doneCh <- outcome
	}()
	return v.listen()
}

// listen produces the next driver message: an event if one is queued, the
// outcome once the run finishes.
func (v *runView) listen() tea.Cmd {
	eventCh, doneCh := v.eventCh, v.doneCh
	return func() tea.Msg {
		select {
		case event, ok := <-eventCh:
			if ok {
				return runEventMsg{event: event}
			}
			return runDoneMsg{outcome: <-doneCh}
		case outcome := <-doneCh:
			// Drain remaining events so nothing is lost from the log.
			for event := range eventCh {
				_ = event
			}
			return runDoneMsg{outcome: outcome}
		}
	}
}

func (v *runView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case runEventMsg:
		v.appendEvent(m.event)
		return v.listen()
	case runDoneMsg:
		v.done = true
		v.err = m.outcome.err
		state := m.outcome.state
		v.state = &state
		v.gateIDs = blockedGates(state)
		return nil
	case tea.KeyMsg:
		return v.handleKey(m)
	}
	return nil
}

func (v *runView) handleKey(msg tea.KeyMsg) tea.Cmd {
	if !v.done {
		return nil
	}
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "esc", "b":
		v.returnToMenu = true
		return nil
	case "y":
		if len(v.gateIDs) == 0 {
			return nil
		}
		for _, id := range v.gateIDs {
			gate := v.gates[id]
			gate.Approved = true
			v.gates[id] = gate
		}
		v.log = append(v.log, labelStyleGate.Render("approved: "+strings.Join(v.gateIDs, ", ")))
		return v.Init()
	case "r":
		return v.Init()
	}
	return nil
}

func (v *runView) appendEvent(event engine.Event) {
	switch event.Type {
	case engine.EventTargetStarted:
		v.log = append(v.log, labelStyleRunning.Render("▸ "+event.ID))
	case engine.EventTargetFinished:
		if event.Err != nil {
			v.log = append(v.log, labelStyleBlocked.Render("✗ "+event.ID)+detailTextStyle.Render(" "+event.Err.Error()))
			return
		}
		line := labelStyleComplete.Render("✓ " + event.ID)
		if event.Result.Message != "" {
			line += detailTextStyle.Render(" " + event.Result.Message)
		}
		v.log = append(v.log, line)
	case engine.EventTargetSkipped:
		if event.Skip.Reason == scheduler.SkipReasonManualGate {
			v.log = append(v.log, labelStyleGate.Render("⏸ "+event.ID)+detailTextStyle.Render(" "+event.Skip.Detail))
		}
	}
}

func (v *runView) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("run: " + v.targetID))
	b.WriteString("\n\n")
	for _, line := range v.log {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	if v.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(v.err.Error()))
		b.WriteString("\n")
	}
	if v.state != nil {
		b.WriteString("\n")
		b.WriteString(v.renderSummary())
	}
	b.WriteString("\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *runView) renderSummary() string {
	state := v.state
	var b strings.Builder
	b.WriteString(statusLabel(state.Status).Render(strings.ToUpper(string(state.Status))))
	if state.StatusReason != "" {
		b.WriteString(detailTextStyle.Render("  " + state.StatusReason))
	}
	b.WriteString("\n")
	nodes := append([]engine.TargetStatus{}, state.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, node := range nodes {
		b.WriteString(fmt.Sprintf("  %s %s\n", nodeLabel(node.State).Render(fmt.Sprintf("%-9s", node.State)), node.ID))
	}
	return b.String()
}

func (v *runView) renderHelp() string {
	if !v.done {
		return helpStyle.Render("running…")
	}
	parts := []string{"b: back", "r: rerun", "q: quit"}
	if len(v.gateIDs) > 0 {
		parts = append([]string{"y: approve " + strings.Join(v.gateIDs, ", ")}, parts...)
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}

func statusLabel(status engine.EngineStatus) lipgloss.Style {
	switch status {
	case engine.EngineStatusComplete:
		return labelStyleReady
	case engine.EngineStatusBlocked:
		return labelStyleGate
	case engine.EngineStatusError:
		return labelStyleBlocked
	case engine.EngineStatusRunning:
		return labelStyleRunning
	default:
		return labelStyleSkipped
	}
}

func nodeLabel(state resolver.NodeState) lipgloss.Style {
	switch state {
	case resolver.NodeStateComplete:
		return labelStyleComplete
	case resolver.NodeStateReady:
		return labelStyleRunning
	case resolver.NodeStateBlocked:
		return labelStyleSkipped
	case resolver.NodeStateError:
		return labelStyleBlocked
	default:
		return labelStyleSkipped
	}
}

// blockedGates lists gated targets the last run skipped for approval.
func blockedGates(state engine.State) []string {
	var ids []string
	for id, reason := range state.Skipped {
		if reason.Reason == scheduler.SkipReasonManualGate {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func cloneGates(gates map[string]scheduler.ManualGateState) map[string]scheduler.ManualGateState {
	out := make(map[string]scheduler.ManualGateState, len(gates))
	for id, state := range gates {
		out[id] = state
	}
	return out
}
