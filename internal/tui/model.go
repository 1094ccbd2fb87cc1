// Package tui is an interactive terminal walkthrough of the federation
// setup: a step list with live statuses, per-step check and execute
// actions, and a detail pane rendering each step's instructions.
package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/events"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/runner"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/state"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/steps"
)

// Model is the root bubbletea model for the setup walkthrough.
type Model struct {
	registry *steps.Registry
	store    *state.Store
	run      *runner.Runner
	bus      *events.Bus
	logger   *logging.Logger

	defs    []core.StepDefinition
	cursor  int
	visible []int // indexes into defs after filtering

	width  int
	height int

	busy       bool
	busyStepID core.StepID
	spinner    spinner.Model

	showDetail bool
	detail     viewport.Model

	filtering bool
	filter    textinput.Model

	notice    string
	lastError string

	eventCh <-chan events.Event
}

// New builds the walkthrough model over the engine components.
func New(registry *steps.Registry, store *state.Store, run *runner.Runner, bus *events.Bus, logger *logging.Logger) Model {
	if logger == nil {
		logger = logging.NewNop()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	filter := textinput.New()
	filter.Placeholder = "filter steps"
	filter.Prompt = "/ "
	filter.CharLimit = 64

	m := Model{
		registry: registry,
		store:    store,
		run:      run,
		bus:      bus,
		logger:   logger,
		defs:     registry.Definitions(),
		spinner:  sp,
		detail:   viewport.New(0, 0),
		filter:   filter,
		width:    80,
		height:   24,
	}
	m.visible = allIndexes(len(m.defs))
	if bus != nil {
		m.eventCh = bus.Subscribe(
			events.TypeStepUpdated,
			events.TypeOutputAdded,
			events.TypeErrorRaised,
			events.TypeRunFinished,
		)
	}
	return m
}

// Init starts the spinner and the bus listener.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.eventCh != nil {
		cmds = append(cmds, waitForEvent(m.eventCh))
	}
	return tea.Batch(cmds...)
}

// selected returns the definition under the cursor.
func (m Model) selected() (core.StepDefinition, bool) {
	if len(m.visible) == 0 || m.cursor >= len(m.visible) {
		return core.StepDefinition{}, false
	}
	return m.defs[m.visible[m.cursor]], true
}

func allIndexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// renderDetail produces the markdown detail view for a step.
func (m *Model) renderDetail(def core.StepDefinition) string {
	body := def.Details
	if body == "" {
		body = def.Description
	}

	width := m.detailWidth()
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return body
	}
	out, err := renderer.Render(body)
	if err != nil {
		return body
	}
	return out
}

func (m *Model) detailWidth() int {
	width := m.width - 4
	if width < 40 {
		width = 40
	}
	if width > 100 {
		width = 100
	}
	return width
}
