package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/clip"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/events"
)

type checkDoneMsg struct {
	id     core.StepID
	result *core.CheckResult
	err    error
}

type executeDoneMsg struct {
	id     core.StepID
	result *core.ExecutionResult
	err    error
}

type runAllDoneMsg struct {
	err error
}

type markDoneMsg struct {
	id core.StepID
}

type copyDoneMsg struct {
	result clip.Result
	err    error
}

type busEventMsg struct {
	event events.Event
}

func (m Model) checkCmd(id core.StepID) tea.Cmd {
	return func() tea.Msg {
		result, err := m.run.RunCheck(context.Background(), id)
		return checkDoneMsg{id: id, result: result, err: err}
	}
}

func (m Model) executeCmd(id core.StepID) tea.Cmd {
	return func() tea.Msg {
		result, err := m.run.HandleExecute(context.Background(), id)
		return executeDoneMsg{id: id, result: result, err: err}
	}
}

func (m Model) runAllCmd() tea.Cmd {
	return func() tea.Msg {
		return runAllDoneMsg{err: m.run.RunAllPending(context.Background())}
	}
}

func (m Model) markCompleteCmd(id core.StepID) tea.Cmd {
	return func() tea.Msg {
		_ = m.store.MarkStepComplete(context.Background(), id, core.CompletionUserMarked, nil)
		return markDoneMsg{id: id}
	}
}

func (m Model) markIncompleteCmd(id core.StepID) tea.Cmd {
	return func() tea.Msg {
		_ = m.store.MarkStepIncomplete(context.Background(), id)
		return markDoneMsg{id: id}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		result, err := clip.WriteAll(text)
		return copyDoneMsg{result: result, err: err}
	}
}

// waitForEvent delivers the next bus event, re-armed after each receive.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return busEventMsg{event: event}
	}
}
