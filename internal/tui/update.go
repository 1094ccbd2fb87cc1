package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/events"
)

// Update routes messages to the walkthrough model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail.Width = m.detailWidth()
		m.detail.Height = m.height - 8
		if m.detail.Height < 5 {
			m.detail.Height = 5
		}
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFiltering(msg)
		}
		return m.updateKeys(msg)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case checkDoneMsg:
		m.busy = false
		m.busyStepID = ""
		if msg.err != nil {
			m.lastError = msg.err.Error()
		} else if msg.result != nil && msg.result.Completed {
			m.notice = fmt.Sprintf("%s verified", msg.id)
		} else if msg.result != nil && msg.result.Message != "" {
			m.notice = msg.result.Message
		}
		return m, nil

	case executeDoneMsg:
		m.busy = false
		m.busyStepID = ""
		if msg.err != nil {
			m.lastError = msg.err.Error()
		} else if msg.result != nil && msg.result.Success {
			m.notice = fmt.Sprintf("%s completed", msg.id)
		} else if msg.result != nil && msg.result.Error != nil {
			m.lastError = msg.result.Error.Message
		}
		return m, nil

	case runAllDoneMsg:
		m.busy = false
		m.busyStepID = ""
		if msg.err != nil {
			m.lastError = msg.err.Error()
		} else {
			m.notice = "run finished"
		}
		return m, nil

	case markDoneMsg:
		m.notice = fmt.Sprintf("%s updated", msg.id)
		return m, nil

	case copyDoneMsg:
		if msg.err != nil {
			m.lastError = msg.err.Error()
		} else if msg.result.FilePath != "" {
			m.notice = "saved to " + msg.result.FilePath
		} else {
			m.notice = "copied"
		}
		return m, nil

	case busEventMsg:
		if raised, ok := msg.event.(events.ErrorRaised); ok {
			m.lastError = raised.Err.Message
		}
		return m, waitForEvent(m.eventCh)
	}

	if m.showDetail {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.bus != nil && m.eventCh != nil {
			m.bus.Unsubscribe(m.eventCh)
		}
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.refreshDetail()
		return m, nil

	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
		m.refreshDetail()
		return m, nil

	case "enter", "d":
		def, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.showDetail = !m.showDetail
		if m.showDetail {
			m.detail.SetContent(m.renderDetail(def))
			m.detail.GotoTop()
		}
		return m, nil

	case "esc":
		switch {
		case m.showDetail:
			m.showDetail = false
		case m.filter.Value() != "":
			m.filter.SetValue("")
			m.applyFilter()
		default:
			m.notice = ""
			m.lastError = ""
		}
		return m, nil

	case "/":
		m.filtering = true
		m.filter.Focus()
		return m, nil

	case "c":
		def, ok := m.selected()
		if !ok || m.busy {
			return m, nil
		}
		m.busy = true
		m.busyStepID = def.ID
		m.lastError = ""
		return m, tea.Batch(m.spinner.Tick, m.checkCmd(def.ID))

	case "x":
		def, ok := m.selected()
		if !ok || m.busy {
			return m, nil
		}
		m.busy = true
		m.busyStepID = def.ID
		m.lastError = ""
		return m, tea.Batch(m.spinner.Tick, m.executeCmd(def.ID))

	case "r":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.lastError = ""
		return m, tea.Batch(m.spinner.Tick, m.runAllCmd())

	case "m":
		def, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.markCompleteCmd(def.ID)

	case "u":
		def, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.markIncompleteCmd(def.ID)

	case "y":
		def, ok := m.selected()
		if !ok {
			return m, nil
		}
		info, _ := m.store.StepInfo(def.ID)
		if info.Metadata == nil || info.Metadata.ResourceURL == "" {
			m.notice = "no resource url for " + string(def.ID)
			return m, nil
		}
		return m, copyCmd(info.Metadata.ResourceURL)
	}

	if m.showDetail {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateFiltering(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil
	case "enter":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

// applyFilter rebuilds the visible index list with fuzzy matching over
// "<id> <title>" strings.
func (m *Model) applyFilter() {
	query := m.filter.Value()
	if query == "" {
		m.visible = allIndexes(len(m.defs))
		m.clampCursor()
		return
	}

	names := make([]string, len(m.defs))
	for i, def := range m.defs {
		names[i] = string(def.ID) + " " + def.Title
	}

	matches := fuzzy.Find(query, names)
	m.visible = m.visible[:0]
	for _, match := range matches {
		m.visible = append(m.visible, match.Index)
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) refreshDetail() {
	if !m.showDetail {
		return
	}
	if def, ok := m.selected(); ok {
		m.detail.SetContent(m.renderDetail(def))
		m.detail.GotoTop()
	}
}

// statusFor reads the live status for a step, defaulting to pending.
func (m Model) statusFor(id core.StepID) core.StepStatusInfo {
	if info, ok := m.store.StepInfo(id); ok {
		return info
	}
	return core.StepStatusInfo{Status: core.StepStatusPending}
}
