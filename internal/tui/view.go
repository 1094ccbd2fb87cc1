package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

// View renders the walkthrough.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.showDetail {
		b.WriteString(detailBorderStyle.Render(m.detail.View()))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderList())
	}

	if m.filtering || m.filter.Value() != "" {
		b.WriteString("\n")
		b.WriteString(m.filter.View())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderHeader() string {
	header := titleStyle.Render("Federation Setup")
	if domain := m.store.Domain(); domain != "" {
		header += mutedStyle.Render("  ·  ") + domainStyle.Render(domain)
	}
	if m.busy {
		label := "working"
		if m.busyStepID != "" {
			label = "running " + string(m.busyStepID)
		}
		header += "  " + m.spinner.View() + mutedStyle.Render(label)
	}
	return header
}

func (m Model) renderList() string {
	if len(m.visible) == 0 {
		return mutedStyle.Render("  no steps match the filter")
	}

	var b strings.Builder
	for row, idx := range m.visible {
		def := m.defs[idx]
		info := m.statusFor(def.ID)

		cursor := "  "
		if row == m.cursor {
			cursor = cursorStyle.Render("> ")
		}

		glyph := lipgloss.NewStyle().
			Foreground(statusColor(string(info.Status))).
			Render(statusGlyph(string(info.Status)))

		provider := lipgloss.NewStyle().
			Foreground(providerColor(string(def.Provider))).
			Render(fmt.Sprintf("%-9s", def.Provider))

		line := fmt.Sprintf("%s%s %s %s  %s", cursor, glyph, provider, def.ID, def.Title)

		if info.CompletionType == core.CompletionUserMarked {
			line += mutedStyle.Render("  (marked by you)")
		}
		if info.Status == core.StepStatusFailed && info.Error != "" {
			line += "\n      " + errorStyle.Render(info.Error)
		}

		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderStatusLine() string {
	switch {
	case m.lastError != "":
		return errorStyle.Render("✗ " + m.lastError)
	case m.notice != "":
		return noticeStyle.Render(m.notice)
	default:
		completed := 0
		for _, def := range m.defs {
			if m.statusFor(def.ID).Status == core.StepStatusCompleted {
				completed++
			}
		}
		return mutedStyle.Render(fmt.Sprintf("%d/%d steps complete", completed, len(m.defs)))
	}
}

func (m Model) renderHelp() string {
	if m.showDetail {
		return helpStyle.Render("↑/↓ scroll · esc back · q quit")
	}
	return helpStyle.Render("↑/↓ move · c check · x execute · r run all · m mark · u unmark · y copy url · d details · / filter · q quit")
}
