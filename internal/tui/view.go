package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/esinfra/converge/internal/model"
	"github.com/esinfra/converge/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	title := titleStyle.Render(fmt.Sprintf("converge • %s", m.title()))
	sections = append(sections, title)

	progress := components.NewProgress(m.total).View(m.completed)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	listComp := components.NewResourceList(m.order, m.results)
	entries := listComp.Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Resources"))
		sections = append(sections, renderResourceEntries(entries))
	}

	if m.cancelled {
		sections = append(sections, summaryStyle.Render("Run cancelled"))
	} else if m.report != nil {
		summary := components.NewSummary(m.report).View()
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderResourceEntries(entries []components.ResourceEntry) string {
	var lines []string
	for _, entry := range entries {
		res := entry.Result
		icon := StatusIcon(res.Status)
		line := fmt.Sprintf(" %s %s", icon, entry.ID)
		if strings.TrimSpace(res.Message) != "" {
			line = fmt.Sprintf("%s - %s", line, res.Message)
		}
		if res.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, res.Duration.Truncate(10*time.Millisecond))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) title() string {
	if m.manifest != nil && strings.TrimSpace(m.manifest.Name) != "" {
		return m.manifest.Name
	}
	return "Reconciliation"
}

// StatusIcon returns the glyph representing a resource status.
func StatusIcon(status string) string {
	switch status {
	case model.StatusApplied:
		return appliedStyle.Render("✓")
	case model.StatusRunning:
		return runningStyle.Render("⏳")
	case model.StatusFailed:
		return failureStyle.Render("✗")
	case model.StatusAlreadySatisfied:
		return satisfiedStyle.Render("⊘")
	case model.StatusWarning:
		return warningStyle.Render("!")
	case model.StatusWouldApply:
		return pendingStyle.Render("✱")
	default:
		return pendingStyle.Render("…")
	}
}
