package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/esinfra/converge/internal/model"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, nil
	case ResourceStartMsg:
		m.ensureResource(msg.ID)
		res := m.results[msg.ID]
		res.Status = model.StatusRunning
		m.results[msg.ID] = res
		return m, nil
	case ResourceCompleteMsg:
		id := msg.Result.ResourceID
		if id == "" {
			return m, nil
		}
		m.ensureResource(id)
		existing := m.results[id]
		previouslyCompleted := existing.Status != model.StatusPending && existing.Status != model.StatusRunning
		m.results[id] = msg.Result
		if !previouslyCompleted {
			m.completed++
		}
		return m, nil
	case RunCompleteMsg:
		m.report = msg.Report
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
