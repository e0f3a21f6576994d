package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/model"
)

// ResourceStartMsg indicates a resource has started converging.
type ResourceStartMsg struct {
	ID   string
	Time time.Time
}

// ResourceCompleteMsg reports that a resource has finished converging.
type ResourceCompleteMsg struct {
	Result model.ResourceResult
}

// RunCompleteMsg carries the final run report.
type RunCompleteMsg struct {
	Report *model.RunReport
}

type tickMsg struct{}

// Model contains the Bubbletea state for the reconciliation progress view.
type Model struct {
	manifest  *config.Manifest
	results   map[string]model.ResourceResult
	order     []string
	report    *model.RunReport
	total     int
	completed int
	finished  bool
	cancelled bool
}

// NewModel constructs a progress view model for the given manifest.
func NewModel(manifest *config.Manifest) Model {
	m := Model{
		manifest: manifest,
		results:  make(map[string]model.ResourceResult),
		order:    make([]string, 0, len(manifest.Resources)),
	}

	for _, res := range manifest.Resources {
		if _, exists := m.results[res.ID]; exists {
			continue
		}
		m.results[res.ID] = model.ResourceResult{ResourceID: res.ID, Status: model.StatusPending}
		m.order = append(m.order, res.ID)
		m.total++
	}

	return m
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// TotalResources returns the number of resources tracked by the model.
func (m Model) TotalResources() int {
	return m.total
}

// CompletedResources returns the number of resources that have finished.
func (m Model) CompletedResources() int {
	return m.completed
}

// IsFinished reports whether the run has completed.
func (m Model) IsFinished() bool {
	return m.finished
}

// IsCancelled reports whether the operator interrupted the run.
func (m Model) IsCancelled() bool {
	return m.cancelled
}

func (m *Model) ensureResource(id string) {
	if id == "" {
		return
	}
	if _, exists := m.results[id]; !exists {
		m.results[id] = model.ResourceResult{ResourceID: id, Status: model.StatusPending}
		m.order = append(m.order, id)
		m.total++
	}
}
