package components

import (
	"fmt"
	"strings"

	"github.com/esinfra/converge/internal/model"
)

// Summary renders the end-of-run report.
type Summary struct {
	report *model.RunReport
}

// NewSummary creates a summary component over a run report.
func NewSummary(report *model.RunReport) Summary {
	return Summary{report: report}
}

// View renders the summary. The same text is used for the plain non-TTY
// output, so it carries no styling of its own.
func (s Summary) View() string {
	r := s.report
	if r == nil {
		return ""
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Total: %d", r.Total))
	lines = append(lines, fmt.Sprintf("  applied: %d", r.Applied))
	lines = append(lines, fmt.Sprintf("  already satisfied: %d", r.Satisfied))
	if r.WouldApply > 0 {
		lines = append(lines, fmt.Sprintf("  would apply: %d", r.WouldApply))
	}
	lines = append(lines, fmt.Sprintf("  failed: %d", r.Failed))
	if r.Warnings > 0 {
		lines = append(lines, fmt.Sprintf("  warnings: %d", r.Warnings))
	}

	if len(r.Failures) > 0 {
		lines = append(lines, "Failures:")
		for _, f := range r.Failures {
			lines = append(lines, fmt.Sprintf("  %s: %s", f.ResourceID, f.Detail))
		}
	}
	if r.CriticalFailure {
		lines = append(lines, "Run aborted on critical failure")
	}

	return strings.Join(lines, "\n")
}
