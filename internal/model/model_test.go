package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResourceResultCreation(t *testing.T) {
	t.Parallel()

	t.Run("creates resource result with all fields", func(t *testing.T) {
		t.Parallel()
		now := time.Now()
		result := ResourceResult{
			ResourceID: "install_steam",
			Status:     StatusApplied,
			Message:    "installed steam",
			Duration:   time.Second,
			Timestamp:  now,
		}

		require.Equal(t, "install_steam", result.ResourceID)
		require.Equal(t, StatusApplied, result.Status)
		require.Equal(t, "installed steam", result.Message)
		require.Equal(t, time.Second, result.Duration)
		require.Equal(t, now, result.Timestamp)
	})

	t.Run("creates resource result with error", func(t *testing.T) {
		t.Parallel()
		err := errors.New("choco exited 1")
		result := ResourceResult{
			ResourceID: "install_steam",
			Status:     StatusFailed,
			Error:      err,
		}

		require.Equal(t, StatusFailed, result.Status)
		require.Equal(t, err, result.Error)
	})
}

func TestStatusConstants(t *testing.T) {
	t.Parallel()

	require.Equal(t, "pending", StatusPending)
	require.Equal(t, "running", StatusRunning)
	require.Equal(t, "applied", StatusApplied)
	require.Equal(t, "already_satisfied", StatusAlreadySatisfied)
	require.Equal(t, "failed", StatusFailed)
	require.Equal(t, "warning", StatusWarning)
	require.Equal(t, "would_apply", StatusWouldApply)
}

func TestVerificationStatus_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status VerificationStatus
		want   bool
	}{
		{"satisfied is valid", StatusSatisfied, true},
		{"missing is valid", StatusMissing, true},
		{"drifted is valid", StatusDrifted, true},
		{"blocked is valid", StatusBlocked, true},
		{"unknown is valid", StatusUnknown, true},
		{"invalid status", VerificationStatus("invalid"), false},
		{"empty status", VerificationStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.status.IsValid()
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRunReportRecordCounts(t *testing.T) {
	t.Parallel()

	report := NewRunReport()

	report.Record(ResourceResult{ResourceID: "a", Status: StatusApplied}, false)
	report.Record(ResourceResult{ResourceID: "b", Status: StatusAlreadySatisfied}, false)
	report.Record(ResourceResult{ResourceID: "c", Status: StatusWarning}, false)
	report.Record(ResourceResult{ResourceID: "d", Status: StatusFailed, Message: "boom"}, false)

	require.Equal(t, 4, report.Total)
	require.Equal(t, 1, report.Applied)
	require.Equal(t, 1, report.Satisfied)
	require.Equal(t, 1, report.Warnings)
	require.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "d", report.Failures[0].ResourceID)
	require.Equal(t, "boom", report.Failures[0].Detail)
	require.False(t, report.CriticalFailure)
	require.Equal(t, 0, report.ExitCode())
}

func TestRunReportFailureDetailFallsBackToError(t *testing.T) {
	t.Parallel()

	report := NewRunReport()
	report.Record(ResourceResult{ResourceID: "d", Status: StatusFailed, Error: errors.New("exit status 1")}, false)

	require.Len(t, report.Failures, 1)
	require.Equal(t, "exit status 1", report.Failures[0].Detail)
}

func TestRunReportCriticalFailureDrivesExitCode(t *testing.T) {
	t.Parallel()

	report := NewRunReport()
	report.Record(ResourceResult{ResourceID: "bootstrap", Status: StatusFailed}, true)

	require.True(t, report.CriticalFailure)
	require.Equal(t, 1, report.ExitCode())
}

func TestRunReportFailuresPreserveOrder(t *testing.T) {
	t.Parallel()

	report := NewRunReport()
	report.Record(ResourceResult{ResourceID: "first", Status: StatusFailed}, false)
	report.Record(ResourceResult{ResourceID: "second", Status: StatusFailed}, false)

	require.Equal(t, "first", report.Failures[0].ResourceID)
	require.Equal(t, "second", report.Failures[1].ResourceID)
}
