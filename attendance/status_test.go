package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffhub/models"
)

var allStatuses = []models.AttendanceStatus{
	models.StatusNotStarted,
	models.StatusCheckedIn,
	models.StatusOnBreak,
	models.StatusBreakEnded,
	models.StatusCheckedOut,
}

func TestGuardTableCompleteness(t *testing.T) {
	allowed := map[[2]models.AttendanceStatus]bool{
		{models.StatusNotStarted, models.StatusCheckedIn}: true,
		{models.StatusCheckedIn, models.StatusOnBreak}:    true,
		{models.StatusOnBreak, models.StatusBreakEnded}:   true,
		{models.StatusCheckedIn, models.StatusCheckedOut}: true,
		{models.StatusBreakEnded, models.StatusCheckedOut}: true,
	}

	for _, current := range allStatuses {
		for _, requested := range allStatuses {
			tr, ok := transitions[requested]
			if !ok {
				// NOT_STARTED is never a requestable status
				assert.Equal(t, models.StatusNotStarted, requested)
				continue
			}
			assert.Equal(t, allowed[[2]models.AttendanceStatus{current, requested}],
				tr.allows(current), "current=%s requested=%s", current, requested)
		}
	}
}

func TestGuardTableMessages(t *testing.T) {
	require.Equal(t, "You have already checked in", transitions[models.StatusCheckedIn].guard)
	require.Equal(t, "Please check in before starting a break", transitions[models.StatusOnBreak].guard)
	require.Equal(t, "No active break to end", transitions[models.StatusBreakEnded].guard)
	require.Equal(t, "You must check in before checking out", transitions[models.StatusCheckedOut].guard)
}

func TestGuardTableColumns(t *testing.T) {
	require.Equal(t, "check_in", transitions[models.StatusCheckedIn].column)
	require.Equal(t, "break_time_start", transitions[models.StatusOnBreak].column)
	require.Equal(t, "break_time_end", transitions[models.StatusBreakEnded].column)
	require.Equal(t, "check_out", transitions[models.StatusCheckedOut].column)
}
