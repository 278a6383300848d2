package attendance

import (
	"staffhub/models"
)

// transition describes one row of the guard table: the statuses an
// assignment must currently be in, the timestamp column the transition
// stamps, and the messages for success and for a violated guard.
type transition struct {
	required []models.AttendanceStatus
	column   string
	success  string
	guard    string
}

var transitions = map[models.AttendanceStatus]transition{
	models.StatusCheckedIn: {
		required: []models.AttendanceStatus{models.StatusNotStarted},
		column:   "check_in",
		success:  "Checked in successfully",
		guard:    "You have already checked in",
	},
	models.StatusOnBreak: {
		required: []models.AttendanceStatus{models.StatusCheckedIn},
		column:   "break_time_start",
		success:  "Break started",
		guard:    "Please check in before starting a break",
	},
	models.StatusBreakEnded: {
		required: []models.AttendanceStatus{models.StatusOnBreak},
		column:   "break_time_end",
		success:  "Break ended",
		guard:    "No active break to end",
	},
	models.StatusCheckedOut: {
		required: []models.AttendanceStatus{models.StatusCheckedIn, models.StatusBreakEnded},
		column:   "check_out",
		success:  "Checked out successfully",
		guard:    "You must check in before checking out",
	},
}

// validStatuses is the accepted order for the invalid-status message.
var validStatuses = []models.AttendanceStatus{
	models.StatusCheckedIn,
	models.StatusOnBreak,
	models.StatusBreakEnded,
	models.StatusCheckedOut,
}

func (t transition) allows(current models.AttendanceStatus) bool {
	for _, s := range t.required {
		if s == current {
			return true
		}
	}
	return false
}
