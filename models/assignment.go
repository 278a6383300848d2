package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceStatus is the lifecycle state of one assignment. Transitions
// only ever move forward: NOT_STARTED, CHECKED_IN, ON_BREAK, BREAK_ENDED,
// CHECKED_OUT.
type AttendanceStatus string

const (
	StatusNotStarted AttendanceStatus = "NOT_STARTED"
	StatusCheckedIn  AttendanceStatus = "CHECKED_IN"
	StatusOnBreak    AttendanceStatus = "ON_BREAK"
	StatusBreakEnded AttendanceStatus = "BREAK_ENDED"
	StatusCheckedOut AttendanceStatus = "CHECKED_OUT"
)

// AssignmentRole is an informational tag on the assignment; it plays no
// part in the attendance lifecycle.
type AssignmentRole string

const (
	RolePicker     AssignmentRole = "PICKER"
	RoleRunner     AssignmentRole = "RUNNER"
	RoleSupervisor AssignmentRole = "SUPERVISOR"
)

// Assignment is one employee's attendance record for one project on one
// calendar day. WorkDate is the creation day at local midnight; the
// composite unique index closes the duplicate-assignment race at the
// store level.
type Assignment struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	EmployeeID     uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_assignments_employee_project_day" json:"employee_id"`
	Employee       *User            `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	ProjectID      uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_assignments_employee_project_day" json:"project_id"`
	Project        *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Role           AssignmentRole   `gorm:"not null;size:20" json:"role"`
	Status         AttendanceStatus `gorm:"not null;size:20;default:NOT_STARTED" json:"status"`
	WorkDate       time.Time        `gorm:"type:date;not null;uniqueIndex:idx_assignments_employee_project_day" json:"work_date"`
	CheckIn        *time.Time       `json:"check_in"`
	CheckOut       *time.Time       `json:"check_out"`
	BreakTimeStart *time.Time       `json:"break_time_start"`
	BreakTimeEnd   *time.Time       `json:"break_time_end"`
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
