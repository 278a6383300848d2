// Package attendance implements the employee attendance lifecycle: the
// per-assignment check-in state machine, the hours aggregation engine
// and the summary queries built on top of both.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"staffhub/apperr"
	"staffhub/models"
	"staffhub/notifications"
	"staffhub/query"
)

type Service struct {
	db       *gorm.DB
	notifier *notifications.Service
	log      *zap.Logger

	// Now supplies the clock for day and week boundaries; tests pin it.
	Now func() time.Time
}

func NewService(db *gorm.DB, notifier *notifications.Service, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		notifier: notifier,
		log:      log,
		Now:      time.Now,
	}
}

// Assign creates a NOT_STARTED assignment for the employee on the
// project, at most once per employee, project and calendar day. The
// project's last working date is touched and the employee is notified;
// a failed notification never rolls the assignment back.
func (s *Service) Assign(ctx context.Context, employeeID, projectID uuid.UUID, role models.AssignmentRole) (*models.Assignment, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Project not found.")
		}
		return nil, err
	}

	now := s.Now()
	workDate := startOfDay(now)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("employee_id = ? AND project_id = ? AND work_date = ?", employeeID, projectID, workDate).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Conflict("employeeId", "This employee has already been assigned to this project today.")
	}

	assignment := models.Assignment{
		EmployeeID: employeeID,
		ProjectID:  projectID,
		Role:       role,
		Status:     models.StatusNotStarted,
		WorkDate:   workDate,
	}
	if err := s.db.WithContext(ctx).Create(&assignment).Error; err != nil {
		// The unique index backstops the existence check above
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("employeeId", "This employee has already been assigned to this project today.")
		}
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&project).Update("last_working_date", now).Error
	if err != nil {
		return nil, err
	}

	refType := models.ReferenceAssignment
	err = s.notifier.Create(ctx, notifications.Input{
		Title:         "New Project Assigned",
		Message:       fmt.Sprintf("You have been assigned to project: %s", project.Name),
		Type:          models.NotificationProject,
		ReferenceID:   &project.ID,
		ReferenceType: &refType,
		ReceiverID:    &employeeID,
	})
	if err != nil {
		s.log.Warn("assignment notification failed",
			zap.String("assignment_id", assignment.ID.String()),
			zap.Error(err))
	}

	return &assignment, nil
}

// Advance moves the assignment to the requested status. The guard check
// and the status write happen as one conditional update so concurrent
// calls cannot both pass a guard against a stale status; zero rows
// affected means the transition lost and is reported as invalid.
func (s *Service) Advance(ctx context.Context, employeeID, assignmentID uuid.UUID, status models.AttendanceStatus) (*models.Assignment, string, error) {
	tr, ok := transitions[status]
	if !ok {
		return nil, "", apperr.InvalidInput("status",
			fmt.Sprintf("Invalid status. Must be one of: %s.", joinStatuses(validStatuses)))
	}

	var assignment models.Assignment
	err := s.db.WithContext(ctx).
		Preload("Employee").Preload("Project").
		First(&assignment, "id = ? AND employee_id = ?", assignmentID, employeeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperr.NotFound("No project assigned for today")
		}
		return nil, "", err
	}

	if !tr.allows(assignment.Status) {
		return nil, "", apperr.InvalidTransition(tr.guard)
	}

	now := s.Now()
	res := s.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ? AND status IN ?", assignmentID, tr.required).
		Updates(map[string]any{"status": status, tr.column: now})
	if res.Error != nil {
		return nil, "", res.Error
	}
	if res.RowsAffected == 0 {
		// A concurrent transition won; the guard no longer holds
		return nil, "", apperr.InvalidTransition(tr.guard)
	}

	if err := s.db.WithContext(ctx).First(&assignment, "id = ?", assignmentID).Error; err != nil {
		return nil, "", err
	}

	employeeName := employeeID.String()
	projectName := assignment.ProjectID.String()
	if assignment.Employee != nil {
		employeeName = assignment.Employee.Name
	}
	if assignment.Project != nil {
		projectName = assignment.Project.Name
	}

	adminRole := models.RoleAdmin
	refType := models.ReferenceAssignment
	err = s.notifier.Create(ctx, notifications.Input{
		Title:         fmt.Sprintf("Attendance Update: %s", status),
		Message:       fmt.Sprintf("Employee %s has %s on project %s.", employeeName, strings.ToLower(tr.success), projectName),
		Type:          models.NotificationAttendance,
		SenderID:      &employeeID,
		ReferenceID:   &assignment.ID,
		ReferenceType: &refType,
		ReceiverRole:  &adminRole,
	})
	if err != nil {
		s.log.Warn("attendance notification failed",
			zap.String("assignment_id", assignment.ID.String()),
			zap.Error(err))
	}

	return &assignment, tr.success, nil
}

// GetAssignment returns one assignment with its project.
func (s *Service) GetAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	err := s.db.WithContext(ctx).
		Preload("Project").
		First(&assignment, "id = ?", assignmentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Project not found")
		}
		return nil, err
	}
	return &assignment, nil
}

// UpdateRole changes the informational role tag on an assignment.
func (s *Service) UpdateRole(ctx context.Context, assignmentID uuid.UUID, role models.AssignmentRole) (*models.Assignment, error) {
	var assignment models.Assignment
	err := s.db.WithContext(ctx).First(&assignment, "id = ?", assignmentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Assigned employee not found")
		}
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&assignment).Update("role", role).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// EntrySummary is an assignment annotated with its own three-tier hour
// split.
type EntrySummary struct {
	models.Assignment
	Totals
}

// SelfSummaryMeta extends the pagination envelope with the current
// week's two-tier totals and per-day breakdown.
type SelfSummaryMeta struct {
	query.Meta
	TotalHours         float64             `json:"totalHours"`
	TotalRegularHours  float64             `json:"totalRegularHours"`
	TotalOvertimeHours float64             `json:"totalOvertimeHours"`
	DailyBreakdown     map[string]DayHours `json:"dailyBreakdown"`
}

type SelfSummary struct {
	Entries []EntrySummary  `json:"entries"`
	Meta    SelfSummaryMeta `json:"meta"`
}

// WeeklySelfSummary returns the employee's entries with per-entry hour
// splits, plus the current ISO week's aggregate: two-tier totals and a
// day-by-day breakdown keyed by the check-in date.
func (s *Service) WeeklySelfSummary(ctx context.Context, employeeID uuid.UUID, params url.Values) (*SelfSummary, error) {
	findParams := cloneValues(params)
	findParams.Set("employeeId", employeeID.String())

	builder := query.New(s.db.WithContext(ctx).Model(&models.Assignment{}), findParams).
		Filter().
		Sort().
		Include("Project")

	var entries []models.Assignment
	if err := builder.Execute(&entries); err != nil {
		return nil, err
	}
	meta, err := builder.CountTotal()
	if err != nil {
		return nil, err
	}

	summaries := make([]EntrySummary, 0, len(entries))
	for _, e := range entries {
		var t Totals
		t.Add(EntryHours(e))
		summaries = append(summaries, EntrySummary{Assignment: e, Totals: t.Rounded()})
	}

	weekStart, weekEnd := WeekWindow(s.Now())
	var weekEntries []models.Assignment
	err = s.db.WithContext(ctx).
		Where("employee_id = ? AND created_at >= ? AND created_at < ?", employeeID, weekStart, weekEnd).
		Find(&weekEntries).Error
	if err != nil {
		return nil, err
	}

	var total, regular, overtime float64
	for _, e := range weekEntries {
		h := EntryHours(e)
		total += h
		regular += math.Min(h, normalCap)
		overtime += math.Max(h-normalCap, 0)
	}

	return &SelfSummary{
		Entries: summaries,
		Meta: SelfSummaryMeta{
			Meta:               meta,
			TotalHours:         Round2(total),
			TotalRegularHours:  Round2(regular),
			TotalOvertimeHours: Round2(overtime),
			DailyBreakdown:     DailyBreakdown(weekEntries),
		},
	}, nil
}

// EmployeeCard is the employee shape exposed by the admin weekly view.
type EmployeeCard struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
	Photo string    `json:"photo"`
}

type EmployeeWeekSummary struct {
	Employee EmployeeCard `json:"employee"`
	Totals
}

// WeeklyAllEmployeesSummary aggregates this week's completed entries
// (check-out set, check-in inside the Monday-Sunday window) per
// employee with three-tier totals. Tier sums stay unrounded until the
// final totals.
func (s *Service) WeeklyAllEmployeesSummary(ctx context.Context, params url.Values) ([]EmployeeWeekSummary, query.Meta, error) {
	weekStart, weekEnd := WeekWindow(s.Now())

	builder := query.New(s.db.WithContext(ctx).Model(&models.Assignment{}), params).
		RawFilter("check_in >= ? AND check_in < ? AND check_out IS NOT NULL", weekStart, weekEnd).
		Include("Employee")

	var entries []models.Assignment
	if err := builder.Execute(&entries); err != nil {
		return nil, query.Meta{}, err
	}
	meta, err := builder.CountTotal()
	if err != nil {
		return nil, query.Meta{}, err
	}

	// Group by employee, keeping first-seen order for stable output
	var order []uuid.UUID
	grouped := make(map[uuid.UUID][]models.Assignment)
	for _, e := range entries {
		if _, seen := grouped[e.EmployeeID]; !seen {
			order = append(order, e.EmployeeID)
		}
		grouped[e.EmployeeID] = append(grouped[e.EmployeeID], e)
	}

	result := make([]EmployeeWeekSummary, 0, len(order))
	for _, id := range order {
		group := grouped[id]

		var t Totals
		for _, e := range group {
			t.Add(EntryHours(e))
		}

		card := EmployeeCard{ID: id}
		if emp := group[0].Employee; emp != nil {
			card = EmployeeCard{
				ID:    emp.ID,
				Name:  emp.Name,
				Email: emp.Email,
				Phone: emp.Phone,
				Photo: emp.Photo,
			}
		}

		result = append(result, EmployeeWeekSummary{Employee: card, Totals: t.Rounded()})
	}

	return result, meta, nil
}

// ProjectSummary is a project annotated with the number of employees
// assigned to it on the requested date.
type ProjectSummary struct {
	models.Project
	TodayAssignedEmployees int `json:"todayAssignedEmployees"`
}

// ProjectsAssignedOnDate lists the projects that have at least one
// assignment created on the given date, searchable and paginated.
// Employees only see projects they are assigned to themselves; the
// eager-loaded assignments are windowed to the same day.
func (s *Service) ProjectsAssignedOnDate(ctx context.Context, user *models.User, params url.Values) ([]ProjectSummary, query.Meta, error) {
	dateStr := params.Get("date")
	if dateStr == "" {
		return nil, query.Meta{}, apperr.InvalidInput("date", "Date query parameter is required")
	}
	day, err := parseDate(dateStr)
	if err != nil {
		return nil, query.Meta{}, apperr.InvalidInput("date", "Invalid date format")
	}

	dayStart := startOfDay(day)
	dayEnd := dayStart.AddDate(0, 0, 1)

	builder := query.New(s.db.WithContext(ctx).Model(&models.Project{}), params).
		Search("name", "clientName").
		Filter().
		Sort().
		Paginate().
		Include("Expenses").
		Include("Assignments.Employee")

	if user.IsEmployee() {
		builder.
			RawFilter("EXISTS (SELECT 1 FROM assignments WHERE assignments.project_id = projects.id AND assignments.created_at >= ? AND assignments.created_at < ? AND assignments.employee_id = ?)",
				dayStart, dayEnd, user.ID).
			Include("Assignments", "created_at >= ? AND created_at < ? AND employee_id = ?", dayStart, dayEnd, user.ID)
	} else {
		builder.
			RawFilter("EXISTS (SELECT 1 FROM assignments WHERE assignments.project_id = projects.id AND assignments.created_at >= ? AND assignments.created_at < ?)",
				dayStart, dayEnd).
			Include("Assignments", "created_at >= ? AND created_at < ?", dayStart, dayEnd)
	}

	var projects []models.Project
	if err := builder.Execute(&projects); err != nil {
		return nil, query.Meta{}, err
	}
	meta, err := builder.CountTotal()
	if err != nil {
		return nil, query.Meta{}, err
	}

	result := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		result = append(result, ProjectSummary{
			Project:                p,
			TodayAssignedEmployees: len(p.Assignments),
		})
	}
	return result, meta, nil
}

// parseDate accepts a bare date or a full RFC 3339 instant. Bare dates
// resolve to UTC midnight, matching how clients already send them.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func joinStatuses(statuses []models.AttendanceStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func cloneValues(params url.Values) url.Values {
	out := make(url.Values, len(params)+1)
	for k, v := range params {
		out[k] = append([]string(nil), v...)
	}
	return out
}
