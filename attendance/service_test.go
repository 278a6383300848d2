package attendance_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"staffhub/apperr"
	"staffhub/attendance"
	"staffhub/models"
	"staffhub/notifications"
)

// Wednesday, mid-week, mid-day
var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Assignment{},
		&models.Expense{},
		&models.Notification{},
	))
	return db
}

func setupService(t *testing.T) (*attendance.Service, *gorm.DB) {
	t.Helper()
	db := setupDB(t)
	svc := attendance.NewService(db, notifications.NewService(db, zap.NewNop()), zap.NewNop())
	svc.Now = func() time.Time { return testNow }
	return svc, db
}

func createUser(t *testing.T, db *gorm.DB, name string, role models.Role) models.User {
	t.Helper()
	user := models.User{
		Name:         name,
		Email:        name + "@staffhub.local",
		Phone:        "555-0100",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createProject(t *testing.T, db *gorm.DB, name string) models.Project {
	t.Helper()
	project := models.Project{Name: name, ClientName: name + " Client"}
	require.NoError(t, db.Create(&project).Error)
	return project
}

func seedEntry(t *testing.T, db *gorm.DB, employeeID, projectID uuid.UUID, createdAt time.Time, checkIn, checkOut *time.Time) models.Assignment {
	t.Helper()
	entry := models.Assignment{
		EmployeeID: employeeID,
		ProjectID:  projectID,
		Role:       models.RolePicker,
		Status:     models.StatusNotStarted,
		WorkDate:   time.Date(createdAt.Year(), createdAt.Month(), createdAt.Day(), 0, 0, 0, 0, createdAt.Location()),
		CreatedAt:  createdAt,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	}
	if checkOut != nil {
		entry.Status = models.StatusCheckedOut
	}
	require.NoError(t, db.Create(&entry).Error)
	return entry
}

func TestAssign(t *testing.T) {
	t.Run("project not found", func(t *testing.T) {
		svc, db := setupService(t)
		emp := createUser(t, db, "alice", models.RoleEmployee)

		_, err := svc.Assign(context.Background(), emp.ID, uuid.New(), models.RolePicker)
		e, ok := apperr.From(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindNotFound, e.Kind)
	})

	t.Run("creates assignment and touches project", func(t *testing.T) {
		svc, db := setupService(t)
		emp := createUser(t, db, "alice", models.RoleEmployee)
		project := createProject(t, db, "Warehouse A")

		assignment, err := svc.Assign(context.Background(), emp.ID, project.ID, models.RolePicker)
		require.NoError(t, err)
		assert.Equal(t, models.StatusNotStarted, assignment.Status)
		assert.Equal(t, models.RolePicker, assignment.Role)
		assert.Nil(t, assignment.CheckIn)

		var got models.Project
		require.NoError(t, db.First(&got, "id = ?", project.ID).Error)
		require.NotNil(t, got.LastWorkingDate)
		assert.WithinDuration(t, testNow, *got.LastWorkingDate, time.Second)

		var note models.Notification
		require.NoError(t, db.First(&note, "receiver_id = ?", emp.ID).Error)
		assert.Equal(t, "New Project Assigned", note.Title)
		assert.Equal(t, models.NotificationProject, note.Type)
	})

	t.Run("same day duplicate conflicts", func(t *testing.T) {
		svc, db := setupService(t)
		emp := createUser(t, db, "alice", models.RoleEmployee)
		project := createProject(t, db, "Warehouse A")

		_, err := svc.Assign(context.Background(), emp.ID, project.ID, models.RolePicker)
		require.NoError(t, err)

		_, err = svc.Assign(context.Background(), emp.ID, project.ID, models.RoleRunner)
		e, ok := apperr.From(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindConflict, e.Kind)
		assert.Equal(t, "employeeId", e.Field)
	})

	t.Run("notification failure is swallowed", func(t *testing.T) {
		svc, db := setupService(t)
		emp := createUser(t, db, "alice", models.RoleEmployee)
		project := createProject(t, db, "Warehouse A")

		require.NoError(t, db.Migrator().DropTable(&models.Notification{}))

		assignment, err := svc.Assign(context.Background(), emp.ID, project.ID, models.RolePicker)
		require.NoError(t, err)
		assert.Equal(t, models.StatusNotStarted, assignment.Status)

		var count int64
		db.Model(&models.Assignment{}).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("next day succeeds", func(t *testing.T) {
		svc, db := setupService(t)
		emp := createUser(t, db, "alice", models.RoleEmployee)
		project := createProject(t, db, "Warehouse A")

		_, err := svc.Assign(context.Background(), emp.ID, project.ID, models.RolePicker)
		require.NoError(t, err)

		svc.Now = func() time.Time { return testNow.AddDate(0, 0, 1) }
		_, err = svc.Assign(context.Background(), emp.ID, project.ID, models.RolePicker)
		require.NoError(t, err)
	})
}

func TestAdvance(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid status value", func(t *testing.T) {
		svc, db := setupService(t)
		emp := createUser(t, db, "alice", models.RoleEmployee)

		_, _, err := svc.Advance(ctx, emp.ID, uuid.New(), "LUNCH")
		e, ok := apperr.From(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindInvalidInput, e.Kind)
		assert.Contains(t, e.Message, "CHECKED_IN, ON_BREAK, BREAK_ENDED, CHECKED_OUT")
	})

	t.Run("assignment of another employee is not found", func(t *testing.T) {
		svc, db := setupService(t)
		alice := createUser(t, db, "alice", models.RoleEmployee)
		bob := createUser(t, db, "bob", models.RoleEmployee)
		project := createProject(t, db, "Warehouse A")

		assignment, err := svc.Assign(ctx, alice.ID, project.ID, models.RolePicker)
		require.NoError(t, err)

		_, _, err = svc.Advance(ctx, bob.ID, assignment.ID, models.StatusCheckedIn)
		e, ok := apperr.From(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindNotFound, e.Kind)
	})

	t.Run("full sequence stamps every timestamp once", func(t *testing.T) {
		svc, db := setupService(t)
		createUser(t, db, "admin", models.RoleAdmin)
		emp := createUser(t, db, "alice", models.RoleEmployee)
		project := createProject(t, db, "Warehouse A")

		assignment, err := svc.Assign(ctx, emp.ID, project.ID, models.RolePicker)
		require.NoError(t, err)

		got, msg, err := svc.Advance(ctx, emp.ID, assignment.ID, models.StatusCheckedIn)
		require.NoError(t, err)
		assert.Equal(t, "Checked in successfully", msg)
		assert.Equal(t, models.StatusCheckedIn, got.Status)
		require.NotNil(t, got.CheckIn)
		assert.WithinDuration(t, testNow, *got.CheckIn, time.Second)

		// a second identical transition violates the guard
		_, _, err = svc.Advance(ctx, emp.ID, assignment.ID, models.StatusCheckedIn)
		e, ok := apperr.From(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindInvalidTransition, e.Kind)
		assert.Equal(t, "You have already checked in", e.Message)

		got, msg, err = svc.Advance(ctx, emp.ID, assignment.ID, models.StatusOnBreak)
		require.NoError(t, err)
		assert.Equal(t, "Break started", msg)
		require.NotNil(t, got.BreakTimeStart)

		got, msg, err = svc.Advance(ctx, emp.ID, assignment.ID, models.StatusBreakEnded)
		require.NoError(t, err)
		assert.Equal(t, "Break ended", msg)
		require.NotNil(t, got.BreakTimeEnd)

		got, msg, err = svc.Advance(ctx, emp.ID, assignment.ID, models.StatusCheckedOut)
		require.NoError(t, err)
		assert.Equal(t, "Checked out successfully", msg)
		assert.Equal(t, models.StatusCheckedOut, got.Status)
		require.NotNil(t, got.CheckOut)

		// admins were notified along the way
		var admin models.User
		require.NoError(t, db.First(&admin, "role = ?", models.RoleAdmin).Error)
		var count int64
		db.Model(&models.Notification{}).
			Where("receiver_id = ? AND type = ?", admin.ID, models.NotificationAttendance).
			Count(&count)
		assert.EqualValues(t, 4, count)
	})

	t.Run("checkout straight from checked in", func(t *testing.T) {
		svc, db := setupService(t)
		emp := createUser(t, db, "alice", models.RoleEmployee)
		project := createProject(t, db, "Warehouse A")

		assignment, err := svc.Assign(ctx, emp.ID, project.ID, models.RolePicker)
		require.NoError(t, err)

		_, _, err = svc.Advance(ctx, emp.ID, assignment.ID, models.StatusCheckedIn)
		require.NoError(t, err)
		_, msg, err := svc.Advance(ctx, emp.ID, assignment.ID, models.StatusCheckedOut)
		require.NoError(t, err)
		assert.Equal(t, "Checked out successfully", msg)
	})

	t.Run("notification failure does not block the transition", func(t *testing.T) {
		svc, db := setupService(t)
		createUser(t, db, "admin", models.RoleAdmin)
		emp := createUser(t, db, "alice", models.RoleEmployee)
		project := createProject(t, db, "Warehouse A")

		assignment, err := svc.Assign(ctx, emp.ID, project.ID, models.RolePicker)
		require.NoError(t, err)

		require.NoError(t, db.Migrator().DropTable(&models.Notification{}))

		got, msg, err := svc.Advance(ctx, emp.ID, assignment.ID, models.StatusCheckedIn)
		require.NoError(t, err)
		assert.Equal(t, "Checked in successfully", msg)
		assert.Equal(t, models.StatusCheckedIn, got.Status)
	})

	t.Run("concurrent transition loses the conditional update", func(t *testing.T) {
		svc, db := setupService(t)
		emp := createUser(t, db, "alice", models.RoleEmployee)
		project := createProject(t, db, "Warehouse A")

		assignment, err := svc.Assign(ctx, emp.ID, project.ID, models.RolePicker)
		require.NoError(t, err)
		_, _, err = svc.Advance(ctx, emp.ID, assignment.ID, models.StatusCheckedIn)
		require.NoError(t, err)

		// a racing writer checks out between the status read and the
		// conditional update
		svc.Now = func() time.Time {
			require.NoError(t, db.Model(&models.Assignment{}).
				Where("id = ?", assignment.ID).
				Update("status", models.StatusCheckedOut).Error)
			return testNow
		}

		_, _, err = svc.Advance(ctx, emp.ID, assignment.ID, models.StatusOnBreak)
		e, ok := apperr.From(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindInvalidTransition, e.Kind)
		assert.Equal(t, "Please check in before starting a break", e.Message)

		var got models.Assignment
		require.NoError(t, db.First(&got, "id = ?", assignment.ID).Error)
		assert.Equal(t, models.StatusCheckedOut, got.Status)
		assert.Nil(t, got.BreakTimeStart)
	})

	t.Run("guard violations per requested status", func(t *testing.T) {
		svc, db := setupService(t)
		emp := createUser(t, db, "alice", models.RoleEmployee)
		project := createProject(t, db, "Warehouse A")

		assignment, err := svc.Assign(ctx, emp.ID, project.ID, models.RolePicker)
		require.NoError(t, err)

		// still NOT_STARTED
		for requested, wantMsg := range map[models.AttendanceStatus]string{
			models.StatusOnBreak:    "Please check in before starting a break",
			models.StatusBreakEnded: "No active break to end",
			models.StatusCheckedOut: "You must check in before checking out",
		} {
			_, _, err := svc.Advance(ctx, emp.ID, assignment.ID, requested)
			e, ok := apperr.From(err)
			require.True(t, ok, "requested %s", requested)
			assert.Equal(t, apperr.KindInvalidTransition, e.Kind)
			assert.Equal(t, wantMsg, e.Message)
		}
	})
}

func TestWeeklySelfSummary(t *testing.T) {
	svc, db := setupService(t)
	emp := createUser(t, db, "alice", models.RoleEmployee)
	project := createProject(t, db, "Warehouse A")

	monday := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	// Monday: 13h shift, Tuesday: 9-18 with half hour break
	longIn, longOut := monday.Add(8*time.Hour), monday.Add(21*time.Hour)
	long := seedEntry(t, db, emp.ID, project.ID, monday.Add(8*time.Hour), &longIn, &longOut)

	shortIn, shortOut := tuesday.Add(9*time.Hour), tuesday.Add(18*time.Hour)
	short := seedEntry(t, db, emp.ID, project.ID, tuesday.Add(9*time.Hour), &shortIn, &shortOut)
	breakStart, breakEnd := tuesday.Add(12*time.Hour), tuesday.Add(12*time.Hour+30*time.Minute)
	require.NoError(t, db.Model(&short).Updates(map[string]any{
		"break_time_start": breakStart, "break_time_end": breakEnd,
	}).Error)

	// previous week, excluded from the weekly aggregate
	oldIn, oldOut := monday.AddDate(0, 0, -7).Add(9*time.Hour), monday.AddDate(0, 0, -7).Add(17*time.Hour)
	seedEntry(t, db, emp.ID, project.ID, oldIn, &oldIn, &oldOut)

	summary, err := svc.WeeklySelfSummary(context.Background(), emp.ID, nil)
	require.NoError(t, err)

	// all three entries are listed, each with its own three-tier split
	require.Len(t, summary.Entries, 3)
	assert.EqualValues(t, 3, summary.Meta.Total)

	byID := map[uuid.UUID]attendance.EntrySummary{}
	for _, e := range summary.Entries {
		byID[e.ID] = e
	}
	assert.InDelta(t, 13, byID[long.ID].TotalHours, 0.01)
	assert.InDelta(t, 8, byID[long.ID].NormalHours, 0.01)
	assert.InDelta(t, 4, byID[long.ID].OvertimeHours, 0.01)
	assert.InDelta(t, 1, byID[long.ID].DoubleOvertimeHours, 0.01)
	assert.InDelta(t, 8.5, byID[short.ID].TotalHours, 0.01)

	// weekly aggregate covers only this week, with the two-tier split
	assert.InDelta(t, 21.5, summary.Meta.TotalHours, 0.01)
	assert.InDelta(t, 16, summary.Meta.TotalRegularHours, 0.01)
	assert.InDelta(t, 5.5, summary.Meta.TotalOvertimeHours, 0.01)

	require.Len(t, summary.Meta.DailyBreakdown, 2)
	assert.InDelta(t, 8, summary.Meta.DailyBreakdown["2025-01-13"].RegularHours, 0.01)
	assert.InDelta(t, 5, summary.Meta.DailyBreakdown["2025-01-13"].OvertimeHours, 0.01)
	assert.InDelta(t, 8, summary.Meta.DailyBreakdown["2025-01-14"].RegularHours, 0.01)
	assert.InDelta(t, 0.5, summary.Meta.DailyBreakdown["2025-01-14"].OvertimeHours, 0.01)
}

func TestWeeklyAllEmployeesSummary(t *testing.T) {
	svc, db := setupService(t)
	alice := createUser(t, db, "alice", models.RoleEmployee)
	bob := createUser(t, db, "bob", models.RoleEmployee)
	projectA := createProject(t, db, "Warehouse A")
	projectB := createProject(t, db, "Warehouse B")

	monday := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	aIn1, aOut1 := monday.Add(9*time.Hour), monday.Add(13*time.Hour) // 4h
	seedEntry(t, db, alice.ID, projectA.ID, aIn1, &aIn1, &aOut1)
	aIn2, aOut2 := tuesday.Add(9*time.Hour), tuesday.Add(19*time.Hour) // 10h
	seedEntry(t, db, alice.ID, projectB.ID, aIn2, &aIn2, &aOut2)

	bIn, bOut := monday.Add(8*time.Hour), monday.Add(21*time.Hour) // 13h
	seedEntry(t, db, bob.ID, projectA.ID, bIn, &bIn, &bOut)

	// open entry and last week's entry are both excluded
	openIn := tuesday.Add(9 * time.Hour)
	seedEntry(t, db, bob.ID, projectB.ID, openIn, &openIn, nil)
	oldIn, oldOut := monday.AddDate(0, 0, -3).Add(9*time.Hour), monday.AddDate(0, 0, -3).Add(17*time.Hour)
	seedEntry(t, db, bob.ID, projectA.ID, oldIn, &oldIn, &oldOut)

	data, meta, err := svc.WeeklyAllEmployeesSummary(context.Background(), nil)
	require.NoError(t, err)

	assert.EqualValues(t, 3, meta.Total)
	require.Len(t, data, 2)

	byEmployee := map[uuid.UUID]attendance.EmployeeWeekSummary{}
	for _, s := range data {
		byEmployee[s.Employee.ID] = s
	}

	aliceSummary := byEmployee[alice.ID]
	assert.Equal(t, "alice", aliceSummary.Employee.Name)
	assert.Equal(t, "alice@staffhub.local", aliceSummary.Employee.Email)
	assert.InDelta(t, 14, aliceSummary.TotalHours, 0.01)
	assert.InDelta(t, 12, aliceSummary.NormalHours, 0.01)
	assert.InDelta(t, 2, aliceSummary.OvertimeHours, 0.01)
	assert.Zero(t, aliceSummary.DoubleOvertimeHours)

	bobSummary := byEmployee[bob.ID]
	assert.InDelta(t, 13, bobSummary.TotalHours, 0.01)
	assert.InDelta(t, 8, bobSummary.NormalHours, 0.01)
	assert.InDelta(t, 4, bobSummary.OvertimeHours, 0.01)
	assert.InDelta(t, 1, bobSummary.DoubleOvertimeHours, 0.01)
}

func TestProjectsAssignedOnDate(t *testing.T) {
	ctx := context.Background()

	t.Run("date parameter is required and must parse", func(t *testing.T) {
		svc, db := setupService(t)
		admin := createUser(t, db, "admin", models.RoleAdmin)

		_, _, err := svc.ProjectsAssignedOnDate(ctx, &admin, url.Values{})
		e, ok := apperr.From(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindInvalidInput, e.Kind)
		assert.Equal(t, "date", e.Field)

		_, _, err = svc.ProjectsAssignedOnDate(ctx, &admin, url.Values{"date": {"not-a-date"}})
		e, ok = apperr.From(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindInvalidInput, e.Kind)
	})

	t.Run("admin sees every project assigned that day with counts", func(t *testing.T) {
		svc, db := setupService(t)
		admin := createUser(t, db, "admin", models.RoleAdmin)
		alice := createUser(t, db, "alice", models.RoleEmployee)
		bob := createUser(t, db, "bob", models.RoleEmployee)
		projectA := createProject(t, db, "Warehouse A")
		projectB := createProject(t, db, "Warehouse B")

		day := time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC)
		seedEntry(t, db, alice.ID, projectA.ID, day, nil, nil)
		seedEntry(t, db, bob.ID, projectA.ID, day.Add(time.Hour), nil, nil)
		seedEntry(t, db, alice.ID, projectB.ID, day.AddDate(0, 0, -1), nil, nil)

		data, meta, err := svc.ProjectsAssignedOnDate(ctx, &admin, url.Values{"date": {"2025-01-14"}})
		require.NoError(t, err)
		require.Len(t, data, 1)
		assert.EqualValues(t, 1, meta.Total)
		assert.Equal(t, "Warehouse A", data[0].Name)
		assert.Equal(t, 2, data[0].TodayAssignedEmployees)
		require.Len(t, data[0].Assignments, 2)
	})

	t.Run("employee sees only own assignments", func(t *testing.T) {
		svc, db := setupService(t)
		alice := createUser(t, db, "alice", models.RoleEmployee)
		bob := createUser(t, db, "bob", models.RoleEmployee)
		charlie := createUser(t, db, "charlie", models.RoleEmployee)
		projectA := createProject(t, db, "Warehouse A")

		day := time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC)
		seedEntry(t, db, alice.ID, projectA.ID, day, nil, nil)
		seedEntry(t, db, bob.ID, projectA.ID, day.Add(time.Hour), nil, nil)

		data, _, err := svc.ProjectsAssignedOnDate(ctx, &bob, url.Values{"date": {"2025-01-14"}})
		require.NoError(t, err)
		require.Len(t, data, 1)
		assert.Equal(t, 1, data[0].TodayAssignedEmployees)

		data, _, err = svc.ProjectsAssignedOnDate(ctx, &charlie, url.Values{"date": {"2025-01-14"}})
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("search narrows by project name", func(t *testing.T) {
		svc, db := setupService(t)
		admin := createUser(t, db, "admin", models.RoleAdmin)
		alice := createUser(t, db, "alice", models.RoleEmployee)
		projectA := createProject(t, db, "Warehouse A")
		projectB := createProject(t, db, "Depot B")

		day := time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC)
		seedEntry(t, db, alice.ID, projectA.ID, day, nil, nil)
		seedEntry(t, db, alice.ID, projectB.ID, day.Add(time.Hour), nil, nil)

		data, meta, err := svc.ProjectsAssignedOnDate(ctx, &admin, url.Values{
			"date":       {"2025-01-14"},
			"searchTerm": {"depot"},
		})
		require.NoError(t, err)
		require.Len(t, data, 1)
		assert.EqualValues(t, 1, meta.Total)
		assert.Equal(t, "Depot B", data[0].Name)
	})
}
