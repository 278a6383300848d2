package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"staffhub/attendance"
	"staffhub/config"
	"staffhub/database"
	"staffhub/handlers"
	"staffhub/logger"
	"staffhub/middleware"
	"staffhub/models"
	"staffhub/notifications"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Initialize JWT secret
	middleware.SetJWTSecret(cfg.JWTSecret)

	// Initialize database
	db, err := database.Init(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	// Initialize services and handlers
	notifier := notifications.NewService(db, log)
	attendanceSvc := attendance.NewService(db, notifier, log)

	authHandler := handlers.NewAuthHandler(cfg, db, log)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceSvc, log)
	notificationHandler := handlers.NewNotificationHandler(notifier, log)

	// Setup router
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	// Public routes
	router.Post("/login", authHandler.Login)

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(db))

		r.Route("/assignments", func(r chi.Router) {
			r.With(middleware.RequireRole(models.RoleAdmin)).Post("/", attendanceHandler.Assign)
			r.Get("/{id}", attendanceHandler.GetAssignment)
			r.Patch("/{id}/attendance", attendanceHandler.Advance)
			r.With(middleware.RequireRole(models.RoleAdmin)).Patch("/{id}/role", attendanceHandler.UpdateRole)
		})

		r.Get("/attendance/my-weekly-summary", attendanceHandler.WeeklySelfSummary)
		r.With(middleware.RequireRole(models.RoleAdmin)).
			Get("/attendance/weekly-summary", attendanceHandler.WeeklyAllEmployeesSummary)

		r.Get("/projects/assigned", attendanceHandler.ProjectsAssignedOnDate)

		r.Get("/notifications", notificationHandler.List)
	})

	log.Info("server starting", zap.String("port", cfg.ServerPort))
	if err := http.ListenAndServe(":"+cfg.ServerPort, router); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
