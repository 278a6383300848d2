package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"staffhub/apperr"
	"staffhub/attendance"
	"staffhub/middleware"
	"staffhub/models"
)

type AttendanceHandler struct {
	svc *attendance.Service
	log *zap.Logger
}

func NewAttendanceHandler(svc *attendance.Service, log *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{svc: svc, log: log}
}

type assignRequest struct {
	EmployeeID uuid.UUID             `json:"employee_id"`
	ProjectID  uuid.UUID             `json:"project_id"`
	Role       models.AssignmentRole `json:"role"`
}

func (h *AttendanceHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, apperr.InvalidInput("body", "Invalid request body"))
		return
	}
	if req.EmployeeID == uuid.Nil || req.ProjectID == uuid.Nil {
		respondError(w, h.log, apperr.InvalidInput("employeeId", "employee_id and project_id are required"))
		return
	}

	assignment, err := h.svc.Assign(r.Context(), req.EmployeeID, req.ProjectID, req.Role)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Successfully assigned an employee.", assignment, nil)
}

func (h *AttendanceHandler) Advance(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	assignmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, apperr.InvalidInput("id", "Invalid assignment ID"))
		return
	}
	status := models.AttendanceStatus(r.URL.Query().Get("status"))

	assignment, message, err := h.svc.Advance(r.Context(), user.ID, assignmentID, status)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, message, assignment, nil)
}

func (h *AttendanceHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, apperr.InvalidInput("id", "Invalid assignment ID"))
		return
	}

	assignment, err := h.svc.GetAssignment(r.Context(), assignmentID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Assignment retrieved successfully.", assignment, nil)
}

type updateRoleRequest struct {
	Role models.AssignmentRole `json:"role"`
}

func (h *AttendanceHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, apperr.InvalidInput("id", "Invalid assignment ID"))
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		respondError(w, h.log, apperr.InvalidInput("role", "Role is required"))
		return
	}

	assignment, err := h.svc.UpdateRole(r.Context(), assignmentID, req.Role)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Role updated successfully.", assignment, nil)
}

func (h *AttendanceHandler) WeeklySelfSummary(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	summary, err := h.svc.WeeklySelfSummary(r.Context(), user.ID, r.URL.Query())
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Weekly summary retrieved successfully.", summary.Entries, summary.Meta)
}

func (h *AttendanceHandler) WeeklyAllEmployeesSummary(w http.ResponseWriter, r *http.Request) {
	data, meta, err := h.svc.WeeklyAllEmployeesSummary(r.Context(), r.URL.Query())
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Weekly employee summary retrieved successfully.", data, meta)
}

func (h *AttendanceHandler) ProjectsAssignedOnDate(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	data, meta, err := h.svc.ProjectsAssignedOnDate(r.Context(), user, r.URL.Query())
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Projects retrieved successfully.", data, meta)
}
