package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"staffhub/middleware"
	"staffhub/notifications"
)

type NotificationHandler struct {
	svc *notifications.Service
	log *zap.Logger
}

func NewNotificationHandler(svc *notifications.Service, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: log}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	rows, meta, err := h.svc.ListForUser(r.Context(), user.ID, r.URL.Query())
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Notifications retrieved successfully.", rows, meta)
}
