package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"staffhub/apperr"
)

// response is the envelope every endpoint answers with, matching the
// {success, message, data, meta} shape consumed by the frontend.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Data    any    `json:"data,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

func respond(w http.ResponseWriter, status int, message string, data, meta any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

func respondError(w http.ResponseWriter, log *zap.Logger, err error) {
	w.Header().Set("Content-Type", "application/json")

	if e, ok := apperr.From(err); ok {
		w.WriteHeader(e.HTTPStatus())
		json.NewEncoder(w).Encode(response{
			Success: false,
			Message: e.Message,
			Field:   e.Field,
		})
		return
	}

	log.Error("request failed", zap.Error(err))
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(response{
		Success: false,
		Message: "Internal server error",
	})
}
