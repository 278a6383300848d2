package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"staffhub/apperr"
	"staffhub/config"
	"staffhub/middleware"
	"staffhub/models"
)

type AuthHandler struct {
	config *config.Config
	db     *gorm.DB
	log    *zap.Logger
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB, log *zap.Logger) *AuthHandler {
	return &AuthHandler{config: cfg, db: db, log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, apperr.InvalidInput("body", "Invalid request body"))
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		respondError(w, h.log, apperr.InvalidInput("email", "Invalid credentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(w, h.log, apperr.InvalidInput("email", "Invalid credentials"))
		return
	}

	token, err := middleware.GenerateToken(&user, h.config.JWTExpiration)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respond(w, http.StatusOK, "Logged in successfully", loginResponse{Token: token, User: &user}, nil)
}
