package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/datadoc-engine/pkg/apperrors"
	"github.com/ekaya-inc/datadoc-engine/pkg/audit"
	"github.com/ekaya-inc/datadoc-engine/pkg/auth"
	"github.com/ekaya-inc/datadoc-engine/pkg/config"
	"github.com/ekaya-inc/datadoc-engine/pkg/models"
	"github.com/ekaya-inc/datadoc-engine/pkg/services"
)

// LoginRequest represents the request body for login. Either Email or UserName
// identifies the account; Email wins when both are set.
type LoginRequest struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// Login returns the identifier to look the account up by.
func (r LoginRequest) Login() string {
	if r.Email != "" {
		return r.Email
	}
	return r.UserName
}

// LoginResponse is the body of a successful registration or login. The token
// is also set as the datadoc_jwt cookie.
type LoginResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
}

// AuthHandler handles registration and login.
type AuthHandler struct {
	accountService services.AccountService
	auditor        *audit.SecurityAuditor
	cookies        auth.CookieSettings
	logger         *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accountService services.AccountService, auditor *audit.SecurityAuditor, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accountService: accountService,
		auditor:        auditor,
		cookies:        auth.DeriveCookieSettings(cfg.BaseURL),
		logger:         logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/v1/register", h.Register)
	mux.HandleFunc("POST /api/auth/v1/login", h.Login)
}

// Register handles POST /api/auth/v1/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.accountService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.writeLoggedIn(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/v1/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.accountService.Login(r.Context(), req.Login(), req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			h.auditor.LogLoginFailure(r.Context(), req.Login(), "invalid credentials", r.RemoteAddr)
			if err := ErrorResponse(w, http.StatusUnauthorized, "invalid_credentials", "Invalid login or password"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		writeServiceError(w, err, h.logger)
		return
	}

	h.writeLoggedIn(w, http.StatusOK, result)
}

// writeLoggedIn sets the token cookie and writes the login body.
func (h *AuthHandler) writeLoggedIn(w http.ResponseWriter, status int, result *services.LoginResult) {
	auth.SetTokenCookie(w, result.Token, result.ExpiresAt, h.cookies)

	if err := WriteJSON(w, status, LoginResponse{
		Success: true,
		User:    result.User,
		Token:   result.Token,
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
