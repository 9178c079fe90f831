package http

import (
	"log/slog"
	"net/http"

	"github.com/veryfrut/storefront/internal/auth"
	"github.com/veryfrut/storefront/pkg/httputil"
	"github.com/veryfrut/storefront/pkg/validator"
)

// AuthHandler handles login and logout.
type AuthHandler struct {
	service *auth.Service
	cookies auth.CookieConfig
	logger  *slog.Logger
}

// NewAuthHandler creates a login and logout handler.
func NewAuthHandler(svc *auth.Service, cookies auth.CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies, logger: logger}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sess, err := h.service.Login(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := auth.SetSession(w, h.cookies, sess.Token, sess.User); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, sess)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	auth.ClearSession(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}
