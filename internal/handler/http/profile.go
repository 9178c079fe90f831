package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/veryfrut/storefront/internal/backend"
	"github.com/veryfrut/storefront/internal/domain"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
	"github.com/veryfrut/storefront/pkg/httputil"
	"github.com/veryfrut/storefront/pkg/middleware"
	"github.com/veryfrut/storefront/pkg/validator"
)

// ProfileStore reads and updates user profiles.
type ProfileStore interface {
	GetUser(ctx context.Context, id int) (*domain.User, error)
	UpdateUser(ctx context.Context, id int, p backend.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, id int, p backend.PasswordChange) error
}

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	store  ProfileStore
	logger *slog.Logger
}

// NewProfileHandler creates a profile handler.
func NewProfileHandler(store ProfileStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, logger: logger}
}

// Get handles GET /api/v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := currentUserID(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	u, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, u)
}

// Update handles PATCH /api/v1/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := currentUserID(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var in backend.ProfileUpdate
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	u, err := h.store.UpdateUser(r.Context(), id, in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, u)
}

// ChangePassword handles PATCH /api/v1/profile/password
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := currentUserID(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var in backend.PasswordChange
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if in.CurrentPassword == in.NewPassword {
		httputil.WriteError(w, r, apperrors.InvalidInput("new password must differ from the current one"), h.logger)
		return
	}

	if err := h.store.ChangePassword(r.Context(), id, in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func currentUserID(ctx context.Context) (int, error) {
	id, err := strconv.Atoi(middleware.UserIDFromContext(ctx))
	if err != nil || id <= 0 {
		return 0, apperrors.Unauthorized("session has no numeric user id")
	}
	return id, nil
}
