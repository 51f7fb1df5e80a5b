package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/userdir/userdir/internal/platform/httpx"
	"github.com/userdir/userdir/internal/shared"
)

// Handler manages user CRUD endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validator   *validator.Validate
	requireAuth func(http.Handler) http.Handler
}

// NewHandler builds Handler instance. requireAuth gates every route.
func NewHandler(logger *slog.Logger, service *Service, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, validator: shared.NewValidator(), requireAuth: requireAuth}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.requireAuth != nil {
			r.Use(h.requireAuth)
		}
		r.Post("/", h.createUser)
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
		r.Patch("/{id}", h.updateUser)
		r.Delete("/{id}", h.removeUser)
	})
}

// userResponse is the client view of a user; the password never leaves the
// service.
type userResponse struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	FlagActive   bool       `json:"flag_active"`
	ExpirationAt *time.Time `json:"expiration_at"`
	InsertAt     time.Time  `json:"insert_at"`
	UpdateAt     time.Time  `json:"update_at"`
}

func toResponse(u User) userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		FlagActive:   u.FlagActive,
		ExpirationAt: u.ExpirationAt,
		InsertAt:     u.InsertAt,
		UpdateAt:     u.UpdateAt,
	}
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	if err := shared.Validate(h.validator, in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create user failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(user))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		h.fail(w, "list users failed", err)
		return
	}
	out := make([]userResponse, len(list))
	for i, u := range list {
		out[i] = toResponse(u)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.FindOne(r.Context(), id)
	if err != nil {
		h.fail(w, "get user failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	if err := shared.Validate(h.validator, in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update user failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) removeUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		h.fail(w, "remove user failed", err, slog.Int64("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail logs storage failures with their cause and writes the problem response.
func (h *Handler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	if errors.Is(err, shared.ErrStorageFailure) && h.logger != nil {
		h.logger.Error(msg, append(attrs, slog.Any("error", err))...)
	}
	httpx.RespondError(w, err)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	return id, nil
}
