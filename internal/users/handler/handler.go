// Package handler exposes user administration over HTTP. All routes require
// an administrator token.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"profreg/internal/platform/middleware"
	"profreg/internal/users/models"
	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
	"profreg/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/users-mocks.go -package=mocks Service

// Service defines the user operations the handler depends on.
type Service interface {
	Invite(ctx context.Context, email, name string, role models.Role, organisationID id.EntityID, actor id.UserID) (*models.User, error)
	Confirm(ctx context.Context, userID id.UserID, externalIdentifier string, actor id.UserID) (*models.User, error)
	Archive(ctx context.Context, userID id.UserID, actor id.UserID) error
	Get(ctx context.Context, userID id.UserID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

// Handler handles user administration endpoints.
type Handler struct {
	logger       *slog.Logger
	users        Service
	jwtValidator middleware.JWTValidator
}

// New creates a users Handler.
func New(users Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		users:        users,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the user administration routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	router.Use(middleware.RequireRole(h.logger, "administrator"))
	router.Post("/", h.handleInvite)
	router.Get("/", h.handleList)
	router.Get("/{userID}", h.handleGet)
	router.Post("/{userID}/confirm", h.handleConfirm)
	router.Post("/{userID}/archive", h.handleArchive)

	r.Mount("/admin/users", router)
}

type inviteRequest struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	OrganisationID string `json:"organisation_id,omitempty"`
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	// Role and email validation live in the service so field errors come
	// back together; only the optional organisation ID is parsed here.
	var orgID id.EntityID
	if req.OrganisationID != "" {
		parsed, err := id.ParseEntityID(req.OrganisationID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		orgID = parsed
	}

	user, err := h.users.Invite(ctx, req.Email, req.Name, models.Role(req.Role), orgID, middleware.GetUserID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to invite user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

type confirmRequest struct {
	ExternalIdentifier string `json:"external_identifier"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, err := h.users.Confirm(ctx, userID, req.ExternalIdentifier, middleware.GetUserID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to confirm user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.users.Archive(ctx, userID, middleware.GetUserID(ctx)); err != nil {
		h.writeServiceError(ctx, w, "failed to archive user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.users.Get(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.users.List(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list users", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, message string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, message,
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
