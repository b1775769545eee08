// Package handler exposes the register over HTTP: an authenticated
// administrative surface for draft editing and publication, and a public
// read-only surface addressed by slug.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"profreg/internal/platform/middleware"
	"profreg/internal/register/models"
	"profreg/internal/register/service"
	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
	"profreg/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/register-mocks.go -package=mocks Service

// Service defines the register operations the handler depends on.
type Service interface {
	CreateEntity(ctx context.Context, entityType id.EntityType, actor id.UserID) (*models.Entity, *models.Version, error)
	CreateDraft(ctx context.Context, entityID id.EntityID, actor id.UserID) (*models.Version, error)
	UpdateDraft(ctx context.Context, versionID id.VersionID, patch models.Patch, actor id.UserID) (*models.Version, error)
	DiscardDraft(ctx context.Context, versionID id.VersionID, actor id.UserID) error
	Publish(ctx context.Context, versionID id.VersionID, actor id.UserID) (*models.Version, error)
	Withdraw(ctx context.Context, entityID id.EntityID, actor id.UserID) error
	DeleteEntity(ctx context.Context, entityID id.EntityID, actor id.UserID) error
	ListVersions(ctx context.Context, entityID id.EntityID) ([]*models.Version, error)
	GetLive(ctx context.Context, entityID id.EntityID) (*models.Version, error)
	GetEditable(ctx context.Context, entityID id.EntityID, actor id.UserID) (*models.Version, error)
	GetBySlug(ctx context.Context, entityType id.EntityType, slug string) (*models.Version, error)
	GetProfessionView(ctx context.Context, slug string) (*service.ProfessionView, error)
}

// Handler handles register endpoints.
type Handler struct {
	logger       *slog.Logger
	register     Service
	jwtValidator middleware.JWTValidator

	// publishRetries bounds transparent retries when a publish loses the
	// per-entity race before the conflict surfaces to the caller.
	publishRetries int
}

// Option configures a Handler.
type Option func(*Handler)

// WithPublishRetries overrides the publish conflict retry bound.
func WithPublishRetries(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.publishRetries = n
		}
	}
}

// New creates a register Handler.
func New(register Service, logger *slog.Logger, jwtValidator middleware.JWTValidator, opts ...Option) *Handler {
	h := &Handler{
		logger:         logger,
		register:       register,
		jwtValidator:   jwtValidator,
		publishRetries: 3,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the public and administrative routes.
func (h *Handler) Register(r chi.Router) {
	public := chi.NewRouter()
	public.Use(middleware.Recovery(h.logger))
	public.Use(middleware.RequestID)
	public.Use(middleware.Logger(h.logger))
	public.Use(middleware.Timeout(15 * time.Second))
	public.Get("/professions/{slug}", h.handleGetProfession)
	public.Get("/organisations/{slug}", h.handleGetOrganisation)

	admin := chi.NewRouter()
	admin.Use(middleware.Recovery(h.logger))
	admin.Use(middleware.RequestID)
	admin.Use(middleware.RequestTime)
	admin.Use(middleware.Logger(h.logger))
	admin.Use(middleware.Timeout(30 * time.Second))
	admin.Use(middleware.ContentTypeJSON)
	admin.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	admin.Post("/entities", h.handleCreateEntity)
	admin.Get("/entities/{entityID}/versions", h.handleListVersions)
	admin.Get("/entities/{entityID}/live", h.handleGetLive)
	admin.Get("/entities/{entityID}/editable", h.handleGetEditable)
	admin.Post("/entities/{entityID}/drafts", h.handleCreateDraft)
	admin.Post("/entities/{entityID}/withdraw", h.handleWithdraw)
	admin.With(middleware.RequireRole(h.logger, "administrator")).
		Delete("/entities/{entityID}", h.handleDeleteEntity)
	admin.Patch("/versions/{versionID}", h.handleUpdateDraft)
	admin.Delete("/versions/{versionID}", h.handleDiscardDraft)
	admin.Post("/versions/{versionID}/publish", h.handlePublish)

	r.Mount("/", public)
	r.Mount("/admin", admin)
}

type createEntityRequest struct {
	Type string `json:"type"`
}

type entityResponse struct {
	Entity  *models.Entity  `json:"entity"`
	Version *models.Version `json:"version"`
}

func (h *Handler) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	entityType, err := id.ParseEntityType(req.Type)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entity, draft, err := h.register.CreateEntity(ctx, entityType, middleware.GetUserID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create entity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entityResponse{Entity: entity, Version: draft})
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	draft, err := h.register.CreateDraft(ctx, entityID, middleware.GetUserID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create draft", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, draft)
}

func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versionID, err := id.ParseVersionID(chi.URLParam(r, "versionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var patch models.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.register.UpdateDraft(ctx, versionID, patch, middleware.GetUserID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update draft", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versionID, err := id.ParseVersionID(chi.URLParam(r, "versionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.register.DiscardDraft(ctx, versionID, middleware.GetUserID(ctx)); err != nil {
		h.writeServiceError(ctx, w, "failed to discard draft", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePublish retries lost publish races transparently up to the bound;
// the caller only sees a conflict when every attempt lost.
func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versionID, err := id.ParseVersionID(chi.URLParam(r, "versionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actor := middleware.GetUserID(ctx)

	var published *models.Version
	for attempt := 1; attempt <= h.publishRetries; attempt++ {
		published, err = h.register.Publish(ctx, versionID, actor)
		if err == nil || !dErrors.HasCode(err, dErrors.CodeConflict) {
			break
		}
		h.logger.WarnContext(ctx, "publish conflict, retrying",
			"version_id", versionID.String(),
			"attempt", attempt,
			"request_id", middleware.GetRequestID(ctx),
		)
	}
	if err != nil {
		h.writeServiceError(ctx, w, "failed to publish version", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, published)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.register.Withdraw(ctx, entityID, middleware.GetUserID(ctx)); err != nil {
		h.writeServiceError(ctx, w, "failed to withdraw entity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.register.DeleteEntity(ctx, entityID, middleware.GetUserID(ctx)); err != nil {
		h.writeServiceError(ctx, w, "failed to delete entity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	versions, err := h.register.ListVersions(ctx, entityID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list versions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (h *Handler) handleGetLive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	live, err := h.register.GetLive(ctx, entityID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load live version", err)
		return
	}
	// live is null for an entity that exists but is not currently published.
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"live": live})
}

func (h *Handler) handleGetEditable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	editable, err := h.register.GetEditable(ctx, entityID, middleware.GetUserID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to resolve editable version", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, editable)
}

func (h *Handler) handleGetProfession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.register.GetProfessionView(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load profession", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleGetOrganisation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	live, err := h.register.GetBySlug(ctx, id.EntityTypeOrganisation, chi.URLParam(r, "slug"))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load organisation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, live)
}

// writeServiceError logs internal failures and maps domain errors onto the
// response envelope.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, message string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, message,
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
