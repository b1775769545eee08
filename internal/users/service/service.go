// Package service implements the user aggregate: invitation, confirmation
// through login-identity linkage, and archival.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"time"

	"profreg/internal/audit"
	"profreg/internal/users/metrics"
	"profreg/internal/users/models"
	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
	pkgemail "profreg/pkg/email"
	"profreg/pkg/platform/sentinel"
)

// Store persists users. Implementations enforce the conditional external
// identifier uniqueness rule at the storage level.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByExternalIdentifier(ctx context.Context, identifier string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	IdentifierInUse(ctx context.Context, identifier string, excluding id.UserID) (bool, error)
}

// AuditPublisher records user mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store Store

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock injects the time source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invite creates an unconfirmed user pending first login. When no display
// name is given, one is derived from the email's local part.
func (s *Service) Invite(ctx context.Context, email, name string, role models.Role, organisationID id.EntityID, actor id.UserID) (*models.User, error) {
	verr := dErrors.New(dErrors.CodeValidation, "invitation failed validation")
	if _, err := mail.ParseAddress(email); err != nil {
		verr = verr.WithField("email", "a valid email address is required")
	}
	if !role.IsValid() {
		verr = verr.WithField("role", "role must be administrator, editor or registrar")
	}
	if role == models.RoleRegistrar && organisationID.IsNil() {
		verr = verr.WithField("organisation_id", "registrars must belong to an organisation")
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	if name == "" {
		first, last := pkgemail.DeriveNameFromEmail(email)
		name = first + " " + last
	}

	user := models.NewInvited(id.NewUserID(), email, name, role, s.now())
	user.OrganisationID = organisationID
	if err := s.store.Create(ctx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.IncrementInvited()
	s.logAudit(ctx, audit.Event{
		ActorID:   actor,
		Action:    audit.ActionUserInvited,
		Detail:    user.ID.String(),
		Timestamp: user.CreatedAt,
	})
	return user, nil
}

// Confirm links a login identity to a pending invitation. The identifier
// must not be held by another confirmed, non-archived user; the partial
// unique index backs this check against races.
func (s *Service) Confirm(ctx context.Context, userID id.UserID, externalIdentifier string, actor id.UserID) (*models.User, error) {
	if externalIdentifier == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "confirmation failed validation").
			WithField("external_identifier", "external identifier is required")
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := user.CanConfirm(); err != nil {
		return nil, err
	}

	unique, err := s.CheckExternalIdentifierUnique(ctx, externalIdentifier, userID)
	if err != nil {
		return nil, err
	}
	if !unique {
		return nil, dErrors.New(dErrors.CodeConflict, "external identifier is already linked to another user")
	}

	user.ApplyConfirmation(externalIdentifier, s.now())
	if err := s.store.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "external identifier is already linked to another user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm user")
	}

	s.metrics.IncrementConfirmed()
	s.logAudit(ctx, audit.Event{
		ActorID:   actor,
		Action:    audit.ActionUserConfirmed,
		Detail:    user.ID.String(),
		Timestamp: user.UpdatedAt,
	})
	return user, nil
}

// Archive soft-deletes a user. Their external identifier becomes reusable by
// a future confirmation.
func (s *Service) Archive(ctx context.Context, userID id.UserID, actor id.UserID) error {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := user.CanArchive(); err != nil {
		return err
	}

	user.ApplyArchive(s.now())
	if err := s.store.Update(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to archive user")
	}

	s.metrics.IncrementArchived()
	s.logAudit(ctx, audit.Event{
		ActorID:   actor,
		Action:    audit.ActionUserArchived,
		Detail:    user.ID.String(),
		Timestamp: user.UpdatedAt,
	})
	return nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// GetByExternalIdentifier resolves a login identity to its active account.
func (s *Service) GetByExternalIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	user, err := s.store.FindByExternalIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// List returns every user, archived ones included.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// CheckExternalIdentifierUnique reports whether no other confirmed,
// non-archived user holds the identifier. Archived or unconfirmed users with
// the same identifier never block reuse.
func (s *Service) CheckExternalIdentifierUnique(ctx context.Context, identifier string, excluding id.UserID) (bool, error) {
	if identifier == "" {
		return false, dErrors.New(dErrors.CodeInvalidInput, "external identifier cannot be empty")
	}
	inUse, err := s.store.IdentifierInUse(ctx, identifier, excluding)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check external identifier")
	}
	return !inUse, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err.Error(),
		)
	}
}
