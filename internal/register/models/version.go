package models

import (
	"time"

	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
	pstrings "profreg/pkg/platform/strings"
)

// Payload is the versioned data of an entity. It is treated as immutable once
// the owning version leaves draft status.
//
// Professions use Industries, RegulationType, QualificationID and
// OrganisationIDs; organisations use the contact fields. Both share Name,
// Description and Nations.
type Payload struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Nations        []string `json:"nations"`
	Industries     []string `json:"industries"`
	RegulationType string   `json:"regulation_type"`
	Registration   string   `json:"registration"`

	// QualificationID references this version's qualification record.
	// Exactly one per version; cloning a version clones the reference, the
	// service allocates a fresh qualification for the new draft.
	QualificationID id.QualificationID `json:"qualification_id"`

	// OrganisationIDs reference the regulating organisations by entity ID.
	// Referenced, never owned: their lifetime belongs to the organisation
	// aggregate.
	OrganisationIDs []id.EntityID `json:"organisation_ids"`

	ContactEmail string `json:"contact_email"`
	ContactURL   string `json:"contact_url"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
}

// clone deep-copies the payload. Slices are copied by value so a draft never
// aliases the mutable fields of its basis version.
func (p Payload) clone() Payload {
	out := p
	out.Nations = append([]string(nil), p.Nations...)
	out.Industries = append([]string(nil), p.Industries...)
	out.OrganisationIDs = append([]id.EntityID(nil), p.OrganisationIDs...)
	return out
}

// Patch carries a partial payload update. Nil fields are left unchanged.
type Patch struct {
	Name           *string   `json:"name,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Nations        *[]string `json:"nations,omitempty"`
	Industries     *[]string `json:"industries,omitempty"`
	RegulationType *string   `json:"regulation_type,omitempty"`
	Registration   *string   `json:"registration,omitempty"`

	OrganisationIDs *[]id.EntityID `json:"organisation_ids,omitempty"`

	ContactEmail *string `json:"contact_email,omitempty"`
	ContactURL   *string `json:"contact_url,omitempty"`
	Address      *string `json:"address,omitempty"`
	Phone        *string `json:"phone,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Nations == nil &&
		p.Industries == nil && p.RegulationType == nil && p.Registration == nil &&
		p.OrganisationIDs == nil && p.ContactEmail == nil && p.ContactURL == nil &&
		p.Address == nil && p.Phone == nil
}

// Version is one snapshot of an entity's data plus its lifecycle status. The
// payload is immutable outside draft status; only Status (and UpdatedAt while
// drafting) ever change after creation.
//
// Invariants:
//   - EntityID is immutable after creation
//   - Slug is empty until confirmation, then fixed for the life of the version
//   - UpdatedAt is bumped on every payload mutation while Status is draft
//   - Status only moves along VersionStatus.CanTransitionTo
type Version struct {
	ID        id.VersionID  `json:"id"`
	EntityID  id.EntityID   `json:"entity_id"`
	Status    VersionStatus `json:"status"`
	Slug      string        `json:"slug,omitempty"`
	Payload   Payload       `json:"payload"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewDraft creates an empty draft version for an entity.
func NewDraft(versionID id.VersionID, entityID id.EntityID, now time.Time) *Version {
	return &Version{
		ID:        versionID,
		EntityID:  entityID,
		Status:    StatusDraft,
		Payload:   Payload{QualificationID: id.NewQualificationID()},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CloneAsDraft deep-copies this version's payload into a new draft with a
// fresh identifier and its own qualification record. The slug is not carried
// over; it is reassigned at confirmation.
func (v *Version) CloneAsDraft(versionID id.VersionID, now time.Time) *Version {
	payload := v.Payload.clone()
	payload.QualificationID = id.NewQualificationID()
	return &Version{
		ID:        versionID,
		EntityID:  v.EntityID,
		Status:    StatusDraft,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanEdit checks the version accepts payload mutations.
func (v *Version) CanEdit() error {
	if v.Status != StatusDraft {
		return dErrors.New(dErrors.CodeInvalidState, "only draft versions can be edited")
	}
	return nil
}

// ApplyPatch merges non-nil patch fields into the payload and bumps UpdatedAt.
// Call CanEdit first; ApplyPatch assumes draft status.
func (v *Version) ApplyPatch(patch Patch, now time.Time) {
	if patch.Name != nil {
		v.Payload.Name = *patch.Name
	}
	if patch.Description != nil {
		v.Payload.Description = *patch.Description
	}
	if patch.Nations != nil {
		v.Payload.Nations = pstrings.DedupeAndTrimLower(*patch.Nations)
	}
	if patch.Industries != nil {
		v.Payload.Industries = pstrings.DedupeAndTrimLower(*patch.Industries)
	}
	if patch.RegulationType != nil {
		v.Payload.RegulationType = *patch.RegulationType
	}
	if patch.Registration != nil {
		v.Payload.Registration = *patch.Registration
	}
	if patch.OrganisationIDs != nil {
		v.Payload.OrganisationIDs = append([]id.EntityID(nil), (*patch.OrganisationIDs)...)
	}
	if patch.ContactEmail != nil {
		v.Payload.ContactEmail = *patch.ContactEmail
	}
	if patch.ContactURL != nil {
		v.Payload.ContactURL = *patch.ContactURL
	}
	if patch.Address != nil {
		v.Payload.Address = *patch.Address
	}
	if patch.Phone != nil {
		v.Payload.Phone = *patch.Phone
	}
	v.UpdatedAt = now
}

// CanDiscard checks the version may be hard-deleted. Only never-confirmed
// drafts qualify; everything else stays for the audit trail.
func (v *Version) CanDiscard() error {
	if v.Status != StatusDraft {
		return dErrors.New(dErrors.CodeInvalidState, "only draft versions can be discarded")
	}
	return nil
}

// CanConfirm checks the publish transition is legal and the payload carries
// the fields required for publication. Field problems are reported together
// so the boundary can surface them as form feedback.
func (v *Version) CanConfirm() error {
	if !v.Status.CanTransitionTo(StatusConfirmed) {
		return dErrors.New(dErrors.CodeInvalidState, "only draft versions can be published")
	}
	if v.Payload.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "version is not ready to publish").
			WithField("name", "name is required")
	}
	return nil
}

// ApplyConfirmation transitions the version to confirmed with its assigned
// slug. Call CanConfirm first.
func (v *Version) ApplyConfirmation(slug string, now time.Time) {
	v.Status = StatusConfirmed
	v.Slug = slug
	v.UpdatedAt = now
}

// CanArchive checks the version can be superseded or withdrawn.
func (v *Version) CanArchive() error {
	if !v.Status.CanTransitionTo(StatusArchived) {
		return dErrors.New(dErrors.CodeInvalidState, "only confirmed versions can be archived")
	}
	return nil
}

// ApplyArchive transitions the version to archived. Call CanArchive first.
func (v *Version) ApplyArchive(now time.Time) {
	v.Status = StatusArchived
	v.UpdatedAt = now
}
