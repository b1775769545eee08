package models

import dErrors "profreg/pkg/domain-errors"

// VersionStatus is the closed lifecycle state of a version. It replaces the
// pair of confirmed/archived booleans the data model started with, so illegal
// combinations are unrepresentable.
type VersionStatus string

const (
	// StatusDraft marks a version still being edited. Not publicly visible.
	StatusDraft VersionStatus = "draft"
	// StatusConfirmed marks the single live, publicly visible version of an
	// entity.
	StatusConfirmed VersionStatus = "confirmed"
	// StatusArchived marks a superseded or withdrawn version. Terminal.
	StatusArchived VersionStatus = "archived"
)

// legalTransitions is the single source of truth for the state machine:
// draft -> confirmed (publish), confirmed -> archived (superseded/withdrawn).
// draft -> archived is deliberately absent: drafts are discarded, not archived.
var legalTransitions = map[VersionStatus][]VersionStatus{
	StatusDraft:     {StatusConfirmed},
	StatusConfirmed: {StatusArchived},
	StatusArchived:  {},
}

// CanTransitionTo reports whether moving to target is a legal transition.
func (s VersionStatus) CanTransitionTo(target VersionStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsValid checks the status is one of the supported enum values.
func (s VersionStatus) IsValid() bool {
	_, ok := legalTransitions[s]
	return ok
}

// ParseVersionStatus constructs a VersionStatus from external input (storage
// rows, request payloads).
func ParseVersionStatus(raw string) (VersionStatus, error) {
	s := VersionStatus(raw)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid version status")
	}
	return s, nil
}

func (s VersionStatus) String() string {
	return string(s)
}
