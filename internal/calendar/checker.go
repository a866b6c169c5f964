// Package calendar consults an external calendar provider for secondary
// conflict information. The provider is advisory: a failure here must never
// block the primary booking flow, so every failure mode is reported as an
// Indeterminate outcome for the caller to resolve fail-open.
package calendar

import (
	"context"
	"time"

	"slotly/pkg/model"
)

type Outcome int

const (
	OutcomeNoConflict Outcome = iota
	OutcomeConflict
	OutcomeIndeterminate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoConflict:
		return "no_conflict"
	case OutcomeConflict:
		return "conflict"
	default:
		return "indeterminate"
	}
}

// FailureReason distinguishes the indeterminate sub-kinds for diagnostics.
// The policy outcome is the same for all of them.
type FailureReason string

const (
	ReasonCredentialExpired FailureReason = "credential_expired"
	ReasonPermissionDenied  FailureReason = "permission_denied"
	ReasonProviderError     FailureReason = "provider_error"
)

// Result is the tagged outcome of an external conflict check.
type Result struct {
	Outcome Outcome
	Events  []model.ExternalEvent
	Reason  FailureReason
	Err     error
}

// ConflictChecker is the adapter contract the booking validator consumes.
// Implementations must honor ctx cancellation and deadlines.
type ConflictChecker interface {
	Check(ctx context.Context, cred model.Credential, start, end time.Time) Result
}
