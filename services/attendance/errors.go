package attendance

import (
	"fmt"

	"geoattend_go/models"
)

// NotFoundError covers absent students/locations/records and records that do
// not belong to the caller (existence is not revealed to non-owners).
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// AuthzError is returned when an authenticated actor is not allowed to touch
// the record, e.g. a professor overriding another professor's class.
type AuthzError struct {
	Message string
}

func (e *AuthzError) Error() string {
	return e.Message
}

// PolicyError is a rejected check-in/check-out attempt. Reason names the
// exact rule that fired; Snapshot carries every evaluated signal so the
// client can explain the rejection to the end user. Both are part of the API
// contract, not incidental logging.
type PolicyError struct {
	Reason   string
	Snapshot *models.ValidationSnapshot
}

func (e *PolicyError) Error() string {
	return e.Reason
}

// ConflictError signals a duplicate that could not be reconciled to an
// idempotent success.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func notFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

func policyRejected(snapshot models.ValidationSnapshot, format string, args ...interface{}) error {
	snap := snapshot
	return &PolicyError{Reason: fmt.Sprintf(format, args...), Snapshot: &snap}
}
