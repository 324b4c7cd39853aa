package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the claim workflow. The API layer maps these to HTTP
// status codes; services return them as-is and never swallow them.
var (
	ErrUnauthenticated      = errors.New("no authenticated principal")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrNotFound             = errors.New("payment request not found")
	ErrInvalidTransition    = errors.New("payment request is not pending")
	ErrInvalidPaymentMethod = errors.New("payment method does not exist or is inactive")
)

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// DuplicateClaimError is returned when a pending or verified claim already
// exists for the same (student, course) pair. It carries the existing
// claim's id so callers can show its status instead of resubmitting.
type DuplicateClaimError struct {
	ExistingID string
	Status     ClaimStatus
}

func (e *DuplicateClaimError) Error() string {
	return fmt.Sprintf("an active claim already exists for this course (id=%s, status=%s)",
		e.ExistingID, e.Status)
}

// EnrollmentFailedError reports that a claim was verified but the downstream
// enrollment grant failed. The claim's verified state stands; this error is
// surfaced distinctly so staff can reconcile manually.
type EnrollmentFailedError struct {
	Claim *PaymentRequest
	Err   error
}

func (e *EnrollmentFailedError) Error() string {
	return fmt.Sprintf("claim %s verified but enrollment failed: %v", e.Claim.ID, e.Err)
}

func (e *EnrollmentFailedError) Unwrap() error {
	return e.Err
}
