package domain

import "time"

type ClaimStatus string

const (
	StatusPending  ClaimStatus = "pending"
	StatusVerified ClaimStatus = "verified"
	StatusRejected ClaimStatus = "rejected"
	StatusExpired  ClaimStatus = "expired"
)

// PaymentRequest is a student's self-reported record of a mobile-money
// transfer, awaiting staff confirmation. Pending is the only non-terminal
// status; no transition ever leaves verified, rejected or expired.
type PaymentRequest struct {
	ID             string      `json:"id"`
	StudentID      string      `json:"student_id"`
	CourseID       string      `json:"course_id"`
	MethodID       string      `json:"method_id"`
	Amount         float64     `json:"amount"`
	SenderAccount  string      `json:"sender_account"`
	TransactionRef string      `json:"transaction_ref"`
	Status         ClaimStatus `json:"status"`
	AdminNotes     string      `json:"admin_notes,omitempty"`
	// EnrollmentError is set on a verified claim whose course-access grant
	// failed downstream. The claim stays verified; staff reconcile manually.
	EnrollmentError string     `json:"enrollment_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	VerifiedBy      string     `json:"verified_by,omitempty"`
}

// ExpiredAt reports whether the claim's validity window has passed at the
// given instant. A pending claim past its window counts as expired even if
// the sweeper has not yet updated the row.
func (c *PaymentRequest) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
