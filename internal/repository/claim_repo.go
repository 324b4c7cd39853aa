package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/somalearn/payclaims/internal/domain"
)

type ClaimRepo struct {
	db *sql.DB
}

func NewClaimRepo(db *sql.DB) *ClaimRepo {
	return &ClaimRepo{db: db}
}

// Insert creates a new claim. If a pending or verified claim already exists
// for the same (student, course) pair, the partial unique index rejects the
// row and a DuplicateClaimError carrying the existing claim's id is
// returned. The check and the create are one atomic statement.
func (r *ClaimRepo) Insert(c *domain.PaymentRequest) error {
	res, err := r.db.Exec(
		`INSERT OR IGNORE INTO payment_requests
		(id, student_id, course_id, method_id, amount, sender_account,
		 transaction_ref, status, admin_notes, enrollment_error, created_at,
		 expires_at, verified_at, verified_by)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.StudentID, c.CourseID, c.MethodID, c.Amount, c.SenderAccount,
		c.TransactionRef, string(c.Status), c.AdminNotes, c.EnrollmentError,
		formatTime(c.CreatedAt), formatTime(c.ExpiresAt),
		formatNullableTime(c.VerifiedAt), nullableString(c.VerifiedBy),
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	existing, err := r.GetActiveByPair(c.StudentID, c.CourseID)
	if err != nil {
		return fmt.Errorf("lookup conflicting claim: %w", err)
	}
	if existing == nil {
		// The conflicting claim was decided between our insert and the
		// lookup. The caller may simply retry.
		return fmt.Errorf("insert claim: conflict on (%s, %s) but no active claim found",
			c.StudentID, c.CourseID)
	}

	return &domain.DuplicateClaimError{ExistingID: existing.ID, Status: existing.Status}
}

func (r *ClaimRepo) GetByID(id string) (*domain.PaymentRequest, error) {
	row := r.db.QueryRow("SELECT * FROM payment_requests WHERE id = ?", id)
	return scanClaim(row)
}

// GetActiveByPair returns the pending or verified claim for the pair, or
// nil if the pair has no active claim.
func (r *ClaimRepo) GetActiveByPair(studentID, courseID string) (*domain.PaymentRequest, error) {
	row := r.db.QueryRow(
		`SELECT * FROM payment_requests
		WHERE student_id = ? AND course_id = ? AND status IN ('pending','verified')
		LIMIT 1`,
		studentID, courseID,
	)
	c, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

type ClaimFilter struct {
	Status          string
	StudentID       string
	CourseID        string
	MethodID        string
	NeedsEnrollment bool
	Page            int
	Limit           int
}

func (r *ClaimRepo) List(f ClaimFilter) ([]domain.PaymentRequest, int, error) {
	where, args := buildClaimWhere(f)

	var total int
	countSQL := "SELECT COUNT(*) FROM payment_requests" + where
	if err := r.db.QueryRow(countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	querySQL := "SELECT * FROM payment_requests" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var claims []domain.PaymentRequest
	for rows.Next() {
		c, err := scanClaimRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, total, rows.Err()
}

// MarkVerified transitions a claim from pending to verified. Returns false
// when the claim was not pending — a concurrent verify or sweep got there
// first — without touching the row.
func (r *ClaimRepo) MarkVerified(id string, verifiedAt time.Time, verifiedBy, notes string) (bool, error) {
	res, err := r.db.Exec(
		`UPDATE payment_requests
		SET status = ?, verified_at = ?, verified_by = ?, admin_notes = ?
		WHERE id = ? AND status = ?`,
		string(domain.StatusVerified), formatTime(verifiedAt),
		verifiedBy, notes, id, string(domain.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark verified: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkRejected transitions a claim from pending to rejected under the same
// conditional-update guard as MarkVerified.
func (r *ClaimRepo) MarkRejected(id, notes string) (bool, error) {
	res, err := r.db.Exec(
		`UPDATE payment_requests SET status = ?, admin_notes = ? WHERE id = ? AND status = ?`,
		string(domain.StatusRejected), notes, id, string(domain.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark rejected: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ExpireIfPending lazily expires a single stale claim. Used by verify()'s
// staleness check so correctness never depends on sweeper timing.
func (r *ClaimRepo) ExpireIfPending(id string, now time.Time) (bool, error) {
	res, err := r.db.Exec(
		`UPDATE payment_requests SET status = ? WHERE id = ? AND status = ? AND expires_at < ?`,
		string(domain.StatusExpired), id, string(domain.StatusPending),
		formatTime(now),
	)
	if err != nil {
		return false, fmt.Errorf("expire claim: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SweepExpired transitions every pending claim past its window to expired
// and returns how many rows changed. Idempotent: a second run over the same
// data is a no-op.
func (r *ClaimRepo) SweepExpired(now time.Time) (int, error) {
	res, err := r.db.Exec(
		`UPDATE payment_requests SET status = ? WHERE status = ? AND expires_at < ?`,
		string(domain.StatusExpired), string(domain.StatusPending),
		formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

// SetEnrollmentError records a failed enrollment grant on a verified claim.
func (r *ClaimRepo) SetEnrollmentError(id, msg string) error {
	_, err := r.db.Exec(
		`UPDATE payment_requests SET enrollment_error = ? WHERE id = ? AND status = ?`,
		msg, id, string(domain.StatusVerified),
	)
	if err != nil {
		return fmt.Errorf("set enrollment error: %w", err)
	}
	return nil
}

// ClaimStats holds aggregate claim statistics for the staff dashboard.
type ClaimStats struct {
	Total              int
	Pending            int
	Verified           int
	Rejected           int
	Expired            int
	PendingAmount      float64
	VerifiedAmount     float64
	EnrollmentFailures int
}

func (r *ClaimRepo) GetStats() (*ClaimStats, error) {
	s := &ClaimStats{}
	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status='pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status='verified' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status='rejected' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status='expired' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status='pending' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status='verified' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN enrollment_error != '' THEN 1 ELSE 0 END), 0)
		FROM payment_requests
	`).Scan(&s.Total, &s.Pending, &s.Verified, &s.Rejected, &s.Expired,
		&s.PendingAmount, &s.VerifiedAmount, &s.EnrollmentFailures)
	return s, err
}

type MethodVolume struct {
	MethodID       string  `json:"method_id"`
	ClaimCount     int     `json:"claim_count"`
	VerifiedAmount float64 `json:"verified_amount"`
}

func (r *ClaimRepo) GetVolumeByMethod() ([]MethodVolume, error) {
	rows, err := r.db.Query(`
		SELECT method_id, COUNT(*),
			COALESCE(SUM(CASE WHEN status='verified' THEN amount ELSE 0 END), 0)
		FROM payment_requests GROUP BY method_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MethodVolume
	for rows.Next() {
		var mv MethodVolume
		if err := rows.Scan(&mv.MethodID, &mv.ClaimCount, &mv.VerifiedAmount); err != nil {
			return nil, err
		}
		result = append(result, mv)
	}
	return result, rows.Err()
}

// --- helpers ---

func buildClaimWhere(f ClaimFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.StudentID != "" {
		clauses = append(clauses, "student_id = ?")
		args = append(args, f.StudentID)
	}
	if f.CourseID != "" {
		clauses = append(clauses, "course_id = ?")
		args = append(args, f.CourseID)
	}
	if f.MethodID != "" {
		clauses = append(clauses, "method_id = ?")
		args = append(args, f.MethodID)
	}
	if f.NeedsEnrollment {
		clauses = append(clauses, "enrollment_error != ''")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Timestamps are stored as RFC3339 in UTC so that string comparison in SQL
// matches chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaimFrom(row rowScanner) (*domain.PaymentRequest, error) {
	var c domain.PaymentRequest
	var status, createdAt, expiresAt string
	var verifiedAtNull, verifiedByNull sql.NullString

	err := row.Scan(
		&c.ID, &c.StudentID, &c.CourseID, &c.MethodID, &c.Amount,
		&c.SenderAccount, &c.TransactionRef, &status, &c.AdminNotes,
		&c.EnrollmentError, &createdAt, &expiresAt,
		&verifiedAtNull, &verifiedByNull,
	)
	if err != nil {
		return nil, err
	}

	c.Status = domain.ClaimStatus(status)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)

	if verifiedAtNull.Valid {
		t, _ := time.Parse(time.RFC3339, verifiedAtNull.String)
		c.VerifiedAt = &t
	}
	if verifiedByNull.Valid {
		c.VerifiedBy = verifiedByNull.String
	}

	return &c, nil
}

func scanClaim(row *sql.Row) (*domain.PaymentRequest, error) {
	return scanClaimFrom(row)
}

func scanClaimRows(rows *sql.Rows) (*domain.PaymentRequest, error) {
	return scanClaimFrom(rows)
}
