package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/somalearn/payclaims/internal/domain"
)

type MethodRepo struct {
	db *sql.DB
}

func NewMethodRepo(db *sql.DB) *MethodRepo {
	return &MethodRepo{db: db}
}

func (r *MethodRepo) Insert(m *domain.PaymentMethod) error {
	_, err := r.db.Exec(
		`INSERT INTO payment_methods
		(id, type, account, display_name, active, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)`,
		m.ID, string(m.Type), m.Account, m.DisplayName, boolToInt(m.Active),
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert payment method: %w", err)
	}
	return nil
}

func (r *MethodRepo) GetByID(id string) (*domain.PaymentMethod, error) {
	row := r.db.QueryRow("SELECT * FROM payment_methods WHERE id = ?", id)
	m, err := scanMethod(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListActive returns the methods currently offered to students.
func (r *MethodRepo) ListActive() ([]domain.PaymentMethod, error) {
	return r.list("SELECT * FROM payment_methods WHERE active = 1 ORDER BY created_at")
}

func (r *MethodRepo) List() ([]domain.PaymentMethod, error) {
	return r.list("SELECT * FROM payment_methods ORDER BY created_at")
}

func (r *MethodRepo) list(query string) ([]domain.PaymentMethod, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var methods []domain.PaymentMethod
	for rows.Next() {
		m, err := scanMethodFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		methods = append(methods, *m)
	}
	return methods, rows.Err()
}

func (r *MethodRepo) Update(m *domain.PaymentMethod) error {
	res, err := r.db.Exec(
		`UPDATE payment_methods
		SET type = ?, account = ?, display_name = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		string(m.Type), m.Account, m.DisplayName, boolToInt(m.Active),
		formatTime(m.UpdatedAt), m.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment method: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MethodRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM payment_methods").Scan(&count)
	return count, err
}

// --- helpers ---

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanMethodFrom(row rowScanner) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	var mtype, createdAt, updatedAt string
	var active int

	err := row.Scan(&m.ID, &mtype, &m.Account, &m.DisplayName, &active,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	m.Type = domain.MethodType(mtype)
	m.Active = active != 0
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &m, nil
}

func scanMethod(row *sql.Row) (*domain.PaymentMethod, error) {
	return scanMethodFrom(row)
}
