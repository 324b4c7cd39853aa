package repository

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	// busy_timeout must be set on every pooled connection, not just the one
	// that happens to run the Exec below, so it goes in the DSN as well.
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=busy_timeout(5000)"
	} else {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Concurrent submitters and the sweeper contend for the write lock;
	// wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS payment_methods (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			account TEXT NOT NULL,
			display_name TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_methods_active ON payment_methods(active)`,

		`CREATE TABLE IF NOT EXISTS payment_requests (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL,
			course_id TEXT NOT NULL,
			method_id TEXT NOT NULL,
			amount REAL NOT NULL,
			sender_account TEXT NOT NULL,
			transaction_ref TEXT NOT NULL,
			status TEXT NOT NULL,
			admin_notes TEXT NOT NULL DEFAULT '',
			enrollment_error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			verified_at DATETIME,
			verified_by TEXT,
			FOREIGN KEY (method_id) REFERENCES payment_methods(id)
		)`,
		// At most one pending-or-verified claim per (student, course). This
		// index is what makes the duplicate guard atomic: a concurrent
		// second insert loses at the engine, not at an application check.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_requests_active_pair
			ON payment_requests(student_id, course_id)
			WHERE status IN ('pending','verified')`,
		`CREATE INDEX IF NOT EXISTS idx_payment_requests_status ON payment_requests(status)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_requests_student ON payment_requests(student_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_requests_expires_at ON payment_requests(expires_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
