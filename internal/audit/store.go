package audit

import (
	"database/sql"
	"fmt"
	"time"

	"festival-ticketing/internal/logger"

	_ "github.com/lib/pq"
)

// SideEffectFailure records a ticket-issuance or email failure that
// happened after a payment status was already committed. The status change
// is never rolled back; these rows feed the admin dashboard and the repair
// endpoint clears them.
type SideEffectFailure struct {
	ID          int64     `json:"id"`
	OrderNumber string    `json:"order_number"`
	Kind        string    `json:"kind"` // "tickets" or "email"
	Detail      string    `json:"detail"`
	Resolved    bool      `json:"resolved"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store struct {
	db  *sql.DB
	log *logger.Logger
}

func NewStore(db *sql.DB, log *logger.Logger) (*Store, error) {
	store := &Store{db: db, log: log}
	if err := store.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit tables: %w", err)
	}
	return store, nil
}

func (s *Store) initTables() error {
	query := `
    CREATE TABLE IF NOT EXISTS side_effect_failures (
        id BIGSERIAL PRIMARY KEY,
        order_number VARCHAR(64) NOT NULL,
        kind VARCHAR(20) NOT NULL,
        detail TEXT,
        resolved BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    `
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create side_effect_failures table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_sef_order_number ON side_effect_failures(order_number);"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Record inserts a failure row. Errors here are logged and swallowed by
// callers; an audit failure must never escalate past the log.
func (s *Store) Record(orderNumber, kind, detail string) error {
	query := `
    INSERT INTO side_effect_failures (order_number, kind, detail)
    VALUES ($1, $2, $3)
    `
	if _, err := s.db.Exec(query, orderNumber, kind, detail); err != nil {
		s.log.Error("AUDIT", fmt.Sprintf("failed to record side effect failure for %s: %v", orderNumber, err))
		return fmt.Errorf("failed to record side effect failure: %w", err)
	}
	return nil
}

// ListUnresolved returns open failures for the admin dashboard.
func (s *Store) ListUnresolved(limit int) ([]SideEffectFailure, error) {
	query := `
    SELECT id, order_number, kind, detail, resolved, created_at
    FROM side_effect_failures
    WHERE resolved = FALSE
    ORDER BY created_at DESC
    LIMIT $1
    `
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list side effect failures: %w", err)
	}
	defer rows.Close()

	var failures []SideEffectFailure
	for rows.Next() {
		var f SideEffectFailure
		if err := rows.Scan(&f.ID, &f.OrderNumber, &f.Kind, &f.Detail, &f.Resolved, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan side effect failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// Resolve marks all open failures for an order as handled, typically after
// a successful repair.
func (s *Store) Resolve(orderNumber string) error {
	query := `
    UPDATE side_effect_failures SET resolved = TRUE
    WHERE order_number = $1 AND resolved = FALSE
    `
	if _, err := s.db.Exec(query, orderNumber); err != nil {
		return fmt.Errorf("failed to resolve side effect failures: %w", err)
	}
	return nil
}
