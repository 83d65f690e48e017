// Package postgres provides the durable audit store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"acip/internal/audit"
	"acip/internal/sentinel"
)

// Store persists audit entries in Postgres.
type Store struct {
	db *sql.DB
}

// New creates a Postgres audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts the entry with the next per-case sequence number.
// The sequence is assigned inside the insert so concurrent appends for the
// same case cannot collide; the unique index makes a lost race retryable.
func (s *Store) Append(ctx context.Context, entry audit.Entry) (*audit.Entry, error) {
	if entry.CaseID == "" {
		return nil, sentinel.ErrInvalidInput
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	const query = `
		INSERT INTO audit_entries (case_id, sequence, created_at, step, actor, state, snapshot)
		SELECT $1, COALESCE(MAX(sequence), 0) + 1, $2, $3, $4, $5, $6
		FROM audit_entries WHERE case_id = $1
		RETURNING sequence`

	var snapshot any
	if entry.Snapshot != nil {
		snapshot = []byte(entry.Snapshot)
	}

	err := s.db.QueryRowContext(ctx, query,
		entry.CaseID,
		entry.Timestamp,
		entry.Step,
		entry.Actor,
		entry.State,
		snapshot,
	).Scan(&entry.Sequence)
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	return &entry, nil
}

// List returns the ordered entries for a case.
func (s *Store) List(ctx context.Context, caseID string) ([]audit.Entry, error) {
	const query = `
		SELECT sequence, created_at, step, actor, state, snapshot
		FROM audit_entries
		WHERE case_id = $1
		ORDER BY sequence`

	rows, err := s.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []audit.Entry
	for rows.Next() {
		entry := audit.Entry{CaseID: caseID}
		var snapshot []byte
		if err := rows.Scan(&entry.Sequence, &entry.Timestamp, &entry.Step, &entry.Actor, &entry.State, &snapshot); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if snapshot != nil {
			entry.Snapshot = snapshot
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}
