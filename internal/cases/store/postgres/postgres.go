// Package postgres provides the durable case store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"acip/internal/cases"
	"acip/internal/decision"
	"acip/internal/sentinel"
	"acip/internal/workflow"
)

// Store persists cases in Postgres.
type Store struct {
	db *sql.DB
}

// New creates a Postgres case store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Put inserts or replaces the case.
func (s *Store) Put(ctx context.Context, c cases.Case) error {
	if c.CaseID == "" {
		return sentinel.ErrInvalidInput
	}

	const query = `
		INSERT INTO cases (case_id, instance_id, customer_id, customer_name, document_ref,
			state, risk_level, deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (case_id) DO UPDATE SET
			instance_id = EXCLUDED.instance_id,
			state = EXCLUDED.state,
			risk_level = EXCLUDED.risk_level,
			updated_at = EXCLUDED.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		c.CaseID,
		c.InstanceID,
		c.CustomerID,
		c.CustomerName,
		c.DocumentRef,
		string(c.State),
		string(c.RiskLevel),
		c.Deadline,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put case: %w", err)
	}
	return nil
}

// Get returns the case by ID.
func (s *Store) Get(ctx context.Context, caseID string) (*cases.Case, error) {
	const query = `
		SELECT case_id, instance_id, customer_id, customer_name, document_ref,
			state, risk_level, deadline, created_at, updated_at
		FROM cases WHERE case_id = $1`

	c, err := scanCase(s.db.QueryRowContext(ctx, query, caseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}
	return c, nil
}

// List returns all cases, newest first.
func (s *Store) List(ctx context.Context) ([]cases.Case, error) {
	const query = `
		SELECT case_id, instance_id, customer_id, customer_name, document_ref,
			state, risk_level, deadline, created_at, updated_at
		FROM cases ORDER BY created_at DESC, case_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []cases.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(row scanner) (*cases.Case, error) {
	var c cases.Case
	var state, riskLevel string
	err := row.Scan(
		&c.CaseID,
		&c.InstanceID,
		&c.CustomerID,
		&c.CustomerName,
		&c.DocumentRef,
		&state,
		&riskLevel,
		&c.Deadline,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.State = workflow.State(state)
	c.RiskLevel = decision.RiskLevel(riskLevel)
	return &c, nil
}
