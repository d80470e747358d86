// Package audit records per-recipient delivery outcomes in Postgres.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"intake-notifications/internal/common/database"
	"intake-notifications/internal/common/errors"
	"intake-notifications/internal/models"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS notification_deliveries (
	id BIGSERIAL PRIMARY KEY,
	submission_id TEXT NOT NULL,
	recipient TEXT NOT NULL,
	delivered BOOLEAN NOT NULL,
	error_code TEXT,
	error_detail TEXT,
	attempted_at TIMESTAMPTZ NOT NULL
)`

const insertSQL = `INSERT INTO notification_deliveries
	(submission_id, recipient, delivered, error_code, error_detail, attempted_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

const recentSQL = `SELECT submission_id, recipient, delivered, COALESCE(error_code, ''), COALESCE(error_detail, ''), attempted_at
	FROM notification_deliveries
	WHERE submission_id = $1
	ORDER BY id`

// Entry is one stored delivery row.
type Entry struct {
	SubmissionID string
	models.RecipientOutcome
	AttemptedAt time.Time
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the deliveries table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create notification_deliveries: %w", err)
	}
	return nil
}

// Record writes every outcome of one dispatch in a single transaction.
func (s *Store) Record(ctx context.Context, submissionID string, result models.DispatchResult, at time.Time) error {
	if len(result.Outcomes) == 0 {
		return nil
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, o := range result.Outcomes {
			if _, err := stmt.ExecContext(ctx,
				submissionID, o.Recipient, o.Delivered,
				nullable(o.ErrorCode), nullable(o.ErrorDetail), at.UTC(),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.NewAuditWriteFailedError(err)
	}
	return nil
}

// ForSubmission returns the stored outcomes for a submission in insertion order.
func (s *Store) ForSubmission(ctx context.Context, submissionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, recentSQL, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.SubmissionID, &e.Recipient, &e.Delivered, &e.ErrorCode, &e.ErrorDetail, &e.AttemptedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
