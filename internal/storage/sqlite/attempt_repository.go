package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/italolelis/organizer_hook/internal/storage"
)

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type AttemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(dbConn *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: dbConn}
}

var _ storage.AttemptRepository = (*AttemptRepository)(nil)

func (r *AttemptRepository) RecordAttempt(ctx context.Context, rec storage.AttemptRecord) error {
	if rec.AttemptedAt.IsZero() {
		rec.AttemptedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notify_attempts (request_id, item_name, item_dir, attempt, status_code, error, outcome, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.ItemName, rec.ItemDir, rec.Attempt, rec.StatusCode, rec.Error, rec.Outcome,
		rec.AttemptedAt.UTC().Format(timeLayout),
	)

	return err
}

// GetAttempts returns the attempts of one invocation in ordinal order.
func (r *AttemptRepository) GetAttempts(ctx context.Context, requestID string) ([]storage.AttemptRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT request_id, item_name, item_dir, attempt, status_code, error, outcome, attempted_at
		FROM notify_attempts
		WHERE request_id = ?
		ORDER BY attempt`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// GetRecentAttempts returns the latest attempts across invocations, newest first.
func (r *AttemptRepository) GetRecentAttempts(ctx context.Context, limit int) ([]storage.AttemptRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT request_id, item_name, item_dir, attempt, status_code, error, outcome, attempted_at
		FROM notify_attempts
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// DeleteAttemptsBefore removes attempts recorded before cutoff and returns how many were deleted.
func (r *AttemptRepository) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notify_attempts WHERE attempted_at < ?`,
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func scanAttempts(rows *sql.Rows) ([]storage.AttemptRecord, error) {
	var records []storage.AttemptRecord

	for rows.Next() {
		var (
			rec         storage.AttemptRecord
			itemName    sql.NullString
			itemDir     sql.NullString
			statusCode  sql.NullInt64
			errMsg      sql.NullString
			attemptedAt string
		)

		if err := rows.Scan(&rec.RequestID, &itemName, &itemDir, &rec.Attempt, &statusCode, &errMsg, &rec.Outcome, &attemptedAt); err != nil {
			return nil, err
		}

		rec.ItemName = itemName.String
		rec.ItemDir = itemDir.String
		rec.StatusCode = int(statusCode.Int64)
		rec.Error = errMsg.String

		if t, err := time.Parse(timeLayout, attemptedAt); err == nil {
			rec.AttemptedAt = t
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}
