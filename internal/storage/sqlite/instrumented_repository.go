package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/italolelis/organizer_hook/internal/storage"
	"github.com/italolelis/organizer_hook/internal/telemetry"
)

// InstrumentedAttemptRepository wraps AttemptRepository with telemetry.
type InstrumentedAttemptRepository struct {
	repo      *AttemptRepository
	telemetry *telemetry.Telemetry
}

// NewInstrumentedAttemptRepository creates a new instrumented attempt repository.
func NewInstrumentedAttemptRepository(dbConn *sql.DB, tel *telemetry.Telemetry) *InstrumentedAttemptRepository {
	return &InstrumentedAttemptRepository{
		repo:      NewAttemptRepository(dbConn),
		telemetry: tel,
	}
}

var _ storage.AttemptRepository = (*InstrumentedAttemptRepository)(nil)

// RecordAttempt journals an attempt with telemetry.
func (r *InstrumentedAttemptRepository) RecordAttempt(ctx context.Context, rec storage.AttemptRecord) error {
	return r.telemetry.InstrumentDBOperation(ctx, "record_attempt", func(ctx context.Context) error {
		return r.repo.RecordAttempt(ctx, rec)
	})
}

// GetAttempts retrieves the attempts of one invocation with telemetry.
func (r *InstrumentedAttemptRepository) GetAttempts(ctx context.Context, requestID string) ([]storage.AttemptRecord, error) {
	var result []storage.AttemptRecord

	err := r.telemetry.InstrumentDBOperation(ctx, "get_attempts", func(ctx context.Context) error {
		var err error
		result, err = r.repo.GetAttempts(ctx, requestID)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetRecentAttempts retrieves the latest attempts with telemetry.
func (r *InstrumentedAttemptRepository) GetRecentAttempts(ctx context.Context, limit int) ([]storage.AttemptRecord, error) {
	var result []storage.AttemptRecord

	err := r.telemetry.InstrumentDBOperation(ctx, "get_recent_attempts", func(ctx context.Context) error {
		var err error
		result, err = r.repo.GetRecentAttempts(ctx, limit)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteAttemptsBefore prunes old attempts with telemetry.
func (r *InstrumentedAttemptRepository) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64

	err := r.telemetry.InstrumentDBOperation(ctx, "delete_attempts_before", func(ctx context.Context) error {
		var err error
		deleted, err = r.repo.DeleteAttemptsBefore(ctx, cutoff)

		return err
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}
