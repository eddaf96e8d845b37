package storage

import (
	"context"
	"time"
)

// AttemptRecord is one journaled trigger attempt.
type AttemptRecord struct {
	RequestID   string
	ItemName    string
	ItemDir     string
	Attempt     int
	StatusCode  int
	Error       string
	Outcome     string // state the notifier moved to after this attempt
	AttemptedAt time.Time
}

type AttemptWriteRepository interface {
	RecordAttempt(ctx context.Context, rec AttemptRecord) error
}

// AttemptPruner removes journal rows older than a cutoff.
type AttemptPruner interface {
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type AttemptReadRepository interface {
	GetAttempts(ctx context.Context, requestID string) ([]AttemptRecord, error)
	GetRecentAttempts(ctx context.Context, limit int) ([]AttemptRecord, error)
}

type AttemptRepository interface {
	AttemptWriteRepository
	AttemptReadRepository
	AttemptPruner
}
