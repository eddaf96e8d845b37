package cleanup_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/italolelis/organizer_hook/internal/cleanup"
	"github.com/italolelis/organizer_hook/internal/storage"
	"github.com/italolelis/organizer_hook/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPruner struct{}

func (failingPruner) DeleteAttemptsBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestPruneJournal(t *testing.T) {
	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	repo := sqlite.NewAttemptRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.RecordAttempt(ctx, storage.AttemptRecord{RequestID: "old", Attempt: 1, Outcome: "acknowledged", AttemptedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, repo.RecordAttempt(ctx, storage.AttemptRecord{RequestID: "new", Attempt: 1, Outcome: "acknowledged", AttemptedAt: time.Now()}))

	require.NoError(t, cleanup.PruneJournal(ctx, repo, 24*time.Hour))

	records, err := repo.GetRecentAttempts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].RequestID)
}

func TestPruneJournal_Disabled(t *testing.T) {
	assert.NoError(t, cleanup.PruneJournal(context.Background(), failingPruner{}, 0))
}

func TestPruneJournal_Error(t *testing.T) {
	err := cleanup.PruneJournal(context.Background(), failingPruner{}, time.Hour)
	assert.ErrorContains(t, err, "database is locked")
}
