package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/italolelis/organizer_hook/internal/logctx"
	"github.com/italolelis/organizer_hook/internal/storage"
)

// PruneJournal deletes journaled attempts older than keepDuration. A zero or
// negative keepDuration keeps everything.
func PruneJournal(ctx context.Context, pruner storage.AttemptPruner, keepDuration time.Duration) error {
	if keepDuration <= 0 {
		return nil
	}

	logger := logctx.LoggerFromContext(ctx)
	cutoff := time.Now().Add(-keepDuration)

	deleted, err := pruner.DeleteAttemptsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune attempt journal: %w", err)
	}

	if deleted > 0 {
		logger.DebugContext(ctx, "pruned expired journal entries", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}

	return nil
}
