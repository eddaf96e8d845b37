package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/italolelis/organizer_hook/internal/cleanup"
	"github.com/italolelis/organizer_hook/internal/config"
	"github.com/italolelis/organizer_hook/internal/hook"
	"github.com/italolelis/organizer_hook/internal/logctx"
	"github.com/italolelis/organizer_hook/internal/notifier"
	"github.com/italolelis/organizer_hook/internal/storage/sqlite"
	"github.com/italolelis/organizer_hook/internal/svc/organizer"
	"github.com/italolelis/organizer_hook/internal/telemetry"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitNotAcknowledged = 1
	ExitConfigError     = 2
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(ExitConfigError)
	}

	logger := slog.New(logctx.NewTraceHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	ctx = logctx.WithLogger(ctx, logger)

	code := exitCode(ctx, run(ctx, cfg), cfg.Notify.SoftFail)

	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config) error {
	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}

	defer shutdownTelemetry(ctx, tel)

	ctx = logctx.WithRequestID(ctx, uuid.New().String())

	logger := logctx.LoggerFromContext(ctx).With(
		"torrent_name", cfg.Torrent.Name,
		"torrent_dir", cfg.Torrent.Dir,
	)
	if cfg.Torrent.Hash != "" {
		logger = logger.With("torrent_hash", cfg.Torrent.Hash)
	}

	ctx = logctx.WithLogger(ctx, logger)

	logger.InfoContext(ctx, "download completed, notifying organizer",
		"organizer_url", cfg.OrganizerURL,
		"max_attempts", cfg.Notify.MaxAttempts,
	)

	// =========================================================================
	// Start Journal
	opts := []hook.Option{hook.WithTelemetry(tel)}

	var journal *sqlite.InstrumentedAttemptRepository

	if cfg.HistoryDBPath != "" {
		database, err := sqlite.InitDB(cfg.HistoryDBPath)
		if err != nil {
			logger.WarnContext(ctx, "attempt journal unavailable, continuing without it", "db_path", cfg.HistoryDBPath, "err", err)
		} else {
			defer database.Close()

			journal = sqlite.NewInstrumentedAttemptRepository(database, tel)
			opts = append(opts, hook.WithJournal(journal))
		}
	}

	// =========================================================================
	// Notify Organizer
	client := organizer.NewClient(cfg.OrganizerURL,
		organizer.WithTimeout(cfg.Notify.RequestTimeout),
		organizer.WithTransport(tel.HTTPTransport(nil)),
		organizer.WithItemHeaders(cfg.Notify.IncludeItem),
	)

	policy := hook.Policy{
		MaxAttempts: cfg.Notify.MaxAttempts,
		BackoffStep: cfg.Notify.BackoffStep,
	}

	event := hook.Event{
		Dir:  cfg.Torrent.Dir,
		Name: cfg.Torrent.Name,
		ID:   cfg.Torrent.ID,
		Hash: cfg.Torrent.Hash,
	}

	res, err := hook.New(client, policy, opts...).Notify(ctx, event)

	if journal != nil {
		if pruneErr := cleanup.PruneJournal(context.WithoutCancel(ctx), journal, cfg.HistoryRetention); pruneErr != nil {
			logger.WarnContext(ctx, "failed to prune attempt journal", "err", pruneErr)
		}
	}

	if err != nil {
		var exhausted *hook.ExhaustedError
		if errors.As(err, &exhausted) {
			sendExhaustionAlert(ctx, cfg, event, exhausted)
		}

		return err
	}

	logger.InfoContext(ctx, "organizer notified", "attempts", len(res.Attempts))

	return nil
}

// exitCode maps the outcome of run to the process exit status. Exhaustion
// is a failure unless soft fail is enabled.
func exitCode(ctx context.Context, err error, softFail bool) int {
	logger := logctx.LoggerFromContext(ctx)

	if err == nil {
		return ExitSuccess
	}

	var exhausted *hook.ExhaustedError
	if errors.As(err, &exhausted) && softFail {
		logger.WarnContext(ctx, "organizer did not acknowledge, exiting successfully because soft fail is enabled", "err", err)

		return ExitSuccess
	}

	logger.ErrorContext(ctx, "fatal error", "err", err)

	return ExitNotAcknowledged
}

func shutdownTelemetry(ctx context.Context, tel *telemetry.Telemetry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := tel.Shutdown(ctx); err != nil {
		logctx.LoggerFromContext(ctx).ErrorContext(ctx, "failed to flush telemetry", "err", err)
	}
}

func sendExhaustionAlert(ctx context.Context, cfg *config.Config, event hook.Event, exhausted *hook.ExhaustedError) {
	if cfg.DiscordWebhookURL == "" {
		return
	}

	logger := logctx.LoggerFromContext(ctx)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	var notif notifier.Notifier = notifier.NewDiscordNotifier(cfg.DiscordWebhookURL)

	if err := notif.Notify(ctx, exhaustionMessage(event, exhausted)); err != nil {
		logger.ErrorContext(ctx, "failed to send notification", "err", err)
	}
}
