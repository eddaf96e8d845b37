package hook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/italolelis/organizer_hook/internal/logctx"
	"github.com/italolelis/organizer_hook/internal/storage"
	"github.com/italolelis/organizer_hook/internal/svc/organizer"
	"github.com/italolelis/organizer_hook/internal/telemetry"
)

// Trigger performs a single scan trigger against the organizer.
type Trigger interface {
	TriggerScan(ctx context.Context, item organizer.Item) (int, error)
}

// Notifier tells the organizer that a download completed, retrying with
// linear backoff until it acknowledges or the attempts run out.
type Notifier struct {
	trigger   Trigger
	policy    Policy
	journal   storage.AttemptWriteRepository
	telemetry *telemetry.Telemetry
	sleep     func(ctx context.Context, d time.Duration) error
}

type Option func(*Notifier)

// WithJournal records every attempt. Journal errors are logged and ignored.
func WithJournal(repo storage.AttemptWriteRepository) Option {
	return func(n *Notifier) {
		n.journal = repo
	}
}

func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(n *Notifier) {
		n.telemetry = tel
	}
}

// WithSleep replaces the wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(n *Notifier) {
		n.sleep = sleep
	}
}

func New(trigger Trigger, policy Policy, opts ...Option) *Notifier {
	n := &Notifier{
		trigger: trigger,
		policy:  policy,
		sleep:   sleepContext,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Notify runs the retry loop for ev. It returns a nil error only when the
// organizer acknowledged; an exhausted run returns *ExhaustedError. The
// Result is always non-nil and lists every attempt made.
func (n *Notifier) Notify(ctx context.Context, ev Event) (*Result, error) {
	if err := n.policy.Validate(); err != nil {
		return &Result{State: StatePending}, fmt.Errorf("invalid retry policy: %w", err)
	}

	requestID := logctx.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = logctx.WithRequestID(ctx, requestID)
	}

	res := &Result{RequestID: requestID, State: StatePending}

	err := n.telemetry.InstrumentOperation(ctx, "notify", "hook", func(ctx context.Context) error {
		return n.run(ctx, ev, res)
	})

	outcome := res.State.String()
	if !res.State.Terminal() {
		outcome = "interrupted"
	}

	n.telemetry.RecordOutcome(ctx, outcome)

	return res, err
}

func (n *Notifier) run(ctx context.Context, ev Event, res *Result) error {
	logger := logctx.LoggerFromContext(ctx).With("max_attempts", n.policy.MaxAttempts)

	for ordinal := 1; ordinal <= n.policy.MaxAttempts; ordinal++ {
		res.State = StateAttempting

		logger.InfoContext(ctx, "triggering organizer scan", "attempt", ordinal)

		att := n.attempt(ctx, ordinal, ev)

		if att.Acknowledged() {
			res.State = StateAcknowledged
			res.Attempts = append(res.Attempts, att)
			n.record(ctx, ev, att, res.State)

			logger.InfoContext(ctx, "organizer scan triggered",
				"attempt", ordinal,
				"status", att.StatusCode,
				"duration_ms", att.Duration.Milliseconds(),
			)

			return nil
		}

		if ctx.Err() != nil {
			res.Attempts = append(res.Attempts, att)
			n.record(ctx, ev, att, res.State)

			return fmt.Errorf("notification interrupted at attempt %d: %w", ordinal, ctx.Err())
		}

		if ordinal == n.policy.MaxAttempts {
			res.State = StateExhausted
			res.Attempts = append(res.Attempts, att)
			n.record(ctx, ev, att, res.State)

			logger.ErrorContext(ctx, "organizer trigger failed, no attempts left",
				"attempt", ordinal,
				"status", att.StatusCode,
				"err", att.Err,
			)

			return &ExhaustedError{Attempts: ordinal, Last: att.Err}
		}

		att.Delay = n.policy.Delay(ordinal)
		res.Attempts = append(res.Attempts, att)
		n.record(ctx, ev, att, res.State)

		logger.WarnContext(ctx, "organizer trigger failed",
			"attempt", ordinal,
			"status", att.StatusCode,
			"err", att.Err,
			"retry_in", att.Delay.String(),
		)

		if err := n.sleep(ctx, att.Delay); err != nil {
			return fmt.Errorf("notification interrupted after attempt %d: %w", ordinal, err)
		}
	}

	// Unreachable with a validated policy.
	return errors.New("retry loop ended without a terminal state")
}

func (n *Notifier) attempt(ctx context.Context, ordinal int, ev Event) Attempt {
	att := Attempt{Ordinal: ordinal}
	start := time.Now()

	_ = n.telemetry.InstrumentAttempt(ctx, ordinal, classify, func(ctx context.Context) error {
		att.StatusCode, att.Err = n.trigger.TriggerScan(ctx, organizer.Item{Dir: ev.Dir, Name: ev.Name})
		if att.Err == nil && att.StatusCode != http.StatusOK {
			att.Err = &organizer.StatusError{StatusCode: att.StatusCode}
		}

		return att.Err
	})

	att.Duration = time.Since(start)

	return att
}

func (n *Notifier) record(ctx context.Context, ev Event, att Attempt, state State) {
	if n.journal == nil {
		return
	}

	rec := storage.AttemptRecord{
		RequestID:   logctx.RequestIDFromContext(ctx),
		ItemName:    ev.Name,
		ItemDir:     ev.Dir,
		Attempt:     att.Ordinal,
		StatusCode:  att.StatusCode,
		Outcome:     state.String(),
		AttemptedAt: time.Now(),
	}

	if att.Err != nil {
		rec.Error = att.Err.Error()
	}

	// A cancelled invocation still gets its last attempt journaled.
	if err := n.journal.RecordAttempt(context.WithoutCancel(ctx), rec); err != nil {
		logctx.LoggerFromContext(ctx).WarnContext(ctx, "failed to journal attempt", "attempt", att.Ordinal, "err", err)
	}
}

// classify maps an attempt error to a low-cardinality metric status.
func classify(err error) string {
	var (
		statusErr    *organizer.StatusError
		transportErr *organizer.TransportError
	)

	switch {
	case err == nil:
		return "acknowledged"
	case errors.As(err, &statusErr):
		return "http_error"
	case errors.As(err, &transportErr):
		return "transport_error"
	default:
		return "error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
