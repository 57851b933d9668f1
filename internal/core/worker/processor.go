package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

// Queue is the outbox as seen by the relay.
type Queue interface {
	// Next claims the oldest pending event due at now; ok is false when none is due.
	Next(ctx context.Context, now time.Time) (event domain.PaymentEvent, ok bool, err error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	Reschedule(ctx context.Context, id uuid.UUID, attempts int, nextRun time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int) error
}

// Sink delivers one event to one subscriber.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event domain.PaymentEvent) error
}

// Relay moves payment events from the outbox to every configured sink.
// Delivery is at least once: a failure on any sink retries the event on all of them.
type Relay struct {
	queue       Queue
	sinks       []Sink
	interval    time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewRelay(queue Queue, sinks []Sink, interval time.Duration, maxAttempts int) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Relay{
		queue:       queue,
		sinks:       sinks,
		interval:    interval,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Backoff is the delay before the retry that follows the given number of
// earlier failed attempts.
func Backoff(attempts int) time.Duration {
	return time.Duration(attempts*10+10) * time.Second
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	slog.Info("Event relay started", "sinks", len(r.sinks), "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.Drain(ctx)

		select {
		case <-ctx.Done():
			slog.Info("Event relay stopped")
			return
		case <-ticker.C:
		}
	}
}

// Drain processes due events until none is left or ctx is cancelled.
func (r *Relay) Drain(ctx context.Context) {
	for ctx.Err() == nil {
		processed, err := r.processNext(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Error("Relay: queue error", "error", err)
			}
			return
		}
		if !processed {
			return
		}
	}
}

func (r *Relay) processNext(ctx context.Context) (bool, error) {
	now := r.now()
	event, ok, err := r.queue.Next(ctx, now)
	if err != nil || !ok {
		return false, err
	}

	slog.Info("Relay: processing event", "event_id", event.ID, "type", event.Type, "attempts", event.Attempts)

	var sendErr error
	for _, sink := range r.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			slog.Error("Relay: delivery failed", "sink", sink.Name(), "event_id", event.ID, "error", err)
			sendErr = errors.Join(sendErr, err)
		}
	}

	if sendErr == nil {
		slog.Info("Relay: event delivered", "event_id", event.ID)
		return true, r.queue.MarkDelivered(ctx, event.ID)
	}

	attempts := event.Attempts + 1
	if attempts >= r.maxAttempts {
		slog.Error("Relay: event marked as FAILED (max attempts reached)", "event_id", event.ID, "attempts", attempts)
		return true, r.queue.MarkFailed(ctx, event.ID, attempts)
	}

	nextRun := now.Add(Backoff(event.Attempts))
	slog.Info("Relay: scheduled retry", "event_id", event.ID, "next_run", nextRun)
	return true, r.queue.Reschedule(ctx, event.ID, attempts, nextRun)
}
