package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

// Outbox statuses.
const (
	EventPending   = "PENDING"
	EventDelivered = "DELIVERED"
	EventFailed    = "FAILED"
)

// ClaimLease is how long a claimed event stays invisible to other relays.
// A relay that dies mid-delivery releases the event when the lease runs out.
const ClaimLease = 5 * time.Minute

// EventRepository writes outbox rows inside the payment's transaction.
type EventRepository struct {
	db querier
}

func NewEventRepository(db querier) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Enqueue(ctx context.Context, e domain.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (id, payment_id, event_type, payload, status, attempts, next_run_at, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $6)
	`
	if _, err := r.db.Exec(ctx, query, e.ID, e.PaymentID, e.Type, e.Payload, EventPending, e.CreatedAt); err != nil {
		return fmt.Errorf("failed to enqueue event %s: %w", e.ID, err)
	}
	return nil
}

// PostgresEventQueue is the relay's view of the outbox table.
type PostgresEventQueue struct {
	db *pgxpool.Pool
}

func NewPostgresEventQueue(db *pgxpool.Pool) *PostgresEventQueue {
	return &PostgresEventQueue{db: db}
}

// Next claims the oldest pending event due at now. ok is false when nothing is due.
func (q *PostgresEventQueue) Next(ctx context.Context, now time.Time) (domain.PaymentEvent, bool, error) {
	query := `
		UPDATE payment_events SET next_run_at = $2
		WHERE id = (
			SELECT id FROM payment_events
			WHERE status = $3 AND next_run_at <= $1
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, payment_id, event_type, payload, attempts, created_at
	`

	var e domain.PaymentEvent
	err := q.db.QueryRow(ctx, query, now, now.Add(ClaimLease), EventPending).Scan(
		&e.ID, &e.PaymentID, &e.Type, &e.Payload, &e.Attempts, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PaymentEvent{}, false, nil
	}
	if err != nil {
		return domain.PaymentEvent{}, false, fmt.Errorf("failed to claim event: %w", err)
	}
	return e, true, nil
}

func (q *PostgresEventQueue) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	return q.setStatus(ctx, id, EventDelivered, nil)
}

func (q *PostgresEventQueue) MarkFailed(ctx context.Context, id uuid.UUID, attempts int) error {
	return q.setStatus(ctx, id, EventFailed, &attempts)
}

func (q *PostgresEventQueue) Reschedule(ctx context.Context, id uuid.UUID, attempts int, nextRun time.Time) error {
	_, err := q.db.Exec(ctx,
		`UPDATE payment_events SET status = $2, attempts = $3, next_run_at = $4 WHERE id = $1`,
		id, EventPending, attempts, nextRun)
	if err != nil {
		return fmt.Errorf("failed to reschedule event %s: %w", id, err)
	}
	return nil
}

func (q *PostgresEventQueue) setStatus(ctx context.Context, id uuid.UUID, status string, attempts *int) error {
	_, err := q.db.Exec(ctx,
		`UPDATE payment_events SET status = $2, attempts = COALESCE($3, attempts) WHERE id = $1`,
		id, status, attempts)
	if err != nil {
		return fmt.Errorf("failed to mark event %s %s: %w", id, status, err)
	}
	return nil
}
