package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/payledger/internal/adapter/storage"
	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
	"github.com/ibrahimkeyboad/payledger/internal/core/ledger"
)

type recordingSink struct {
	err       error
	delivered []uuid.UUID
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, e domain.PaymentEvent) error {
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, e.ID)
	return nil
}

func enqueue(t *testing.T, uow *storage.MemoryUnitOfWork, created time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx ledger.Stores) error {
		return tx.Events().Enqueue(ctx, domain.PaymentEvent{ID: id, PaymentID: 1, Type: domain.EventPaymentCompleted, Payload: []byte(`{}`), CreatedAt: created})
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return id
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{attempts: 0, want: 10 * time.Second},
		{attempts: 1, want: 20 * time.Second},
		{attempts: 4, want: 50 * time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(tt.attempts); got != tt.want {
			t.Fatalf("Backoff(%d): expected %s, got %s", tt.attempts, tt.want, got)
		}
	}
}

func TestDrainDeliversToEverySink(t *testing.T) {
	uow := storage.NewMemoryUnitOfWork()
	queue := uow.EventQueue()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	first := enqueue(t, uow, now.Add(-2*time.Second))
	second := enqueue(t, uow, now.Add(-time.Second))

	a, b := &recordingSink{}, &recordingSink{}
	relay := NewRelay(queue, []Sink{a, b}, time.Second, 3)
	relay.now = func() time.Time { return now }

	relay.Drain(context.Background())

	for _, sink := range []*recordingSink{a, b} {
		if len(sink.delivered) != 2 || sink.delivered[0] != first || sink.delivered[1] != second {
			t.Fatalf("expected events delivered oldest first, got %v", sink.delivered)
		}
	}
	for _, id := range []uuid.UUID{first, second} {
		if got := queue.Status(id); got != storage.EventDelivered {
			t.Fatalf("expected %s, got %s", storage.EventDelivered, got)
		}
	}
}

func TestDrainRetriesWithBackoffThenFails(t *testing.T) {
	uow := storage.NewMemoryUnitOfWork()
	queue := uow.EventQueue()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	id := enqueue(t, uow, now)

	sink := &recordingSink{err: errors.New("subscriber down")}
	relay := NewRelay(queue, []Sink{sink}, time.Second, 3)
	relay.now = func() time.Time { return now }

	// First failure: retry in 10s.
	relay.Drain(context.Background())
	if got := queue.Status(id); got != storage.EventPending {
		t.Fatalf("expected %s after first failure, got %s", storage.EventPending, got)
	}
	if _, ok, _ := queue.Next(context.Background(), now.Add(9*time.Second)); ok {
		t.Fatal("event must not be due before its backoff elapses")
	}

	// Second failure at +10s: retry in 20s.
	now = now.Add(10 * time.Second)
	relay.Drain(context.Background())
	if got := queue.Status(id); got != storage.EventPending {
		t.Fatalf("expected %s after second failure, got %s", storage.EventPending, got)
	}

	// Third failure reaches the limit.
	now = now.Add(20 * time.Second)
	relay.Drain(context.Background())
	if got := queue.Status(id); got != storage.EventFailed {
		t.Fatalf("expected %s after max attempts, got %s", storage.EventFailed, got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	uow := storage.NewMemoryUnitOfWork()
	relay := NewRelay(uow.EventQueue(), nil, 10*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
