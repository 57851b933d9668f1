package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/payledger/internal/adapter/storage"
	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
	"github.com/ibrahimkeyboad/payledger/internal/core/ledger"
)

func account(name, balance string) domain.Account {
	return domain.Account{Name: name, Balance: decimal.RequireFromString(balance)}
}

func TestMemoryAssignsIncreasingIDs(t *testing.T) {
	uow := storage.NewMemoryUnitOfWork()
	ctx := context.Background()

	var first, second []domain.Account
	err := uow.WithinTx(ctx, func(ctx context.Context, tx ledger.Stores) error {
		var err error
		first, err = tx.Accounts().SaveAll(ctx, []domain.Account{account("a", "1"), account("b", "2")})
		return err
	})
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	err = uow.WithinTx(ctx, func(ctx context.Context, tx ledger.Stores) error {
		var err error
		second, err = tx.Accounts().SaveAll(ctx, []domain.Account{account("c", "3")})
		return err
	})
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}

	ids := []int64{first[0].ID, first[1].ID, second[0].ID}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("expected increasing ids, got %v", ids)
		}
	}
}

func TestMemoryReadAfterWriteInsideUnitOfWork(t *testing.T) {
	uow := storage.NewMemoryUnitOfWork()

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx ledger.Stores) error {
		saved, err := tx.Accounts().Save(ctx, account("reader", "10.00"))
		if err != nil {
			return err
		}
		saved.Balance = decimal.RequireFromString("4.50")
		if _, err := tx.Accounts().Save(ctx, saved); err != nil {
			return err
		}

		got, err := tx.Accounts().Get(ctx, saved.ID)
		if err != nil {
			return err
		}
		if domain.FormatMoney(got.Balance) != "4.50" {
			t.Fatalf("expected to read back 4.50, got %s", got.Balance)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx returned error: %v", err)
	}
}

func TestMemoryRollsBackOnError(t *testing.T) {
	uow := storage.NewMemoryUnitOfWork()
	ctx := context.Background()
	boom := errors.New("boom")

	err := uow.WithinTx(ctx, func(ctx context.Context, tx ledger.Stores) error {
		if _, err := tx.Accounts().Save(ctx, account("ghost", "1")); err != nil {
			return err
		}
		if _, err := tx.Payments().Save(ctx, domain.Payment{SenderAccountID: 1, ReceiverAccountID: 2}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = uow.WithinTx(ctx, func(ctx context.Context, tx ledger.Stores) error {
		_, err := tx.Accounts().Get(ctx, 1)
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected rolled back account to be missing, got %v", err)
	}
	if n := len(uow.Payments()); n != 0 {
		t.Fatalf("expected no payments after rollback, got %d", n)
	}
}

func TestMemoryRejectsDuplicateNames(t *testing.T) {
	uow := storage.NewMemoryUnitOfWork()

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx ledger.Stores) error {
		_, err := tx.Accounts().SaveAll(ctx, []domain.Account{account("twin", "1"), account("twin", "2")})
		return err
	})
	if !errors.Is(err, domain.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestMemoryRejectsBalanceBeyondNumericPrecision(t *testing.T) {
	uow := storage.NewMemoryUnitOfWork()
	ctx := context.Background()

	err := uow.WithinTx(ctx, func(ctx context.Context, tx ledger.Stores) error {
		_, err := tx.Accounts().Save(ctx, account("full", "9999999999999999.99"))
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	err = uow.WithinTx(ctx, func(ctx context.Context, tx ledger.Stores) error {
		acc, err := tx.Accounts().Get(ctx, 1)
		if err != nil {
			return err
		}
		acc.Balance = acc.Balance.Add(decimal.RequireFromString("0.01"))
		_, err = tx.Accounts().Save(ctx, acc)
		return err
	})
	if !errors.Is(err, domain.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}

	err = uow.WithinTx(ctx, func(ctx context.Context, tx ledger.Stores) error {
		acc, err := tx.Accounts().Get(ctx, 1)
		if err != nil {
			return err
		}
		if got := domain.FormatMoney(acc.Balance); got != "9999999999999999.99" {
			t.Errorf("expected balance to be unchanged, got %s", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	uow := storage.NewMemoryUnitOfWork()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := uow.WithinTx(ctx, func(context.Context, ledger.Stores) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatal("fn must not run on a cancelled context")
	}
}

func TestMemoryEventQueue(t *testing.T) {
	uow := storage.NewMemoryUnitOfWork()
	queue := uow.EventQueue()
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.New()

	err := uow.WithinTx(ctx, func(ctx context.Context, tx ledger.Stores) error {
		return tx.Events().Enqueue(ctx, domain.PaymentEvent{ID: id, PaymentID: 1, Type: domain.EventPaymentCompleted, CreatedAt: created})
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, ok, _ := queue.Next(ctx, created.Add(-time.Second)); ok {
		t.Fatal("event must not be due before its creation time")
	}

	e, ok, err := queue.Next(ctx, created)
	if err != nil || !ok {
		t.Fatalf("expected a due event, got ok=%v err=%v", ok, err)
	}
	if e.ID != id {
		t.Fatalf("expected event %s, got %s", id, e.ID)
	}

	if _, ok, _ := queue.Next(ctx, created); ok {
		t.Fatal("claimed event must not be handed out twice")
	}

	retryAt := created.Add(10 * time.Second)
	if err := queue.Reschedule(ctx, id, 1, retryAt); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	e, ok, _ = queue.Next(ctx, retryAt)
	if !ok || e.Attempts != 1 {
		t.Fatalf("expected rescheduled event with 1 attempt, got ok=%v attempts=%d", ok, e.Attempts)
	}

	if err := queue.MarkDelivered(ctx, id); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if got := queue.Status(id); got != storage.EventDelivered {
		t.Fatalf("expected %s, got %s", storage.EventDelivered, got)
	}
	if err := queue.MarkDelivered(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown event, got %v", err)
	}
}
