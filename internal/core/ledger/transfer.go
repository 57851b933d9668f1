package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

// TransferEngine validates payment requests and moves money between accounts.
type TransferEngine struct {
	uow   UnitOfWork
	clock Clock
	ids   IDGenerator
}

// NewTransferEngine builds the engine. ids may be nil, in which case no
// payment.completed events are written to the outbox.
func NewTransferEngine(uow UnitOfWork, clock Clock, ids IDGenerator) *TransferEngine {
	return &TransferEngine{uow: uow, clock: clock, ids: ids}
}

// MakePayment runs the checks below in order and stops at the first failure:
//
//  1. amount has more than two fractional digits
//  2. amount is zero or negative
//  3. sender does not exist
//  4. receiver does not exist
//  5. sender and receiver are the same account
//  6. amount exceeds the sender's balance
//
// The first two need no lookup and run before the unit of work starts. On
// success the debit, the credit and the payment insert commit together.
func (e *TransferEngine) MakePayment(ctx context.Context, req domain.TransferRequest) (domain.Payment, error) {
	if domain.Scale(req.Amount) > domain.MoneyScale {
		return domain.Payment{}, domain.Fail(domain.FailureTooManyDecimalPlaces)
	}
	if !req.Amount.IsPositive() {
		return domain.Payment{}, domain.Fail(domain.FailureNonPositiveAmount)
	}
	// Anything past NUMERIC(18,2) exceeds every balance; it is never rounded.
	oversized := !domain.InMoneyRange(req.Amount)
	amount := req.Amount
	if !oversized {
		amount = domain.ToMoney(req.Amount)
	}

	var payment domain.Payment
	err := e.uow.WithinTx(ctx, func(ctx context.Context, tx Stores) error {
		accounts := tx.Accounts()

		if err := accounts.LockForUpdate(ctx, req.SenderAccountID, req.ReceiverAccountID); err != nil {
			return fmt.Errorf("lock accounts: %w", err)
		}

		sender, err := accounts.Get(ctx, req.SenderAccountID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.FailureSenderNotFound)
		}
		if err != nil {
			return fmt.Errorf("load sender: %w", err)
		}

		receiver, err := accounts.Get(ctx, req.ReceiverAccountID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.FailureReceiverNotFound)
		}
		if err != nil {
			return fmt.Errorf("load receiver: %w", err)
		}

		if sender.ID == receiver.ID {
			return domain.Fail(domain.FailureSameAccount)
		}
		if oversized || amount.GreaterThan(sender.Balance) {
			return domain.Fail(domain.FailureInsufficientBalance)
		}

		sender.Balance = sender.Balance.Sub(amount)
		if _, err := accounts.Save(ctx, sender); err != nil {
			return fmt.Errorf("debit sender: %w", err)
		}
		receiver.Balance = receiver.Balance.Add(amount)
		if _, err := accounts.Save(ctx, receiver); err != nil {
			return fmt.Errorf("credit receiver: %w", err)
		}

		// One clock read serves both the stored and the returned record.
		// Postgres keeps microseconds, so truncate to keep them identical.
		now := e.clock.Now().UTC().Truncate(time.Microsecond)
		saved, err := tx.Payments().Save(ctx, domain.Payment{
			SenderAccountID:   sender.ID,
			ReceiverAccountID: receiver.ID,
			Amount:            amount,
			Timestamp:         now,
		})
		if err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		if e.ids != nil {
			event, err := newPaymentCompletedEvent(e.ids.NewUUID(), saved, now)
			if err != nil {
				return err
			}
			if err := tx.Events().Enqueue(ctx, event); err != nil {
				return fmt.Errorf("enqueue payment event: %w", err)
			}
		}

		payment = saved
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	slog.Info("Payment completed",
		"payment_id", payment.ID,
		"sender_account_id", payment.SenderAccountID,
		"receiver_account_id", payment.ReceiverAccountID,
		"amount", domain.FormatMoney(payment.Amount),
	)
	return payment, nil
}
