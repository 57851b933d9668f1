package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
	"github.com/ibrahimkeyboad/payledger/internal/core/ledger"
)

// PostgresUnitOfWork runs each unit of work in its own READ COMMITTED
// transaction. Row locks taken through AccountRepository.LockForUpdate
// serialise concurrent transfers touching the same accounts.
type PostgresUnitOfWork struct {
	db *pgxpool.Pool
}

func NewPostgresUnitOfWork(db *pgxpool.Pool) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{db: db}
}

func (u *PostgresUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Stores) error) error {
	tx, err := u.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback(ctx)

	if err := fn(ctx, pgStores{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgStores struct {
	tx pgx.Tx
}

func (s pgStores) Accounts() ledger.AccountStore { return NewAccountRepository(s.tx) }
func (s pgStores) Payments() ledger.PaymentStore { return NewPaymentRepository(s.tx) }
func (s pgStores) Events() ledger.EventOutbox    { return NewEventRepository(s.tx) }

// PaymentRepository appends completed payments.
type PaymentRepository struct {
	db querier
}

func NewPaymentRepository(db querier) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Save(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	query := `
		INSERT INTO payments (sender_account_id, receiver_account_id, amount, created_at)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		p.SenderAccountID, p.ReceiverAccountID, domain.FormatMoney(p.Amount), p.Timestamp,
	).Scan(&p.ID)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to save payment: %w", err)
	}
	return p, nil
}
