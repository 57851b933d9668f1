package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

const (
	uniqueViolation        = "23505"
	numericValueOutOfRange = "22003"
)

// AccountRepository reads and writes accounts inside one postgres transaction.
type AccountRepository struct {
	db querier
}

func NewAccountRepository(db querier) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Get(ctx context.Context, id int64) (domain.Account, error) {
	query := `SELECT id, name, balance::text FROM accounts WHERE id = $1`

	var (
		acc     domain.Account
		balance string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(&acc.ID, &acc.Name, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to get account %d: %w", id, err)
	}

	acc.Balance, err = domain.ParseMoney(balance)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %d has malformed balance %q: %w", id, balance, err)
	}
	return acc, nil
}

// LockForUpdate takes row locks in ascending id order so that two transfers
// running in opposite directions cannot deadlock.
func (r *AccountRepository) LockForUpdate(ctx context.Context, ids ...int64) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	if _, err := r.db.Exec(ctx, `SELECT id FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, sorted); err != nil {
		return fmt.Errorf("failed to lock accounts: %w", err)
	}
	return nil
}

func (r *AccountRepository) Save(ctx context.Context, acc domain.Account) (domain.Account, error) {
	balance := domain.FormatMoney(acc.Balance)

	if acc.ID == 0 {
		query := `
			INSERT INTO accounts (name, balance)
			VALUES ($1, $2::numeric)
			RETURNING id
		`
		if err := r.db.QueryRow(ctx, query, acc.Name, balance).Scan(&acc.ID); err != nil {
			return domain.Account{}, wrapAccountErr("create", acc.Name, err)
		}
		return acc, nil
	}

	tag, err := r.db.Exec(ctx, `UPDATE accounts SET name = $2, balance = $3::numeric WHERE id = $1`, acc.ID, acc.Name, balance)
	if err != nil {
		return domain.Account{}, wrapAccountErr("update", acc.Name, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Account{}, domain.ErrNotFound
	}
	return acc, nil
}

func (r *AccountRepository) SaveAll(ctx context.Context, accounts []domain.Account) ([]domain.Account, error) {
	saved := make([]domain.Account, 0, len(accounts))
	for _, acc := range accounts {
		s, err := r.Save(ctx, acc)
		if err != nil {
			return nil, err
		}
		saved = append(saved, s)
	}
	return saved, nil
}

func wrapAccountErr(op, name string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("failed to %s account %q: %w", op, name, domain.ErrDuplicateName)
		case numericValueOutOfRange:
			return fmt.Errorf("failed to %s account %q: %w", op, name, domain.ErrOutOfRange)
		}
	}
	return fmt.Errorf("failed to %s account %q: %w", op, name, err)
}
