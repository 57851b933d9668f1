package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

// AccountService provisions accounts and reads them back.
type AccountService struct {
	uow UnitOfWork
}

func NewAccountService(uow UnitOfWork) *AccountService {
	return &AccountService{uow: uow}
}

// CreateAccounts persists the whole batch or nothing. A single candidate with a
// negative balance rejects the batch with FailureNegativeBalance before anything
// is written, and a balance that does not fit NUMERIC(18,2) fails with
// domain.ErrOutOfRange. The created accounts come back in input order with
// their IDs.
func (s *AccountService) CreateAccounts(ctx context.Context, candidates []domain.NewAccount) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, len(candidates))
	for _, c := range candidates {
		if c.Balance.IsNegative() {
			return nil, domain.Fail(domain.FailureNegativeBalance)
		}
		if !domain.InMoneyRange(c.Balance) {
			return nil, fmt.Errorf("account %q: %w", c.Name, domain.ErrOutOfRange)
		}
		accounts = append(accounts, domain.Account{
			Name:    c.Name,
			Balance: domain.ToMoney(c.Balance),
		})
	}
	if len(accounts) == 0 {
		return accounts, nil
	}

	var created []domain.Account
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx Stores) error {
		saved, err := tx.Accounts().SaveAll(ctx, accounts)
		if err != nil {
			return fmt.Errorf("save accounts: %w", err)
		}
		created = saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range created {
		slog.Info("Account created", "account_id", a.ID, "name", a.Name, "balance", domain.FormatMoney(a.Balance))
	}
	return created, nil
}

// GetAccount returns domain.ErrNotFound for unknown ids.
func (s *AccountService) GetAccount(ctx context.Context, id int64) (domain.Account, error) {
	var account domain.Account
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx Stores) error {
		a, err := tx.Accounts().Get(ctx, id)
		if err != nil {
			return err
		}
		account = a
		return nil
	})
	return account, err
}
