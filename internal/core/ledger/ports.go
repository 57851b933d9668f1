// Package ledger holds account provisioning and the transfer engine. It owns no
// state; every operation runs against the stores inside one unit of work.
package ledger

//go:generate mockgen -destination=mocks/mock_ledger.go -package=mocks github.com/ibrahimkeyboad/payledger/internal/core/ledger AccountStore,PaymentStore,EventOutbox,Stores,UnitOfWork,Clock,IDGenerator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

// AccountStore is keyed storage of accounts.
type AccountStore interface {
	// Get returns domain.ErrNotFound when no account has the given id.
	Get(ctx context.Context, id int64) (domain.Account, error)
	// LockForUpdate locks the existing rows among ids until the unit of work ends.
	// Unknown ids are ignored.
	LockForUpdate(ctx context.Context, ids ...int64) error
	// Save inserts the account when its ID is zero and updates it otherwise.
	Save(ctx context.Context, account domain.Account) (domain.Account, error)
	SaveAll(ctx context.Context, accounts []domain.Account) ([]domain.Account, error)
}

// PaymentStore is append-only storage of completed payments.
type PaymentStore interface {
	Save(ctx context.Context, payment domain.Payment) (domain.Payment, error)
}

// EventOutbox queues events for delivery after the unit of work commits.
type EventOutbox interface {
	Enqueue(ctx context.Context, event domain.PaymentEvent) error
}

// Stores is the set of stores bound to one unit of work.
type Stores interface {
	Accounts() AccountStore
	Payments() PaymentStore
	Events() EventOutbox
}

// UnitOfWork runs fn with all-or-nothing semantics: every write made through
// the given Stores becomes visible when fn returns nil, none when it returns an error.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewUUID() uuid.UUID
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator hands out random (v4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewUUID() uuid.UUID { return uuid.New() }
