package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
	"github.com/ibrahimkeyboad/payledger/internal/core/ledger"
)

// MemoryUnitOfWork keeps the ledger in process memory. Units of work run one
// at a time against a private copy of the state, which replaces the shared
// state only when fn succeeds.
type MemoryUnitOfWork struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	accounts      map[int64]domain.Account
	names         map[string]int64
	lastAccountID int64
	payments      []domain.Payment
	lastPaymentID int64
	events        []memEvent
}

type memEvent struct {
	event     domain.PaymentEvent
	status    string
	nextRunAt time.Time
}

func NewMemoryUnitOfWork() *MemoryUnitOfWork {
	return &MemoryUnitOfWork{state: &memState{
		accounts: make(map[int64]domain.Account),
		names:    make(map[string]int64),
	}}
}

func (u *MemoryUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Stores) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := u.state.clone()
	if err := fn(ctx, memStores{s: working}); err != nil {
		return err
	}
	u.state = working
	return nil
}

// Payments returns the committed payments in insertion order.
func (u *MemoryUnitOfWork) Payments() []domain.Payment {
	u.mu.Lock()
	defer u.mu.Unlock()
	return slices.Clone(u.state.payments)
}

// EventQueue exposes the committed outbox to a relay.
func (u *MemoryUnitOfWork) EventQueue() *MemoryEventQueue {
	return &MemoryEventQueue{u: u}
}

func (s *memState) clone() *memState {
	return &memState{
		accounts:      maps.Clone(s.accounts),
		names:         maps.Clone(s.names),
		lastAccountID: s.lastAccountID,
		payments:      slices.Clone(s.payments),
		lastPaymentID: s.lastPaymentID,
		events:        slices.Clone(s.events),
	}
}

type memStores struct {
	s *memState
}

func (m memStores) Accounts() ledger.AccountStore { return memAccounts(m) }
func (m memStores) Payments() ledger.PaymentStore { return memPayments(m) }
func (m memStores) Events() ledger.EventOutbox    { return memOutbox(m) }

type memAccounts struct {
	s *memState
}

func (m memAccounts) Get(_ context.Context, id int64) (domain.Account, error) {
	acc, ok := m.s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return acc, nil
}

// LockForUpdate is a no-op: the unit of work already holds the store mutex.
func (m memAccounts) LockForUpdate(context.Context, ...int64) error { return nil }

// Save refuses balances a NUMERIC(18,2) column would reject.
func (m memAccounts) Save(_ context.Context, acc domain.Account) (domain.Account, error) {
	if !domain.InMoneyRange(acc.Balance) {
		return domain.Account{}, fmt.Errorf("failed to save account %q: %w", acc.Name, domain.ErrOutOfRange)
	}
	if owner, taken := m.s.names[acc.Name]; taken && owner != acc.ID {
		return domain.Account{}, fmt.Errorf("failed to save account %q: %w", acc.Name, domain.ErrDuplicateName)
	}

	if acc.ID == 0 {
		m.s.lastAccountID++
		acc.ID = m.s.lastAccountID
	} else {
		prev, ok := m.s.accounts[acc.ID]
		if !ok {
			return domain.Account{}, domain.ErrNotFound
		}
		delete(m.s.names, prev.Name)
	}

	m.s.accounts[acc.ID] = acc
	m.s.names[acc.Name] = acc.ID
	return acc, nil
}

func (m memAccounts) SaveAll(ctx context.Context, accounts []domain.Account) ([]domain.Account, error) {
	saved := make([]domain.Account, 0, len(accounts))
	for _, acc := range accounts {
		s, err := m.Save(ctx, acc)
		if err != nil {
			return nil, err
		}
		saved = append(saved, s)
	}
	return saved, nil
}

type memPayments struct {
	s *memState
}

func (m memPayments) Save(_ context.Context, p domain.Payment) (domain.Payment, error) {
	m.s.lastPaymentID++
	p.ID = m.s.lastPaymentID
	m.s.payments = append(m.s.payments, p)
	return p, nil
}

type memOutbox struct {
	s *memState
}

func (m memOutbox) Enqueue(_ context.Context, e domain.PaymentEvent) error {
	m.s.events = append(m.s.events, memEvent{event: e, status: EventPending, nextRunAt: e.CreatedAt})
	return nil
}

// MemoryEventQueue is the in-memory counterpart of PostgresEventQueue.
type MemoryEventQueue struct {
	u *MemoryUnitOfWork
}

func (q *MemoryEventQueue) Next(ctx context.Context, now time.Time) (domain.PaymentEvent, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentEvent{}, false, err
	}
	q.u.mu.Lock()
	defer q.u.mu.Unlock()

	// Events are appended in creation order, so the first due one is the oldest.
	for i := range q.u.state.events {
		e := &q.u.state.events[i]
		if e.status == EventPending && !e.nextRunAt.After(now) {
			e.nextRunAt = now.Add(ClaimLease)
			return e.event, true, nil
		}
	}
	return domain.PaymentEvent{}, false, nil
}

func (q *MemoryEventQueue) MarkDelivered(_ context.Context, id uuid.UUID) error {
	return q.update(id, func(e *memEvent) { e.status = EventDelivered })
}

func (q *MemoryEventQueue) MarkFailed(_ context.Context, id uuid.UUID, attempts int) error {
	return q.update(id, func(e *memEvent) {
		e.status = EventFailed
		e.event.Attempts = attempts
	})
}

func (q *MemoryEventQueue) Reschedule(_ context.Context, id uuid.UUID, attempts int, nextRun time.Time) error {
	return q.update(id, func(e *memEvent) {
		e.status = EventPending
		e.event.Attempts = attempts
		e.nextRunAt = nextRun
	})
}

// Status reports the outbox status of an event, or "" if it is unknown.
func (q *MemoryEventQueue) Status(id uuid.UUID) string {
	q.u.mu.Lock()
	defer q.u.mu.Unlock()
	for _, e := range q.u.state.events {
		if e.event.ID == id {
			return e.status
		}
	}
	return ""
}

func (q *MemoryEventQueue) update(id uuid.UUID, apply func(e *memEvent)) error {
	q.u.mu.Lock()
	defer q.u.mu.Unlock()
	for i := range q.u.state.events {
		if q.u.state.events[i].event.ID == id {
			apply(&q.u.state.events[i])
			return nil
		}
	}
	return fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
}
