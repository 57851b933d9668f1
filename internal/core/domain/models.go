package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a named, balance-holding record.
type Account struct {
	ID      int64
	Name    string
	Balance decimal.Decimal // scale 2, never negative at rest
}

// NewAccount is a candidate handed to provisioning before it has an ID.
type NewAccount struct {
	Name    string
	Balance decimal.Decimal
}

// Payment is the immutable record of one completed transfer.
type Payment struct {
	ID                int64
	SenderAccountID   int64
	ReceiverAccountID int64
	Amount            decimal.Decimal
	Timestamp         time.Time
}

// TransferRequest asks the engine to move Amount from sender to receiver.
type TransferRequest struct {
	SenderAccountID   int64
	ReceiverAccountID int64
	Amount            decimal.Decimal
}

// EventPaymentCompleted is the outbox event type raised for every successful payment.
const EventPaymentCompleted = "payment.completed"

// PaymentEvent is an outbox entry waiting to be relayed to subscribers.
type PaymentEvent struct {
	ID        uuid.UUID
	PaymentID int64
	Type      string
	Payload   []byte // JSON
	Attempts  int
	CreatedAt time.Time
}
