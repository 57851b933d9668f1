package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

// PaymentEventPayload is the JSON body subscribers receive.
type PaymentEventPayload struct {
	Event string             `json:"event"`
	Data  PaymentEventRecord `json:"data"`
}

type PaymentEventRecord struct {
	ID                int64     `json:"id"`
	SenderAccountID   int64     `json:"senderAccountId"`
	ReceiverAccountID int64     `json:"receiverAccountId"`
	Amount            string    `json:"amount"`
	Timestamp         time.Time `json:"timestamp"`
}

func newPaymentCompletedEvent(id uuid.UUID, p domain.Payment, now time.Time) (domain.PaymentEvent, error) {
	payload, err := json.Marshal(PaymentEventPayload{
		Event: domain.EventPaymentCompleted,
		Data: PaymentEventRecord{
			ID:                p.ID,
			SenderAccountID:   p.SenderAccountID,
			ReceiverAccountID: p.ReceiverAccountID,
			Amount:            domain.FormatMoney(p.Amount),
			Timestamp:         p.Timestamp,
		},
	})
	if err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("marshal payment event: %w", err)
	}

	return domain.PaymentEvent{
		ID:        id,
		PaymentID: p.ID,
		Type:      domain.EventPaymentCompleted,
		Payload:   payload,
		CreatedAt: now,
	}, nil
}
