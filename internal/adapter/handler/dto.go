package handler

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

// Request fields are pointers so that an absent field can be told apart from a zero value.

type AccountRequest struct {
	Name    *string          `json:"name"`
	Balance *decimal.Decimal `json:"balance"`
}

type CreateAccountsRequest struct {
	Accounts []AccountRequest `json:"accounts"`
}

type PaymentRequest struct {
	SenderAccountID   *int64           `json:"senderAccountId"`
	ReceiverAccountID *int64           `json:"receiverAccountId"`
	Amount            *decimal.Decimal `json:"amount"`
}

// Amounts go out as JSON numbers with exactly two fractional digits.

type AccountResponse struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Balance json.Number `json:"balance"`
}

type PaymentResponse struct {
	ID                int64       `json:"id"`
	SenderAccountID   int64       `json:"senderAccountId"`
	ReceiverAccountID int64       `json:"receiverAccountId"`
	Amount            json.Number `json:"amount"`
	Timestamp         time.Time   `json:"timestamp"`
}

type ErrorResponse struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func toAccountResponse(a domain.Account) AccountResponse {
	return AccountResponse{
		ID:      a.ID,
		Name:    a.Name,
		Balance: json.Number(domain.FormatMoney(a.Balance)),
	}
}

func toPaymentResponse(p domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID,
		SenderAccountID:   p.SenderAccountID,
		ReceiverAccountID: p.ReceiverAccountID,
		Amount:            json.Number(domain.FormatMoney(p.Amount)),
		Timestamp:         p.Timestamp,
	}
}
