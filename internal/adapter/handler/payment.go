package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

type PaymentService interface {
	MakePayment(ctx context.Context, req domain.TransferRequest) (domain.Payment, error)
}

type PaymentHandler struct {
	Service PaymentService
}

// MakePayment handles POST /payment.
func (h *PaymentHandler) MakePayment(c *fiber.Ctx) error {
	var req PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidRequest(c, "Invalid request body")
	}

	switch {
	case req.SenderAccountID == nil:
		return invalidRequest(c, "senderAccountId is required")
	case req.ReceiverAccountID == nil:
		return invalidRequest(c, "receiverAccountId is required")
	case req.Amount == nil:
		return invalidRequest(c, "amount is required")
	}

	payment, err := h.Service.MakePayment(c.UserContext(), domain.TransferRequest{
		SenderAccountID:   *req.SenderAccountID,
		ReceiverAccountID: *req.ReceiverAccountID,
		Amount:            *req.Amount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toPaymentResponse(payment))
}
