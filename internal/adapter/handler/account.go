package handler

import (
	"context"
	"strconv"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

const maxNameLength = 50

type AccountService interface {
	CreateAccounts(ctx context.Context, candidates []domain.NewAccount) ([]domain.Account, error)
	GetAccount(ctx context.Context, id int64) (domain.Account, error)
}

type AccountHandler struct {
	Service AccountService
}

// CreateAccounts handles POST /account.
func (h *AccountHandler) CreateAccounts(c *fiber.Ctx) error {
	var req CreateAccountsRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidRequest(c, "Invalid request body")
	}
	if req.Accounts == nil {
		return invalidRequest(c, "accounts is required")
	}

	candidates := make([]domain.NewAccount, 0, len(req.Accounts))
	for _, a := range req.Accounts {
		if a.Name == nil || *a.Name == "" {
			return invalidRequest(c, "account name is required")
		}
		if utf8.RuneCountInString(*a.Name) > maxNameLength {
			return invalidRequest(c, "account name must be at most 50 characters")
		}
		if a.Balance == nil {
			return invalidRequest(c, "account balance is required")
		}
		candidates = append(candidates, domain.NewAccount{Name: *a.Name, Balance: *a.Balance})
	}

	created, err := h.Service.CreateAccounts(c.UserContext(), candidates)
	if err != nil {
		return writeError(c, err)
	}

	resp := make([]AccountResponse, 0, len(created))
	for _, a := range created {
		resp = append(resp, toAccountResponse(a))
	}
	return c.JSON(resp)
}

// GetAccount handles GET /account/:id.
func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return invalidRequest(c, "Invalid account ID")
	}

	account, err := h.Service.GetAccount(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toAccountResponse(account))
}
