package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeAccountNotFound = "ACCOUNT_NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)

func invalidRequest(c *fiber.Ctx, message string) error {
	slog.Warn("Invalid request", "path", c.Path(), "reason", message)
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{ErrorCode: CodeInvalidRequest, ErrorMessage: message})
}

// writeError maps an error from the ledger to the wire error payload.
func writeError(c *fiber.Ctx, err error) error {
	if failure, ok := domain.AsFailure(err); ok {
		slog.Warn("Request rejected", "path", c.Path(), "error_code", failure.Kind.Code())
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			ErrorCode:    failure.Kind.Code(),
			ErrorMessage: failure.Message,
		})
	}

	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			ErrorCode:    CodeAccountNotFound,
			ErrorMessage: "Account could not be found",
		})
	}

	if errors.Is(err, domain.ErrOutOfRange) {
		return invalidRequest(c, "Amount is out of range")
	}

	// Duplicate names land here too: they are storage errors, not validation failures.
	slog.Error("Request failed", "path", c.Path(), "error", err)
	return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
		ErrorCode:    CodeInternalError,
		ErrorMessage: "An unexpected error occurred",
	})
}

// ErrorHandler renders errors that escape the handlers, such as unknown
// routes or panics caught by the recover middleware.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := strings.ToUpper(strings.ReplaceAll(utils.StatusMessage(fe.Code), " ", "_"))
		return c.Status(fe.Code).JSON(ErrorResponse{ErrorCode: code, ErrorMessage: fe.Message})
	}
	return writeError(c, err)
}
