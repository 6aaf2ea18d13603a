// Package apperr defines the error taxonomy surfaced by the HTTP layer.
// Services return these; handlers map anything else to a generic 500 so
// internal detail never reaches the client.
package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func BadRequest(message string) *Error {
	return New(fiber.StatusBadRequest, message)
}

func Unauthorized(message string) *Error {
	return New(fiber.StatusUnauthorized, message)
}

func NotFound(message string) *Error {
	return New(fiber.StatusNotFound, message)
}

func Conflict(message string) *Error {
	return New(fiber.StatusConflict, message)
}

// Reply writes err as {"error": message}. Unexpected errors become a generic
// 500; the caller is expected to have logged the detail already.
func Reply(c *fiber.Ctx, err error) error {
	var ae *Error
	if errors.As(err, &ae) {
		return c.Status(ae.Status).JSON(fiber.Map{"error": ae.Message})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
