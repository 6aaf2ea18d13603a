package handlers

import (
	"errors"
	"log"

	"fable/pkg/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// parseBody decodes and validates a JSON request body in one step.
func parseBody[T any](c *fiber.Ctx) (T, error) {
	var req T
	if err := c.BodyParser(&req); err != nil {
		return req, apperr.BadRequest("invalid JSON body")
	}
	if err := validate.Struct(req); err != nil {
		return req, apperr.BadRequest("missing or malformed fields")
	}
	return req, nil
}

// fail maps err onto the wire format, logging detail only for unexpected
// errors so nothing internal leaks to the client.
func fail(c *fiber.Ctx, tag string, err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		log.Printf("[%s] %v", tag, err)
	}
	return apperr.Reply(c, err)
}
