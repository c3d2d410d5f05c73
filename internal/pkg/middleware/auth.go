package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/usercontext"
)

// RequireOperator rejects requests that did not pass the operator API key check.
func RequireOperator(c *fiber.Ctx) error {
	if !usercontext.IsOperator(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "operator access required",
		})
	}
	return c.Next()
}
