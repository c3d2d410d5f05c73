package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/usercontext"
)

// OperatorAPIKeyMiddleware authenticates operator requests carrying an API
// key whose bcrypt hash is in hashes.
func OperatorAPIKeyMiddleware(hashes []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}
		if len(hashes) == 0 {
			log.Error("[OperatorAuth] OPERATOR_API_KEY_HASHES is empty, rejecting operator request")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}

		if !matchesAnyHash(apiKey, hashes) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}

		uc := usercontext.GetUserContext(c)
		uc.IsOperator = true
		uc.IsAdmin = true
		if uc.UserType == "" {
			uc.UserType = "System User"
		}
		usercontext.SetUserContext(c, uc)
		c.Locals(usercontext.KeyIsOperator, true)

		return c.Next()
	}
}

// OperatorAPIKeyMiddlewareFromEnv reads OPERATOR_API_KEY_HASHES.
func OperatorAPIKeyMiddlewareFromEnv() fiber.Handler {
	return OperatorAPIKeyMiddleware(env.GetEnvList("OPERATOR_API_KEY_HASHES"))
}

// HashAPIKey returns the bcrypt hash to configure for an operator key.
func HashAPIKey(apiKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func matchesAnyHash(apiKey string, hashes []string) bool {
	for _, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(apiKey)) == nil {
			return true
		}
	}
	return false
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
