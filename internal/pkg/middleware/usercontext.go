package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/usercontext"
)

// UserContextMiddleware builds the user context from the identity headers of
// the authenticating proxy. Requests without an email are anonymous.
func UserContextMiddleware(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Get(usercontext.HeaderUserEmail))
	if email == "" {
		usercontext.SetUserContext(c, usercontext.UserContext{})
		return c.Next()
	}

	usercontext.SetUserContext(c, usercontext.UserContext{
		Email:      email,
		FullName:   strings.TrimSpace(c.Get(usercontext.HeaderUserName)),
		UserType:   strings.TrimSpace(c.Get(usercontext.HeaderUserType)),
		IsLoggedIn: true,
		IsAdmin:    hasRole(c.Get(usercontext.HeaderUserRoles), usercontext.RoleAdministrator),
	})
	return c.Next()
}

func hasRole(header, role string) bool {
	for _, r := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}
