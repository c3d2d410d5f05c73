package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the identity behind a request
type UserContext struct {
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	UserType   string `json:"user_type"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
	IsOperator bool   `json:"is_operator"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// SetUserContext stores the user context on the request
func SetUserContext(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// IsOperator checks if the request was authenticated with an operator key
func IsOperator(c *fiber.Ctx) bool {
	return GetUserContext(c).IsOperator
}
