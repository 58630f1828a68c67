package httpapi

import (
	"strings"

	"github.com/dmitrijs2005/apptracker/internal/server/auth"
	"github.com/gofiber/fiber/v2"
)

const tokenLocalKey = "access_token"

// requireAccessToken verifies the bearer token and stores it in Locals.
func (s *HTTPServer) requireAccessToken(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Detail: "Not authenticated"})
	}

	claims, err := s.auth.Authenticate(strings.TrimSpace(token))
	if err != nil {
		return s.fail(c, err, "Invalid access token: ")
	}

	c.Locals(tokenLocalKey, claims)
	return c.Next()
}

func currentToken(c *fiber.Ctx) *auth.Token {
	t, _ := c.Locals(tokenLocalKey).(*auth.Token)
	return t
}
