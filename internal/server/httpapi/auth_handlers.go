package httpapi

import (
	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *HTTPServer) login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Detail: "email and password are required"})
	}

	pair, err := s.auth.Login(c.UserContext(), services.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		switch common.KindOf(err) {
		case common.KindUserNotFound, common.KindInvalidPassword:
			// do not tell which of the two failed
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Detail: "Not authenticated"})
		default:
			return s.fail(c, err, "")
		}
	}

	s.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiresAt)
	return c.JSON(accessTokenResponse{AccessToken: pair.AccessToken, TokenType: "bearer"})
}

func (s *HTTPServer) refresh(c *fiber.Ctx) error {
	raw := c.Cookies(common.RefreshCookieName)
	if raw == "" {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Detail: "Missing refresh token"})
	}

	pair, err := s.auth.Refresh(c.UserContext(), raw, "")
	if err != nil {
		if status := statusFor(common.KindOf(err)); status == fiber.StatusUnauthorized {
			s.clearRefreshCookie(c)
		}
		return s.fail(c, err, "")
	}

	s.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiresAt)
	return c.JSON(accessTokenResponse{AccessToken: pair.AccessToken, TokenType: "bearer"})
}

func (s *HTTPServer) logout(c *fiber.Ctx) error {
	if raw := c.Cookies(common.RefreshCookieName); raw != "" {
		if err := s.auth.Logout(c.UserContext(), raw); err != nil {
			return err
		}
	}
	s.clearRefreshCookie(c)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *HTTPServer) logoutAll(c *fiber.Ctx) error {
	if err := s.auth.LogoutAll(c.UserContext(), currentToken(c).UserID); err != nil {
		return s.fail(c, err, "")
	}
	s.clearRefreshCookie(c)
	return c.SendStatus(fiber.StatusNoContent)
}
