package httpapi

import (
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/gofiber/fiber/v2"
)

const oauthStateMaxAge = 600

func (s *HTTPServer) setRefreshCookie(c *fiber.Ctx, raw string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     common.RefreshCookieName,
		Value:    raw,
		Path:     common.RefreshCookiePath,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func (s *HTTPServer) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     common.RefreshCookieName,
		Path:     common.RefreshCookiePath,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func (s *HTTPServer) setStateCookie(c *fiber.Ctx, state string) {
	c.Cookie(&fiber.Cookie{
		Name:     common.OAuthStateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   oauthStateMaxAge,
		HTTPOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *HTTPServer) clearStateCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     common.OAuthStateCookieName,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
