package httpapi

import (
	"crypto/subtle"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/gofiber/fiber/v2"
)

type authorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

func (s *HTTPServer) oauthAuthorize(c *fiber.Ctx) error {
	res, err := s.oauth.Authorize(c.UserContext(), c.Params("provider"))
	if err != nil {
		return s.fail(c, err, "")
	}

	s.setStateCookie(c, res.State)
	return c.JSON(authorizeResponse{AuthorizationURL: res.URL, State: res.State})
}

// oauthCallback double-checks state: the cookie binds it to this browser,
// the flow store to this server.
func (s *HTTPServer) oauthCallback(c *fiber.Ctx) error {
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Detail: "Missing code or state"})
	}

	cookie := c.Cookies(common.OAuthStateCookieName)
	if cookie == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Detail: "Missing state cookie"})
	}
	if subtle.ConstantTimeCompare([]byte(cookie), []byte(state)) != 1 {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Detail: "State mismatch - possible CSRF attack"})
	}
	s.clearStateCookie(c)

	res, err := s.oauth.Callback(c.UserContext(), c.Params("provider"), code, state)
	if err != nil {
		return s.fail(c, err, "")
	}

	s.setRefreshCookie(c, res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt)

	q := url.Values{}
	q.Set("access_token", res.Tokens.AccessToken)
	q.Set("user_id", res.Tokens.UserID)
	q.Set("email", res.Tokens.Email)
	q.Set("is_new_user", strconv.FormatBool(res.IsNewUser))

	return c.Redirect(s.opts.FrontendOrigin+"/auth/callback?"+q.Encode(), fiber.StatusSeeOther)
}
