package httpapi

import (
	"errors"
	"math"
	"strconv"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/gofiber/fiber/v2"
)

type errorBody struct {
	Detail string `json:"detail"`
}

type messageBody struct {
	Message string `json:"message"`
}

// statusFor maps every error kind to a response status. Token failures of
// all four kinds share 401; the distinction only matters for logging.
func statusFor(kind common.Kind) int {
	switch kind {
	case common.KindTokenInvalid, common.KindTokenExpired,
		common.KindRefreshTokenRevoked, common.KindRefreshTokenReuse:
		return fiber.StatusUnauthorized
	case common.KindUserNotActivated, common.KindOAuthEmailNotVerified:
		return fiber.StatusForbidden
	case common.KindUserNotFound, common.KindNotFound, common.KindOAuthUnknownProvider:
		return fiber.StatusNotFound
	case common.KindUserAlreadyExists, common.KindUserAlreadyActivated,
		common.KindOAuthAccountAlreadyLinked, common.KindOAuthAccountLinkedToProvider:
		return fiber.StatusConflict
	case common.KindInvalidPassword, common.KindOAuthTokenExchange, common.KindOAuthStateInvalid:
		return fiber.StatusBadRequest
	case common.KindRateLimitExceeded:
		return fiber.StatusTooManyRequests
	case common.KindOAuthProvider:
		return fiber.StatusBadGateway
	case common.KindUnknown:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes err as a JSON error. detailPrefix, when set, is prepended to
// the message of client errors.
func (s *HTTPServer) fail(c *fiber.Ctx, err error, detailPrefix string) error {
	kind := common.KindOf(err)
	status := statusFor(kind)

	switch kind {
	case common.KindRefreshTokenReuse:
		s.logger.Error(c.UserContext(), "refresh token reuse rejected", "ip", c.IP(), "path", c.Path())
	case common.KindUnknown:
		// handled by errorHandler, which hides the message
		return err
	}

	if status == fiber.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}

	var rl *common.RateLimitError
	if errors.As(err, &rl) {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
	}

	return c.Status(status).JSON(errorBody{Detail: detailPrefix + err.Error()})
}

func (s *HTTPServer) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// only client errors expose their message
	if code >= fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "unhandled server error", "method", c.Method(), "path", c.Path(), "error", err)
		message = "Internal server error"
	}

	return c.Status(code).JSON(errorBody{Detail: message})
}
