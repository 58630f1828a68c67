package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/dmitrijs2005/apptracker/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

const minPasswordLen = 8

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	SecondName string `json:"second_name"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type updateProfileRequest struct {
	FirstName  *string `json:"first_name"`
	SecondName *string `json:"second_name"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     *string   `json:"first_name"`
	SecondName    *string   `json:"second_name"`
	IsActive      bool      `json:"is_active"`
	OAuthProvider string    `json:"oauth_provider"`
	TimeCreate    time.Time `json:"time_create"`
	TimeUpdate    time.Time `json:"time_update"`
}

func newUserResponse(u *models.User) userResponse {
	r := userResponse{
		ID:            u.ID,
		Email:         u.Email,
		IsActive:      u.IsActive,
		OAuthProvider: string(u.OAuthProvider),
		TimeCreate:    u.CreatedAt,
		TimeUpdate:    u.UpdatedAt,
	}
	if u.FirstName.Valid {
		r.FirstName = &u.FirstName.String
	}
	if u.SecondName.Valid {
		r.SecondName = &u.SecondName.String
	}
	return r
}

func badRequest(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorBody{Detail: detail})
}

func (s *HTTPServer) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if !strings.Contains(req.Email, "@") {
		return badRequest(c, "A valid email is required")
	}
	if len(req.Password) < minPasswordLen {
		return badRequest(c, fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}

	err := s.users.Register(c.UserContext(), services.Registration{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		SecondName: req.SecondName,
	})
	if err != nil {
		return s.fail(c, err, "")
	}

	// same answer for new and already known addresses
	return c.Status(fiber.StatusCreated).JSON(messageBody{
		Message: fmt.Sprintf("We sent email to %s address, follow link to complete your registration", req.Email),
	})
}

func (s *HTTPServer) activate(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return badRequest(c, "Missing activation token")
	}

	if _, err := s.users.Activate(c.UserContext(), token); err != nil {
		switch common.KindOf(err) {
		case common.KindTokenInvalid, common.KindTokenExpired:
			return badRequest(c, "Invalid activation token: "+err.Error())
		default:
			return s.fail(c, err, "")
		}
	}

	return c.JSON(messageBody{Message: "Account activated successfully"})
}

func (s *HTTPServer) resendActivation(c *fiber.Ctx) error {
	var req resendRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return badRequest(c, "email is required")
	}

	hidden := messageBody{
		Message: fmt.Sprintf("If an account exists with %s, an activation email has been sent", req.Email),
	}

	err := s.users.ResendActivation(c.UserContext(), req.Email)
	switch common.KindOf(err) {
	case common.KindUnknown:
		if err != nil {
			return err
		}
		return c.JSON(hidden)
	case common.KindUserNotFound:
		return c.JSON(hidden)
	case common.KindUserAlreadyActivated:
		return badRequest(c, err.Error())
	default:
		return s.fail(c, err, "")
	}
}

func (s *HTTPServer) changePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil || req.OldPassword == "" {
		return badRequest(c, "old_password and new_password are required")
	}
	if len(req.NewPassword) < minPasswordLen {
		return badRequest(c, fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}

	if err := s.users.ChangePassword(c.UserContext(), currentToken(c).UserID, req.OldPassword, req.NewPassword); err != nil {
		return s.fail(c, err, "")
	}

	// every session is gone, including this one
	s.clearRefreshCookie(c)
	return c.JSON(messageBody{Message: "Password changed successfully"})
}

func (s *HTTPServer) me(c *fiber.Ctx) error {
	user, err := s.users.Get(c.UserContext(), currentToken(c).UserID)
	if err != nil {
		return s.fail(c, err, "")
	}
	return c.JSON(newUserResponse(user))
}

func (s *HTTPServer) updateMe(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := s.users.UpdateProfile(c.UserContext(), currentToken(c).UserID, models.UserProfile{
		FirstName:  req.FirstName,
		SecondName: req.SecondName,
	})
	if err != nil {
		return s.fail(c, err, "")
	}
	return c.JSON(newUserResponse(user))
}

func (s *HTTPServer) deleteMe(c *fiber.Ctx) error {
	if err := s.users.Delete(c.UserContext(), currentToken(c).UserID); err != nil {
		return s.fail(c, err, "")
	}
	s.clearRefreshCookie(c)
	return c.JSON(messageBody{Message: "User deleted successfully"})
}
