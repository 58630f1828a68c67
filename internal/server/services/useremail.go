package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/apptracker/internal/server/email"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
)

const (
	verificationSubject      = "Please verify your email address - Application Tracker"
	duplicateRegisterSubject = "Account Security Alert - Application Tracker"
)

// UserEmailService composes account emails and hands them to a sender.
type UserEmailService struct {
	sender         email.Sender
	templates      *email.Templates
	verification   *VerificationTokenService
	frontendOrigin string
}

func NewUserEmailService(sender email.Sender, templates *email.Templates, verification *VerificationTokenService, frontendOrigin string) *UserEmailService {
	return &UserEmailService{
		sender:         sender,
		templates:      templates,
		verification:   verification,
		frontendOrigin: strings.TrimRight(frontendOrigin, "/"),
	}
}

// SendVerification issues a fresh activation token (invalidating older
// ones) and mails its link to the user.
func (s *UserEmailService) SendVerification(ctx context.Context, user *models.User) error {
	raw, err := s.verification.Issue(ctx, user.ID)
	if err != nil {
		return err
	}

	name := "User"
	if user.FirstName.Valid && user.FirstName.String != "" {
		name = user.FirstName.String
	}

	text, html, err := s.templates.Render("user_verification", map[string]string{
		"VerificationURL": s.frontendOrigin + "/verify-email?token=" + url.QueryEscape(raw),
		"UserName":        name,
	})
	if err != nil {
		return fmt.Errorf("rendering verification email: %w", err)
	}

	return s.sender.Send(ctx, &email.Message{
		ToEmails: []string{user.Email},
		Subject:  verificationSubject,
		Body:     text,
		HTMLBody: html,
	})
}

// SendDuplicateRegistrationWarning tells the owner of addr that someone
// tried to sign up with it.
func (s *UserEmailService) SendDuplicateRegistrationWarning(ctx context.Context, addr string) error {
	text, html, err := s.templates.Render("duplicate_registration_warning", map[string]string{
		"Email":    addr,
		"LoginURL": s.frontendOrigin + "/sign-in",
	})
	if err != nil {
		return fmt.Errorf("rendering warning email: %w", err)
	}

	return s.sender.Send(ctx, &email.Message{
		ToEmails: []string{addr},
		Subject:  duplicateRegisterSubject,
		Body:     text,
		HTMLBody: html,
	})
}
