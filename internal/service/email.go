package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/tallyhq/tally/internal/model"
)

// EmailService delivers token links via Resend. In development (or without an
// API key) it logs the link instead of sending, so flows stay testable
// locally. It implements NotificationDispatcher.
type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

// linkPaths maps token purposes to the front-end routes that consume them.
var linkPaths = map[string]string{
	model.PurposeVerifyEmail:   "/auth/verify-email?token=%s",
	model.PurposeResetPassword: "/auth/reset-password?token=%s",
	model.PurposeChangeEmail:   "/auth/confirm-email?token=%s",
	model.PurposeAddEmail:      "/auth/confirm-email?token=%s",
}

// Link renders the user-facing URL carrying the raw token.
func (s *EmailService) Link(purpose, rawToken string) string {
	path, ok := linkPaths[purpose]
	if !ok {
		return s.appURL
	}
	return s.appURL + fmt.Sprintf(path, rawToken)
}

func (s *EmailService) Send(purpose, recipient, rawToken string) error {
	if recipient == "" {
		return fmt.Errorf("no recipient for %s notification", purpose)
	}

	link := s.Link(purpose, rawToken)

	var subject, body string
	switch purpose {
	case model.PurposeVerifyEmail:
		subject, body = verifyEmailTemplate(link, s.appName)
	case model.PurposeResetPassword:
		subject, body = resetPasswordTemplate(link, s.appName)
	case model.PurposeChangeEmail, model.PurposeAddEmail:
		subject, body = confirmEmailTemplate(link, s.appName)
	default:
		return fmt.Errorf("unknown notification purpose %q", purpose)
	}

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", purpose, "to", recipient, "subject", subject, "url", link)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{recipient},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err == nil {
		slog.Info("email sent", "type", purpose, "to", recipient)
	}
	return err
}
