package services

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/sendgrid"
)

type MailService interface {
	SendPasswordReset(ctx context.Context, u *types.User, rawToken string) error
}

type mailService struct {
	log       *logger.Logger
	client    sendgrid.Client
	publicURL string
}

func NewMailService(baseLog *logger.Logger, client sendgrid.Client, publicURL string) MailService {
	return &mailService{
		log:       baseLog.With("service", "MailService"),
		client:    client,
		publicURL: strings.TrimRight(strings.TrimSpace(publicURL), "/"),
	}
}

func (ms *mailService) SendPasswordReset(ctx context.Context, u *types.User, rawToken string) error {
	if u == nil {
		return fmt.Errorf("user required")
	}
	link := ms.publicURL + "/reset-password?token=" + url.QueryEscape(rawToken)
	name := u.FullName()
	res, err := ms.client.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: u.Email, Name: name}},
		Subject: "Reset your CourseHub password",
		Text: fmt.Sprintf("Hi %s,\n\nUse the link below to choose a new password. It expires soon and works once.\n\n%s\n\nIf you did not ask for this, ignore this email.\n",
			name, link),
		HTML: fmt.Sprintf(`<p>Hi %s,</p><p>Use the link below to choose a new password. It expires soon and works once.</p><p><a href="%s">Reset password</a></p><p>If you did not ask for this, ignore this email.</p>`,
			html.EscapeString(name), link),
		Categories: []string{"password_reset"},
	})
	if err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}
	ms.log.Info("password reset mail sent", "user_id", u.ID, "message_id", res.MessageID)
	return nil
}
