package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/yungbote/coursehub-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

var ErrMailDisabled = errors.New("sendgrid is not configured")

type Client interface {
	Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error)
}

type Config struct {
	APIKey           string
	DefaultFromEmail string
	DefaultFromName  string
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.DefaultFromEmail) != ""
}

type EmailAddress struct {
	Email string
	Name  string
}

type SendEmailRequest struct {
	From       *EmailAddress
	To         []EmailAddress
	Subject    string
	Text       string
	HTML       string
	Categories []string
}

type SendEmailResult struct {
	StatusCode int
	MessageID  string
}

type client struct {
	log *logger.Logger
	cfg Config
	sg  *sg.Client
}

// New returns a SendGrid backed client, or one that logs and refuses when unconfigured.
func New(log *logger.Logger, cfg Config) Client {
	clientLog := log.With("client", "SendGrid")
	if !cfg.Enabled() {
		clientLog.Warn("SENDGRID_API_KEY or SENDGRID_FROM_EMAIL missing; outbound mail disabled")
		return &disabledClient{log: clientLog}
	}
	return &client{log: clientLog, cfg: cfg, sg: sg.NewSendClient(cfg.APIKey)}
}

func (c *client) Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error) {
	msg, err := buildMessage(c.cfg, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.sg.SendWithContext(ctxutil.Default(ctx), msg)
	if err != nil {
		return nil, fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("sendgrid send: status=%d body=%s", resp.StatusCode, truncate(resp.Body, 512))
	}

	out := &SendEmailResult{StatusCode: resp.StatusCode}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		out.MessageID = ids[0]
	}
	c.log.Info("mail sent", "status", resp.StatusCode, "message_id", out.MessageID, "subject", req.Subject)
	return out, nil
}

func buildMessage(cfg Config, req SendEmailRequest) (*mail.SGMailV3, error) {
	if len(req.To) == 0 {
		return nil, fmt.Errorf("at least one recipient required")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return nil, fmt.Errorf("subject required")
	}
	if req.Text == "" && req.HTML == "" {
		return nil, fmt.Errorf("text or html body required")
	}

	from := EmailAddress{Email: cfg.DefaultFromEmail, Name: cfg.DefaultFromName}
	if req.From != nil && strings.TrimSpace(req.From.Email) != "" {
		from = *req.From
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(from.Name, from.Email))
	m.Subject = req.Subject

	p := mail.NewPersonalization()
	for _, to := range req.To {
		p.AddTos(mail.NewEmail(to.Name, to.Email))
	}
	m.AddPersonalizations(p)

	if req.Text != "" {
		m.AddContent(mail.NewContent("text/plain", req.Text))
	}
	if req.HTML != "" {
		m.AddContent(mail.NewContent("text/html", req.HTML))
	}
	if len(req.Categories) > 0 {
		m.AddCategories(req.Categories...)
	}
	return m, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

type disabledClient struct {
	log *logger.Logger
}

func (d *disabledClient) Send(_ context.Context, req SendEmailRequest) (*SendEmailResult, error) {
	d.log.Warn("mail dropped; sendgrid disabled", "subject", req.Subject)
	return nil, ErrMailDisabled
}
