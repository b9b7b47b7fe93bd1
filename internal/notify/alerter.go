// Package notify delivers operator alerts for leads that need human triage.
package notify

import (
	"context"
	"fmt"
	"time"

	"dialer_backend/internal/dialer/repository"
	"dialer_backend/platform/config"
	"dialer_backend/platform/logger"
	"dialer_backend/platform/phone"

	gomail "github.com/wneessen/go-mail"
)

// SMTPAlerter sends operator alert emails through the configured SMTP server.
type SMTPAlerter struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	recipient string
	log       *logger.Logger
}

// New creates an SMTPAlerter, or nil when alerts are disabled. A nil
// *SMTPAlerter is safe to use.
func New(cfg config.AlertConfig, log *logger.Logger) *SMTPAlerter {
	if !cfg.GetAlertsEnabled() {
		return nil
	}

	return &SMTPAlerter{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetAlertFromName(),
		fromEmail: cfg.GetAlertFromAddress(),
		recipient: cfg.GetAlertRecipient(),
		log:       log,
	}
}

// LeadExhausted notifies the operator that a lead burned through its attempt
// budget without a successful contact and is waiting for triage.
func (a *SMTPAlerter) LeadExhausted(ctx context.Context, lead repository.Lead) error {
	if a == nil {
		return nil
	}

	subject := fmt.Sprintf("Lead needs review: %s", lead.FullName)
	body := exhaustionBody(lead)

	if err := a.send(ctx, subject, body); err != nil {
		return fmt.Errorf("exhaustion alert: %w", err)
	}

	a.log.Info("exhaustion alert sent", "leadId", lead.ID, "to", a.recipient)
	return nil
}

func exhaustionBody(lead repository.Lead) string {
	masked := ""
	if lead.Phone != nil {
		masked = phone.Mask(*lead.Phone)
	}
	lastAttempt := "unknown"
	if lead.LastAttemptAt != nil {
		lastAttempt = lead.LastAttemptAt.Format(time.RFC1123)
	}

	return fmt.Sprintf(
		"Lead %s (%s) exhausted all %d call attempts without a successful contact.\n\n"+
			"Phone: %s\nLast attempt: %s\nNotes: %s\n\n"+
			"The lead will not be called again until it is manually rescheduled.",
		lead.FullName, lead.ID, lead.CallAttempts, masked, lastAttempt, lead.Notes,
	)
}

func (a *SMTPAlerter) send(ctx context.Context, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(a.fromName, a.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(a.recipient); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	opts := []gomail.Option{
		gomail.WithPort(a.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
	}
	if a.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(a.username),
			gomail.WithPassword(a.password),
		)
	}

	client, err := gomail.NewClient(a.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, msg)
}
