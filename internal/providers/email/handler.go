// Package email dispatches report emails through SES. Results from this
// capability are never cached; each invocation is a fresh send.
package email

import (
	"context"
	"fmt"
	"time"

	stderrors "finassist/internal/common/errors"
	"finassist/internal/common/logger"
	"finassist/internal/common/validation"
	"finassist/internal/models"
)

const ProviderName = "email"

// Sender delivers one plain-text message and returns the transport's
// message ID. Satisfied by aws.SESClient.
type Sender interface {
	Send(ctx context.Context, from, to, subject, body string) (string, error)
}

type Provider struct {
	config *Config
	sender Sender
	logger logger.Logger
}

func NewProvider(config *Config, sender Sender, log logger.Logger) *Provider {
	return &Provider{
		config: config,
		sender: sender,
		logger: log.With(map[string]interface{}{
			"provider": ProviderName,
		}),
	}
}

func (p *Provider) Capability() models.Capability {
	return models.CapabilityEmail
}

func (p *Provider) Invoke(ctx context.Context, params map[string]string) (*models.Payload, error) {
	recipient := params["recipient"]
	if recipient == "" {
		return nil, stderrors.NewInvalidParametersError("recipient is required for email dispatch")
	}
	if !validation.ValidateEmail(recipient) {
		return nil, stderrors.NewInvalidRecipientError(recipient)
	}

	report := params["report"]
	if report == "" {
		report = "daily_snapshot"
	}

	subject, body := p.composeReport(report)

	messageID, err := p.sender.Send(ctx, p.config.FromEmail, recipient, subject, body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, stderrors.NewEmailSendFailedError(err)
	}

	p.logger.Info("email dispatched", map[string]interface{}{
		"recipient": recipient,
		"report":    report,
		"messageId": messageID,
	})

	return &models.Payload{
		Content: fmt.Sprintf("Report %q sent to %s.", report, recipient),
		Sources: []models.Source{{Name: "ses", Score: 1.0}},
		Data: map[string]interface{}{
			"recipient": recipient,
			"report":    report,
			"messageId": messageID,
		},
	}, nil
}

func (p *Provider) composeReport(report string) (subject, body string) {
	switch report {
	case "daily_snapshot":
		subject = p.config.DefaultSubject
		body = fmt.Sprintf(
			"Daily portfolio snapshot for %s.\n\nOpen the dashboard for the full breakdown of positions, sector allocation, and unrealized P/L.",
			time.Now().UTC().Format("2006-01-02"),
		)
	default:
		subject = p.config.DefaultSubject
		body = fmt.Sprintf("Requested report: %s.", report)
	}
	return subject, body
}
