package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultEmailEndpoint is the transactional email endpoint of the email provider.
const DefaultEmailEndpoint = "https://api.brevo.com/v3/smtp/email"

type EmailConfig struct {
	Endpoint  string
	APIKey    string
	FromEmail string
	FromName  string
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type emailRequest struct {
	Sender      emailAddress   `json:"sender"`
	To          []emailAddress `json:"to"`
	Subject     string         `json:"subject"`
	TextContent string         `json:"textContent"`
	Attachment  []Attachment   `json:"attachment,omitempty"`
}

var _ EmailSender = (*EmailProvider)(nil)

// EmailProvider sends transactional email with a single HTTP call.
type EmailProvider struct {
	client *resty.Client
	cfg    EmailConfig
	logger *zap.Logger
}

func NewEmailProvider(cfg EmailConfig, client *resty.Client, logger *zap.Logger) (*EmailProvider, error) {
	client, err := prepareClient(client)
	if err != nil {
		return nil, err
	}
	if err := validateOptionalURL(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("email endpoint: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	return &EmailProvider{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("provider", "email")),
	}, nil
}

func (p *EmailProvider) Send(ctx context.Context, email Email) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("email provider is not initialized")
	}
	if p.cfg.APIKey == "" || p.cfg.Endpoint == "" {
		p.logger.Warn("email send skipped: provider not configured")
		return notConfigured("email api key or endpoint missing")
	}
	if strings.TrimSpace(p.cfg.FromEmail) == "" {
		p.logger.Warn("email send skipped: sender address not configured")
		return notConfigured("email sender address missing")
	}
	if strings.TrimSpace(email.To) == "" {
		return &ProviderError{Message: "email recipient is empty"}
	}

	reqBody := emailRequest{
		Sender:      emailAddress{Email: p.cfg.FromEmail, Name: p.cfg.FromName},
		To:          []emailAddress{{Email: email.To}},
		Subject:     email.Subject,
		TextContent: email.Text,
		Attachment:  email.Attachments,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("api-key", p.cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(p.cfg.Endpoint)
	if err != nil {
		p.logger.Warn("email request failed", zap.String("to", email.To), zap.Error(err))
		return &ProviderError{
			Message:   "email request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())
	p.logger.Info("email provider responded",
		zap.String("to", email.To),
		zap.Int("status", statusCode),
		zap.String("body", truncate(body, maxErrorBodyLength)),
	)

	if isSuccessStatus(statusCode) {
		return nil
	}

	return &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, body),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}
