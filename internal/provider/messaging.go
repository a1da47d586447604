package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/workshop-checkin/internal/observability"
	"go.uber.org/zap"
)

const defaultBroadcastName = "utility"

type MessagingConfig struct {
	BaseURL       string
	APIToken      string
	BroadcastName string
	ChannelNumber string
}

var _ MessagingSender = (*MessagingProvider)(nil)

// MessagingProvider sends template messages to tenants whose accepted request
// contract varies. It walks an ordered ladder of request shapes and stops at the
// first one the tenant confirms.
type MessagingProvider struct {
	client  *resty.Client
	cfg     MessagingConfig
	shapes  []requestShape
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewMessagingProvider(cfg MessagingConfig, client *resty.Client, logger *zap.Logger) (*MessagingProvider, error) {
	client, err := prepareClient(client)
	if err != nil {
		return nil, err
	}
	if err := validateOptionalURL(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("messaging base url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIToken = strings.TrimSpace(cfg.APIToken)
	if strings.TrimSpace(cfg.BroadcastName) == "" {
		cfg.BroadcastName = defaultBroadcastName
	}

	return &MessagingProvider{
		client: client,
		cfg:    cfg,
		shapes: defaultShapes(),
		logger: logger.With(zap.String("provider", "messaging")),
	}, nil
}

func (p *MessagingProvider) SetMetrics(metrics *observability.Metrics) {
	if p == nil {
		return
	}
	p.metrics = metrics
}

// SendTemplate returns nil on the first confirmed shape; otherwise the error of
// the last attempted shape.
func (p *MessagingProvider) SendTemplate(ctx context.Context, msg TemplateMessage) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("messaging provider is not initialized")
	}
	if p.cfg.APIToken == "" || p.cfg.BaseURL == "" || strings.TrimSpace(msg.TemplateName) == "" {
		p.logger.Warn("messaging send skipped: token, base url or template missing",
			zap.String("template", msg.TemplateName),
		)
		return notConfigured("messaging token, base url or template missing")
	}
	if strings.TrimSpace(msg.Recipient) == "" {
		return &ProviderError{Message: "messaging recipient is empty"}
	}

	var lastErr error
	for i, shape := range p.shapes {
		if ctx.Err() != nil {
			return &ProviderError{Message: "messaging send canceled", Cause: ctx.Err()}
		}

		err := p.attempt(ctx, shape, msg)
		p.observe(shape.name, err)
		if err == nil {
			p.logger.Info("messaging shape confirmed",
				zap.String("shape", shape.name),
				zap.Int("attempt", i+1),
				zap.String("recipient", msg.Recipient),
			)
			return nil
		}

		p.logger.Warn("messaging shape failed",
			zap.String("shape", shape.name),
			zap.Int("attempt", i+1),
			zap.String("recipient", msg.Recipient),
			zap.Error(err),
		)
		lastErr = err
	}

	return fmt.Errorf("all %d messaging request shapes failed: %w", len(p.shapes), lastErr)
}

func (p *MessagingProvider) attempt(ctx context.Context, shape requestShape, msg TemplateMessage) error {
	common := templatePayload{
		TemplateName:  msg.TemplateName,
		BroadcastName: p.cfg.BroadcastName,
		Parameters:    msg.Params,
		ChannelNumber: p.cfg.ChannelNumber,
	}

	req := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", bearer(p.cfg.APIToken)).
		SetHeader("Content-Type", "application/json").
		SetBody(shape.body(common, msg))
	if shape.recipientInQuery {
		req.SetQueryParam("whatsappNumber", msg.Recipient)
	}

	response, err := req.Post(p.cfg.BaseURL + shape.path)
	if err != nil {
		return &ProviderError{
			Message:   fmt.Sprintf("%s request failed", shape.name),
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())
	p.logger.Debug("messaging provider responded",
		zap.String("shape", shape.name),
		zap.Int("status", statusCode),
		zap.String("body", truncate(body, maxErrorBodyLength)),
	)

	if statusCode != http.StatusOK {
		return &ProviderError{
			StatusCode: statusCode,
			Message:    providerErrorMessage(statusCode, body),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}
	if !resultConfirmed(response.Body()) {
		return &ProviderError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("%s: %s", shape.name, truncate(body, maxErrorBodyLength)),
			Cause:      ErrNotConfirmed,
		}
	}

	return nil
}

func (p *MessagingProvider) observe(shape string, err error) {
	if p.metrics == nil {
		return
	}
	outcome := "confirmed"
	if err != nil {
		outcome = FailureReason(err)
	}
	p.metrics.IncLadderAttempt(shape, outcome)
}

// resultConfirmed reports whether the body is a JSON object with result == true.
func resultConfirmed(body []byte) bool {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false
	}
	result, ok := parsed["result"].(bool)
	return ok && result
}

func bearer(token string) string {
	t := strings.TrimSpace(token)
	if strings.HasPrefix(strings.ToLower(t), "bearer ") {
		return t
	}
	return "Bearer " + t
}
