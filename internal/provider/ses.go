package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

const sesCharset = "UTF-8"

type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	FromEmail       string
	FromName        string
}

func (c SESConfig) configured() bool {
	return strings.TrimSpace(c.Region) != "" &&
		strings.TrimSpace(c.AccessKeyID) != "" &&
		strings.TrimSpace(c.SecretAccessKey) != ""
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

var _ EmailSender = (*SESEmailProvider)(nil)

// SESEmailProvider sends email through AWS SES. Messages with attachments go
// out as raw MIME.
type SESEmailProvider struct {
	client sesAPI
	cfg    SESConfig
	logger *zap.Logger
}

// NewSESEmailProvider builds the SES client with static credentials. The HTTP
// client carries the per-call timeout shared with the other senders.
func NewSESEmailProvider(cfg SESConfig, httpClient *http.Client, logger *zap.Logger) (*SESEmailProvider, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	awsCfg := aws.Config{
		Region: strings.TrimSpace(cfg.Region),
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		HTTPClient:       httpClient,
		RetryMaxAttempts: 1,
	}

	return newSESEmailProvider(ses.NewFromConfig(awsCfg), cfg, logger), nil
}

func newSESEmailProvider(client sesAPI, cfg SESConfig, logger *zap.Logger) *SESEmailProvider {
	return &SESEmailProvider{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("provider", "ses")),
	}
}

func (p *SESEmailProvider) Send(ctx context.Context, email Email) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("ses provider is not initialized")
	}
	if !p.cfg.configured() {
		p.logger.Warn("email send skipped: provider not configured")
		return notConfigured("ses region or credentials missing")
	}
	if strings.TrimSpace(p.cfg.FromEmail) == "" {
		p.logger.Warn("email send skipped: sender address not configured")
		return notConfigured("email sender address missing")
	}
	if strings.TrimSpace(email.To) == "" {
		return &ProviderError{Message: "email recipient is empty"}
	}

	var (
		messageID *string
		err       error
	)
	if len(email.Attachments) > 0 {
		var raw []byte
		raw, err = buildRawMessage(p.source(), email)
		if err != nil {
			return &ProviderError{Message: "build raw email", Cause: err}
		}
		var out *ses.SendRawEmailOutput
		out, err = p.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
			Destinations: []string{email.To},
			RawMessage:   &types.RawMessage{Data: raw},
		})
		if out != nil {
			messageID = out.MessageId
		}
	} else {
		var out *ses.SendEmailOutput
		out, err = p.client.SendEmail(ctx, &ses.SendEmailInput{
			Source:      aws.String(p.source()),
			Destination: &types.Destination{ToAddresses: []string{email.To}},
			Message: &types.Message{
				Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String(sesCharset)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(email.Text), Charset: aws.String(sesCharset)},
				},
			},
		})
		if out != nil {
			messageID = out.MessageId
		}
	}

	if err != nil {
		p.logger.Warn("ses send failed", zap.String("to", email.To), zap.Error(err))
		return classifySESError(err)
	}

	p.logger.Info("email sent via ses", zap.String("to", email.To), zap.String("messageId", aws.ToString(messageID)))
	return nil
}

func (p *SESEmailProvider) source() string {
	if name := strings.TrimSpace(p.cfg.FromName); name != "" {
		return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode(sesCharset, name), p.cfg.FromEmail)
	}
	return p.cfg.FromEmail
}

func classifySESError(err error) error {
	var responseErr *awshttp.ResponseError
	if errors.As(err, &responseErr) {
		status := responseErr.HTTPStatusCode()
		return &ProviderError{
			StatusCode: status,
			Message:    providerErrorMessage(status, ""),
			Transient:  isTransientHTTPStatus(status),
			Cause:      err,
		}
	}
	return &ProviderError{
		Message:   "ses request failed",
		Transient: !errors.Is(err, context.Canceled),
		Cause:     err,
	}
}

// buildRawMessage renders a multipart/mixed message: one text part followed
// by the attachments, whose content is already base64.
func buildRawMessage(source string, email Email) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", source)
	fmt.Fprintf(&buf, "To: %s\r\n", email.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode(sesCharset, email.Subject))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	textPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=UTF-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(email.Text)); err != nil {
		return nil, err
	}

	for _, attachment := range email.Attachments {
		contentType := mime.TypeByExtension(fileExtension(attachment.Name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {contentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", attachment.Name)},
		})
		if err != nil {
			return nil, err
		}
		if err := writeWrapped(part, attachment.Content, 76); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeWrapped keeps base64 bodies under the MIME line length limit.
func writeWrapped(w io.Writer, content string, width int) error {
	for len(content) > 0 {
		n := min(width, len(content))
		if _, err := io.WriteString(w, content[:n]+"\r\n"); err != nil {
			return err
		}
		content = content[n:]
	}
	return nil
}

func fileExtension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}
