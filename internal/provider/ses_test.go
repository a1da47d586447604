package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"
)

type fakeSES struct {
	sendFn    func(ctx context.Context, in *ses.SendEmailInput) (*ses.SendEmailOutput, error)
	sendRawFn func(ctx context.Context, in *ses.SendRawEmailInput) (*ses.SendRawEmailOutput, error)
	calls     int
}

func (f *fakeSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.calls++
	if f.sendFn == nil {
		return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
	}
	return f.sendFn(ctx, in)
}

func (f *fakeSES) SendRawEmail(ctx context.Context, in *ses.SendRawEmailInput, _ ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	f.calls++
	if f.sendRawFn == nil {
		return &ses.SendRawEmailOutput{MessageId: aws.String("m-raw")}, nil
	}
	return f.sendRawFn(ctx, in)
}

func testSESConfig() SESConfig {
	return SESConfig{
		Region:          "ap-south-1",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "secret",
		FromEmail:       "team@example.com",
		FromName:        "Workshop Team",
	}
}

func TestSESEmailProviderSendPlainText(t *testing.T) {
	t.Parallel()

	var got *ses.SendEmailInput
	client := &fakeSES{sendFn: func(_ context.Context, in *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
		got = in
		return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
	}}
	p := newSESEmailProvider(client, testSESConfig(), zap.NewNop())

	err := p.Send(context.Background(), Email{To: "asha@example.com", Subject: "Entry Confirmed - Batch A", Text: "hello"})
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("SendEmail was not called")
	}
	if to := got.Destination.ToAddresses; len(to) != 1 || to[0] != "asha@example.com" {
		t.Fatalf("to = %v, want asha@example.com", to)
	}
	if subject := aws.ToString(got.Message.Subject.Data); subject != "Entry Confirmed - Batch A" {
		t.Fatalf("subject = %q", subject)
	}
	if source := aws.ToString(got.Source); !strings.Contains(source, "<team@example.com>") {
		t.Fatalf("source = %q, want sender address", source)
	}
}

func TestSESEmailProviderAttachmentUsesRawMessage(t *testing.T) {
	t.Parallel()

	var got *ses.SendRawEmailInput
	client := &fakeSES{sendRawFn: func(_ context.Context, in *ses.SendRawEmailInput) (*ses.SendRawEmailOutput, error) {
		got = in
		return &ses.SendRawEmailOutput{MessageId: aws.String("m-raw")}, nil
	}}
	p := newSESEmailProvider(client, testSESConfig(), zap.NewNop())

	err := p.Send(context.Background(), Email{
		To:          "asha@example.com",
		Subject:     "Workshop QR Code - Batch A",
		Text:        "hello",
		Attachments: []Attachment{{Name: "qr_code.png", Content: "aGVsbG8="}},
	})
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("SendRawEmail was not called")
	}
	raw := string(got.RawMessage.Data)
	for _, want := range []string{
		"To: asha@example.com",
		"Content-Type: multipart/mixed",
		"Content-Type: image/png",
		`filename="qr_code.png"`,
		"aGVsbG8=",
		"hello",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("raw message missing %q", want)
		}
	}
}

func TestSESEmailProviderMissingConfigurationSkipsNetwork(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*SESConfig)
	}{
		{name: "region", mutate: func(c *SESConfig) { c.Region = "" }},
		{name: "access key", mutate: func(c *SESConfig) { c.AccessKeyID = " " }},
		{name: "secret", mutate: func(c *SESConfig) { c.SecretAccessKey = "" }},
		{name: "sender", mutate: func(c *SESConfig) { c.FromEmail = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testSESConfig()
			tt.mutate(&cfg)
			client := &fakeSES{}
			p := newSESEmailProvider(client, cfg, zap.NewNop())

			err := p.Send(context.Background(), Email{To: "asha@example.com", Subject: "s", Text: "t"})
			if !errors.Is(err, ErrNotConfigured) {
				t.Fatalf("Send() error = %v, want ErrNotConfigured", err)
			}
			if client.calls != 0 {
				t.Fatalf("client calls = %d, want 0", client.calls)
			}
		})
	}
}

func TestSESEmailProviderEmptyRecipient(t *testing.T) {
	t.Parallel()

	client := &fakeSES{}
	p := newSESEmailProvider(client, testSESConfig(), zap.NewNop())

	err := p.Send(context.Background(), Email{To: "  ", Subject: "s", Text: "t"})
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("Send() error = %v, want *ProviderError", err)
	}
	if client.calls != 0 {
		t.Fatalf("client calls = %d, want 0", client.calls)
	}
}

func TestSESEmailProviderClassifiesErrors(t *testing.T) {
	t.Parallel()

	responseErr := func(status int) error {
		return &awshttp.ResponseError{
			ResponseError: &smithyhttp.ResponseError{
				Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
				Err:      errors.New("api error"),
			},
			RequestID: "req-1",
		}
	}

	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantTransient bool
	}{
		{name: "throttled", err: responseErr(http.StatusTooManyRequests), wantStatus: 429, wantTransient: true},
		{name: "unavailable", err: responseErr(http.StatusServiceUnavailable), wantStatus: 503, wantTransient: true},
		{name: "rejected", err: responseErr(http.StatusBadRequest), wantStatus: 400, wantTransient: false},
		{name: "transport", err: errors.New("dial tcp: connection refused"), wantStatus: 0, wantTransient: true},
		{name: "canceled", err: context.Canceled, wantStatus: 0, wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &fakeSES{sendFn: func(context.Context, *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
				return nil, tt.err
			}}
			p := newSESEmailProvider(client, testSESConfig(), zap.NewNop())

			err := p.Send(context.Background(), Email{To: "asha@example.com", Subject: "s", Text: "t"})
			var providerErr *ProviderError
			if !errors.As(err, &providerErr) {
				t.Fatalf("Send() error = %v, want *ProviderError", err)
			}
			if providerErr.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", providerErr.StatusCode, tt.wantStatus)
			}
			if providerErr.Transient != tt.wantTransient {
				t.Fatalf("transient = %v, want %v", providerErr.Transient, tt.wantTransient)
			}
		})
	}
}

func TestWriteWrappedSplitsLongLines(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	if err := writeWrapped(&b, strings.Repeat("A", 10), 4); err != nil {
		t.Fatalf("writeWrapped() error = %v", err)
	}
	if got, want := b.String(), "AAAA\r\nAAAA\r\nAA\r\n"; got != want {
		t.Fatalf("writeWrapped() = %q, want %q", got, want)
	}
}
