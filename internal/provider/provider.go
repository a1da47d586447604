package provider

import "context"

// EmailSender delivers one email through the email provider.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// MessagingSender delivers one templated message through the messaging provider.
type MessagingSender interface {
	SendTemplate(ctx context.Context, msg TemplateMessage) error
}

// Email is a plain-text message with optional inline attachments.
type Email struct {
	To          string
	Subject     string
	Text        string
	Attachments []Attachment
}

// Attachment content is base64 encoded.
type Attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// TemplateMessage addresses one recipient with a pre-approved template.
type TemplateMessage struct {
	Recipient    string
	TemplateName string
	Params       []TemplateParam
}

// TemplateParam fills one named placeholder of a template.
type TemplateParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
