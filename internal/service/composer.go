package service

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/kursadbilgin/workshop-checkin/internal/provider"
)

const (
	entryTimeLayout        = "02-Jan-2006 03:04 PM"
	credentialAttachment   = "qr_code.png"
	credentialImagePathFmt = "%s/api/qr/%s.png"
)

// CredentialRenderer turns a credential token into an image attached to the
// registration email.
type CredentialRenderer interface {
	RenderPNG(token string) ([]byte, error)
}

type Templates struct {
	Registration string
	Entry        string
}

// Composer builds the per-channel payloads of a dispatch job.
type Composer struct {
	templates     Templates
	publicBaseURL string
	location      *time.Location
	renderer      CredentialRenderer
}

func NewComposer(templates Templates, publicBaseURL string, location *time.Location, renderer CredentialRenderer) *Composer {
	if location == nil {
		location = time.UTC
	}
	return &Composer{
		templates:     templates,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		location:      location,
		renderer:      renderer,
	}
}

// Location is the timezone entry times are stamped and rendered in.
func (c *Composer) Location() *time.Location {
	return c.location
}

func (c *Composer) FormatEntryTime(t time.Time) string {
	return t.In(c.location).Format(entryTimeLayout)
}

func (c *Composer) Email(job DispatchJob) (provider.Email, error) {
	a := job.Attendee
	if job.Kind == domain.MessageKindEntry {
		return provider.Email{
			To:      a.Email,
			Subject: fmt.Sprintf("Entry Confirmed - %s", a.Batch),
			Text: fmt.Sprintf("Dear %s,\nYour entry at %s %s is confirmed.\nEnjoy the workshop!",
				a.Name, c.FormatEntryTime(job.entryTime()), c.zoneName(job.entryTime())),
		}, nil
	}

	email := provider.Email{
		To:      a.Email,
		Subject: fmt.Sprintf("Workshop QR Code - %s", a.Batch),
		Text:    fmt.Sprintf("Dear %s,\nYour registration is confirmed.\nBatch: %s\nQR attached.", a.Name, a.Batch),
	}
	if c.renderer == nil {
		return email, nil
	}

	png, err := c.renderer.RenderPNG(a.CredentialToken)
	if err != nil {
		return email, fmt.Errorf("render credential image: %w", err)
	}
	email.Attachments = []provider.Attachment{{
		Name:    credentialAttachment,
		Content: base64.StdEncoding.EncodeToString(png),
	}}
	return email, nil
}

func (c *Composer) Template(job DispatchJob, recipient string) provider.TemplateMessage {
	a := job.Attendee
	if job.Kind == domain.MessageKindEntry {
		return provider.TemplateMessage{
			Recipient:    recipient,
			TemplateName: c.templates.Entry,
			Params: []provider.TemplateParam{
				{Name: "name", Value: a.Name},
				{Name: "batch", Value: a.Batch},
				{Name: "time", Value: c.FormatEntryTime(job.entryTime())},
				{Name: "email", Value: a.Email},
			},
		}
	}

	return provider.TemplateMessage{
		Recipient:    recipient,
		TemplateName: c.templates.Registration,
		Params: []provider.TemplateParam{
			{Name: "name", Value: a.Name},
			{Name: "batch", Value: a.Batch},
			{Name: "qr_code", Value: c.credentialImageURL(a.ID)},
		},
	}
}

// credentialImageURL points at the attendee's QR image under PUBLIC_BASE_URL.
// This service does not serve that path; the image host behind the public base
// URL does. It is empty when no public base URL is configured.
func (c *Composer) credentialImageURL(attendeeID string) string {
	if c.publicBaseURL == "" {
		return ""
	}
	return fmt.Sprintf(credentialImagePathFmt, c.publicBaseURL, attendeeID)
}

func (c *Composer) zoneName(t time.Time) string {
	name, _ := t.In(c.location).Zone()
	return name
}
