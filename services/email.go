package services

import (
	"fmt"
	"html"
	"strings"

	"tradeops_app_go/config"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Email represents an email message
type Email struct {
	To          []string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []EmailAttachment
}

// EmailAttachment is a file sent along with an email
type EmailAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	// In test mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmail(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}
	for _, a := range email.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     a.Content,
		})
	}

	sent, err := resend.NewClient(cfg.ResendAPIKey).Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	zap.L().Named("email").Info("email sent",
		zap.String("id", sent.Id),
		zap.Strings("to", email.To),
		zap.Int("attachments", len(email.Attachments)),
	)
	return nil
}

func logEmail(email *Email) {
	names := make([]string, 0, len(email.Attachments))
	for _, a := range email.Attachments {
		names = append(names, fmt.Sprintf("%s (%d bytes)", a.Filename, len(a.Content)))
	}
	zap.L().Named("email").Info("email logged (test mode, not sent)",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("text", email.TextBody),
		zap.String("attachments", strings.Join(names, ", ")),
	)
}

// SendEmailAsync sends an email in a goroutine so handlers don't block on the provider
func SendEmailAsync(cfg *config.Config, email *Email) {
	emailCopy := *email
	emailCopy.To = append([]string{}, email.To...)
	emailCopy.Attachments = append([]EmailAttachment{}, email.Attachments...)

	go func() {
		if err := SendEmail(cfg, &emailCopy); err != nil {
			zap.L().Named("email").Error("async email failed", zap.Strings("to", emailCopy.To), zap.Error(err))
		}
	}()
}

// BuildDocumentEmail creates the cover email for a generated document
func BuildDocumentEmail(to []string, companyName, title, number string, attachment EmailAttachment) *Email {
	subject := fmt.Sprintf("%s %s", title, number)
	if companyName != "" {
		subject = fmt.Sprintf("%s %s from %s", title, number, companyName)
	}

	text := fmt.Sprintf("Good day,\n\nPlease find attached %s %s.\n\nRegards,\n%s\n", strings.ToLower(title), number, companyName)
	htmlBody := fmt.Sprintf("<p>Good day,</p><p>Please find attached %s <strong>%s</strong>.</p><p>Regards,<br>%s</p>",
		strings.ToLower(title), html.EscapeString(number), html.EscapeString(companyName))

	return &Email{
		To:          to,
		Subject:     subject,
		TextBody:    text,
		HTMLBody:    htmlBody,
		Attachments: []EmailAttachment{attachment},
	}
}
