package services

import (
	"crypto/tls"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

// ContactMessage is a submitted contact form entry. The field names match
// the site form inputs.
type ContactMessage struct {
	Name    string `json:"user-name" form:"user-name" validate:"required,max=255"`
	Email   string `json:"user-email" form:"user-email" validate:"required,email"`
	Subject string `json:"user-subject" form:"user-subject" validate:"required,max=255"`
	Message string `json:"user-message" form:"user-message" validate:"required"`
}

// EmailService delivers contact form submissions over SMTP
type EmailService struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	contactTo string
}

// EmailConfig holds SMTP settings for the email service
type EmailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	ContactTo string
}

// NewEmailService creates a new email service instance
func NewEmailService(cfg EmailConfig) *EmailService {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &EmailService{
		host:      cfg.Host,
		port:      cfg.Port,
		username:  cfg.Username,
		password:  cfg.Password,
		from:      cfg.From,
		contactTo: cfg.ContactTo,
	}
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.username != "" && e.password != ""
}

// SendContactMessage forwards a contact form submission to the sales inbox
func (e *EmailService) SendContactMessage(msg ContactMessage) error {
	if !e.IsConfigured() {
		log.Warnf("SMTP not configured, dropping contact message from %s <%s>", msg.Name, msg.Email)
		return fmt.Errorf("SMTP not configured")
	}

	subject := fmt.Sprintf("Contact Form: %s", msg.Subject)
	body := e.buildContactEmailBody(msg)

	return e.sendEmail(e.contactTo, msg.Email, subject, body)
}

// buildContactEmailBody creates the HTML email body for a contact message
func (e *EmailService) buildContactEmailBody(msg ContactMessage) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New Contact Message</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #1a3c6e; border-bottom: 2px solid #1a3c6e; padding-bottom: 10px;">New Contact Message</h2>
    <p><strong>Name:</strong> %s</p>
    <p><strong>Email:</strong> %s</p>
    <p><strong>Subject:</strong> %s</p>
    <p><strong>Message:</strong></p>
    <div style="background-color: #f5f5f5; border-radius: 6px; padding: 16px; white-space: pre-wrap;">%s</div>
</body>
</html>`,
		html.EscapeString(msg.Name),
		html.EscapeString(msg.Email),
		html.EscapeString(msg.Subject),
		html.EscapeString(msg.Message),
	)
}

// sendEmail delivers one HTML email over SMTP with STARTTLS
func (e *EmailService) sendEmail(to, replyTo, subject, htmlBody string) error {
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("BrainGenTech <%s>", e.from)
	headers["Reply-To"] = replyTo
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"
	headers["X-Mailer"] = "BrainGenTech Mailer"

	var message strings.Builder
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)

	tlsConfig := &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         e.host,
	}

	conn, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if err := conn.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := conn.Mail(e.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}

	return nil
}
