package mailer

import (
	"errors"
	"fmt"
	"net/smtp"

	log "github.com/sirupsen/logrus"

	"github.com/AdityaDodda/purchase-kandhari/internal/config"
)

var ErrNotConfigured = errors.New("smtp is not configured")

// Mailer sends plain-text mail over SMTP
type Mailer struct {
	cfg config.SMTPConfig
}

func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) configured() bool {
	return m.cfg.Host != "" && m.cfg.From != ""
}

// Send delivers a single message to one recipient
func (m *Mailer) Send(to, subject, body string) error {
	if !m.configured() {
		return ErrNotConfigured
	}

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	msg := []byte("From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n\r\n" +
		body + "\r\n")

	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	log.WithField("to", to).Info("email sent")
	return nil
}

// SendPasswordReset mails the reset link for a generated token
func (m *Mailer) SendPasswordReset(to, resetLink string) error {
	subject := "Reset Your Password"
	body := fmt.Sprintf("Click the link below to reset your password:\n\n%s\n\nThis link will expire in 30 minutes.", resetLink)
	return m.Send(to, subject, body)
}
