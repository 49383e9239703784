package sender

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/worker/domain"
)

// SMTPConfig configures the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP sends plain-text email through an SMTP relay.
type SMTP struct {
	cfg  SMTPConfig
	send SendMailFunc
	now  func() time.Time
}

// NewSMTP creates an SMTP sender. A nil send uses smtp.SendMail.
func NewSMTP(cfg SMTPConfig, send SendMailFunc) *SMTP {
	if send == nil {
		send = smtp.SendMail
	}
	return &SMTP{cfg: cfg, send: send, now: time.Now}
}

func (s *SMTP) SendEmail(ctx context.Context, to, name, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("%w: bad recipient %q: %v", domain.ErrInvalidPayload, to, err)
	}
	rcpt.Name = name

	from := mail.Address{Name: s.cfg.FromName, Address: s.cfg.From}
	msg := s.compose(from, *rcpt, subject, body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	if err := s.send(addr, auth, s.cfg.From, []string{rcpt.Address}, msg); err != nil {
		return domain.NewRetryableError(fmt.Errorf("smtp send to %s: %w", rcpt.Address, err))
	}
	return nil
}

func (s *SMTP) compose(from, to mail.Address, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
