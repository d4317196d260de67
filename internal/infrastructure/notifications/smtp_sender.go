package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers email messages over SMTP with PLAIN auth
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *slog.Logger
	sendMail sendMailFunc
}

// NewSMTPSender creates a new SMTP email sender
func NewSMTPSender(host string, port int, username, password, from string, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

// Configured reports whether messages will actually leave the process
func (s *SMTPSender) Configured() bool {
	return s.host != ""
}

// Send implements Sender
func (s *SMTPSender) Send(ctx context.Context, to string, msg Message) error {
	if !s.Configured() {
		s.logger.InfoContext(ctx, "email transport not configured; message dropped",
			"to", maskDestination(to), "subject", msg.Subject)
		return nil
	}

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	if err := s.sendMail(addr, auth, s.from, []string{to}, buildMIME(s.from, to, msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func buildMIME(from, to string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
