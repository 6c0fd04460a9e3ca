package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/coyote/taskboard/internal/config"
	"github.com/coyote/taskboard/pkg/logger"
)

// SMTPSender delivers messages through an SMTP relay. With UseTLS the
// connection is TLS from the first byte; otherwise net/smtp upgrades with
// STARTTLS when the server offers it.
type SMTPSender struct {
	cfg      config.MailConfig
	renderer *Renderer
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.MailConfig, renderer *Renderer) *SMTPSender {
	s := &SMTPSender{cfg: cfg, renderer: renderer}
	if cfg.UseTLS {
		s.send = s.sendTLS
	} else {
		s.send = smtp.SendMail
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Host == "" {
		return fmt.Errorf("mail server not configured")
	}

	body, err := s.renderer.Render(msg)
	if err != nil {
		return err
	}

	from := s.from()
	raw := buildMessage(from, msg.Recipient, msg.Subject, body)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(addr, auth, from, []string{msg.Recipient}, raw); err != nil {
		logger.Warn().Err(err).Str("template", msg.Template).Msg("[Email] send failed")
		return err
	}

	logger.Info().Str("template", msg.Template).Str("recipient", msg.Recipient).Msg("[Email] sent")
	return nil
}

func (s *SMTPSender) from() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.Username
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	headers := [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func (s *SMTPSender) sendTLS(addr string, auth smtp.Auth, from string, to []string, message []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(message); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
