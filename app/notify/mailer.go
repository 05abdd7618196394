package notify

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/smtp"
	"strconv"

	"github.com/domodwyer/mailyak/v3"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type SMTPMailer struct {
	cfg  SMTPConfig
	send func(mail *mailyak.MailYak) error
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("smtp host and from address are required")
	}
	return &SMTPMailer{cfg: cfg, send: (*mailyak.MailYak).Send}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	mail := mailyak.New(net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port)), auth)
	mail.To(email.To)
	mail.From(m.cfg.From)
	mail.FromName(m.cfg.FromName)
	mail.Subject(email.Subject)
	mail.HTML().Set(email.HTML)

	for _, attachment := range email.Attachments {
		mail.AttachWithMimeType(attachment.Name, bytes.NewReader(attachment.Content), "application/pdf")
	}

	// mailyak has no context support; a stuck server is abandoned at the
	// deadline and its goroutine ends with the connection.
	done := make(chan error, 1)
	go func() {
		done <- m.send(mail)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
