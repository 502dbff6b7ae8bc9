package email

import (
	"context"

	"gopkg.in/gomail.v2"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPProvider sends through a plain SMTP relay.
type SMTPProvider struct {
	host   string
	dialer mailDialer
}

func NewSMTPProvider(host string, port int, user, password string) *SMTPProvider {
	return &SMTPProvider{
		host:   host,
		dialer: gomail.NewDialer(host, port, user, password),
	}
}

func (p *SMTPProvider) Name() string { return "smtp" }

func (p *SMTPProvider) IsConfigured() bool {
	return p.host != "" && p.dialer != nil
}

func (p *SMTPProvider) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	return p.dialer.DialAndSend(m)
}
