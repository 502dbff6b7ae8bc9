package email

import (
	"context"
	"errors"
)

var ErrNoRecipients = errors.New("no recipients specified")

// Message is one outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a message or returns why it could not.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Provider is a single email backend registered with a Registry.
type Provider interface {
	Sender
	Name() string
	IsConfigured() bool
}
