package email

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/msp-alerts/pkg/logger"
)

type fakeProvider struct {
	name       string
	configured bool
	err        error
	sent       []*Message
}

func (f *fakeProvider) Name() string       { return f.name }
func (f *fakeProvider) IsConfigured() bool { return f.configured }
func (f *fakeProvider) Send(_ context.Context, msg *Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func testMessage() *Message {
	return &Message{From: "alerts@example.com", To: []string{"ops@example.com"}, Subject: "s", Text: "t"}
}

func TestRegistry_PrimaryUsed(t *testing.T) {
	primary := &fakeProvider{name: "smtp", configured: true}
	fallback := &fakeProvider{name: "resend", configured: true}

	r := NewRegistry(logger.Nop())
	r.Register(primary)
	r.Register(fallback)
	require.NoError(t, r.SetPrimary("smtp"))
	require.NoError(t, r.SetFallback("resend"))

	require.NoError(t, r.Send(context.Background(), testMessage()))
	assert.Len(t, primary.sent, 1)
	assert.Empty(t, fallback.sent)
}

func TestRegistry_FallbackOnFailure(t *testing.T) {
	primary := &fakeProvider{name: "smtp", configured: true, err: errors.New("relay refused")}
	fallback := &fakeProvider{name: "ses", configured: true}

	r := NewRegistry(logger.Nop())
	r.Register(primary)
	r.Register(fallback)
	require.NoError(t, r.SetPrimary("smtp"))
	require.NoError(t, r.SetFallback("ses"))

	require.NoError(t, r.Send(context.Background(), testMessage()))
	assert.Len(t, primary.sent, 1)
	assert.Len(t, fallback.sent, 1)
}

func TestRegistry_AllFailReturnsPrimaryError(t *testing.T) {
	primaryErr := errors.New("relay refused")
	r := NewRegistry(logger.Nop())
	r.Register(&fakeProvider{name: "smtp", configured: true, err: primaryErr})
	r.Register(&fakeProvider{name: "ses", configured: true, err: errors.New("throttled")})
	require.NoError(t, r.SetPrimary("smtp"))
	require.NoError(t, r.SetFallback("ses"))

	assert.ErrorIs(t, r.Send(context.Background(), testMessage()), primaryErr)
}

func TestRegistry_SkipsUnconfigured(t *testing.T) {
	primary := &fakeProvider{name: "resend", configured: false}
	fallback := &fakeProvider{name: "smtp", configured: true}

	r := NewRegistry(logger.Nop())
	r.Register(primary)
	r.Register(fallback)
	require.NoError(t, r.SetPrimary("resend"))
	require.NoError(t, r.SetFallback("smtp"))

	require.NoError(t, r.Send(context.Background(), testMessage()))
	assert.Empty(t, primary.sent)
	assert.Len(t, fallback.sent, 1)
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry(logger.Nop())
	assert.Error(t, r.SetPrimary("missing"))
	assert.Error(t, r.SetFallback("missing"))
	assert.Error(t, r.Send(context.Background(), testMessage()))
	assert.ErrorIs(t, r.Send(context.Background(), &Message{}), ErrNoRecipients)
}

type fakeDialer struct {
	msgs []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.msgs = append(d.msgs, m...)
	return d.err
}

func TestSMTPProvider_Send(t *testing.T) {
	d := &fakeDialer{}
	p := &SMTPProvider{host: "localhost", dialer: d}

	msg := testMessage()
	msg.HTML = "<p>t</p>"
	require.NoError(t, p.Send(context.Background(), msg))
	require.Len(t, d.msgs, 1)
	assert.Equal(t, []string{"ops@example.com"}, d.msgs[0].GetHeader("To"))
	assert.Equal(t, []string{"s"}, d.msgs[0].GetHeader("Subject"))

	d.err = errors.New("connection refused")
	assert.Error(t, p.Send(context.Background(), msg))
	assert.ErrorIs(t, p.Send(context.Background(), &Message{}), ErrNoRecipients)
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESProvider_Send(t *testing.T) {
	api := &fakeSES{}
	p := &SESProvider{client: api, region: "us-east-1"}

	require.NoError(t, p.Send(context.Background(), testMessage()))
	require.NotNil(t, api.input)
	assert.Equal(t, "alerts@example.com", aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"ops@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "t", aws.ToString(api.input.Content.Simple.Body.Text.Data))
	assert.Nil(t, api.input.Content.Simple.Body.Html)

	api.err = errors.New("throttled")
	assert.ErrorContains(t, p.Send(context.Background(), testMessage()), "throttled")
}

func TestUnconfiguredProviders(t *testing.T) {
	assert.False(t, NewResendProvider("").IsConfigured())
	assert.True(t, NewResendProvider("re_test").IsConfigured())
	assert.Error(t, NewResendProvider("").Send(context.Background(), testMessage()))
	assert.False(t, (&SESProvider{}).IsConfigured())
}
