package sms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/msp-alerts/pkg/logger"
)

// ErrDisabled is returned by the sender used when SMS is switched off.
var ErrDisabled = errors.New("sms delivery disabled")

// Sender hands a message to the SMS transport.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// SMSError is a gateway rejection. UserMessage, when set, is safe to show
// and is what gets recorded on the delivery attempt.
type SMSError struct {
	StatusCode  int
	Code        string
	Message     string
	UserMessage string
}

func (e *SMSError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sms gateway error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("sms gateway error %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	GatewayURL     string
	APIKey         string
	Sender         string
	Timeout        time.Duration
	RatePerSecond  float64
	Burst          int
	MaxMessageSize int
}

type sendRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

type sendResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		UserMessage string `json:"user_message"`
	} `json:"error"`
}

// GatewaySender posts messages to an HTTP SMS gateway.
type GatewaySender struct {
	client  *resty.Client
	limiter *rate.Limiter
	from    string
	maxLen  int
	logger  *logger.Logger
}

func NewGatewaySender(cfg Config, log *logger.Logger) (*GatewaySender, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("sms gateway url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.GatewayURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &GatewaySender{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		from:    cfg.Sender,
		maxLen:  cfg.MaxMessageSize,
		logger:  log,
	}, nil
}

func (s *GatewaySender) Send(ctx context.Context, phone, message string) error {
	if phone == "" {
		return fmt.Errorf("no phone number")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limit wait: %w", err)
	}

	var result sendResponse
	var failure errorResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(sendRequest{To: phone, From: s.from, Body: Truncate(message, s.maxLen)}).
		SetResult(&result).
		SetError(&failure).
		Post("/messages")
	if err != nil {
		return fmt.Errorf("failed to call sms gateway: %w", err)
	}

	if resp.IsError() {
		smsErr := &SMSError{
			StatusCode:  resp.StatusCode(),
			Code:        failure.Error.Code,
			Message:     failure.Error.Message,
			UserMessage: failure.Error.UserMessage,
		}
		if smsErr.Message == "" {
			smsErr.Message = http.StatusText(resp.StatusCode())
		}
		return smsErr
	}

	s.logger.Debug("sms accepted by gateway", "message_id", result.ID, "status", result.Status)
	return nil
}

// Truncate cuts message to at most max runes. A non-positive max disables it.
func Truncate(message string, max int) string {
	if max <= 0 || utf8.RuneCountInString(message) <= max {
		return message
	}
	runes := []rune(message)
	if max > 3 {
		return string(runes[:max-3]) + "..."
	}
	return string(runes[:max])
}

type disabledSender struct{}

// NewDisabledSender fails every send with ErrDisabled.
func NewDisabledSender() Sender { return disabledSender{} }

func (disabledSender) Send(context.Context, string, string) error { return ErrDisabled }
