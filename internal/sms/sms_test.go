package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/msp-alerts/pkg/logger"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) *GatewaySender {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewGatewaySender(Config{
		GatewayURL:     srv.URL,
		APIKey:         "secret",
		Sender:         "MSP",
		Timeout:        2 * time.Second,
		RatePerSecond:  100,
		Burst:          10,
		MaxMessageSize: 20,
	}, logger.Nop())
	require.NoError(t, err)
	return s
}

func TestGatewaySender_Send(t *testing.T) {
	var got sendRequest
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"sm-1","status":"queued"}`))
	})

	require.NoError(t, s.Send(context.Background(), "+15550100", "[CRITICAL] srv-01: disk full"))
	assert.Equal(t, "+15550100", got.To)
	assert.Equal(t, "MSP", got.From)
	assert.Equal(t, "[CRITICAL] srv-01...", got.Body)
}

func TestGatewaySender_GatewayRejects(t *testing.T) {
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"code":"invalid_number","message":"E.164 required","user_message":"Invalid phone number"}}`))
	})

	err := s.Send(context.Background(), "555", "hello")
	var smsErr *SMSError
	require.True(t, errors.As(err, &smsErr))
	assert.Equal(t, http.StatusUnprocessableEntity, smsErr.StatusCode)
	assert.Equal(t, "invalid_number", smsErr.Code)
	assert.Equal(t, "Invalid phone number", smsErr.UserMessage)
}

func TestGatewaySender_ServerErrorWithoutBody(t *testing.T) {
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := s.Send(context.Background(), "+15550100", "hello")
	var smsErr *SMSError
	require.True(t, errors.As(err, &smsErr))
	assert.Equal(t, "Bad Gateway", smsErr.Message)
	assert.Empty(t, smsErr.UserMessage)
}

func TestGatewaySender_CancelledContext(t *testing.T) {
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway must not be called")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Send(ctx, "+15550100", "hello"))
	assert.Error(t, s.Send(context.Background(), "", "hello"))
}

func TestNewGatewaySender_RequiresURL(t *testing.T) {
	_, err := NewGatewaySender(Config{}, logger.Nop())
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 20))
	assert.Equal(t, "unlimited message", Truncate("unlimited message", 0))
	assert.Equal(t, "Disq...", Truncate("Disque plein", 7))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
}

func TestDisabledSender(t *testing.T) {
	assert.ErrorIs(t, NewDisabledSender().Send(context.Background(), "+1", "x"), ErrDisabled)
}
