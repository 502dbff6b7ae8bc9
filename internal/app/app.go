// Package app builds the infrastructure shared by the api and worker binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/jwalitptl/msp-alerts/internal/config"
	"github.com/jwalitptl/msp-alerts/internal/email"
	"github.com/jwalitptl/msp-alerts/internal/sms"
	"github.com/jwalitptl/msp-alerts/pkg/logger"
	"github.com/jwalitptl/msp-alerts/pkg/messaging/redis"
)

func NewLogger(cfg config.LogConfig, service string) *logger.Logger {
	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Level),
		Output: os.Stdout,
		Pretty: cfg.Pretty,
	})
	return log.WithFields(map[string]interface{}{"service": service})
}

func NewBroker(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.RedisBroker, error) {
	return redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}, log)
}

// NewEmailRegistry registers every provider the config can reach and orders
// them primary first. SES is only set up when referenced.
func NewEmailRegistry(ctx context.Context, cfg config.EmailConfig, log *logger.Logger) (*email.Registry, error) {
	reg := email.NewRegistry(log)
	reg.Register(email.NewSMTPProvider(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password))
	reg.Register(email.NewResendProvider(cfg.Resend.APIKey))

	if cfg.Primary == "ses" || slices.Contains(cfg.Fallback, "ses") {
		ses, err := email.NewSESProvider(ctx, cfg.SES.Region)
		if err != nil {
			log.Warn("SES provider unavailable", "error", err.Error())
		}
		reg.Register(ses)
	}

	if err := reg.SetPrimary(cfg.Primary); err != nil {
		return nil, err
	}
	if err := reg.SetFallback(cfg.Fallback...); err != nil {
		return nil, err
	}
	return reg, nil
}

// NewSMSSender returns the gateway sender, or a sender that always reports
// ErrDisabled when SMS is switched off.
func NewSMSSender(cfg config.SMSConfig, log *logger.Logger) (sms.Sender, error) {
	if !cfg.Enabled {
		log.Info("SMS delivery disabled")
		return sms.NewDisabledSender(), nil
	}
	sender, err := sms.NewGatewaySender(sms.Config{
		GatewayURL:     cfg.GatewayURL,
		APIKey:         cfg.APIKey,
		Sender:         cfg.Sender,
		Timeout:        cfg.Timeout,
		RatePerSecond:  cfg.RatePerSecond,
		Burst:          cfg.Burst,
		MaxMessageSize: cfg.MaxMessageSize,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMS sender: %w", err)
	}
	return sender, nil
}
