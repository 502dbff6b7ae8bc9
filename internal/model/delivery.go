package model

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelRealtime Channel = "realtime"
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelPush     Channel = "push"
)

type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// DeliveryAttempt is one (occurrence, subscriber, channel) outcome.
// Exactly one of SentAt and FailedAt is set.
type DeliveryAttempt struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	OccurrenceID   uuid.UUID      `json:"occurrence_id" db:"occurrence_id"`
	SubscriberKind SubscriberKind `json:"subscriber_kind" db:"subscriber_kind"`
	SubscriptionID uuid.UUID      `json:"subscription_id" db:"subscription_id"`
	Channel        Channel        `json:"channel" db:"channel"`
	Recipient      string         `json:"recipient" db:"recipient"`
	Status         DeliveryStatus `json:"status" db:"status"`
	Locale         string         `json:"locale" db:"locale"`
	ErrorMessage   *string        `json:"error_message,omitempty" db:"error_message"`
	SentAt         *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	FailedAt       *time.Time     `json:"failed_at,omitempty" db:"failed_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// NewSentAttempt builds a successful attempt stamped at now.
func NewSentAttempt(occurrenceID uuid.UUID, kind SubscriberKind, subscriptionID uuid.UUID, ch Channel, recipient, locale string, now time.Time) *DeliveryAttempt {
	return &DeliveryAttempt{
		ID:             uuid.New(),
		OccurrenceID:   occurrenceID,
		SubscriberKind: kind,
		SubscriptionID: subscriptionID,
		Channel:        ch,
		Recipient:      recipient,
		Status:         DeliveryStatusSent,
		Locale:         locale,
		SentAt:         &now,
		CreatedAt:      now,
	}
}

// NewFailedAttempt builds a failed attempt stamped at now.
func NewFailedAttempt(occurrenceID uuid.UUID, kind SubscriberKind, subscriptionID uuid.UUID, ch Channel, recipient, locale, errMsg string, now time.Time) *DeliveryAttempt {
	return &DeliveryAttempt{
		ID:             uuid.New(),
		OccurrenceID:   occurrenceID,
		SubscriberKind: kind,
		SubscriptionID: subscriptionID,
		Channel:        ch,
		Recipient:      recipient,
		Status:         DeliveryStatusFailed,
		Locale:         locale,
		ErrorMessage:   &errMsg,
		FailedAt:       &now,
		CreatedAt:      now,
	}
}

// Counts is the sent/failed tally returned to the trigger caller.
type Counts struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// DispatchResult is the aggregate outcome of one dispatch call.
type DispatchResult struct {
	Success   bool   `json:"success"`
	Employees Counts `json:"employees"`
	Clients   Counts `json:"clients"`
	Error     string `json:"error,omitempty"`
}
