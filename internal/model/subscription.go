package model

import (
	"github.com/google/uuid"
)

type SubscriberKind string

const (
	SubscriberEmployee SubscriberKind = "employee"
	SubscriberClient   SubscriberKind = "client"
)

// Contact is the default contact information of the account behind a subscription.
type Contact struct {
	Name   string  `json:"name" db:"contact_name"`
	Email  *string `json:"email,omitempty" db:"contact_email"`
	Phone  *string `json:"phone,omitempty" db:"contact_phone"`
	Active bool    `json:"active" db:"contact_active"`
}

// QuietHours is a local time window, "HH:MM" on both ends, end exclusive.
type QuietHours struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone,omitempty"`
}

type EmployeeChannels struct {
	Realtime    bool `json:"realtime" db:"channel_realtime"`
	Email       bool `json:"email" db:"channel_email"`
	SMS         bool `json:"sms" db:"channel_sms"`
	BrowserPush bool `json:"browser_push" db:"channel_browser_push"`
}

type EmployeeSubscription struct {
	ID            uuid.UUID        `json:"id"`
	EmployeeID    uuid.UUID        `json:"employee_id"`
	Enabled       bool             `json:"enabled"`
	AgentID       *uuid.UUID       `json:"agent_id,omitempty"`
	AccountID     *uuid.UUID       `json:"account_id,omitempty"`
	MinSeverities []Severity       `json:"min_severities"`
	AlertTypes    []string         `json:"alert_types"`
	MetricTypes   []string         `json:"metric_types"`
	Channels      EmployeeChannels `json:"channels"`
	EmailOverride *string          `json:"email_override,omitempty"`
	PhoneOverride *string          `json:"phone_override,omitempty"`
	QuietHours    *QuietHours      `json:"quiet_hours,omitempty"`
	Contact       Contact          `json:"contact"`
}

// Matches applies every eligibility rule for a staff subscription.
func (s *EmployeeSubscription) Matches(o *AlertOccurrence) bool {
	if !s.Enabled || !s.Contact.Active {
		return false
	}
	if !scopeMatches(s.AgentID, o.AgentID) || !scopeMatches(s.AccountID, o.AccountID) {
		return false
	}
	return containsSeverity(s.MinSeverities, o.Severity) &&
		containsString(s.AlertTypes, o.AlertType) &&
		containsString(s.MetricTypes, o.MetricType)
}

type ClientChannels struct {
	Email bool `json:"email" db:"channel_email"`
	SMS   bool `json:"sms" db:"channel_sms"`
	Push  bool `json:"push" db:"channel_push"`
}

type ClientSubscription struct {
	ID                uuid.UUID      `json:"id"`
	ClientUserID      uuid.UUID      `json:"client_user_id"`
	Enabled           bool           `json:"enabled"`
	AccountID         uuid.UUID      `json:"account_id"`
	AgentID           *uuid.UUID     `json:"agent_id,omitempty"`
	Categories        []string       `json:"categories"`
	Channels          ClientChannels `json:"channels"`
	EmailOverride     *string        `json:"email_override,omitempty"`
	PhoneOverride     *string        `json:"phone_override,omitempty"`
	PreferredLanguage string         `json:"preferred_language"`
	DigestMode        bool           `json:"digest_mode"`
	Contact           Contact        `json:"contact"`
}

// Matches applies every eligibility rule for a client subscription, including
// the visibility gate and digest exclusion.
func (s *ClientSubscription) Matches(o *AlertOccurrence) bool {
	if !o.ClientVisible || !s.Enabled || s.DigestMode {
		return false
	}
	if s.AccountID != o.AccountID || !scopeMatches(s.AgentID, o.AgentID) {
		return false
	}
	return containsString(s.Categories, o.ClientCategory())
}

// ResolveEmail picks the override when set, else the account default.
func ResolveEmail(override *string, c Contact) string {
	return pick(override, c.Email)
}

// ResolvePhone picks the override when set, else the account default.
func ResolvePhone(override *string, c Contact) string {
	return pick(override, c.Phone)
}

func pick(override, fallback *string) string {
	if override != nil && *override != "" {
		return *override
	}
	if fallback != nil {
		return *fallback
	}
	return ""
}

func scopeMatches(scope *uuid.UUID, value uuid.UUID) bool {
	return scope == nil || *scope == value
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsSeverity(set []Severity, v Severity) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
