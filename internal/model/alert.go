package model

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// LocalizedText maps a locale ("en", "fr", ...) to display text. Stored as JSONB.
type LocalizedText map[string]string

// Get returns the text for locale, trying its base language ("pt" for "pt-BR") second.
func (t LocalizedText) Get(locale string) (string, bool) {
	if len(t) == 0 || locale == "" {
		return "", false
	}
	if v, ok := t[locale]; ok && v != "" {
		return v, true
	}
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		if v, ok := t[locale[:i]]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func (t LocalizedText) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

func (t *LocalizedText) Scan(src interface{}) error {
	return scanJSON(src, t)
}

// AlertOccurrence is one triggered alert instance. Created upstream and never
// modified by the dispatch path.
type AlertOccurrence struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	AgentID       uuid.UUID     `json:"agent_id" db:"agent_id"`
	AgentName     string        `json:"agent_name" db:"agent_name"`
	AccountID     uuid.UUID     `json:"account_id" db:"account_id"`
	PolicyID      *uuid.UUID    `json:"policy_id,omitempty" db:"policy_id"`
	Severity      Severity      `json:"severity" db:"severity"`
	AlertType     string        `json:"alert_type" db:"alert_type"`
	MetricType    string        `json:"metric_type" db:"metric_type"`
	Category      *string       `json:"category,omitempty" db:"category"`
	ClientVisible bool          `json:"client_visible" db:"client_visible"`
	Names         LocalizedText `json:"names,omitempty" db:"display_names"`
	Descriptions  LocalizedText `json:"descriptions,omitempty" db:"display_descriptions"`
	Indicator     JSONMap       `json:"indicator,omitempty" db:"indicator"`
	TriggeredAt   time.Time     `json:"triggered_at" db:"triggered_at"`
}

// ClientCategory is the category client subscriptions are matched against.
func (o *AlertOccurrence) ClientCategory() string {
	if o.Category != nil && *o.Category != "" {
		return *o.Category
	}
	switch strings.ToLower(o.MetricType) {
	case "disk", "cpu", "memory", "network", "latency":
		return "performance"
	case "offline", "heartbeat", "uptime", "ping":
		return "availability"
	case "antivirus", "firewall", "patch", "login":
		return "security"
	}
	return o.AlertType
}

// DisplayName resolves the occurrence's name in locale, falling back to English
// and then to the raw alert type.
func (o *AlertOccurrence) DisplayName(locale string) string {
	if v, ok := o.Names.Get(locale); ok {
		return v
	}
	if v, ok := o.Names.Get("en"); ok {
		return v
	}
	return o.AlertType
}

func (o *AlertOccurrence) DisplayDescription(locale string) string {
	if v, ok := o.Descriptions.Get(locale); ok {
		return v
	}
	v, _ := o.Descriptions.Get("en")
	return v
}
