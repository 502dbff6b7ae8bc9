package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/repository"
)

type subscriptionRepository struct {
	BaseRepository
}

func NewSubscriptionRepository(base BaseRepository) repository.SubscriptionRepository {
	return &subscriptionRepository{base}
}

// contactColumns is the joined account contact. Row types embed db-only
// copies so the model's json tags never meet on one struct.
type contactColumns struct {
	Name   string  `db:"contact_name"`
	Email  *string `db:"contact_email"`
	Phone  *string `db:"contact_phone"`
	Active bool    `db:"contact_active"`
}

type employeeChannelColumns struct {
	Realtime    bool `db:"channel_realtime"`
	Email       bool `db:"channel_email"`
	SMS         bool `db:"channel_sms"`
	BrowserPush bool `db:"channel_browser_push"`
}

type clientChannelColumns struct {
	Email bool `db:"channel_email"`
	SMS   bool `db:"channel_sms"`
	Push  bool `db:"channel_push"`
}

type employeeSubscriptionRow struct {
	ID            uuid.UUID      `db:"id"`
	EmployeeID    uuid.UUID      `db:"employee_id"`
	Enabled       bool           `db:"enabled"`
	AgentID       *uuid.UUID     `db:"agent_id"`
	AccountID     *uuid.UUID     `db:"account_id"`
	MinSeverities pq.StringArray `db:"min_severities"`
	AlertTypes    pq.StringArray `db:"alert_types"`
	MetricTypes   pq.StringArray `db:"metric_types"`
	EmailOverride *string        `db:"email_override"`
	PhoneOverride *string        `db:"phone_override"`
	QuietStart    *string        `db:"quiet_start"`
	QuietEnd      *string        `db:"quiet_end"`
	QuietTimezone *string        `db:"quiet_timezone"`
	employeeChannelColumns
	contactColumns
}

func (row *employeeSubscriptionRow) toModel() *model.EmployeeSubscription {
	sub := &model.EmployeeSubscription{
		ID:            row.ID,
		EmployeeID:    row.EmployeeID,
		Enabled:       row.Enabled,
		AgentID:       row.AgentID,
		AccountID:     row.AccountID,
		AlertTypes:    []string(row.AlertTypes),
		MetricTypes:   []string(row.MetricTypes),
		Channels:      model.EmployeeChannels(row.employeeChannelColumns),
		EmailOverride: row.EmailOverride,
		PhoneOverride: row.PhoneOverride,
		Contact:       model.Contact(row.contactColumns),
	}
	for _, s := range row.MinSeverities {
		sub.MinSeverities = append(sub.MinSeverities, model.Severity(s))
	}
	if row.QuietStart != nil && row.QuietEnd != nil {
		qh := &model.QuietHours{Start: *row.QuietStart, End: *row.QuietEnd}
		if row.QuietTimezone != nil {
			qh.Timezone = *row.QuietTimezone
		}
		sub.QuietHours = qh
	}
	return sub
}

func (r *subscriptionRepository) ListEmployeeCandidates(ctx context.Context, agentID, accountID uuid.UUID) ([]*model.EmployeeSubscription, error) {
	query := `
		SELECT s.id, s.employee_id, s.enabled, s.agent_id, s.account_id,
			s.min_severities, s.alert_types, s.metric_types,
			s.channel_realtime, s.channel_email, s.channel_sms, s.channel_browser_push,
			s.email_override, s.phone_override,
			s.quiet_start, s.quiet_end, s.quiet_timezone,
			e.name AS contact_name, e.email AS contact_email, e.phone AS contact_phone,
			e.active AS contact_active
		FROM employee_alert_subscriptions s
		JOIN employees e ON e.id = s.employee_id
		WHERE s.enabled = TRUE
			AND e.active = TRUE
			AND (s.agent_id IS NULL OR s.agent_id = $1)
			AND (s.account_id IS NULL OR s.account_id = $2)
	`

	var rows []employeeSubscriptionRow
	if err := r.db.SelectContext(ctx, &rows, query, agentID, accountID); err != nil {
		return nil, fmt.Errorf("failed to list employee subscriptions: %w", err)
	}

	subs := make([]*model.EmployeeSubscription, 0, len(rows))
	for i := range rows {
		subs = append(subs, rows[i].toModel())
	}
	return subs, nil
}

type clientSubscriptionRow struct {
	ID                uuid.UUID      `db:"id"`
	ClientUserID      uuid.UUID      `db:"client_user_id"`
	Enabled           bool           `db:"enabled"`
	AccountID         uuid.UUID      `db:"account_id"`
	AgentID           *uuid.UUID     `db:"agent_id"`
	Categories        pq.StringArray `db:"categories"`
	EmailOverride     *string        `db:"email_override"`
	PhoneOverride     *string        `db:"phone_override"`
	PreferredLanguage string         `db:"preferred_language"`
	DigestMode        bool           `db:"digest_mode"`
	clientChannelColumns
	contactColumns
}

func (row *clientSubscriptionRow) toModel() *model.ClientSubscription {
	return &model.ClientSubscription{
		ID:                row.ID,
		ClientUserID:      row.ClientUserID,
		Enabled:           row.Enabled,
		AccountID:         row.AccountID,
		AgentID:           row.AgentID,
		Categories:        []string(row.Categories),
		Channels:          model.ClientChannels(row.clientChannelColumns),
		EmailOverride:     row.EmailOverride,
		PhoneOverride:     row.PhoneOverride,
		PreferredLanguage: row.PreferredLanguage,
		DigestMode:        row.DigestMode,
		Contact:           model.Contact(row.contactColumns),
	}
}

func (r *subscriptionRepository) ListClientCandidates(ctx context.Context, agentID, accountID uuid.UUID) ([]*model.ClientSubscription, error) {
	query := `
		SELECT s.id, s.client_user_id, s.enabled, s.account_id, s.agent_id, s.categories,
			s.channel_email, s.channel_sms, s.channel_push,
			s.email_override, s.phone_override,
			COALESCE(s.preferred_language, '') AS preferred_language, s.digest_mode,
			u.name AS contact_name, u.email AS contact_email, u.phone AS contact_phone,
			u.active AS contact_active
		FROM client_alert_subscriptions s
		JOIN client_users u ON u.id = s.client_user_id
		WHERE s.enabled = TRUE
			AND s.digest_mode = FALSE
			AND s.account_id = $2
			AND (s.agent_id IS NULL OR s.agent_id = $1)
	`

	var rows []clientSubscriptionRow
	if err := r.db.SelectContext(ctx, &rows, query, agentID, accountID); err != nil {
		return nil, fmt.Errorf("failed to list client subscriptions: %w", err)
	}

	subs := make([]*model.ClientSubscription, 0, len(rows))
	for i := range rows {
		subs = append(subs, rows[i].toModel())
	}
	return subs, nil
}
