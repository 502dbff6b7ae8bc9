package postgres

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/repository"
)

func setupMockDB(t *testing.T) (BaseRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewBaseRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestAlertRepository_GetOccurrence(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewAlertRepository(base)

	id := uuid.New()
	agentID := uuid.New()
	accountID := uuid.New()
	triggered := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "agent_id", "agent_name", "account_id", "policy_id", "severity", "alert_type",
		"metric_type", "category", "client_visible", "display_names", "display_descriptions",
		"indicator", "triggered_at",
	}).AddRow(
		id.String(), agentID.String(), "srv-01", accountID.String(), nil, "critical", "disk_full",
		"disk", nil, true, []byte(`{"en":"Disk full","fr":"Disque plein"}`), nil,
		[]byte(`{"free_pct":3}`), triggered,
	)

	mock.ExpectQuery(`SELECT o.id, o.agent_id`).
		WithArgs(id).
		WillReturnRows(rows)

	occ, err := repo.GetOccurrence(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, occ.ID)
	assert.Equal(t, agentID, occ.AgentID)
	assert.Equal(t, model.SeverityCritical, occ.Severity)
	assert.Nil(t, occ.PolicyID)
	assert.Nil(t, occ.Category)
	assert.True(t, occ.ClientVisible)
	assert.Equal(t, "Disque plein", occ.DisplayName("fr"))
	assert.Equal(t, float64(3), occ.Indicator["free_pct"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepository_GetOccurrence_NotFound(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewAlertRepository(base)

	mock.ExpectQuery(`SELECT o.id`).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetOccurrence(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_ListEmployeeCandidates(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewSubscriptionRepository(base)

	agentID := uuid.New()
	accountID := uuid.New()
	subID := uuid.New()
	employeeID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "employee_id", "enabled", "agent_id", "account_id",
		"min_severities", "alert_types", "metric_types",
		"channel_realtime", "channel_email", "channel_sms", "channel_browser_push",
		"email_override", "phone_override",
		"quiet_start", "quiet_end", "quiet_timezone",
		"contact_name", "contact_email", "contact_phone", "contact_active",
	}).AddRow(
		subID.String(), employeeID.String(), true, nil, accountID.String(),
		"{high,critical}", "{disk_full}", "{disk}",
		false, true, true, false,
		"oncall@example.com", nil,
		"22:00", "06:00", "Europe/Paris",
		"Dana", "dana@example.com", "+15550100", true,
	)

	mock.ExpectQuery(`FROM employee_alert_subscriptions`).
		WithArgs(agentID, accountID).
		WillReturnRows(rows)

	subs, err := repo.ListEmployeeCandidates(context.Background(), agentID, accountID)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	sub := subs[0]
	assert.Equal(t, subID, sub.ID)
	assert.Nil(t, sub.AgentID)
	require.NotNil(t, sub.AccountID)
	assert.Equal(t, accountID, *sub.AccountID)
	assert.Equal(t, []model.Severity{model.SeverityHigh, model.SeverityCritical}, sub.MinSeverities)
	assert.Equal(t, []string{"disk_full"}, sub.AlertTypes)
	assert.True(t, sub.Channels.Email)
	assert.True(t, sub.Channels.SMS)
	assert.False(t, sub.Channels.Realtime)
	require.NotNil(t, sub.QuietHours)
	assert.Equal(t, model.QuietHours{Start: "22:00", End: "06:00", Timezone: "Europe/Paris"}, *sub.QuietHours)
	assert.Equal(t, "oncall@example.com", *sub.EmailOverride)
	assert.Equal(t, "Dana", sub.Contact.Name)
	assert.True(t, sub.Contact.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_ListClientCandidates(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewSubscriptionRepository(base)

	agentID := uuid.New()
	accountID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "client_user_id", "enabled", "account_id", "agent_id", "categories",
		"channel_email", "channel_sms", "channel_push",
		"email_override", "phone_override", "preferred_language", "digest_mode",
		"contact_name", "contact_email", "contact_phone", "contact_active",
	}).AddRow(
		uuid.New().String(), uuid.New().String(), true, accountID.String(), agentID.String(), "{performance}",
		true, false, true,
		nil, nil, "fr", false,
		"Client", "client@example.com", nil, true,
	)

	mock.ExpectQuery(`FROM client_alert_subscriptions`).
		WithArgs(agentID, accountID).
		WillReturnRows(rows)

	subs, err := repo.ListClientCandidates(context.Background(), agentID, accountID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, []string{"performance"}, subs[0].Categories)
	assert.Equal(t, "fr", subs[0].PreferredLanguage)
	assert.True(t, subs[0].Channels.Push)
	assert.True(t, subs[0].Channels.Email)
	require.NotNil(t, subs[0].Contact.Email)
	assert.Equal(t, "client@example.com", *subs[0].Contact.Email)
	assert.Nil(t, subs[0].Contact.Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRows_ColumnTagsOnly(t *testing.T) {
	for _, row := range []interface{}{employeeSubscriptionRow{}, clientSubscriptionRow{}} {
		typ := reflect.TypeOf(row)
		seen := map[string]bool{}
		var walk func(reflect.Type)
		walk = func(rt reflect.Type) {
			for i := 0; i < rt.NumField(); i++ {
				f := rt.Field(i)
				if f.Anonymous {
					walk(f.Type)
					continue
				}
				_, hasJSON := f.Tag.Lookup("json")
				assert.False(t, hasJSON, "%s.%s carries a json tag", typ.Name(), f.Name)
				col := f.Tag.Get("db")
				assert.NotEmpty(t, col, "%s.%s has no column", typ.Name(), f.Name)
				assert.False(t, seen[col], "%s maps column %q twice", typ.Name(), col)
				seen[col] = true
			}
		}
		walk(typ)
	}
}

func TestSubscriptionRepository_QueryError(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewSubscriptionRepository(base)

	mock.ExpectQuery(`FROM employee_alert_subscriptions`).WillReturnError(errors.New("connection reset"))

	_, err := repo.ListEmployeeCandidates(context.Background(), uuid.New(), uuid.New())
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepository_Create(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewDeliveryRepository(base)

	now := time.Now().UTC()
	attempt := model.NewFailedAttempt(uuid.New(), model.SubscriberEmployee, uuid.New(),
		model.ChannelEmail, "dana@example.com", "en", "smtp timeout", now)

	mock.ExpectExec(`INSERT INTO alert_delivery_attempts`).
		WithArgs(attempt.ID, attempt.OccurrenceID, "employee", attempt.SubscriptionID, "email",
			"dana@example.com", "failed", "en", "smtp timeout", nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), attempt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepository_Create_RejectsBothTimestamps(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewDeliveryRepository(base)

	now := time.Now()
	attempt := model.NewSentAttempt(uuid.New(), model.SubscriberClient, uuid.New(),
		model.ChannelSMS, "+15550100", "fr", now)
	attempt.FailedAt = &now

	assert.Error(t, repo.Create(context.Background(), attempt))
	assert.Error(t, repo.Create(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepository_ListByOccurrence(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewDeliveryRepository(base)

	occurrenceID := uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "occurrence_id", "subscriber_kind", "subscription_id", "channel",
		"recipient", "status", "locale", "error_message", "sent_at", "failed_at", "created_at",
	}).
		AddRow(uuid.NewString(), occurrenceID.String(), "employee", uuid.NewString(), "email", "dana@example.com", "sent", "en", nil, now, nil, now).
		AddRow(uuid.NewString(), occurrenceID.String(), "client", uuid.NewString(), "sms", "+15550100", "failed", "fr", "gateway down", nil, now, now)

	mock.ExpectQuery(`FROM alert_delivery_attempts`).WithArgs(occurrenceID).WillReturnRows(rows)

	attempts, err := repo.ListByOccurrence(context.Background(), occurrenceID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, model.DeliveryStatusSent, attempts[0].Status)
	assert.NotNil(t, attempts[0].SentAt)
	require.NotNil(t, attempts[1].ErrorMessage)
	assert.Equal(t, "gateway down", *attempts[1].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowRepository_ListDue(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewWorkflowRepository(base)

	now := time.Now().UTC()
	due := now.Add(-time.Minute)
	reqID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"service_request_id", "state", "next_action", "next_action_at",
		"ack_reminder_count", "start_reminder_count", "policy_id", "updated_at",
	}).AddRow(reqID.String(), "pending_ack", "ack_reminder", due, 4, 0, nil, now)

	mock.ExpectQuery(`FROM service_request_workflow_states`).
		WithArgs(now, sqlmock.AnyArg(), 50).
		WillReturnRows(rows)

	states, err := repo.ListDue(context.Background(), now, model.ActionableStates, 50)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, reqID, states[0].ServiceRequestID)
	require.NotNil(t, states[0].NextAction)
	assert.Equal(t, model.ActionAckReminder, *states[0].NextAction)
	assert.Equal(t, 4, states[0].AckReminderCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowRepository_IncrementRetry(t *testing.T) {
	due := time.Now().UTC().Add(-time.Minute)
	next := due.Add(15 * time.Minute)
	reqID := uuid.New()

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "row still scheduled", affected: 1, want: true},
		{name: "lost compare-and-set", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := setupMockDB(t)
			repo := NewWorkflowRepository(base)

			mock.ExpectExec(`SET start_reminder_count = \$4, next_action_at = \$5`).
				WithArgs(reqID, "start_reminder", due, 2, next).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.IncrementRetry(context.Background(), reqID, model.ActionStartReminder, due, 2, next)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWorkflowRepository_IncrementRetry_UnknownKind(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewWorkflowRepository(base)

	_, err := repo.IncrementRetry(context.Background(), uuid.New(), model.ActionKind("escalate"), time.Now(), 1, time.Now())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowRepository_ClearAction(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewWorkflowRepository(base)

	due := time.Now().UTC()
	reqID := uuid.New()

	mock.ExpectExec(`SET next_action = NULL, next_action_at = NULL`).
		WithArgs(reqID, "ack_reminder", due).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.ClearAction(context.Background(), reqID, model.ActionAckReminder, due)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowRepository_CompleteAction(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewWorkflowRepository(base)

	reqID := uuid.New()
	mock.ExpectExec(`UPDATE service_request_workflow_states`).
		WithArgs(reqID, "ack_reminder").
		WillReturnError(errors.New("deadlock detected"))

	_, err := repo.CompleteAction(context.Background(), reqID, model.ActionAckReminder)
	assert.ErrorContains(t, err, "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPolicyRepository_GetCeilings(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewPolicyRepository(base)

	policyID := uuid.New()
	mock.ExpectQuery(`FROM workflow_policies`).
		WithArgs(policyID).
		WillReturnRows(sqlmock.NewRows([]string{"ack_reminder_ceiling", "start_reminder_ceiling"}).
			AddRow(2, nil))

	c, err := repo.GetCeilings(context.Background(), policyID)
	require.NoError(t, err)
	require.NotNil(t, c.AckReminder)
	assert.Equal(t, 2, *c.AckReminder)
	assert.Nil(t, c.StartReminder)
	assert.NoError(t, mock.ExpectationsWereMet())
}
