package subscriber

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/pkg/errors"
	"github.com/jwalitptl/msp-alerts/pkg/logger"
)

type fakeSubscriptionRepo struct {
	employees   []*model.EmployeeSubscription
	clients     []*model.ClientSubscription
	err         error
	clientCalls int
}

func (f *fakeSubscriptionRepo) ListEmployeeCandidates(context.Context, uuid.UUID, uuid.UUID) ([]*model.EmployeeSubscription, error) {
	return f.employees, f.err
}

func (f *fakeSubscriptionRepo) ListClientCandidates(context.Context, uuid.UUID, uuid.UUID) ([]*model.ClientSubscription, error) {
	f.clientCalls++
	return f.clients, f.err
}

func newOccurrence() *model.AlertOccurrence {
	return &model.AlertOccurrence{
		ID:          uuid.New(),
		AgentID:     uuid.New(),
		AccountID:   uuid.New(),
		Severity:    model.SeverityCritical,
		AlertType:   "disk_full",
		MetricType:  "disk",
		TriggeredAt: time.Now(),
	}
}

func employee(occ *model.AlertOccurrence, severities ...model.Severity) *model.EmployeeSubscription {
	return &model.EmployeeSubscription{
		ID:            uuid.New(),
		EmployeeID:    uuid.New(),
		Enabled:       true,
		MinSeverities: severities,
		AlertTypes:    []string{occ.AlertType},
		MetricTypes:   []string{occ.MetricType},
		Channels:      model.EmployeeChannels{Email: true, SMS: true},
		Contact:       model.Contact{Active: true},
	}
}

func TestResolveEmployees_FiltersNonMatching(t *testing.T) {
	occ := newOccurrence()
	match := employee(occ, model.SeverityCritical)
	other := employee(occ, model.SeverityLow)
	repo := &fakeSubscriptionRepo{employees: []*model.EmployeeSubscription{match, other}}

	got, err := NewResolver(repo, logger.Nop()).ResolveEmployees(context.Background(), occ)
	require.NoError(t, err)
	assert.Equal(t, []*model.EmployeeSubscription{match}, got)
}

func TestResolveEmployees_NilScopeMatchesAny(t *testing.T) {
	occ := newOccurrence()
	sub := employee(occ, model.SeverityCritical)
	sub.AgentID = nil
	sub.AccountID = nil
	repo := &fakeSubscriptionRepo{employees: []*model.EmployeeSubscription{sub}}

	for i := 0; i < 3; i++ {
		o := newOccurrence()
		got, err := NewResolver(repo, logger.Nop()).ResolveEmployees(context.Background(), o)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
}

func TestResolveEmployees_EmptyIsNotAnError(t *testing.T) {
	got, err := NewResolver(&fakeSubscriptionRepo{}, logger.Nop()).ResolveEmployees(context.Background(), newOccurrence())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveEmployees_QueryFailure(t *testing.T) {
	repo := &fakeSubscriptionRepo{err: stderrors.New("db down")}

	_, err := NewResolver(repo, logger.Nop()).ResolveEmployees(context.Background(), newOccurrence())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSubscriberQuery))
}

func TestResolveClients_NotVisibleSkipsQuery(t *testing.T) {
	occ := newOccurrence()
	occ.ClientVisible = false
	repo := &fakeSubscriptionRepo{clients: []*model.ClientSubscription{{
		ID: uuid.New(), Enabled: true, AccountID: occ.AccountID, Categories: []string{"performance"},
	}}}

	got, err := NewResolver(repo, logger.Nop()).ResolveClients(context.Background(), occ)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, repo.clientCalls)
}

func TestResolveClients_DigestExcluded(t *testing.T) {
	occ := newOccurrence()
	occ.ClientVisible = true
	repo := &fakeSubscriptionRepo{clients: []*model.ClientSubscription{{
		ID:         uuid.New(),
		Enabled:    true,
		AccountID:  occ.AccountID,
		Categories: []string{"performance"},
		DigestMode: true,
	}}}

	got, err := NewResolver(repo, logger.Nop()).ResolveClients(context.Background(), occ)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, repo.clientCalls)
}

func TestResolveClients_Matching(t *testing.T) {
	occ := newOccurrence()
	occ.ClientVisible = true
	match := &model.ClientSubscription{
		ID: uuid.New(), Enabled: true, AccountID: occ.AccountID, Categories: []string{"performance"},
	}
	wrongCategory := &model.ClientSubscription{
		ID: uuid.New(), Enabled: true, AccountID: occ.AccountID, Categories: []string{"security"},
	}
	repo := &fakeSubscriptionRepo{clients: []*model.ClientSubscription{match, wrongCategory}}

	got, err := NewResolver(repo, logger.Nop()).ResolveClients(context.Background(), occ)
	require.NoError(t, err)
	assert.Equal(t, []*model.ClientSubscription{match}, got)
}
