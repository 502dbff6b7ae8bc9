package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/msp-alerts/internal/model"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	// AlertRepository reads triggered occurrences
	AlertRepository interface {
		GetOccurrence(ctx context.Context, id uuid.UUID) (*model.AlertOccurrence, error)
	}

	// SubscriptionRepository returns subscription candidates joined with their
	// account contact data. Candidates are pre-filtered on enabled flag and
	// scope; callers still apply the full eligibility rules.
	SubscriptionRepository interface {
		ListEmployeeCandidates(ctx context.Context, agentID, accountID uuid.UUID) ([]*model.EmployeeSubscription, error)
		ListClientCandidates(ctx context.Context, agentID, accountID uuid.UUID) ([]*model.ClientSubscription, error)
	}

	DeliveryRepository interface {
		Create(ctx context.Context, attempt *model.DeliveryAttempt) error
		ListByOccurrence(ctx context.Context, occurrenceID uuid.UUID) ([]*model.DeliveryAttempt, error)
	}

	// WorkflowRepository mutates reminder bookkeeping. Every write is
	// conditional on the row still holding the expected action and due time;
	// a false return means another writer got there first.
	WorkflowRepository interface {
		ListDue(ctx context.Context, now time.Time, states []string, limit int) ([]*model.WorkflowState, error)
		IncrementRetry(ctx context.Context, requestID uuid.UUID, kind model.ActionKind, dueAt time.Time, count int, nextAt time.Time) (bool, error)
		ClearAction(ctx context.Context, requestID uuid.UUID, kind model.ActionKind, dueAt time.Time) (bool, error)
		CompleteAction(ctx context.Context, requestID uuid.UUID, kind model.ActionKind) (bool, error)
	}

	PolicyRepository interface {
		GetCeilings(ctx context.Context, policyID uuid.UUID) (*model.ReminderCeilings, error)
	}
)
