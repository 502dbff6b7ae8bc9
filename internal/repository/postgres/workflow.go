package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/repository"
)

type workflowRepository struct {
	BaseRepository
}

func NewWorkflowRepository(base BaseRepository) repository.WorkflowRepository {
	return &workflowRepository{base}
}

func counterColumn(kind model.ActionKind) (string, error) {
	switch kind {
	case model.ActionAckReminder:
		return "ack_reminder_count", nil
	case model.ActionStartReminder:
		return "start_reminder_count", nil
	}
	return "", fmt.Errorf("unknown action kind %q", kind)
}

func (r *workflowRepository) ListDue(ctx context.Context, now time.Time, states []string, limit int) ([]*model.WorkflowState, error) {
	query := `
		SELECT service_request_id, state, next_action, next_action_at,
			ack_reminder_count, start_reminder_count, policy_id, updated_at
		FROM service_request_workflow_states
		WHERE next_action IS NOT NULL
			AND next_action_at IS NOT NULL
			AND next_action_at <= $1
			AND state = ANY($2)
		ORDER BY next_action_at ASC
		LIMIT $3
	`

	var rows []*model.WorkflowState
	if err := r.db.SelectContext(ctx, &rows, query, now, pq.Array(states), limit); err != nil {
		return nil, fmt.Errorf("failed to list due workflow states: %w", err)
	}
	return rows, nil
}

// IncrementRetry stores count for kind and moves the due time to nextAt, but
// only while the row still carries the action and due time the caller read.
// The counter never moves backwards.
func (r *workflowRepository) IncrementRetry(ctx context.Context, requestID uuid.UUID, kind model.ActionKind, dueAt time.Time, count int, nextAt time.Time) (bool, error) {
	col, err := counterColumn(kind)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		UPDATE service_request_workflow_states
		SET %[1]s = $4, next_action_at = $5, updated_at = NOW()
		WHERE service_request_id = $1
			AND next_action = $2
			AND next_action_at = $3
			AND %[1]s < $4
	`, col)

	ok, err := r.execAffected(ctx, query, requestID, kind, dueAt, count, nextAt)
	if err != nil {
		return false, fmt.Errorf("failed to increment %s: %w", col, err)
	}
	return ok, nil
}

func (r *workflowRepository) ClearAction(ctx context.Context, requestID uuid.UUID, kind model.ActionKind, dueAt time.Time) (bool, error) {
	query := `
		UPDATE service_request_workflow_states
		SET next_action = NULL, next_action_at = NULL, updated_at = NOW()
		WHERE service_request_id = $1
			AND next_action = $2
			AND next_action_at = $3
	`

	ok, err := r.execAffected(ctx, query, requestID, kind, dueAt)
	if err != nil {
		return false, fmt.Errorf("failed to clear scheduled action: %w", err)
	}
	return ok, nil
}

// CompleteAction is the write a human completing the step performs.
func (r *workflowRepository) CompleteAction(ctx context.Context, requestID uuid.UUID, kind model.ActionKind) (bool, error) {
	query := `
		UPDATE service_request_workflow_states
		SET next_action = NULL, next_action_at = NULL, updated_at = NOW()
		WHERE service_request_id = $1
			AND next_action = $2
	`

	ok, err := r.execAffected(ctx, query, requestID, kind)
	if err != nil {
		return false, fmt.Errorf("failed to complete action: %w", err)
	}
	return ok, nil
}
