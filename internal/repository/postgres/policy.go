package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/repository"
)

type policyRepository struct {
	BaseRepository
}

func NewPolicyRepository(base BaseRepository) repository.PolicyRepository {
	return &policyRepository{base}
}

func (r *policyRepository) GetCeilings(ctx context.Context, policyID uuid.UUID) (*model.ReminderCeilings, error) {
	query := `
		SELECT ack_reminder_ceiling, start_reminder_ceiling
		FROM workflow_policies
		WHERE id = $1
	`

	var c model.ReminderCeilings
	if err := r.db.GetContext(ctx, &c, query, policyID); err != nil {
		return nil, fmt.Errorf("failed to get reminder ceilings: %w", notFound(err))
	}
	return &c, nil
}
