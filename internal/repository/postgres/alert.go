package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/repository"
)

type alertRepository struct {
	BaseRepository
}

func NewAlertRepository(base BaseRepository) repository.AlertRepository {
	return &alertRepository{base}
}

func (r *alertRepository) GetOccurrence(ctx context.Context, id uuid.UUID) (*model.AlertOccurrence, error) {
	query := `
		SELECT o.id, o.agent_id, COALESCE(a.hostname, '') AS agent_name, o.account_id,
			o.policy_id, o.severity, o.alert_type, o.metric_type, p.category,
			o.client_visible, o.display_names, o.display_descriptions, o.indicator,
			o.triggered_at
		FROM alert_occurrences o
		LEFT JOIN agents a ON a.id = o.agent_id
		LEFT JOIN alert_policies p ON p.id = o.policy_id
		WHERE o.id = $1
	`

	var occ model.AlertOccurrence
	if err := r.db.GetContext(ctx, &occ, query, id); err != nil {
		return nil, fmt.Errorf("failed to get occurrence %s: %w", id, notFound(err))
	}
	return &occ, nil
}
