package subscriber

import (
	"context"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/repository"
	"github.com/jwalitptl/msp-alerts/pkg/errors"
	"github.com/jwalitptl/msp-alerts/pkg/logger"
)

// Resolver finds the subscriptions eligible for an occurrence.
type Resolver struct {
	repo   repository.SubscriptionRepository
	logger *logger.Logger
}

func NewResolver(repo repository.SubscriptionRepository, log *logger.Logger) *Resolver {
	return &Resolver{repo: repo, logger: log}
}

// ResolveEmployees returns every matching staff subscription. An empty list
// is a valid result.
func (r *Resolver) ResolveEmployees(ctx context.Context, occ *model.AlertOccurrence) ([]*model.EmployeeSubscription, error) {
	candidates, err := r.repo.ListEmployeeCandidates(ctx, occ.AgentID, occ.AccountID)
	if err != nil {
		return nil, errors.SubscriberQuery(string(model.SubscriberEmployee), err)
	}

	matched := make([]*model.EmployeeSubscription, 0, len(candidates))
	for _, sub := range candidates {
		if sub.Matches(occ) {
			matched = append(matched, sub)
		}
	}

	r.logger.Debug("resolved employee subscribers",
		"occurrence_id", occ.ID.String(),
		"candidates", len(candidates),
		"matched", len(matched),
	)
	return matched, nil
}

// ResolveClients returns matching, non-digest client subscriptions. The store
// is not queried at all for occurrences hidden from clients.
func (r *Resolver) ResolveClients(ctx context.Context, occ *model.AlertOccurrence) ([]*model.ClientSubscription, error) {
	if !occ.ClientVisible {
		return []*model.ClientSubscription{}, nil
	}

	candidates, err := r.repo.ListClientCandidates(ctx, occ.AgentID, occ.AccountID)
	if err != nil {
		return nil, errors.SubscriberQuery(string(model.SubscriberClient), err)
	}

	matched := make([]*model.ClientSubscription, 0, len(candidates))
	for _, sub := range candidates {
		if sub.Matches(occ) {
			matched = append(matched, sub)
		}
	}

	r.logger.Debug("resolved client subscribers",
		"occurrence_id", occ.ID.String(),
		"category", occ.ClientCategory(),
		"candidates", len(candidates),
		"matched", len(matched),
	)
	return matched, nil
}
