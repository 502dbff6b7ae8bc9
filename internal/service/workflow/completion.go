package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/repository"
	"github.com/jwalitptl/msp-alerts/pkg/errors"
	"github.com/jwalitptl/msp-alerts/pkg/logger"
)

// Completion clears a pending reminder once a human has done the step.
type Completion struct {
	repo   repository.WorkflowRepository
	logger *logger.Logger
}

func NewCompletion(repo repository.WorkflowRepository, log *logger.Logger) *Completion {
	return &Completion{repo: repo, logger: log}
}

// Complete reports false when kind was not the pending action.
func (c *Completion) Complete(ctx context.Context, requestID uuid.UUID, kind model.ActionKind) (bool, error) {
	if kind != model.ActionAckReminder && kind != model.ActionStartReminder {
		return false, errors.BadRequest(fmt.Sprintf("unknown action %q", kind), nil)
	}
	ok, err := c.repo.CompleteAction(ctx, requestID, kind)
	if err != nil {
		return false, errors.Internal(err)
	}
	c.logger.Info("workflow step completed",
		"service_request_id", requestID.String(),
		"action", string(kind),
		"cleared", ok,
	)
	return ok, nil
}
