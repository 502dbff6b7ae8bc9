package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/pkg/logger"
	"github.com/jwalitptl/msp-alerts/pkg/messaging"
)

// Notifier handles the two workflow timeouts by pushing a reminder to every
// connected administrator.
type Notifier struct {
	realtime messaging.Realtime
	logger   *logger.Logger
}

func NewNotifier(realtime messaging.Realtime, log *logger.Logger) *Notifier {
	return &Notifier{realtime: realtime, logger: log}
}

func (n *Notifier) OnAcknowledgmentTimeout(ctx context.Context, requestID uuid.UUID, attempt int) error {
	return n.remind(ctx, model.ActionAckReminder, requestID, attempt)
}

func (n *Notifier) OnStartTimeout(ctx context.Context, requestID uuid.UUID, attempt int) error {
	return n.remind(ctx, model.ActionStartReminder, requestID, attempt)
}

func (n *Notifier) remind(ctx context.Context, kind model.ActionKind, requestID uuid.UUID, attempt int) error {
	err := n.realtime.BroadcastToAdministrators(ctx, messaging.Event{
		Type: messaging.EventWorkflowReminder,
		Payload: map[string]interface{}{
			"service_request_id": requestID,
			"action":             kind,
			"attempt":            attempt,
		},
	})
	if err != nil {
		return err
	}
	n.logger.Debug("workflow reminder broadcast",
		"service_request_id", requestID.String(),
		"action", string(kind),
		"attempt", attempt,
	)
	return nil
}
