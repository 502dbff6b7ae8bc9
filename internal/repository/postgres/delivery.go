package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/repository"
)

type deliveryRepository struct {
	BaseRepository
}

func NewDeliveryRepository(base BaseRepository) repository.DeliveryRepository {
	return &deliveryRepository{base}
}

func (r *deliveryRepository) Create(ctx context.Context, attempt *model.DeliveryAttempt) error {
	if attempt == nil {
		return fmt.Errorf("delivery attempt cannot be nil")
	}
	if (attempt.SentAt == nil) == (attempt.FailedAt == nil) {
		return fmt.Errorf("delivery attempt must have exactly one of sent_at and failed_at")
	}
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}

	query := `
		INSERT INTO alert_delivery_attempts (
			id, occurrence_id, subscriber_kind, subscription_id, channel,
			recipient, status, locale, error_message, sent_at, failed_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.OccurrenceID,
		attempt.SubscriberKind,
		attempt.SubscriptionID,
		attempt.Channel,
		attempt.Recipient,
		attempt.Status,
		attempt.Locale,
		attempt.ErrorMessage,
		attempt.SentAt,
		attempt.FailedAt,
		attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery attempt: %w", err)
	}
	return nil
}

func (r *deliveryRepository) ListByOccurrence(ctx context.Context, occurrenceID uuid.UUID) ([]*model.DeliveryAttempt, error) {
	query := `
		SELECT id, occurrence_id, subscriber_kind, subscription_id, channel,
			recipient, status, locale, error_message, sent_at, failed_at, created_at
		FROM alert_delivery_attempts
		WHERE occurrence_id = $1
		ORDER BY created_at ASC
	`

	var attempts []*model.DeliveryAttempt
	if err := r.db.SelectContext(ctx, &attempts, query, occurrenceID); err != nil {
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}
	return attempts, nil
}
