package delivery

import (
	"context"
	"sync"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/repository"
	"github.com/jwalitptl/msp-alerts/pkg/logger"
	"github.com/jwalitptl/msp-alerts/pkg/metrics"
)

// Recorder persists delivery attempts. Writes are best effort: a failure is
// logged and counted but never handed back to the dispatcher.
type Recorder struct {
	repo       repository.DeliveryRepository
	logger     *logger.Logger
	metrics    *metrics.Metrics
	alertAfter int

	mu      sync.Mutex
	streak  int
	alerted bool
}

func NewRecorder(repo repository.DeliveryRepository, alertAfter int, log *logger.Logger, m *metrics.Metrics) *Recorder {
	if alertAfter <= 0 {
		alertAfter = 1
	}
	if m == nil {
		m = metrics.New("delivery")
	}
	return &Recorder{
		repo:       repo,
		logger:     log,
		metrics:    m,
		alertAfter: alertAfter,
	}
}

func (r *Recorder) Record(ctx context.Context, attempt *model.DeliveryAttempt) {
	err := r.repo.Create(ctx, attempt)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		if r.alerted {
			r.logger.Info("delivery recording recovered", "failed_writes", r.streak)
		}
		r.streak = 0
		r.alerted = false
		return
	}

	r.streak++
	r.metrics.RecordFailures.Inc()
	r.logger.Warn("failed to record delivery attempt",
		"occurrence_id", attempt.OccurrenceID.String(),
		"subscription_id", attempt.SubscriptionID.String(),
		"channel", string(attempt.Channel),
		"status", string(attempt.Status),
		"error", err.Error(),
	)

	if r.streak >= r.alertAfter && !r.alerted {
		r.alerted = true
		r.logger.Error(err, "delivery log writes failing repeatedly", "consecutive_failures", r.streak)
	}
}

// FailureStreak is the number of consecutive failed writes.
func (r *Recorder) FailureStreak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streak
}
