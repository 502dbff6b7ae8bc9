package reminder

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/repository"
	"github.com/jwalitptl/msp-alerts/pkg/errors"
	"github.com/jwalitptl/msp-alerts/pkg/logger"
	"github.com/jwalitptl/msp-alerts/pkg/metrics"
)

// Default ceilings used when a policy carries no override.
const (
	DefaultAckReminderCeiling   = 5
	DefaultStartReminderCeiling = 3
)

type AckTimeoutHandler interface {
	OnAcknowledgmentTimeout(ctx context.Context, requestID uuid.UUID, attempt int) error
}

type StartTimeoutHandler interface {
	OnStartTimeout(ctx context.Context, requestID uuid.UUID, attempt int) error
}

type Config struct {
	Interval             time.Duration
	BatchSize            int
	AckReminderCeiling   int
	StartReminderCeiling int
	// Backoff moves the due time forward after each reminder. Zero keeps it.
	Backoff time.Duration
}

// Status is a snapshot of the scheduler for health endpoints.
type Status struct {
	Running          bool       `json:"running"`
	Interval         string     `json:"interval"`
	LastTickStarted  *time.Time `json:"last_tick_started,omitempty"`
	LastTickFinished *time.Time `json:"last_tick_finished,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	Ticks            uint64     `json:"ticks"`
	TicksSkipped     uint64     `json:"ticks_skipped"`
	Processed        uint64     `json:"processed"`
	Invoked          uint64     `json:"invoked"`
	Cleared          uint64     `json:"cleared"`
	RowFailures      uint64     `json:"row_failures"`
}

// Scheduler periodically scans for overdue workflow actions and nags the
// owning stakeholders until the action's retry ceiling is reached.
type Scheduler struct {
	workflows repository.WorkflowRepository
	policies  repository.PolicyRepository
	ack       AckTimeoutHandler
	start     StartTimeoutHandler
	cfg       Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	status  Status

	busy     atomic.Bool
	inflight sync.WaitGroup
}

func New(
	workflows repository.WorkflowRepository,
	policies repository.PolicyRepository,
	ack AckTimeoutHandler,
	start StartTimeoutHandler,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.AckReminderCeiling <= 0 {
		cfg.AckReminderCeiling = DefaultAckReminderCeiling
	}
	if cfg.StartReminderCeiling <= 0 {
		cfg.StartReminderCeiling = DefaultStartReminderCeiling
	}
	if m == nil {
		m = metrics.New("reminder")
	}
	return &Scheduler{
		workflows: workflows,
		policies:  policies,
		ack:       ack,
		start:     start,
		cfg:       cfg,
		logger:    log,
		metrics:   m,
		now:       time.Now,
	}
}

// Start runs a tick immediately and then every interval until Stop is called
// or ctx is cancelled. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("reminder scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.status.Running = true

	s.logger.Info("starting reminder scheduler", "interval", s.cfg.Interval.String())
	go s.loop(ctx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		// A cancelled parent ctx ends the loop without Stop; release the
		// running state so Status is accurate and Start works again.
		s.mu.Lock()
		if s.running && s.done == done {
			s.running = false
			s.status.Running = false
			s.cancel()
			s.logger.Info("reminder scheduler stopped by context")
		}
		s.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// trigger starts a tick unless the previous one is still running.
func (s *Scheduler) trigger(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.metrics.ReminderTicksSkip.Inc()
		s.mu.Lock()
		s.status.TicksSkipped++
		s.mu.Unlock()
		s.logger.Warn("previous reminder tick still running, skipping")
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.busy.Store(false)
		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error(err, "reminder tick failed")
		}
	}()
}

// Stop halts the ticker and waits for an in-flight tick. Safe to call more
// than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.status.Running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.inflight.Wait()
	s.logger.Info("reminder scheduler stopped")
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Interval = s.cfg.Interval.String()
	return st
}

// RunOnce performs a single tick. Row failures are logged and counted; only
// a failure to list due rows is returned.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	timer := prometheus.NewTimer(s.metrics.ReminderTickLatency)
	defer timer.ObserveDuration()

	started := s.now()
	s.mu.Lock()
	s.status.Ticks++
	s.status.LastTickStarted = &started
	s.mu.Unlock()

	err := s.tick(ctx, started)

	finished := s.now()
	s.mu.Lock()
	s.status.LastTickFinished = &finished
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
	}
	s.mu.Unlock()

	result := "success"
	if err != nil {
		result = "error"
	}
	s.metrics.ReminderTicks.WithLabelValues(result).Inc()
	return err
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) error {
	rows, err := s.workflows.ListDue(ctx, now, model.ActionableStates, s.cfg.BatchSize)
	if err != nil {
		s.metrics.DatabaseOperations.WithLabelValues("list_due", "error").Inc()
		return errors.SchedulerTick(err)
	}
	s.metrics.DatabaseOperations.WithLabelValues("list_due", "success").Inc()

	if len(rows) > 0 {
		s.logger.Debug("processing due reminders", "count", len(rows))
	}

	ceilings := make(map[uuid.UUID]*model.ReminderCeilings)
	for _, row := range rows {
		if ctx.Err() != nil {
			return errors.SchedulerTick(ctx.Err())
		}
		if err := s.processRow(ctx, row, now, ceilings); err != nil {
			s.mu.Lock()
			s.status.RowFailures++
			s.mu.Unlock()
			s.logger.Error(err, "failed to process reminder", "service_request_id", row.ServiceRequestID.String())
		}
		s.mu.Lock()
		s.status.Processed++
		s.mu.Unlock()
	}
	return nil
}

func (s *Scheduler) processRow(ctx context.Context, row *model.WorkflowState, now time.Time, cache map[uuid.UUID]*model.ReminderCeilings) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.SchedulerRow(row.ServiceRequestID, fmt.Errorf("panic: %v", r))
		}
	}()

	if row.NextAction == nil || row.NextActionAt == nil {
		return nil
	}
	kind := *row.NextAction
	dueAt := *row.NextActionAt
	log := s.logger.WithFields(map[string]interface{}{
		"service_request_id": row.ServiceRequestID.String(),
		"action":             string(kind),
	})

	if kind != model.ActionAckReminder && kind != model.ActionStartReminder {
		return errors.SchedulerRow(row.ServiceRequestID, fmt.Errorf("unknown action kind %q", kind))
	}

	ceiling, err := s.ceiling(ctx, row.PolicyID, kind, cache)
	if err != nil {
		return errors.SchedulerRow(row.ServiceRequestID, err)
	}

	next := row.RetryCount(kind) + 1
	if next > ceiling {
		ok, err := s.workflows.ClearAction(ctx, row.ServiceRequestID, kind, dueAt)
		if err != nil {
			return errors.SchedulerRow(row.ServiceRequestID, err)
		}
		if !ok {
			log.Debug("scheduled action changed concurrently, skipping clear")
			return nil
		}
		s.metrics.ReminderCleared.WithLabelValues(string(kind)).Inc()
		s.mu.Lock()
		s.status.Cleared++
		s.mu.Unlock()
		log.Info("reminder ceiling reached, action cleared", "ceiling", ceiling)
		return nil
	}

	// The attempt is claimed before the handler runs. A lost claim means
	// another tick or a completion already moved the row.
	nextAt := dueAt
	if s.cfg.Backoff > 0 {
		nextAt = now.Add(s.cfg.Backoff)
	}
	ok, err := s.workflows.IncrementRetry(ctx, row.ServiceRequestID, kind, dueAt, next, nextAt)
	if err != nil {
		return errors.SchedulerRow(row.ServiceRequestID, err)
	}
	if !ok {
		log.Debug("scheduled action changed concurrently, skipping reminder")
		return nil
	}

	if err := s.invoke(ctx, kind, row.ServiceRequestID, next); err != nil {
		s.metrics.ReminderInvocations.WithLabelValues(string(kind), "error").Inc()
		return errors.SchedulerRow(row.ServiceRequestID, err)
	}
	s.metrics.ReminderInvocations.WithLabelValues(string(kind), "success").Inc()
	s.mu.Lock()
	s.status.Invoked++
	s.mu.Unlock()
	log.Info("reminder sent", "attempt", next, "ceiling", ceiling)
	return nil
}

func (s *Scheduler) invoke(ctx context.Context, kind model.ActionKind, requestID uuid.UUID, attempt int) error {
	if kind == model.ActionStartReminder {
		return s.start.OnStartTimeout(ctx, requestID, attempt)
	}
	return s.ack.OnAcknowledgmentTimeout(ctx, requestID, attempt)
}

func (s *Scheduler) defaultCeiling(kind model.ActionKind) int {
	if kind == model.ActionStartReminder {
		return s.cfg.StartReminderCeiling
	}
	return s.cfg.AckReminderCeiling
}

// ceiling resolves the per-policy override, caching lookups for one tick.
func (s *Scheduler) ceiling(ctx context.Context, policyID *uuid.UUID, kind model.ActionKind, cache map[uuid.UUID]*model.ReminderCeilings) (int, error) {
	if policyID == nil || s.policies == nil {
		return s.defaultCeiling(kind), nil
	}

	c, ok := cache[*policyID]
	if !ok {
		var err error
		c, err = s.policies.GetCeilings(ctx, *policyID)
		if err != nil {
			if !stderrors.Is(err, repository.ErrNotFound) {
				return 0, err
			}
			c = &model.ReminderCeilings{}
		}
		cache[*policyID] = c
	}

	if v := c.For(kind); v != nil && *v > 0 {
		return *v, nil
	}
	return s.defaultCeiling(kind), nil
}
