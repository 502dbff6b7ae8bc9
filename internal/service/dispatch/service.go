package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/msp-alerts/internal/email"
	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/phrase"
	"github.com/jwalitptl/msp-alerts/internal/repository"
	"github.com/jwalitptl/msp-alerts/internal/sms"
	"github.com/jwalitptl/msp-alerts/pkg/errors"
	"github.com/jwalitptl/msp-alerts/pkg/logger"
	"github.com/jwalitptl/msp-alerts/pkg/messaging"
	"github.com/jwalitptl/msp-alerts/pkg/metrics"
)

const errNoRecipient = "no recipient address"

type SubscriberResolver interface {
	ResolveEmployees(ctx context.Context, occ *model.AlertOccurrence) ([]*model.EmployeeSubscription, error)
	ResolveClients(ctx context.Context, occ *model.AlertOccurrence) ([]*model.ClientSubscription, error)
}

type QuietHoursFilter interface {
	Filter(subs []*model.EmployeeSubscription, now time.Time) []*model.EmployeeSubscription
}

type DeliveryRecorder interface {
	Record(ctx context.Context, attempt *model.DeliveryAttempt)
}

type Config struct {
	Concurrency   int
	StaffLocale   string
	DefaultLocale string
	From          string
}

type Dependencies struct {
	Alerts     repository.AlertRepository
	Resolver   SubscriberResolver
	QuietHours QuietHoursFilter
	Recorder   DeliveryRecorder
	Realtime   messaging.Realtime
	Email      email.Sender
	SMS        sms.Sender
	Phrases    phrase.Table
}

// Service fans one occurrence out to every eligible subscriber and channel.
type Service struct {
	deps    Dependencies
	cfg     Config
	render  renderer
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(deps Dependencies, cfg Config, log *logger.Logger, m *metrics.Metrics) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.StaffLocale == "" {
		cfg.StaffLocale = "en"
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = "en"
	}
	if m == nil {
		m = metrics.New("dispatch")
	}
	return &Service{
		deps:    deps,
		cfg:     cfg,
		render:  renderer{phrases: deps.Phrases},
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeFailed
)

// tally collects counts from concurrent subscriber jobs.
type tally struct {
	mu        sync.Mutex
	employees model.Counts
	clients   model.Counts
}

func (t *tally) add(kind model.SubscriberKind, o outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := &t.employees
	if kind == model.SubscriberClient {
		c = &t.clients
	}
	switch o {
	case outcomeSent:
		c.Sent++
	case outcomeFailed:
		c.Failed++
	}
}

// Dispatch runs the whole fan-out for one occurrence. Only occurrence lookup
// and subscriber queries fail the call; channel failures end up as failed
// delivery attempts and in the counts.
func (s *Service) Dispatch(ctx context.Context, occurrenceID uuid.UUID) (model.DispatchResult, error) {
	start := s.now()
	defer func() {
		s.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	log := s.logger.WithFields(map[string]interface{}{"occurrence_id": occurrenceID.String()})

	occ, err := s.deps.Alerts.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			err = errors.OccurrenceNotFound(occurrenceID, err)
		} else {
			err = errors.Internal(fmt.Errorf("load occurrence: %w", err))
		}
		return s.fail(log, err), err
	}

	employees, err := s.deps.Resolver.ResolveEmployees(ctx, occ)
	if err != nil {
		return s.fail(log, err), err
	}
	clients, err := s.deps.Resolver.ResolveClients(ctx, occ)
	if err != nil {
		return s.fail(log, err), err
	}

	// The fan-out always runs to completion and records every attempt, even
	// when the caller goes away or its deadline passes.
	ctx = context.WithoutCancel(ctx)

	resolved := len(employees)
	employees = s.deps.QuietHours.Filter(employees, s.now())

	log.Info("dispatching alert",
		"severity", string(occ.Severity),
		"alert_type", occ.AlertType,
		"employees", len(employees),
		"employees_quiet", resolved-len(employees),
		"clients", len(clients),
	)

	var (
		t    tally
		wg   sync.WaitGroup
		sema = make(chan struct{}, s.cfg.Concurrency)
	)
	run := func(job func()) {
		wg.Add(1)
		sema <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sema }()
			job()
		}()
	}

	for _, sub := range employees {
		sub := sub
		run(func() { s.dispatchEmployee(ctx, occ, sub, &t) })
	}
	for _, sub := range clients {
		sub := sub
		run(func() { s.dispatchClient(ctx, occ, sub, &t) })
	}
	wg.Wait()

	result := model.DispatchResult{
		Success:   true,
		Employees: t.employees,
		Clients:   t.clients,
	}
	s.metrics.DispatchCalls.WithLabelValues("success").Inc()
	log.Info("alert dispatched",
		"employees_sent", result.Employees.Sent,
		"employees_failed", result.Employees.Failed,
		"clients_sent", result.Clients.Sent,
		"clients_failed", result.Clients.Failed,
	)
	return result, nil
}

func (s *Service) fail(log *logger.Logger, err error) model.DispatchResult {
	s.metrics.DispatchCalls.WithLabelValues("failure").Inc()
	log.Error(err, "alert dispatch failed")
	return model.DispatchResult{Success: false, Error: err.Error()}
}

// attempt describes one subscriber x channel delivery.
type attempt struct {
	occ       *model.AlertOccurrence
	kind      model.SubscriberKind
	subID     uuid.UUID
	channel   model.Channel
	recipient string
	locale    string
	send      func(ctx context.Context) error
}

func (s *Service) dispatchEmployee(ctx context.Context, occ *model.AlertOccurrence, sub *model.EmployeeSubscription, t *tally) {
	locale := s.cfg.StaffLocale
	base := attempt{occ: occ, kind: model.SubscriberEmployee, subID: sub.ID, locale: locale}

	if sub.Channels.Realtime {
		a := base
		a.channel = model.ChannelRealtime
		a.recipient = "administrators"
		a.send = func(ctx context.Context) error {
			return s.deps.Realtime.BroadcastToAdministrators(ctx, messaging.Event{
				Type: messaging.EventAlertTriggered,
				Payload: map[string]interface{}{
					"occurrence_id":   occ.ID,
					"subscription_id": sub.ID,
					"employee_id":     sub.EmployeeID,
					"agent_id":        occ.AgentID,
					"account_id":      occ.AccountID,
					"severity":        occ.Severity,
					"alert_type":      occ.AlertType,
					"name":            occ.DisplayName(locale),
					"triggered_at":    occ.TriggeredAt,
				},
			})
		}
		t.add(a.kind, s.execute(ctx, a))
	}

	if sub.Channels.Email {
		a := base
		a.channel = model.ChannelEmail
		a.recipient = model.ResolveEmail(sub.EmailOverride, sub.Contact)
		a.send = func(ctx context.Context) error {
			subject, html, text, err := s.render.staffEmail(occ, locale)
			if err != nil {
				return fmt.Errorf("render email: %w", err)
			}
			return s.deps.Email.Send(ctx, &email.Message{
				From: s.cfg.From, To: []string{a.recipient}, Subject: subject, HTML: html, Text: text,
			})
		}
		t.add(a.kind, s.execute(ctx, a))
	}

	if sub.Channels.SMS {
		a := base
		a.channel = model.ChannelSMS
		a.recipient = model.ResolvePhone(sub.PhoneOverride, sub.Contact)
		a.send = func(ctx context.Context) error {
			return s.deps.SMS.Send(ctx, a.recipient, s.render.sms(occ, locale))
		}
		t.add(a.kind, s.execute(ctx, a))
	}

	if sub.Channels.BrowserPush {
		s.logger.Debug("browser push not implemented, skipping",
			"occurrence_id", occ.ID.String(), "subscription_id", sub.ID.String())
	}
}

// clientLocale is the locale the client templates are actually rendered in.
func (s *Service) clientLocale(sub *model.ClientSubscription) string {
	if sub.PreferredLanguage != "" && s.deps.Phrases.Supports(sub.PreferredLanguage) {
		return sub.PreferredLanguage
	}
	return s.cfg.DefaultLocale
}

func (s *Service) dispatchClient(ctx context.Context, occ *model.AlertOccurrence, sub *model.ClientSubscription, t *tally) {
	locale := s.clientLocale(sub)
	base := attempt{occ: occ, kind: model.SubscriberClient, subID: sub.ID, locale: locale}

	if sub.Channels.Email {
		a := base
		a.channel = model.ChannelEmail
		a.recipient = model.ResolveEmail(sub.EmailOverride, sub.Contact)
		a.send = func(ctx context.Context) error {
			subject, html, text, err := s.render.clientEmail(occ, sub.Contact.Name, locale)
			if err != nil {
				return fmt.Errorf("render email: %w", err)
			}
			return s.deps.Email.Send(ctx, &email.Message{
				From: s.cfg.From, To: []string{a.recipient}, Subject: subject, HTML: html, Text: text,
			})
		}
		t.add(a.kind, s.execute(ctx, a))
	}

	if sub.Channels.SMS {
		a := base
		a.channel = model.ChannelSMS
		a.recipient = model.ResolvePhone(sub.PhoneOverride, sub.Contact)
		a.send = func(ctx context.Context) error {
			return s.deps.SMS.Send(ctx, a.recipient, s.render.sms(occ, locale))
		}
		t.add(a.kind, s.execute(ctx, a))
	}

	// Addressed client delivery (push and realtime) has no transport yet.
	if sub.Channels.Push {
		s.logger.Debug("client push not implemented, skipping",
			"occurrence_id", occ.ID.String(), "subscription_id", sub.ID.String())
	}
}

// execute performs one attempt, records it and reports the outcome. A panic
// in the transport is turned into a failed attempt.
func (s *Service) execute(ctx context.Context, a attempt) (o outcome) {
	var err error
	if a.recipient == "" {
		err = stderrors.New(errNoRecipient)
	} else {
		err = s.safeSend(ctx, a)
	}

	now := s.now()
	var record *model.DeliveryAttempt
	if err != nil {
		o = outcomeFailed
		record = model.NewFailedAttempt(a.occ.ID, a.kind, a.subID, a.channel, a.recipient, a.locale, failureMessage(err), now)
		s.logger.Warn("delivery attempt failed",
			"occurrence_id", a.occ.ID.String(),
			"subscription_id", a.subID.String(),
			"subscriber", string(a.kind),
			"channel", string(a.channel),
			"error", errors.ChannelAttempt(string(a.channel), err).Error(),
		)
	} else {
		o = outcomeSent
		record = model.NewSentAttempt(a.occ.ID, a.kind, a.subID, a.channel, a.recipient, a.locale, now)
	}

	s.metrics.DispatchAttempts.WithLabelValues(string(a.kind), string(a.channel), string(record.Status)).Inc()
	s.deps.Recorder.Record(ctx, record)
	return o
}

func (s *Service) safeSend(ctx context.Context, a attempt) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s delivery: %v", a.channel, r)
		}
	}()
	return a.send(ctx)
}

// failureMessage prefers the user-facing text an SMS gateway returns.
func failureMessage(err error) string {
	var smsErr *sms.SMSError
	if stderrors.As(err, &smsErr) && smsErr.UserMessage != "" {
		return smsErr.UserMessage
	}
	return err.Error()
}
