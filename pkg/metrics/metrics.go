package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatch metrics
	DispatchAttempts   *prometheus.CounterVec
	DispatchDuration   prometheus.Histogram
	DispatchCalls      *prometheus.CounterVec
	QuietHoursSuppress prometheus.Counter
	QuietHoursFaults   prometheus.Counter

	// Recorder metrics
	RecordFailures prometheus.Counter

	// Reminder scheduler metrics
	ReminderTicks       *prometheus.CounterVec
	ReminderTicksSkip   prometheus.Counter
	ReminderInvocations *prometheus.CounterVec
	ReminderCleared     *prometheus.CounterVec
	ReminderTickLatency prometheus.Histogram

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics with reg.
// Passing nil registers with the default registry.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		DispatchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_attempts_total",
			Help:      "Delivery attempts by subscriber kind, channel and outcome",
		}, []string{"subscriber", "channel", "status"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent fanning out one alert occurrence",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		DispatchCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_calls_total",
			Help:      "Dispatch calls by result",
		}, []string{"result"}),
		QuietHoursSuppress: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "quiet_hours_suppressed_total",
			Help:      "Staff subscribers skipped because of quiet hours",
		}),
		QuietHoursFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "quiet_hours_faults_total",
			Help:      "Quiet hours windows that could not be evaluated",
		}),
		RecordFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "delivery_record_failures_total",
			Help:      "Delivery attempts that could not be persisted",
		}),
		ReminderTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminder_ticks_total",
			Help:      "Reminder scheduler ticks by result",
		}, []string{"result"}),
		ReminderTicksSkip: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminder_ticks_skipped_total",
			Help:      "Ticks skipped because the previous tick was still running",
		}),
		ReminderInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminder_invocations_total",
			Help:      "Timeout handler invocations by action kind and outcome",
		}, []string{"action", "status"}),
		ReminderCleared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminder_ceiling_reached_total",
			Help:      "Scheduled actions abandoned after reaching their retry ceiling",
		}, []string{"action"}),
		ReminderTickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminder_tick_duration_seconds",
			Help:      "Time spent in one reminder tick",
			Buckets:   prometheus.DefBuckets,
		}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}

	reg.MustRegister(
		m.DispatchAttempts,
		m.DispatchDuration,
		m.DispatchCalls,
		m.QuietHoursSuppress,
		m.QuietHoursFaults,
		m.RecordFailures,
		m.ReminderTicks,
		m.ReminderTicksSkip,
		m.ReminderInvocations,
		m.ReminderCleared,
		m.ReminderTickLatency,
		m.DatabaseOperations,
	)

	return m
}

// New returns metrics registered on a private registry. Used by tests and
// by components constructed without explicit metrics.
func New(namespace string) *Metrics {
	return NewMetrics(namespace, "", prometheus.NewRegistry())
}
