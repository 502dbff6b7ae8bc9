package quiethours

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/pkg/logger"
	"github.com/jwalitptl/msp-alerts/pkg/metrics"
)

// Filter drops staff subscribers who are inside their quiet hours window.
// Client subscriptions never pass through here.
type Filter struct {
	fallback  *time.Location
	locations *cache.Cache
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func New(fallbackTimezone string, log *logger.Logger, m *metrics.Metrics) (*Filter, error) {
	loc, err := time.LoadLocation(fallbackTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid fallback timezone %q: %w", fallbackTimezone, err)
	}
	if m == nil {
		m = metrics.New("quiethours")
	}
	return &Filter{
		fallback:  loc,
		locations: cache.New(cache.NoExpiration, 0),
		logger:    log,
		metrics:   m,
	}, nil
}

// Filter returns the subscribers that may be notified at now, preserving order.
func (f *Filter) Filter(subs []*model.EmployeeSubscription, now time.Time) []*model.EmployeeSubscription {
	active := make([]*model.EmployeeSubscription, 0, len(subs))
	for _, sub := range subs {
		if f.IsActive(sub, now) {
			active = append(active, sub)
			continue
		}
		f.metrics.QuietHoursSuppress.Inc()
		f.logger.Debug("subscriber in quiet hours", "subscription_id", sub.ID.String())
	}
	return active
}

// IsActive reports whether sub should receive alerts at now. Windows that
// cannot be evaluated count as active.
func (f *Filter) IsActive(sub *model.EmployeeSubscription, now time.Time) bool {
	if sub == nil || sub.QuietHours == nil {
		return true
	}
	suppressed, err := f.inWindow(sub.QuietHours, now)
	if err != nil {
		f.metrics.QuietHoursFaults.Inc()
		f.logger.Warn("quiet hours check failed, delivering anyway",
			"subscription_id", sub.ID.String(),
			"start", sub.QuietHours.Start,
			"end", sub.QuietHours.End,
			"timezone", sub.QuietHours.Timezone,
			"error", err.Error(),
		)
		return true
	}
	return !suppressed
}

func (f *Filter) inWindow(qh *model.QuietHours, now time.Time) (bool, error) {
	start, err := parseClock(qh.Start)
	if err != nil {
		return false, fmt.Errorf("start: %w", err)
	}
	end, err := parseClock(qh.End)
	if err != nil {
		return false, fmt.Errorf("end: %w", err)
	}
	loc, err := f.location(qh.Timezone)
	if err != nil {
		return false, err
	}

	local := now.In(loc)
	current := local.Hour()*60 + local.Minute()
	return windowContains(start, end, current), nil
}

// windowContains works in minutes since midnight with end exclusive.
// start > end wraps past midnight; start == end is an empty window.
func windowContains(start, end, current int) bool {
	switch {
	case start < end:
		return current >= start && current < end
	case start > end:
		return current >= start || current < end
	default:
		return false
	}
}

func (f *Filter) location(name string) (*time.Location, error) {
	if name == "" {
		return f.fallback, nil
	}
	if loc, ok := f.locations.Get(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	f.locations.Set(name, loc, cache.NoExpiration)
	return loc, nil
}

// parseClock accepts "HH:MM" and the "HH:MM:SS" form TIME columns come back in.
func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("invalid second in %q", s)
		}
	}
	return h*60 + m, nil
}
