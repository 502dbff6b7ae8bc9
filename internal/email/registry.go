package email

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwalitptl/msp-alerts/pkg/logger"
)

// Registry picks a configured provider, primary first, and retries the
// fallbacks in order when a send fails.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	primary   string
	fallback  []string
	logger    *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		logger:    log,
	}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	r.logger.Info("registered email provider", "name", p.Name(), "configured", p.IsConfigured())
}

func (r *Registry) SetPrimary(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("email provider %q not registered", name)
	}
	r.primary = name
	return nil
}

func (r *Registry) SetFallback(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if _, ok := r.providers[name]; !ok {
			return fmt.Errorf("email provider %q not registered", name)
		}
	}
	r.fallback = append([]string(nil), names...)
	return nil
}

// order returns the configured providers in the order they should be tried.
func (r *Registry) order() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Provider
	seen := make(map[string]bool)
	for _, name := range append([]string{r.primary}, r.fallback...) {
		p, ok := r.providers[name]
		if !ok || seen[name] || !p.IsConfigured() {
			continue
		}
		seen[name] = true
		out = append(out, p)
	}
	return out
}

func (r *Registry) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	providers := r.order()
	if len(providers) == 0 {
		return fmt.Errorf("no configured email provider available")
	}

	var firstErr error
	for i, p := range providers {
		err := p.Send(ctx, msg)
		if err == nil {
			if i > 0 {
				r.logger.Warn("email sent via fallback provider", "provider", p.Name(), "primary_error", firstErr.Error())
			}
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
		r.logger.Warn("email provider failed", "provider", p.Name(), "error", err.Error())
	}
	return firstErr
}
