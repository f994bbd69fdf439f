package integration

import (
	"context"
	"time"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/resilience"
)

// breakerFailureThreshold and breakerCooldown configure the §4.C circuit
// breaker through resilience's legacy failure-count constructor: it opens
// once breakerFailureThreshold failures have been counted since it last
// closed (a success in between does not reset the count), and after
// breakerCooldown it lets one trial call through.
const (
	breakerFailureThreshold = 3
	breakerCooldown         = 30 * time.Second
)

// guardedAdapter wraps one asset adapter's call in a dedicated circuit
// breaker, so a run of failures against one remote service (e.g.
// Sketchfab) fails fast instead of retrying into a known-down service.
type guardedAdapter struct {
	name    string
	breaker *resilience.CircuitBreaker
	logger  core.Logger
}

func newGuardedAdapter(name string, logger core.Logger) *guardedAdapter {
	cb := resilience.NewCircuitBreakerLegacy(breakerFailureThreshold, breakerCooldown)
	if logger != nil {
		cb.SetLogger(logger)
	}
	return &guardedAdapter{name: name, breaker: cb, logger: logger}
}

// call executes fn through the circuit breaker, returning
// core.ErrCircuitBreakerOpen without touching the remote host when the
// breaker is open.
func (g *guardedAdapter) call(ctx context.Context, fn func() (AssetRef, error)) (AssetRef, error) {
	var result AssetRef
	err := g.breaker.Execute(ctx, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}

// State reports the adapter's current circuit breaker state ("closed",
// "open", "half-open"), surfaced in integrationStatus for the planner and
// intent router.
func (g *guardedAdapter) State() string {
	return g.breaker.GetState()
}

// Available reports whether the adapter can currently accept a call
// (closed or half-open).
func (g *guardedAdapter) Available() bool {
	return g.breaker.CanExecute()
}
