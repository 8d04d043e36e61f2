// Package health provides Kubernetes-style liveness and readiness probes.
//
// Registered checks run periodically in a background goroutine; the HTTP
// endpoints only read the latest recorded state, so probes stay fast even
// when a check hangs.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
)

// CheckFunc probes one component, returning nil when it is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)
	c.healthy.Store(err == nil)
}

// Health manages liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	mu        sync.Mutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a Health service in the not-ready state; call SetReady(true)
// once initialization finishes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a liveness check. Register before Start.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a readiness check. Register before Start.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	// Optimistic until first probe so startup is not reported unhealthy.
	c.healthy.Store(true)
	return c
}

// Start launches the background probe loop at the given interval.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	checks := append(append([]*check(nil), h.liveness...), h.readiness...)

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for _, c := range checks {
			c.run(ctx)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, c := range checks {
					c.run(ctx)
				}
			}
		}
	}()
}

// Stop cancels the probe loop and waits for it to exit.
func (h *Health) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// SetReady flips the service readiness flag.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

type probeResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the liveness probe: 200 while every liveness check
// passes, 503 otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	checks := append([]*check(nil), h.liveness...)
	h.mu.Unlock()

	writeProbe(w, collect(checks), true)
}

// ReadyEndpoint serves the readiness probe: 200 only when SetReady(true)
// was called and every readiness check passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	checks := append([]*check(nil), h.readiness...)
	h.mu.Unlock()

	writeProbe(w, collect(checks), h.ready.Load())
}

func collect(checks []*check) map[string]string {
	results := make(map[string]string, len(checks))
	for _, c := range checks {
		if c.healthy.Load() {
			results[c.name] = "ok"
			continue
		}
		msg := "failing"
		if p := c.lastErr.Load(); p != nil && *p != nil {
			msg = (*p).Error()
		}
		results[c.name] = msg
	}
	return results
}

func writeProbe(w http.ResponseWriter, results map[string]string, ready bool) {
	healthy := ready
	for _, v := range results {
		if v != "ok" {
			healthy = false
		}
	}

	status := http.StatusOK
	body := probeResult{Status: "ok", Checks: results}
	if !healthy {
		status = http.StatusServiceUnavailable
		body.Status = "unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// GoroutineCountCheck returns a liveness check that fails when the process
// exceeds maxGoroutines, a cheap proxy for goroutine leaks.
func GoroutineCountCheck(maxGoroutines int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > maxGoroutines {
			return errors.Errorf("too many goroutines: %d > %d", n, maxGoroutines)
		}
		return nil
	}
}
