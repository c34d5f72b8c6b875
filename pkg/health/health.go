// Package health serves liveness and readiness probes.
//
// Each probe runs periodically in the background. A probe turns unhealthy
// after FailureThreshold consecutive failures and healthy again after
// SuccessThreshold consecutive successes.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Default thresholds.
const (
	FailureThreshold = 3
	SuccessThreshold = 1
)

// ProbeOption tunes a single probe.
type ProbeOption func(*probe)

// WithThresholds overrides the failure and success thresholds.
func WithThresholds(failure, success int) ProbeOption {
	return func(p *probe) {
		p.failAfter = max(1, failure)
		p.okAfter = max(1, success)
	}
}

type probe struct {
	name      string
	timeout   time.Duration
	check     CheckFunc
	failAfter int
	okAfter   int

	healthy atomic.Bool
	lastErr atomic.Pointer[string]

	// Touched only by the probe's own goroutine.
	fails, oks int
}

func newProbe(name string, timeout time.Duration, check CheckFunc, opts []ProbeOption) *probe {
	p := &probe{
		name:      name,
		timeout:   timeout,
		check:     check,
		failAfter: FailureThreshold,
		okAfter:   SuccessThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	p.healthy.Store(true)
	return p
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.check(ctx); err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		p.oks = 0
		if p.fails++; p.fails >= p.failAfter {
			p.healthy.Store(false)
		}
		return
	}
	p.lastErr.Store(nil)
	p.fails = 0
	if p.oks++; p.oks >= p.okAfter {
		p.healthy.Store(true)
	}
}

func (p *probe) loop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.run(ctx)
		}
	}
}

// failure describes why an unhealthy probe failed.
func (p *probe) failure() string {
	if msg := p.lastErr.Load(); msg != nil {
		return *msg
	}
	return "check is unhealthy"
}

// Checker owns the probes of one process.
type Checker struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
}

// New returns a Checker that reports not ready until SetReady(true).
func New() *Checker {
	return &Checker{}
}

// AddLivenessCheck registers a probe that decides whether the process
// should be restarted.
func (c *Checker) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc, opts ...ProbeOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liveness = append(c.liveness, newProbe(name, timeout, check, opts))
}

// AddReadinessCheck registers a probe that decides whether the process
// should receive traffic.
func (c *Checker) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc, opts ...ProbeOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readiness = append(c.readiness, newProbe(name, timeout, check, opts))
}

// Run executes every registered probe each interval until ctx is done.
// Probes registered after Run starts are not executed.
func (c *Checker) Run(ctx context.Context, interval time.Duration) error {
	c.mu.RLock()
	probes := make([]*probe, 0, len(c.liveness)+len(c.readiness))
	probes = append(probes, c.liveness...)
	probes = append(probes, c.readiness...)
	c.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range probes {
		g.Go(func() error {
			p.loop(ctx, interval)
			return nil
		})
	}
	return g.Wait()
}

// SetReady toggles the manual readiness gate. It is switched off first on
// shutdown so load balancers drain the instance.
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness probe passes.
func (c *Checker) IsReady() bool {
	if !c.ready.Load() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.readiness {
		if !p.healthy.Load() {
			return false
		}
	}
	return true
}

// LiveEndpoint serves /livez.
func (c *Checker) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	c.mu.RLock()
	failures := collectFailures(c.liveness)
	c.mu.RUnlock()

	writeStatus(w, failures)
}

// ReadyEndpoint serves /readyz.
func (c *Checker) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	c.mu.RLock()
	failures := collectFailures(c.readiness)
	c.mu.RUnlock()

	if !c.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func collectFailures(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		if !p.healthy.Load() {
			failures[p.name] = p.failure()
		}
	}
	return failures
}

// writeStatus writes {"status":"ok"} or 503 with
// {"status":"unhealthy","checks":{name: reason}}.
func writeStatus(w http.ResponseWriter, failures map[string]string) {
	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	status := http.StatusOK
	e.Obj(func(e *jx.Encoder) {
		if len(names) == 0 {
			e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
			return
		}
		status = http.StatusServiceUnavailable
		e.Field("status", func(e *jx.Encoder) { e.Str("unhealthy") })
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range names {
					e.Field(name, func(e *jx.Encoder) { e.Str(failures[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
