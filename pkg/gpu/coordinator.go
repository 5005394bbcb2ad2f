package gpu

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/retry"
)

// Coordinator serialises access to a single GPU across the four
// service roles (spec §4.B). Construct one per process and share it
// across every provider that drives a GPU-resident model.
type Coordinator struct {
	lock       *fifoLock
	reg        *registry
	controller ServiceController
	prober     HealthProber

	servicesDir  string
	portEnvVars  map[Service]string
	cleanupDelay time.Duration
	restartBound time.Duration
}

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithCleanupDelay overrides the post-stop settle delay (spec §4.B:
// "2-5s"); defaults to 3s.
func WithCleanupDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.cleanupDelay = d }
}

// WithRestartBound overrides the total time a restart may take before
// giving up (spec §4.B: "60s timeout"); defaults to 60s.
func WithRestartBound(d time.Duration) Option {
	return func(c *Coordinator) { c.restartBound = d }
}

// New builds a Coordinator. portEnvVars supplies the environment
// variable fallback name for each service's port (spec §4.B).
func New(controller ServiceController, prober HealthProber, servicesDir string, portEnvVars map[Service]string, opts ...Option) *Coordinator {
	c := &Coordinator{
		lock:         newFIFOLock(),
		reg:          newRegistry(),
		controller:   controller,
		prober:       prober,
		servicesDir:  servicesDir,
		portEnvVars:  portEnvVars,
		cleanupDelay: 3 * time.Second,
		restartBound: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithGPULock runs fn while holding the exclusive lock, queued FIFO
// behind any earlier waiters (spec §4.B).
func (c *Coordinator) WithGPULock(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.lock.acquire(ctx); err != nil {
		return apperrors.Wrap(apperrors.Fatal, "acquire GPU lock", err)
	}
	defer c.lock.release()
	return fn(ctx)
}

// WithLLMOperation prepares the LLM service and runs fn under the GPU
// lock (spec §4.B).
func (c *Coordinator) WithLLMOperation(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.withOperation(ctx, ServiceLLM, fn)
}

// WithImageGenOperation prepares the image service and runs fn under
// the GPU lock.
func (c *Coordinator) WithImageGenOperation(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.withOperation(ctx, ServiceImage, fn)
}

// WithVLMOperation prepares the VLM service and runs fn under the GPU
// lock.
func (c *Coordinator) WithVLMOperation(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.withOperation(ctx, ServiceVLM, fn)
}

func (c *Coordinator) withOperation(ctx context.Context, desired Service, fn func(ctx context.Context) error) error {
	return c.WithGPULock(ctx, func(ctx context.Context) error {
		for _, conflict := range desired.conflictsWith() {
			if err := c.stopIfRunning(ctx, conflict); err != nil {
				return err
			}
		}

		select {
		case <-time.After(c.cleanupDelay):
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := c.ensureAlive(ctx, desired); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func (c *Coordinator) stopIfRunning(ctx context.Context, svc Service) error {
	st := c.reg.get(svc)
	if !st.intendedRunning {
		return nil
	}
	if err := c.controller.Stop(ctx, svc, st.pid); err != nil {
		return apperrors.Wrap(apperrors.Fatal, fmt.Sprintf("stop conflicting service %s", svc), err)
	}
	c.reg.set(svc, func(s *state) {
		s.intendedRunning = false
		s.pid = 0
	})
	return nil
}

// ensureAlive probes svc, restarting it if unhealthy and not
// stop-locked (spec §4.B).
func (c *Coordinator) ensureAlive(ctx context.Context, svc Service) error {
	if baseURL, err := c.baseURL(svc); err == nil {
		if probeErr := c.prober.Probe(ctx, baseURL); probeErr == nil {
			c.markHealthy(svc)
			return nil
		}
	}

	if isStopLocked(c.servicesDir, svc) {
		return apperrors.New(apperrors.ServiceUnavailable, fmt.Sprintf("service %s is stop-locked, refusing auto-restart", svc))
	}

	return c.restart(ctx, svc)
}

// restart starts svc and polls /health with exponential back-off until
// healthy or the restart bound elapses (spec §4.B).
func (c *Coordinator) restart(ctx context.Context, svc Service) error {
	pid, err := c.controller.Start(ctx, svc)
	if err != nil {
		return apperrors.Wrap(apperrors.Fatal, fmt.Sprintf("start service %s", svc), err)
	}
	c.reg.set(svc, func(s *state) {
		s.intendedRunning = true
		s.pid = pid
	})

	restartCtx, cancel := context.WithTimeout(ctx, c.restartBound)
	defer cancel()

	err = retry.Do(restartCtx, retry.Config{
		MaxAttempts:  30,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}, func() error {
		baseURL, err := c.baseURL(svc)
		if err != nil {
			return err
		}
		return c.prober.Probe(restartCtx, baseURL)
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ServiceUnavailable, fmt.Sprintf("service %s did not become healthy within %s", svc, c.restartBound), err)
	}

	c.markHealthy(svc)
	return nil
}

// Restart forces a stop-then-start of svc, used by a provider's retry
// wrapper on a transient connection failure (spec §4.B: "the caller's
// retry wrapper invokes the coordinator's restart path once").
func (c *Coordinator) Restart(ctx context.Context, svc Service) error {
	return c.WithGPULock(ctx, func(ctx context.Context) error {
		if err := c.stopIfRunning(ctx, svc); err != nil {
			return err
		}
		select {
		case <-time.After(c.cleanupDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		return c.ensureAlive(ctx, svc)
	})
}

func (c *Coordinator) markHealthy(svc Service) {
	c.reg.set(svc, func(s *state) {
		s.intendedRunning = true
		s.lastHealthyAt = time.Now()
	})
}

func (c *Coordinator) baseURL(svc Service) (string, error) {
	port, err := resolvePort(c.servicesDir, svc, c.portEnvVars[svc])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port), nil
}

// State returns a snapshot of svc's registry entry, for diagnostics and
// tests (spec §4.B service registry fields).
func (c *Coordinator) State(svc Service) (intendedRunning bool, lastHealthyAt time.Time, pid, port int) {
	st := c.reg.get(svc)
	port, _ = resolvePort(c.servicesDir, svc, c.portEnvVars[svc])
	return st.intendedRunning, st.lastHealthyAt, st.pid, port
}
