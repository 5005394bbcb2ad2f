package gpu

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/kestrel-labs/imagerefine/pkg/session"
)

// Service names one of the four GPU-resident model roles (spec §4.A,
// §4.B). Only one of these may be loaded at a time on a single-GPU
// host.
type Service string

const (
	ServiceLLM    Service = "llm"
	ServiceImage  Service = "image"
	ServiceVision Service = "vision"
	ServiceVLM    Service = "vlm"
)

// conflictsWith returns the services that must be stopped before s can
// be made resident (spec §4.B: "stops the two conflicting services").
// Vision is deprecated in favour of VLM (spec §9) but still occupies
// the accelerator if running, so it is always a conflict target.
func (s Service) conflictsWith() []Service {
	all := []Service{ServiceLLM, ServiceImage, ServiceVision, ServiceVLM}
	out := make([]Service, 0, len(all)-1)
	for _, other := range all {
		if other != s {
			out = append(out, other)
		}
	}
	return out
}

// state is the coordinator's live record for one service (spec §4.B
// "service registry"). All fields are protected by registry.mu.
type state struct {
	intendedRunning bool
	lastHealthyAt   time.Time
	pid             int
	port            int
}

// registry is the mutex-guarded map of service state, split out from
// Coordinator so the lock-holding critical section and the registry
// bookkeeping are easy to reason about separately.
type registry struct {
	mu       sync.Mutex
	services map[Service]*state
}

func newRegistry() *registry {
	return &registry{services: make(map[Service]*state)}
}

func (r *registry) get(s Service) state {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.services[s]; ok {
		return *st
	}
	return state{}
}

func (r *registry) set(s Service, fn func(*state)) state {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.services[s]
	if !ok {
		st = &state{}
		r.services[s] = st
	}
	fn(st)
	return *st
}

// resolvePort reads a service's port from its discovery file, falling
// back to the given environment variable (spec §4.B: "ports are read
// from a per-service port file... with env-var fallback").
func resolvePort(servicesDir string, svc Service, envVar string) (int, error) {
	path := session.ServicePortFile(servicesDir, string(svc))
	if data, err := os.ReadFile(path); err == nil {
		port, perr := strconv.Atoi(trimNewline(string(data)))
		if perr == nil {
			return port, nil
		}
	}
	if v, ok := os.LookupEnv(envVar); ok {
		port, err := strconv.Atoi(v)
		if err == nil {
			return port, nil
		}
	}
	return 0, fmt.Errorf("gpu: no port file or %s for service %s", envVar, svc)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// isStopLocked reports whether an operator has placed a STOP_LOCK
// marker for svc (spec §4.B: "the coordinator must never auto-restart
// that service").
func isStopLocked(servicesDir string, svc Service) bool {
	_, err := os.Stat(session.StopLockFile(servicesDir, string(svc)))
	return err == nil
}
