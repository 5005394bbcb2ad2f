package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
)

// Selection names the active provider for each capability. An empty
// field means "leave the current selection for that capability
// unchanged" when passed to Switchboard.Switch.
type Selection struct {
	LLM    string
	Image  string
	Vision string
	VLM    string
}

// ReachabilityChecker probes whether the named provider for the given
// capability is currently reachable. Cloud providers are always
// reachable from the switchboard's point of view (the provider itself
// surfaces ServiceUnavailable on call); only local, GPU-resident
// providers need a real probe, typically delegating to the GPU
// coordinator's health check.
type ReachabilityChecker func(ctx context.Context, capability, name string) bool

// alwaysReachable is the default checker, used when the caller does not
// need reachability gating (e.g. in tests with mock providers).
func alwaysReachable(context.Context, string, string) bool { return true }

// Switchboard is the process-wide mutable runtime provider selection
// (spec §4.J). It is a guarded struct rather than a bare atomic
// reference because Switch must validate against four registries and
// return the prior selection atomically with the update.
type Switchboard struct {
	mu         sync.RWMutex
	current    Selection
	reachable  ReachabilityChecker
}

// NewSwitchboard builds a Switchboard with an optional reachability
// checker. A nil checker treats every provider as reachable.
func NewSwitchboard(initial Selection, reachable ReachabilityChecker) *Switchboard {
	if reachable == nil {
		reachable = alwaysReachable
	}
	return &Switchboard{current: initial, reachable: reachable}
}

// Current returns the active selection.
func (s *Switchboard) Current() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Switch validates next against the four capability registries and the
// reachability checker, then atomically replaces the current selection,
// returning the prior one. A non-empty field that names an unregistered
// or unreachable provider rejects the whole switch with no partial
// effect (spec §6: "reject switch to an unreachable local provider with
// a dedicated error kind").
func (s *Switchboard) Switch(ctx context.Context, next Selection) (Selection, error) {
	if err := s.validate(ctx, "llm", next.LLM, HasLLM); err != nil {
		return Selection{}, err
	}
	if err := s.validate(ctx, "image", next.Image, HasImage); err != nil {
		return Selection{}, err
	}
	if err := s.validate(ctx, "vision", next.Vision, HasVision); err != nil {
		return Selection{}, err
	}
	if err := s.validate(ctx, "vlm", next.VLM, HasVLM); err != nil {
		return Selection{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prior := s.current
	if next.LLM != "" {
		s.current.LLM = next.LLM
	}
	if next.Image != "" {
		s.current.Image = next.Image
	}
	if next.Vision != "" {
		s.current.Vision = next.Vision
	}
	if next.VLM != "" {
		s.current.VLM = next.VLM
	}
	return prior, nil
}

func (s *Switchboard) validate(ctx context.Context, capability, name string, has func(string) bool) error {
	if name == "" {
		return nil
	}
	if !has(name) {
		return apperrors.New(apperrors.InvalidArgument, fmt.Sprintf("%s provider %q is not registered", capability, name))
	}
	if !s.reachable(ctx, capability, name) {
		return apperrors.New(apperrors.ServiceUnavailable, fmt.Sprintf("%s provider %q is unreachable", capability, name))
	}
	return nil
}
