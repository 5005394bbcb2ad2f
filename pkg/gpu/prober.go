package gpu

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HealthProber checks whether a service is accepting requests. The
// default implementation hits the service's HTTP /health endpoint;
// tests substitute a stub.
type HealthProber interface {
	Probe(ctx context.Context, baseURL string) error
}

// HTTPHealthProber is the production HealthProber (spec §4.B: "HTTP
// /health with a timeout of ~30s, services may be busy loading
// weights").
type HTTPHealthProber struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPHealthProber builds a prober with the given per-probe
// timeout, defaulting to 30s per spec §4.B.
func NewHTTPHealthProber(timeout time.Duration) *HTTPHealthProber {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPHealthProber{Client: &http.Client{Timeout: timeout}, Timeout: timeout}
}

func (p *HTTPHealthProber) Probe(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("gpu: build health request: %w", err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("gpu: health probe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gpu: health probe returned %d", resp.StatusCode)
	}
	return nil
}
