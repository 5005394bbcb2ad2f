package ratelimit

import "net/http"

// HTTPDoer is an interface for making HTTP requests.
// Both *http.Client and *RateLimitedHTTPClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RateLimitedHTTPClient wraps an HTTPDoer with token bucket rate limiting.
type RateLimitedHTTPClient struct {
	inner   HTTPDoer
	limiter *Limiter
}

// NewRateLimitedHTTPClient wraps an existing HTTPDoer with rate limiting.
// If limiter is nil, requests pass through without rate limiting.
func NewRateLimitedHTTPClient(inner HTTPDoer, limiter *Limiter) *RateLimitedHTTPClient {
	return &RateLimitedHTTPClient{
		inner:   inner,
		limiter: limiter,
	}
}

// Do executes an HTTP request, blocking until a rate limit token is available.
func (c *RateLimitedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return c.inner.Do(req)
}

// roundTripper applies a Limiter to outbound requests before delegating
// to the wrapped http.RoundTripper, for callers that construct an
// *http.Client rather than take an HTTPDoer.
type roundTripper struct {
	inner   http.RoundTripper
	limiter *Limiter
}

// NewRateLimitedRoundTripper wraps inner with token bucket rate limiting.
// If limiter is nil, requests pass through without rate limiting. inner
// defaults to http.DefaultTransport when nil.
func NewRateLimitedRoundTripper(inner http.RoundTripper, limiter *Limiter) http.RoundTripper {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &roundTripper{inner: inner, limiter: limiter}
}

func (t *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return t.inner.RoundTrip(req)
}
