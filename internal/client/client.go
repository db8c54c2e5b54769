// Package client talks to the remote geocoding, weather and points-of-interest providers.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kjstillabower/tourism-orchestrator/internal/circuitbreaker"
	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
)

var (
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrClientError     = errors.New("client error")
	ErrUnexpectedShape = errors.New("unexpected response shape")
	ErrCircuitOpen     = circuitbreaker.ErrOpen
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 4 << 20

// Options configures the transport shared by every provider client.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Limiter throttles outbound calls; nil disables throttling.
	Limiter *rate.Limiter
	// Breaker guards the provider; nil disables it.
	Breaker *circuitbreaker.CircuitBreaker
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// transport executes one provider request: throttle, breaker, metrics, status mapping.
// It never retries; callers compose it with retry.Do.
type transport struct {
	provider  string
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *circuitbreaker.CircuitBreaker
}

func newTransport(provider, defaultBaseURL string, opts Options) transport {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return transport{
		provider:  provider,
		baseURL:   baseURL,
		userAgent: opts.UserAgent,
		client:    httpClient,
		limiter:   opts.Limiter,
		breaker:   opts.Breaker,
	}
}

// do sends req and returns the body of a 2xx response.
func (t transport) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s throttle: %w", t.provider, err)
		}
	}
	var body []byte
	call := func() error {
		var err error
		body, err = t.roundTrip(ctx, req)
		return err
	}
	var err error
	if t.breaker != nil {
		err = t.breaker.Call(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		observability.ProviderErrorsTotal.WithLabelValues(t.provider, string(CategorizeError(err))).Inc()
		return nil, err
	}
	return body, nil
}

func (t transport) roundTrip(ctx context.Context, req *http.Request) ([]byte, error) {
	start := time.Now()
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		observability.ProviderCallsTotal.WithLabelValues(t.provider, "error").Inc()
		observability.ProviderDuration.WithLabelValues(t.provider, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%s request timeout: %w", t.provider, err)
		}
		return nil, fmt.Errorf("%s http request failed: %w", t.provider, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.ProviderCallsTotal.WithLabelValues(t.provider, status).Inc()
	observability.ProviderDuration.WithLabelValues(t.provider, status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(t.provider, resp); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s read response body: %w", t.provider, err)
	}
	return body, nil
}

func handleErrorResponse(provider string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", provider, ErrRateLimited)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%s: %w: HTTP %d", provider, ErrClientError, resp.StatusCode)
	default:
		return fmt.Errorf("%s: %w: HTTP %d", provider, ErrUpstreamFailure, resp.StatusCode)
	}
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// IsRetryable reports whether a provider error may succeed on another attempt.
// An open circuit, a caller cancellation and a malformed payload will not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrUnexpectedShape) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
