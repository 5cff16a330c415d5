package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Default transport settings.
const (
	DefaultTimeout             = 60 * time.Second
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second
)

// maxErrorMessageBytes caps a plain-text upstream error body used as a message.
const maxErrorMessageBytes = 200

// TransportOptions configures the shared HTTP connection pool.
type TransportOptions struct {
	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration

	// Timeout is the default time-to-first-byte when a model has none
	Timeout time.Duration

	// Client replaces the pooled client entirely (used by tests)
	Client *http.Client
}

// HTTPProvider is the base for HTTP-based adapters. It owns a pooled client
// shared by every provider of one API family, and implements the retry and
// status mapping logic common to all of them.
//
// The client has no overall timeout because streams can legitimately run for
// minutes; each request instead gets a deadline that covers only the wait for
// response headers.
type HTTPProvider struct {
	api     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPProvider creates a base HTTP provider for one API family.
func NewHTTPProvider(api string, opts TransportOptions) *HTTPProvider {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := opts.Client
	if client == nil {
		if opts.MaxIdleConns == 0 {
			opts.MaxIdleConns = DefaultMaxIdleConns
		}
		if opts.MaxIdleConnsPerHost == 0 {
			opts.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
		}
		if opts.IdleConnTimeout == 0 {
			opts.IdleConnTimeout = DefaultIdleConnTimeout
		}

		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        opts.MaxIdleConns,
			MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
			IdleConnTimeout:     opts.IdleConnTimeout,
			ForceAttemptHTTP2:   true,
		}
		client = &http.Client{Transport: transport}
	}

	return &HTTPProvider{
		api:     api,
		client:  client,
		timeout: opts.Timeout,
	}
}

// API returns the API family this base serves.
func (p *HTTPProvider) API() string {
	return p.api
}

// DoRequest sends a request for model and returns the response once headers
// arrive with a 2xx status. Connection failures and 5xx responses are retried
// with exponential backoff up to model.MaxRetries times; nothing is retried
// once the response body has been handed to the caller.
//
// The returned body must be closed by the caller.
func (p *HTTPProvider) DoRequest(ctx context.Context, model *ResolvedModel, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	timeout := model.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}

	for attempt := 0; attempt <= model.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			slog.Debug("retrying request",
				"provider", model.ProviderName,
				"attempt", attempt,
				"max_retries", model.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := p.send(ctx, model, timeout, method, url, body, headers)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}

		slog.Warn("request failed, will retry",
			"provider", model.ProviderName,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return nil, lastErr
}

// send performs a single request. The header timeout is enforced with a
// cancelable context that stays alive until the caller closes the body.
func (p *HTTPProvider) send(ctx context.Context, model *ResolvedModel, timeout time.Duration, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(timeout, cancel)

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, bodyReader)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range model.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	slog.Debug("sending request to provider",
		"provider", model.ProviderName,
		"method", method,
		"url", url,
	)

	resp, err := p.client.Do(req)
	fired := !timer.Stop()
	if err != nil {
		cancel()
		if fired && ctx.Err() == nil {
			return nil, &TimeoutError{Provider: model.ProviderName, Timeout: timeout}
		}
		return nil, &ProviderError{
			Provider: model.ProviderName,
			Message:  "request failed",
			Cause:    err,
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
	cancel()

	return nil, statusError(model.ProviderName, resp, errorBody)
}

// statusError maps a non-2xx response to a typed error.
func statusError(provider string, resp *http.Response, body []byte) error {
	message := extractErrorMessage(body)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Provider: provider, Message: message}
	case http.StatusTooManyRequests:
		return &RateLimitError{
			Provider:   provider,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    message,
		}
	default:
		return &ProviderError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}
}

// extractErrorMessage pulls a readable message out of the common JSON error
// envelopes ({"error":{"message":...}}, {"error":"..."}), falling back to a
// short prefix of a plain-text body. HTML and empty bodies yield "".
func extractErrorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if err := json.Unmarshal(envelope.Error, &flat); err == nil && flat != "" {
			return flat
		}
	}
	return plainErrorMessage(bytes.TrimSpace(body))
}

func plainErrorMessage(body []byte) string {
	if len(body) == 0 || body[0] == '<' {
		return ""
	}
	if len(body) <= maxErrorMessageBytes {
		return string(body)
	}
	cut := maxErrorMessageBytes
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}

// Close releases idle pooled connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}

// cancelOnClose releases the request context when the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
