package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/WessleyAI/gridlink/pkg/fn"
	"github.com/WessleyAI/gridlink/pkg/resilience"
)

// StatusError is a non-2xx solver reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("solver: status %d: %s", e.Code, e.Body)
}

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	Timeout  time.Duration
	Retry    fn.RetryOpts
	Breaker  *resilience.Breaker
	Limiter  *resilience.Limiter
	Observer Observer
	Logger   *slog.Logger
	// Transport overrides the base round tripper; it is always wrapped with
	// otelhttp.
	Transport http.RoundTripper
}

// HTTPClient posts payloads to a solver endpoint.
type HTTPClient struct {
	url  string
	hc   *http.Client
	opts HTTPOptions
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for url.
func NewHTTPClient(url string, opts HTTPOptions) *HTTPClient {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = fn.DefaultRetry
	}
	if opts.Breaker == nil {
		opts.Breaker = resilience.NewBreaker(resilience.BreakerOpts{Ignore: isCallerError})
	}
	if opts.Limiter == nil {
		opts.Limiter = resilience.NewLimiter(resilience.LimiterOpts{})
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &HTTPClient{
		url:  url,
		hc:   &http.Client{Timeout: opts.Timeout, Transport: otelhttp.NewTransport(base)},
		opts: opts,
	}
}

func isCallerError(err error) bool {
	return errors.Is(err, context.Canceled) || fn.IsPermanent(err)
}

// Solve posts payload and returns the sanitized reply. Transport failures
// and 5xx replies are retried; 4xx replies are not.
func (c *HTTPClient) Solve(ctx context.Context, payload []byte) ([]byte, error) {
	start := time.Now()
	r := fn.Retry(ctx, c.opts.Retry, func(ctx context.Context) fn.Result[[]byte] {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return fn.Err[[]byte](fn.Permanent(err))
		}
		body, err := resilience.Do(ctx, c.opts.Breaker, func(ctx context.Context) ([]byte, error) {
			return c.post(ctx, payload)
		})
		if errors.Is(err, resilience.ErrOpen) {
			err = fn.Permanent(err)
		}
		return fn.FromPair(body, err)
	})
	body, err := r.Unwrap()
	c.opts.Observer.RecordSolver("http", err, time.Since(start))
	if err != nil {
		c.opts.Logger.Warn("solver: request failed", "url", c.url, "err", err)
		return nil, err
	}
	return Sanitize(body), nil
}

func (c *HTTPClient) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fn.Permanent(fmt.Errorf("solver: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		serr := &StatusError{Code: resp.StatusCode, Body: truncate(body, 512)}
		if resp.StatusCode < 500 {
			return nil, fn.Permanent(serr)
		}
		return nil, serr
	}
	return body, nil
}

// readBody decodes a gzip body when the server compressed it itself; the
// standard transport only decompresses transparently when it added the
// Accept-Encoding header.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("solver: gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("solver: read reply: %w", err)
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
