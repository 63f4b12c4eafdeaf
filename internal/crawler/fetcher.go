package crawler

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/bool64/ctxd"
	"golang.org/x/net/html/charset"

	"github.com/nhatthm/politescrape/internal/metrics"
)

// maxDrainBytes limits how much of an unsuccessful response is read before closing it.
const maxDrainBytes = 64 << 10

// Status is the terminal state of a fetch.
type Status int

const (
	// StatusUnavailable means that every attempt failed, or the fetch was interrupted.
	StatusUnavailable Status = iota
	// StatusSuccess means that the content was fetched.
	StatusSuccess
	// StatusDisallowed means that robots.txt does not allow the url. No attempt was made.
	StatusDisallowed
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"

	case StatusDisallowed:
		return "disallowed"

	default:
		return "unavailable"
	}
}

// Outcome is the result of a fetch. Content is only set on success, Err is only set when unavailable.
type Outcome struct {
	Status   Status
	Content  string
	Attempts int
	Err      error
}

// Fetcher fetches a url, retrying with an exponential backoff.
//
// Every attempt takes a limiter slot, pauses for the politeness delay, then sends the request under a hard timeout.
// The slot is released at the end of the attempt, so the backoff waits do not count against the concurrency.
type Fetcher struct {
	client  *http.Client
	header  http.Header
	limiter *Limiter
	pauser  Pauser
	log     ctxd.Logger
	metrics *metrics.Metrics

	delay      time.Duration
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// Fetch fetches the url. It makes at most MaxRetries+1 attempts and never returns StatusDisallowed, the robots.txt
// check is up to the caller.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL) Outcome {
	maxAttempts := f.maxRetries + 1
	source := u.String()

	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		attemptCtx := ctxd.AddFields(ctx, "scraper.attempt", attempt+1)

		content, err := f.attempt(attemptCtx, source)
		if err == nil {
			return Outcome{Status: StatusSuccess, Content: content, Attempts: attempt + 1}
		}

		lastErr = err

		if ctx.Err() != nil {
			return Outcome{Status: StatusUnavailable, Attempts: attempt + 1, Err: ctx.Err()}
		}

		f.metrics.AttemptFailures.Inc()

		if attempt+1 == maxAttempts {
			f.log.Warn(attemptCtx, "attempt failed", "error", err)

			break
		}

		wait := Backoff(f.backoff, attempt)

		f.log.Warn(attemptCtx, "attempt failed, retrying",
			"attempt", attempt+1,
			"wait", wait.String(),
			"error", err,
		)
		f.metrics.Retries.Inc()

		if err := f.pauser.Pause(ctx, wait); err != nil {
			return Outcome{Status: StatusUnavailable, Attempts: attempt + 1, Err: err}
		}
	}

	return Outcome{Status: StatusUnavailable, Attempts: maxAttempts, Err: lastErr}
}

// attempt runs a single attempt while holding a limiter slot.
func (f *Fetcher) attempt(ctx context.Context, source string) (string, error) {
	if err := f.limiter.Acquire(ctx); err != nil {
		return "", fmt.Errorf("could not acquire slot: %w", err)
	}

	defer f.limiter.Release()

	f.metrics.InFlight.Inc()
	defer f.metrics.InFlight.Dec()

	if err := f.pauser.Pause(ctx, f.delay); err != nil {
		return "", fmt.Errorf("delay interrupted: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = f.header.Clone()

	f.log.Debug(ctx, "send http request", "http.timeout", f.timeout.String())
	f.metrics.Attempts.Inc()

	startTime := time.Now()

	defer func() {
		f.metrics.AttemptDuration.Observe(time.Since(startTime).Seconds())
	}()

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send http request: %w", err)
	}

	defer resp.Body.Close() // nolint: errcheck

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain for connection reuse.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes)) // nolint: errcheck

		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	content, err := readText(resp)
	if err != nil {
		return "", err
	}

	f.log.Debug(ctx, "received http response",
		"http.status_code", resp.StatusCode,
		"http.duration", time.Since(startTime).String(),
	)

	return content, nil
}

// maxBackoff is the longest wait Backoff returns.
const maxBackoff = time.Duration(math.MaxInt64)

// Backoff returns the wait after the failed attempt with the given 0-based index: factor * 2^attempt. The result is
// capped at maxBackoff instead of overflowing.
func Backoff(factor time.Duration, attempt int) time.Duration {
	if factor <= 0 || attempt < 0 {
		return 0
	}

	if attempt >= 63 || factor > maxBackoff>>uint(attempt) {
		return maxBackoff
	}

	return factor << uint(attempt)
}

// readText reads the body as text, decoding it according to the charset of the response.
func readText(resp *http.Response) (string, error) {
	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	return string(body), nil
}
