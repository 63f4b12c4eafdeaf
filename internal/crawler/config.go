package crawler

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultConcurrency is the default number of fetch attempts that may be in flight at the same time.
	DefaultConcurrency = 10
	// DefaultDelay is the default politeness pause before every fetch attempt.
	DefaultDelay = 500 * time.Millisecond
	// DefaultTimeout is the default hard timeout of a single fetch attempt.
	DefaultTimeout = 15 * time.Second
	// DefaultMaxRetries is the default number of retries after the first failed attempt.
	DefaultMaxRetries = 3
	// DefaultBackoffFactor is the default base of the exponential backoff.
	DefaultBackoffFactor = 500 * time.Millisecond
	// DefaultPolicyTimeout is the default timeout for fetching a robots.txt.
	DefaultPolicyTimeout = 10 * time.Second

	// DefaultUserAgent is the default agent string, used for the User-Agent header and for matching robots.txt groups.
	DefaultUserAgent = `Mozilla/5.0 (compatible; politescrape/1.0; +https://github.com/nhatthm/politescrape)`
)

// Config is the configuration of a crawl. It is copied by NewScraper and must not change once a crawl begins.
type Config struct {
	// Concurrency is the maximum number of fetch attempts in flight. Must be at least 1.
	Concurrency int
	// Delay is paused before every attempt, including the first one. This is a constant throttle, unrelated to the
	// backoff.
	Delay time.Duration
	// Timeout bounds a single attempt, from sending the request to reading the whole body.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt, so a URL gets at most MaxRetries+1 attempts.
	MaxRetries int
	// BackoffFactor is the base of the backoff: after the failed attempt i (0-based), the fetcher waits
	// BackoffFactor * 2^i.
	BackoffFactor time.Duration
	// UserAgent identifies the crawler in requests and in robots.txt matching.
	UserAgent string
	// Headers are sent with every request. The User-Agent header defaults to UserAgent when it is absent.
	Headers map[string]string

	// PolicyTimeout bounds the robots.txt fetch of an origin.
	PolicyTimeout time.Duration
	// IgnoreRobots disables the robots.txt checks entirely.
	IgnoreRobots bool
	// LimitPolicyFetches makes robots.txt fetches take a limiter slot like content fetches do. By default they run
	// outside the concurrency cap.
	LimitPolicyFetches bool
}

// DefaultConfig returns a configuration with the default values.
func DefaultConfig() Config {
	return Config{
		Concurrency:   DefaultConcurrency,
		Delay:         DefaultDelay,
		Timeout:       DefaultTimeout,
		MaxRetries:    DefaultMaxRetries,
		BackoffFactor: DefaultBackoffFactor,
		UserAgent:     DefaultUserAgent,
		PolicyTimeout: DefaultPolicyTimeout,
	}
}

// Validate checks the configuration. All the errors wrap ErrInvalidConfig.
//
// nolint: cyclop // Each field has its own rule.
func (c Config) Validate() error {
	switch {
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be greater than 0", ErrInvalidConfig)

	case c.Delay < 0:
		return fmt.Errorf("%w: delay must not be negative", ErrInvalidConfig)

	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be greater than 0", ErrInvalidConfig)

	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)

	case c.BackoffFactor < 0:
		return fmt.Errorf("%w: backoff factor must not be negative", ErrInvalidConfig)

	case c.UserAgent == "":
		return fmt.Errorf("%w: user agent must be set", ErrInvalidConfig)

	case c.PolicyTimeout < 0:
		return fmt.Errorf("%w: policy timeout must not be negative", ErrInvalidConfig)
	}

	return nil
}

// header builds the request headers. Keys are canonicalized, so "user-agent" and "User-Agent" are the same header.
func (c Config) header() http.Header {
	h := make(http.Header, len(c.Headers)+1)

	for k, v := range c.Headers {
		h.Set(k, v)
	}

	if h.Get("User-Agent") == "" {
		h.Set("User-Agent", c.UserAgent)
	}

	return h
}

// withDefaults fills the optional fields that have a zero value.
func (c Config) withDefaults() Config {
	if c.PolicyTimeout == 0 {
		c.PolicyTimeout = DefaultPolicyTimeout
	}

	return c
}
