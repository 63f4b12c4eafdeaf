package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/temoto/robotstxt"

	"github.com/nhatthm/politescrape/internal/metrics"
)

// maxRobotsBytes limits how much of a robots.txt is read.
const maxRobotsBytes = 1 << 20

var (
	_ Policy = (*PolicyCache)(nil)
	_ Policy = allowAllPolicy{}
)

// Policy decides whether a url may be fetched.
type Policy interface {
	Allowed(ctx context.Context, u *url.URL) bool
}

// PolicyCache caches the robots.txt rules of every origin it has seen.
//
// The rules of an origin are fetched on the first lookup and kept for the lifetime of the cache. The fetch is not
// guarded: two concurrent first lookups of the same origin may both fetch the robots.txt, and the last one to finish
// replaces the entry with an equivalent rule set.
//
// Unless gate is set, the robots.txt fetches do not take a limiter slot and, therefore, are not counted against the
// crawl concurrency.
type PolicyCache struct {
	client  *http.Client
	header  http.Header
	agent   string
	timeout time.Duration
	gate    *Limiter
	log     ctxd.Logger
	metrics *metrics.Metrics

	rules sync.Map // Key is origin, Value is *robotstxt.RobotsData.
}

// Allowed fetches the rules of the origin if needed and tells whether the agent may fetch the url. The groups are
// matched against the product token of the agent, see robotsAgent.
func (p *PolicyCache) Allowed(ctx context.Context, u *url.URL) bool {
	return p.rulesOf(ctx, Origin(u)).TestAgent(policyPath(u), p.agent)
}

// Len returns the number of cached origins.
func (p *PolicyCache) Len() int {
	n := 0

	p.rules.Range(func(any, any) bool {
		n++

		return true
	})

	return n
}

func (p *PolicyCache) rulesOf(ctx context.Context, origin string) *robotstxt.RobotsData {
	if cached, ok := p.rules.Load(origin); ok {
		return cached.(*robotstxt.RobotsData) // nolint: forcetypeassert // Only *robotstxt.RobotsData is stored.
	}

	ctx = ctxd.AddFields(ctx, "robots.origin", origin)

	data, err := p.fetch(ctx, origin)
	if err != nil {
		p.log.Debug(ctx, "could not get robots.txt, allowing everything", "error", err)

		// A canceled crawl says nothing about the origin, do not cache it.
		if ctx.Err() != nil {
			return allowAll()
		}

		data = allowAll()
	}

	p.rules.Store(origin, data)

	return data
}

func (p *PolicyCache) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	if p.gate != nil {
		if err := p.gate.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("could not acquire slot: %w", err)
		}

		defer p.gate.Release()
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = p.header.Clone()

	p.metrics.PolicyFetches.Inc()
	p.log.Debug(ctx, "fetching robots.txt")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send http request: %w", err)
	}

	defer resp.Body.Close() // nolint: errcheck

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes)) // nolint: errcheck

		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read robots.txt: %w", err)
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}

	p.log.Debug(ctx, "parsed robots.txt", "robots.size", len(body))

	return data, nil
}

// allowAll returns an empty rule set, which allows everything.
func allowAll() *robotstxt.RobotsData {
	data, _ := robotstxt.FromBytes(nil) // nolint: errcheck // Empty input always parses.

	return data
}

type allowAllPolicy struct{}

func (allowAllPolicy) Allowed(context.Context, *url.URL) bool { return true }

// robotsAgent returns the product token of a user agent, that is the name of the first product that is not a
// browser compatibility token. For example, "Mozilla/5.0 (compatible; politescrape/1.0; +https://example.org)" gives
// "politescrape". If there is none, the user agent is returned as is.
func robotsAgent(userAgent string) string {
	fields := strings.FieldsFunc(userAgent, func(r rune) bool {
		return r == ' ' || r == ';' || r == '(' || r == ')'
	})

	for _, f := range fields {
		name, _, _ := strings.Cut(f, "/")

		switch {
		case name == "",
			strings.HasPrefix(name, "+"),
			strings.EqualFold(name, "mozilla"),
			strings.EqualFold(name, "compatible"):
			continue
		}

		return name
	}

	return userAgent
}
