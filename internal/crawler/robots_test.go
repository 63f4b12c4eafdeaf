package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bool64/ctxd"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhatthm/politescrape/internal/metrics"
)

const testAgent = "politescrape-test/1.0"

type roundTripperFunc func(r *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newRobotsServer(t *testing.T, code int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	hits := new(atomic.Int64)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		hits.Add(1)

		w.WriteHeader(code)
		_, _ = w.Write([]byte(body)) // nolint: errcheck
	}))

	t.Cleanup(srv.Close)

	return srv, hits
}

func newTestPolicyCache(client *http.Client) *PolicyCache {
	return &PolicyCache{
		client:  client,
		header:  http.Header{"User-Agent": {testAgent}},
		agent:   testAgent,
		timeout: time.Second,
		log:     ctxd.NoOpLogger{},
		metrics: metrics.Nop(),
	}
}

func mustParse(t *testing.T, s string) *url.URL {
	t.Helper()

	u, err := url.Parse(s)
	require.NoError(t, err)

	return u
}

func TestPolicyCache_Allowed(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		scenario string
		code     int
		body     string
		path     string
		expected bool
	}{
		{
			scenario: "allowed path",
			code:     http.StatusOK,
			body:     "User-agent: *\nDisallow: /private\n",
			path:     "/public/page",
			expected: true,
		},
		{
			scenario: "disallowed path",
			code:     http.StatusOK,
			body:     "User-agent: *\nDisallow: /private\n",
			path:     "/private/page",
		},
		{
			scenario: "disallowed query",
			code:     http.StatusOK,
			body:     "User-agent: *\nDisallow: /*?session=\n",
			path:     "/page?session=1",
		},
		{
			scenario: "group of the agent",
			code:     http.StatusOK,
			body:     "User-agent: politescrape-test\nDisallow: /\n\nUser-agent: *\nAllow: /\n",
			path:     "/page",
		},
		{
			scenario: "group of another agent",
			code:     http.StatusOK,
			body:     "User-agent: otherbot\nDisallow: /\n",
			path:     "/page",
			expected: true,
		},
		{
			scenario: "empty robots.txt",
			code:     http.StatusOK,
			path:     "/page",
			expected: true,
		},
		{
			scenario: "not found",
			code:     http.StatusNotFound,
			body:     "User-agent: *\nDisallow: /\n",
			path:     "/page",
			expected: true,
		},
		{
			scenario: "server error",
			code:     http.StatusInternalServerError,
			body:     "User-agent: *\nDisallow: /\n",
			path:     "/page",
			expected: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			srv, hits := newRobotsServer(t, tc.code, tc.body)
			p := newTestPolicyCache(srv.Client())

			actual := p.Allowed(context.Background(), mustParse(t, srv.URL+tc.path))

			assert.Equal(t, tc.expected, actual)
			assert.Equal(t, int64(1), hits.Load())
			assert.Equal(t, 1, p.Len())
		})
	}
}

func TestPolicyCache_Allowed_Cached(t *testing.T) {
	t.Parallel()

	srv, hits := newRobotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /private\n")
	p := newTestPolicyCache(srv.Client())

	ctx := context.Background()

	assert.True(t, p.Allowed(ctx, mustParse(t, srv.URL+"/a")))
	assert.False(t, p.Allowed(ctx, mustParse(t, srv.URL+"/private")))
	assert.True(t, p.Allowed(ctx, mustParse(t, srv.URL+"/b?x=1")))

	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, 1, p.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(p.metrics.PolicyFetches), 0)
}

func TestPolicyCache_Allowed_Unreachable(t *testing.T) {
	t.Parallel()

	client := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}

	p := newTestPolicyCache(client)

	assert.True(t, p.Allowed(context.Background(), mustParse(t, "https://example.org/page")))
	assert.Equal(t, 1, p.Len(), "the failure should be cached as allow everything")
}

func TestPolicyCache_Allowed_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}

		_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n")) // nolint: errcheck
	}))

	t.Cleanup(srv.Close)

	p := newTestPolicyCache(srv.Client())
	p.timeout = 20 * time.Millisecond

	assert.True(t, p.Allowed(context.Background(), mustParse(t, srv.URL+"/page")))
	assert.Equal(t, 1, p.Len())
}

func TestPolicyCache_Allowed_ContextCanceled(t *testing.T) {
	t.Parallel()

	srv, hits := newRobotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /\n")
	p := newTestPolicyCache(srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, p.Allowed(ctx, mustParse(t, srv.URL+"/page")))
	assert.Equal(t, 0, p.Len(), "a canceled lookup should not be cached")
	assert.Equal(t, int64(0), hits.Load())
}

func TestPolicyCache_Allowed_Gate(t *testing.T) {
	t.Parallel()

	srv, hits := newRobotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /\n")
	p := newTestPolicyCache(srv.Client())
	p.gate = NewLimiter(1)

	require.NoError(t, p.gate.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.True(t, p.Allowed(ctx, mustParse(t, srv.URL+"/page")))
	assert.Equal(t, int64(0), hits.Load(), "robots.txt should not be fetched without a slot")

	p.gate.Release()

	assert.False(t, p.Allowed(context.Background(), mustParse(t, srv.URL+"/page")))
	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, int64(0), p.gate.InFlight())
}

func TestPolicyCache_Allowed_Header(t *testing.T) {
	t.Parallel()

	var userAgent atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))

		w.WriteHeader(http.StatusNotFound)
	}))

	t.Cleanup(srv.Close)

	p := newTestPolicyCache(srv.Client())

	assert.True(t, p.Allowed(context.Background(), mustParse(t, srv.URL+"/page")))
	assert.Equal(t, testAgent, userAgent.Load())
}

func TestAllowAllPolicy(t *testing.T) {
	t.Parallel()

	assert.True(t, allowAllPolicy{}.Allowed(context.Background(), mustParse(t, "https://example.org/private")))
}

func TestRobotsAgent(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		userAgent string
		expected  string
	}{
		{userAgent: DefaultUserAgent, expected: "politescrape"},
		{userAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", expected: "Googlebot"},
		{userAgent: testAgent, expected: "politescrape-test"},
		{userAgent: "mybot", expected: "mybot"},
		{userAgent: "Mozilla/5.0 (compatible)", expected: "Mozilla/5.0 (compatible)"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.userAgent, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, robotsAgent(tc.userAgent))
		})
	}
}
