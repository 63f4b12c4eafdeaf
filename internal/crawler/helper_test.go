package crawler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nhatthm/politescrape/internal/crawler"
	"github.com/nhatthm/politescrape/internal/extract"
	"github.com/nhatthm/politescrape/internal/record"
)

const testAgent = "politescrape-test/1.0"

type transportFunc func(r *http.Request) (*http.Response, error)

func (f transportFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type safeBuffer struct {
	buffer bytes.Buffer
	mutex  sync.Mutex
}

func (s *safeBuffer) Write(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.buffer.Write(p) // nolint: wrapcheck
}

func (s *safeBuffer) String() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.buffer.String()
}

// recordingPauser records the pauses without waiting.
type recordingPauser struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (p *recordingPauser) Pause(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pauses = append(p.pauses, d)

	return ctx.Err()
}

func (p *recordingPauser) Pauses() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]time.Duration(nil), p.pauses...)
}

// site is a test server with a robots.txt and pages.
type site struct {
	*httptest.Server

	robotsCode int
	robots     string

	mu    sync.Mutex
	pages map[string]http.HandlerFunc

	robotsHits  atomic.Int64
	contentHits atomic.Int64
}

func newSite(t *testing.T, robotsCode int, robots string) *site {
	t.Helper()

	s := &site{
		robotsCode: robotsCode,
		robots:     robots,
		pages:      make(map[string]http.HandlerFunc),
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))

	t.Cleanup(s.Close)

	return s
}

func (s *site) handle(path string, h http.HandlerFunc) *site {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pages[path] = h

	return s
}

func (s *site) page(path, body string) *site {
	return s.handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body)) // nolint: errcheck
	})
}

func (s *site) url(path string) string {
	return s.URL + path
}

func (s *site) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/robots.txt" {
		s.robotsHits.Add(1)

		w.WriteHeader(s.robotsCode)
		_, _ = w.Write([]byte(s.robots)) // nolint: errcheck

		return
	}

	s.contentHits.Add(1)

	s.mu.Lock()
	h, ok := s.pages[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)

		return
	}

	h(w, r)
}

func testConfig() crawler.Config {
	cfg := crawler.DefaultConfig()

	cfg.Delay = 0
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 0
	cfg.BackoffFactor = 0
	cfg.UserAgent = testAgent

	return cfg
}

// urlExtractor records the url and the size of the page.
func urlExtractor() extract.Extractor {
	return extract.Func(func(url, content string) (record.Record, error) {
		return record.New().
			SetString("url", url).
			SetNumber("size", float64(len(content))), nil
	})
}

func recordURLs(records []record.Record) []string {
	result := make([]string, 0, len(records))

	for _, r := range records {
		v, _ := r.Get("url")

		result = append(result, v.Text())
	}

	return result
}

func trimPrefixes(urls []string, prefix string) []string {
	result := make([]string, 0, len(urls))

	for _, u := range urls {
		result = append(result, strings.TrimPrefix(u, prefix))
	}

	return result
}
