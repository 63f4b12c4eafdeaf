package cli_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nhatthm/politescrape/internal/app/cli"
	"github.com/nhatthm/politescrape/internal/crawler"
)

// Mock interfaces for testing.

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) {
	return f(p)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}

type safeBuffer struct {
	buffer bytes.Buffer
	mutex  sync.Mutex
}

func (s *safeBuffer) Read(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.buffer.Read(p) // nolint: wrapcheck
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

// newSite starts a server without robots.txt that serves the pages. Key is path, Value is HTML body.
func newSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body)) // nolint: errcheck
	}))

	t.Cleanup(srv.Close)

	return srv
}

// srvRequests generates a list of server urls for testing.
func srvRequests(baseURL string, numRequests int) []string {
	result := make([]string, numRequests)

	for i := 0; i < numRequests; i++ {
		result[i] = fmt.Sprintf("%s/path%d", baseURL, i+1)
	}

	return result
}

func titlePage(title string) string {
	return fmt.Sprintf(`<html><head><title>%s</title><meta name="description" content="About %s"></head></html>`, title, title)
}

// testCrawlerConfig returns a crawler configuration without delay and retries.
func testCrawlerConfig() crawler.Config {
	cfg := crawler.DefaultConfig()

	cfg.Delay = 0
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 0
	cfg.BackoffFactor = 0

	return cfg
}

func testConfig(outBuf, errBuf *safeBuffer) cli.Config {
	return cli.Config{
		OutWriter: outBuf,
		ErrWriter: errBuf,
		Crawler:   testCrawlerConfig(),
		Output:    cli.StdOutput,
	}
}
