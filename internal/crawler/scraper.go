package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bool64/ctxd"

	"github.com/nhatthm/politescrape/internal/extract"
	"github.com/nhatthm/politescrape/internal/metrics"
	"github.com/nhatthm/politescrape/internal/record"
)

// Scraper crawls urls and collects the records produced by the extractor.
//
// Every url is processed by its own unit of work: robots.txt check, fetch with retries, extraction, store. The failure
// of a unit, including a panicking extractor, never affects the other units.
type Scraper struct {
	cfg       Config
	extractor extract.Extractor
	client    *http.Client
	pauser    Pauser
	log       ctxd.Logger
	metrics   *metrics.Metrics
	store     *record.Store

	limiter *Limiter
	policy  Policy
	fetcher *Fetcher
}

// Scrape crawls the urls and returns when all of them are processed. The records are available in Results.
func (s *Scraper) Scrape(ctx context.Context, urls []string) {
	sources := make(chan string, len(urls))

	for _, u := range urls {
		sources <- u
	}

	close(sources)

	s.ScrapeFrom(ctx, sources)
}

// ScrapeFrom crawls the urls from the channel and returns when the channel is closed and all the received urls are
// processed.
//
// When the context is canceled, no new url is taken from the channel and the running units stop at their next
// suspension point. The records appended so far are kept.
func (s *Scraper) ScrapeFrom(ctx context.Context, sources <-chan string) {
	wg := sync.WaitGroup{}

	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug(ctx, "stopped taking urls", "error", ctx.Err())

			return

		case source, ok := <-sources:
			if !ok {
				return
			}

			wg.Add(1)

			go func(source string) {
				defer wg.Done()

				s.scrapeOne(ctx, source)
			}(source)
		}
	}
}

// Results returns the records collected so far, in completion order.
func (s *Scraper) Results() []record.Record {
	return s.store.Records()
}

// Store returns the result store.
func (s *Scraper) Store() *record.Store {
	return s.store
}

// Limiter returns the concurrency limiter of the fetch attempts.
func (s *Scraper) Limiter() *Limiter {
	return s.limiter
}

// Config returns a copy of the configuration.
func (s *Scraper) Config() Config {
	cfg := s.cfg
	cfg.Headers = make(map[string]string, len(s.cfg.Headers))

	for k, v := range s.cfg.Headers {
		cfg.Headers[k] = v
	}

	return cfg
}

// scrapeOne runs the unit of work of a url.
func (s *Scraper) scrapeOne(ctx context.Context, source string) {
	startTime := time.Now()
	ctx = ctxd.AddFields(ctx, "scraper.url", source)

	s.log.Debug(ctx, "started scraping")

	defer func() {
		s.log.Debug(ctx, "finished scraping", "scraper.duration", time.Since(startTime).String())
	}()

	u, err := parseURL(source)
	if err != nil {
		s.log.Error(ctx, "failed to parse url", "error", err)

		return
	}

	outcome := s.fetch(ctx, u)

	switch outcome.Status {
	case StatusDisallowed:
		s.metrics.Disallowed.Inc()
		s.log.Warn(ctx, "disallowed by robots.txt")

		return

	case StatusUnavailable:
		if ctx.Err() != nil {
			s.log.Warn(ctx, "operation canceled", "attempts", outcome.Attempts)

			return
		}

		s.metrics.GaveUp.Inc()
		s.log.Error(ctx, "gave up", "attempts", outcome.Attempts, "error", outcome.Err)

		return

	case StatusSuccess:
	}

	r, err := s.extract(source, outcome.Content)
	if err != nil {
		s.metrics.ExtractFailures.Inc()
		s.log.Error(ctx, "extractor failed", "error", err)

		return
	}

	s.store.Append(r)
	s.metrics.Records.Inc()
	s.log.Info(ctx, "extracted record", "scraper.num_fields", r.Len())
}

// fetch checks robots.txt, then fetches the url.
func (s *Scraper) fetch(ctx context.Context, u *url.URL) Outcome {
	if !s.policy.Allowed(ctx, u) {
		return Outcome{Status: StatusDisallowed}
	}

	return s.fetcher.Fetch(ctx, u)
}

// extract calls the extractor and turns a panic into an error.
func (s *Scraper) extract(source, content string) (r record.Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrExtractorPanic, p)
		}
	}()

	return s.extractor.Extract(source, content) // nolint: wrapcheck // The error is from the caller's extractor.
}

// NewScraper validates the configuration and creates a new Scraper.
//
// Usage:
//
//	s, err := NewScraper(DefaultConfig(), extract.NewMeta(), WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	s.Scrape(ctx, []string{"https://example.org", "https://example.com"})
//
//	for _, r := range s.Results() {
//		fmt.Println(r.Fields())
//	}
func NewScraper(cfg Config, extractor extract.Extractor, opts ...Option) (*Scraper, error) {
	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if extractor == nil {
		return nil, ErrMissingExtractor
	}

	s := &Scraper{
		cfg:       cfg,
		extractor: extractor,
		client:    &http.Client{}, // Default HTTP Client, the timeouts are set per request.
		pauser:    timerPauser{},
		log:       ctxd.NoOpLogger{},
	}

	for _, opt := range opts {
		opt.applyScraperOption(s)
	}

	if s.metrics == nil {
		s.metrics = metrics.Nop()
	}

	if s.store == nil {
		s.store = record.NewStore()
	}

	header := cfg.header()

	s.cfg.Headers = make(map[string]string, len(header))

	for k := range header {
		s.cfg.Headers[k] = header.Get(k)
	}

	s.limiter = NewLimiter(cfg.Concurrency)
	s.fetcher = &Fetcher{
		client:     s.client,
		header:     header,
		limiter:    s.limiter,
		pauser:     s.pauser,
		log:        s.log,
		metrics:    s.metrics,
		delay:      cfg.Delay,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.BackoffFactor,
	}

	if cfg.IgnoreRobots {
		s.policy = allowAllPolicy{}
	} else {
		policy := &PolicyCache{
			client:  s.client,
			header:  header,
			agent:   robotsAgent(cfg.UserAgent),
			timeout: cfg.PolicyTimeout,
			log:     s.log,
			metrics: s.metrics,
		}

		if cfg.LimitPolicyFetches {
			policy.gate = s.limiter
		}

		s.policy = policy
	}

	return s, nil
}

// Option is option to set up Scraper.
type Option interface {
	applyScraperOption(s *Scraper)
}

type scraperOptionFunc func(s *Scraper)

func (f scraperOptionFunc) applyScraperOption(s *Scraper) {
	f(s)
}

// WithLogger sets logger for Scraper.
func WithLogger(l ctxd.Logger) Option {
	return scraperOptionFunc(func(s *Scraper) {
		s.log = l
	})
}

// WithHTTPClient sets the HTTP client for Scraper. The client timeout, if any, applies on top of the per-attempt
// timeout.
func WithHTTPClient(c *http.Client) Option {
	return scraperOptionFunc(func(s *Scraper) {
		s.client = c
	})
}

// WithPauser sets how Scraper waits for the delay and the backoff.
func WithPauser(p Pauser) Option {
	return scraperOptionFunc(func(s *Scraper) {
		s.pauser = p
	})
}

// WithMetrics sets the metrics collectors for Scraper.
func WithMetrics(m *metrics.Metrics) Option {
	return scraperOptionFunc(func(s *Scraper) {
		s.metrics = m
	})
}

// WithStore sets the result store for Scraper.
func WithStore(st *record.Store) Option {
	return scraperOptionFunc(func(s *Scraper) {
		s.store = st
	})
}
