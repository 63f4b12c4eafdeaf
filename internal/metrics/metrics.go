// Package metrics provides the prometheus collectors of a crawl.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "politescrape"

// Metrics groups the collectors updated by the scraper.
type Metrics struct {
	// Attempts counts the fetch attempts that were sent.
	Attempts prometheus.Counter
	// AttemptFailures counts the attempts that timed out, failed to connect or got a non-2xx status code.
	AttemptFailures prometheus.Counter
	// Retries counts the backoff waits before another attempt.
	Retries prometheus.Counter
	// PolicyFetches counts the robots.txt fetches.
	PolicyFetches prometheus.Counter
	// Disallowed counts the URLs skipped because of robots.txt.
	Disallowed prometheus.Counter
	// GaveUp counts the URLs abandoned after all the attempts failed.
	GaveUp prometheus.Counter
	// Records counts the extracted records.
	Records prometheus.Counter
	// ExtractFailures counts the pages the extractor could not process.
	ExtractFailures prometheus.Counter
	// InFlight is the number of attempts holding a limiter slot.
	InFlight prometheus.Gauge
	// AttemptDuration observes how long the attempts took, in seconds.
	AttemptDuration prometheus.Histogram
}

// New creates the collectors and registers them to the registerer. A nil registerer skips the registration, which is
// useful when the numbers are only read in-process.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Attempts:        newCounter("attempts_total", "The total number of fetch attempts."),
		AttemptFailures: newCounter("attempt_failures_total", "The total number of failed fetch attempts."),
		Retries:         newCounter("retries_total", "The total number of retries after a failed attempt."),
		PolicyFetches:   newCounter("policy_fetches_total", "The total number of robots.txt fetches."),
		Disallowed:      newCounter("disallowed_total", "The total number of urls skipped by robots.txt."),
		GaveUp:          newCounter("gave_up_total", "The total number of urls abandoned after retries."),
		Records:         newCounter("records_total", "The total number of extracted records."),
		ExtractFailures: newCounter("extract_failures_total", "The total number of pages the extractor failed on."),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "attempts_in_flight",
			Help:      "The number of fetch attempts holding a concurrency slot.",
		}),
		AttemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "The duration of fetch attempts.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("could not register metrics: %w", err)
		}
	}

	return m, nil
}

// Nop returns unregistered collectors.
func Nop() *Metrics {
	m, _ := New(nil) // nolint: errcheck // No registration, no error.

	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Attempts,
		m.AttemptFailures,
		m.Retries,
		m.PolicyFetches,
		m.Disallowed,
		m.GaveUp,
		m.Records,
		m.ExtractFailures,
		m.InFlight,
		m.AttemptDuration,
	}
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	})
}
