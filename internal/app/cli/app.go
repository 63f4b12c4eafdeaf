// Package cli runs a crawl from the command line: it reads the urls, scrapes them and exports the records.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bool64/ctxd"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nhatthm/politescrape/internal/crawler"
	"github.com/nhatthm/politescrape/internal/extract"
	"github.com/nhatthm/politescrape/internal/footprint"
	"github.com/nhatthm/politescrape/internal/logger"
	"github.com/nhatthm/politescrape/internal/metrics"
)

const (
	// CodeOK indicates that the program exited with success.
	CodeOK = ExitCode(iota)
	// CodeErrOperationCanceled indicates that the program has been terminated and operation is canceled.
	CodeErrOperationCanceled
	// CodeErrNoInputSource indicates that the program has no input source.
	CodeErrNoInputSource
	// CodeErrOpenInputSource indicates that the program could not open input file.
	CodeErrOpenInputSource
	// CodeErrUnsupportedInputSource indicates that the program could not use the input source.
	CodeErrUnsupportedInputSource
	// CodeErrBadArgs indicates that the provided arguments are invalid.
	CodeErrBadArgs
	// CodeErrOutput indicates that the program could not write to output.
	CodeErrOutput
)

// ExitCode is the exit code of the program.
type ExitCode int

// Run runs the program to scrape the urls from the sources and export the records.
//
// It will take only the first valid source as an input. The source types are:
// - []string: A list of URLs.
// - string: A file path that contains a list of URLs, one on each line.
// - io.ReadCloser: A reader that contains a list of URLs, one on each line.
// - io.Reader: A reader that contains a list of URLs, one on each line.
//
// The URLs can be with or without scheme, but must have a hostname. If the scheme is missing, default to https.
//
// When the program is interrupted, the records collected so far are still exported and the exit code is
// CodeErrOperationCanceled.
func Run(cfg Config, inputSources ...any) ExitCode {
	// Configure input source.
	inputSource, code, err := initInputSource(inputSources...)
	if err != nil {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

		return code
	}

	defer inputSource.Close() // nolint: errcheck

	write, err := newExporter(cfg.format(), cfg.Pretty)
	if err != nil {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

		return CodeErrBadArgs
	}

	extractor, err := extract.ByName(cfg.extractor())
	if err != nil {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

		return CodeErrBadArgs
	}

	log := initLogger(cfg)
	reg := prometheus.NewRegistry()

	// Configure scraper.
	sc, err := initScraper(cfg.Crawler, extractor, reg, log)
	if err != nil {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

		return CodeErrBadArgs
	}

	ctx := ctxd.AddFields(context.Background(), "scraper.run_id", uuid.NewString())
	startTime := time.Now()

	log.Info(ctx, "started scraping",
		"scraper.concurrency", cfg.Crawler.Concurrency,
		"scraper.extractor", cfg.extractor(),
	)

	// Use buffered channel to avoid resource saturation.
	publishSource := bufferedSourcePublisher(cfg.Crawler.Concurrency, log)

	code = doCrawl(ctx, sc, publishSource, inputSource, cfg.FootprintInterval, log)

	results := sc.Results()

	log.Info(ctx, "finished scraping",
		"scraper.num_records", len(results),
		"scraper.duration", time.Since(startTime).String(),
	)

	if err := writeResults(ctx, cfg, write, results, log); err != nil {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

		if code == CodeOK {
			code = CodeErrOutput
		}
	}

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(filepath.Clean(cfg.MetricsFile), reg); err != nil {
			_, _ = fmt.Fprintf(cfg.ErrWriter, "could not write metrics file: %s\n", err.Error())

			if code == CodeOK {
				code = CodeErrOutput
			}
		}
	}

	return code
}

// initLogger returns a new logger.
//
// If the configuration is quiet, all the log messages will be discarded by sending them to io.Discard. Otherwise, the
// logger will write to the stderr writer at the configured level.
func initLogger(cfg Config) ctxd.Logger {
	logCfg := logger.Config{
		Output: io.Discard,
		Level:  cfg.LogLevel,
	}

	if !cfg.Quiet && cfg.ErrWriter != nil {
		logCfg.Output = cfg.ErrWriter
	}

	return logger.NewLogger(logCfg)
}

// initInputSource returns the first valid input source.
//
// It accepts a list of input sources. The source types are:
// - []string: A list of URLs. If the list is empty, it is ignored.
// - string: A file path that contains a list of URLs, one on each line. If the path is empty, it is ignored.
// - io.ReadCloser: A reader that contains a list of URLs, one on each line.
// - io.Reader: A reader that contains a list of URLs, one on each line.
//
// The function returns an input source as an io.ReadCloser so that it can be streamed and closed by the caller.
//
// nolint: cyclop,goerr113 // Error will be printed out.
func initInputSource(sources ...any) (io.ReadCloser, ExitCode, error) {
	for _, source := range sources {
		switch s := source.(type) {
		case nil:
			continue

		case []string:
			if len(s) == 0 {
				continue
			}

			return io.NopCloser(strings.NewReader(strings.Join(s, "\n"))), CodeOK, nil

		case string:
			if len(s) == 0 {
				continue
			}

			f, err := os.Open(filepath.Clean(s))
			if err != nil {
				return nil, CodeErrOpenInputSource, fmt.Errorf("could not open input file: %w", err)
			}

			return f, CodeOK, nil

		case io.ReadCloser:
			return s, CodeOK, nil

		case io.Reader:
			return io.NopCloser(s), CodeOK, nil

		default:
			return nil, CodeErrUnsupportedInputSource, fmt.Errorf("unsupported input source: %T", s)
		}
	}

	return nil, CodeErrNoInputSource, errors.New("no input source")
}

// initScraper initiates a new crawler.Scraper with metrics registered to the registry.
func initScraper(cfg crawler.Config, extractor extract.Extractor, reg *prometheus.Registry, log ctxd.Logger) (*crawler.Scraper, error) {
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	return crawler.NewScraper(cfg, extractor,
		crawler.WithLogger(log),
		crawler.WithMetrics(m),
	)
}

// doCrawl scrapes the urls of the input source until it is exhausted.
//
// In case of SIGINT or SIGTERM, the scraper will be gracefully stopped and the function will return
// CodeErrOperationCanceled. The records collected before the signal are kept in the scraper.
func doCrawl(
	ctx context.Context,
	sc *crawler.Scraper,
	publishSource sourcePublisher,
	source io.Reader,
	footprintInterval time.Duration,
	log ctxd.Logger,
) ExitCode {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go footprint.Track(ctx, log, footprintInterval,
		footprint.Gauge{Name: "scraper.in_flight", Value: func() any { return sc.Limiter().InFlight() }},
		footprint.Gauge{Name: "scraper.num_records", Value: func() any { return sc.Store().Len() }},
	)

	code := CodeOK
	codeMu := &sync.Mutex{}
	sigs := make(chan os.Signal, 1)

	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var wg sync.WaitGroup

	wg.Add(2) // nolint: gomnd // WaitGroup is used to wait for goroutines to finish.

	go func() { // Watch for termination to cancel the context in order to signal all the units to stop.
		defer wg.Done()

		select {
		case sig := <-sigs:
			log.Warn(ctx, "operation canceled", "signal", sig.String())

			codeMu.Lock()
			code = CodeErrOperationCanceled
			codeMu.Unlock()

			cancel()

		case <-ctx.Done():
			return
		}
	}()

	go func() {
		defer wg.Done()
		defer cancel()

		sc.ScrapeFrom(ctx, publishSource(ctx, source))
	}()

	wg.Wait()

	codeMu.Lock()
	defer codeMu.Unlock()

	return code
}
