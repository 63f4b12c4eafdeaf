package cli

import (
	"io"
	"time"

	"github.com/nhatthm/politescrape/internal/crawler"
	"github.com/nhatthm/politescrape/internal/logger"
)

// Format is the format of the exported records.
type Format string

const (
	// FormatCSV writes a header row of the sorted keys of the first record, then one row per record.
	FormatCSV Format = "csv"
	// FormatJSON writes an array of objects.
	FormatJSON Format = "json"
)

const (
	// StdOutput is the output path that means the OutWriter.
	StdOutput = "-"
	// DefaultOutput is the default output path.
	DefaultOutput = "output.csv"
	// DefaultExtractor is the name of the default extractor.
	DefaultExtractor = "meta"
)

// Config is the configuration of the application.
type Config struct {
	OutWriter io.Writer // The stream that receives the records when the output is StdOutput.
	ErrWriter io.Writer // The stream that receives all the log messages and errors.

	Crawler   crawler.Config // The configuration of the crawl.
	Extractor string         // The name of the extractor that turns a page into a record.

	Output string // The path of the export. Empty or StdOutput means OutWriter.
	Format Format // The format of the export. Empty means FormatCSV.
	Pretty bool   // Indent the JSON export.

	MetricsFile       string        // If set, the metrics of the crawl are written to this file in the text format.
	LogLevel          logger.Level  // The minimum level of the log messages.
	Quiet             bool          // Discard all the log messages.
	FootprintInterval time.Duration // The interval of the resource usage reports, at debug level.
}

func (c Config) format() Format {
	if c.Format == "" {
		return FormatCSV
	}

	return c.Format
}

func (c Config) extractor() string {
	if c.Extractor == "" {
		return DefaultExtractor
	}

	return c.Extractor
}
