package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bool64/ctxd"

	"github.com/nhatthm/politescrape/internal/export"
	"github.com/nhatthm/politescrape/internal/record"
)

// exporter writes records to a writer and returns the number of written records.
type exporter func(w io.Writer, records []record.Record) (int, error)

// newExporter returns the exporter of the format.
//
// nolint: goerr113 // Error will be printed out.
func newExporter(format Format, pretty bool) (exporter, error) {
	switch format {
	case FormatCSV:
		return export.CSV, nil

	case FormatJSON:
		return func(w io.Writer, records []record.Record) (int, error) {
			return export.JSON(w, records, pretty)
		}, nil
	}

	return nil, fmt.Errorf("unsupported output format: %q", format)
}

// writeResults exports the records to the output of the configuration.
//
// When there is no record, nothing is written, not even an empty file, and a warning is logged.
func writeResults(ctx context.Context, cfg Config, write exporter, records []record.Record, log ctxd.Logger) error {
	if len(records) == 0 {
		log.Warn(ctx, "no results to export")

		return nil
	}

	if cfg.Output == "" || cfg.Output == StdOutput {
		n, err := write(cfg.OutWriter, records)
		if err != nil {
			return err
		}

		log.Info(ctx, "exported results", "export.num_records", n, "export.format", cfg.format())

		return nil
	}

	path := filepath.Clean(cfg.Output)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}

	n, err := write(f, records)
	if err != nil {
		_ = f.Close() // nolint: errcheck

		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close output file: %w", err)
	}

	log.Info(ctx, "exported results",
		"export.num_records", n,
		"export.format", cfg.format(),
		"export.path", path,
	)

	return nil
}
