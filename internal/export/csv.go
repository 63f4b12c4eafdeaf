// Package export writes the records of a crawl to tabular and JSON outputs.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/nhatthm/politescrape/internal/record"
)

const (
	// ErrIncompatibleRecord indicates that a record has a field that is not in the columns of the export.
	ErrIncompatibleRecord = Error("incompatible record")
)

// Error is an export error.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// Columns returns the columns of an export: the lexically sorted keys of the first record.
func Columns(records []record.Record) []string {
	if len(records) == 0 {
		return nil
	}

	return records[0].SortedKeys()
}

// CSV writes the records as CSV and returns the number of data rows.
//
// The header is the sorted keys of the first record and the rows follow the order of the records. A missing field
// gives an empty cell. When a record has a field outside the header, nothing is written and ErrIncompatibleRecord is
// returned. No records means nothing to export: nothing is written and the result is 0 with no error.
func CSV(w io.Writer, records []record.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	columns := Columns(records)

	if err := checkColumns(columns, records); err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return 0, fmt.Errorf("could not write csv header: %w", err)
	}

	row := make([]string, len(columns))

	for i, r := range records {
		for j, key := range columns {
			row[j] = ""

			if v, ok := r.Get(key); ok {
				row[j] = v.Text()
			}
		}

		if err := cw.Write(row); err != nil {
			return i, fmt.Errorf("could not write csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("could not write csv: %w", err)
	}

	return len(records), nil
}

// ReadCSV reads the records written by CSV. Every value is read back as a string.
func ReadCSV(r io.Reader) ([]record.Record, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("could not read csv header: %w", err)
	}

	var records []record.Record

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}

		if err != nil {
			return nil, fmt.Errorf("could not read csv row %d: %w", len(records)+1, err)
		}

		rec := record.New()

		for i, key := range header {
			rec.SetString(key, row[i])
		}

		records = append(records, rec)
	}
}

func checkColumns(columns []string, records []record.Record) error {
	known := make(map[string]struct{}, len(columns))

	for _, c := range columns {
		known[c] = struct{}{}
	}

	for i, r := range records {
		for _, key := range r.Keys() {
			if _, ok := known[key]; !ok {
				return fmt.Errorf("%w: record %d has field %q which is not in %v", ErrIncompatibleRecord, i+1, key, columns)
			}
		}
	}

	return nil
}
