package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nhatthm/politescrape/internal/record"
)

const jsonIndent = "  "

// JSON writes the records as a JSON array of objects with sorted keys and returns the number of written records.
//
// The records are encoded one by one, so a failure leaves the output with the records written so far. No records gives
// an empty array.
func JSON(w io.Writer, records []record.Record, pretty bool) (int, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)

	newL, startIndent, joinTmpl := "", "", ","

	if pretty {
		newL, startIndent = "\n", jsonIndent
		joinTmpl = ",\n" + startIndent

		enc.SetIndent(jsonIndent, jsonIndent)
	}

	if len(records) == 0 {
		if _, err := fmt.Fprint(w, "[]\n"); err != nil {
			return 0, fmt.Errorf("could not write [] to output: %w", err)
		}

		return 0, nil
	}

	if _, err := fmt.Fprint(w, "[", newL, startIndent); err != nil {
		return 0, fmt.Errorf("could not write [ to output: %w", err)
	}

	join := ""

	for i, r := range records {
		buf.Reset()

		if err := enc.Encode(r); err != nil {
			return i, fmt.Errorf("could not encode record %d: %w", i+1, err)
		}

		if _, err := fmt.Fprint(w, join, strings.Trim(buf.String(), "\r\n")); err != nil {
			return i, fmt.Errorf("could not write record %d: %w", i+1, err)
		}

		join = joinTmpl
	}

	if _, err := fmt.Fprint(w, newL, "]\n"); err != nil {
		return len(records), fmt.Errorf("could not write ] to output: %w", err)
	}

	return len(records), nil
}
