// Package extract provides the extractors that turn a fetched page into a record.
package extract

import (
	"fmt"
	"sort"

	"github.com/nhatthm/politescrape/internal/record"
)

const (
	// ErrUnknownExtractor indicates that there is no extractor registered with the given name.
	ErrUnknownExtractor = Error("unknown extractor")
)

var _ Extractor = (Func)(nil)

// Error is an extractor error.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// Extractor turns the content of a page into a record.
//
// All the records that are exported together are expected to share the same set of fields.
type Extractor interface {
	Extract(url, content string) (record.Record, error)
}

// Func is an adapter to use an ordinary function as an Extractor.
type Func func(url, content string) (record.Record, error)

// Extract calls f(url, content).
func (f Func) Extract(url, content string) (record.Record, error) {
	return f(url, content)
}

// registry is the list of the built-in extractors.
var registry = map[string]func() Extractor{
	"meta":  func() Extractor { return NewMeta() },
	"links": func() Extractor { return NewLinks() },
}

// ByName returns a built-in extractor.
func ByName(name string) (Extractor, error) {
	newExtractor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q, available: %v", ErrUnknownExtractor, name, Names())
	}

	return newExtractor(), nil
}

// Names returns the names of the built-in extractors.
func Names() []string {
	names := make([]string, 0, len(registry))

	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
