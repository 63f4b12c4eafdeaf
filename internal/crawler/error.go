package crawler

var _ error = (*Error)(nil)

const (
	// ErrInvalidConfig indicates that the crawler configuration is rejected before any network activity.
	ErrInvalidConfig = Error("invalid config")
	// ErrMissingHostname indicates that the source url is missing hostname.
	ErrMissingHostname = Error("missing hostname")
	// ErrUnsupportedScheme indicates that the source url contains an unsupported scheme.
	ErrUnsupportedScheme = Error("unsupported scheme")
	// ErrUnexpectedStatusCode indicates that the server did not answer with a 2xx status code.
	ErrUnexpectedStatusCode = Error("unexpected status code")
	// ErrMissingExtractor indicates that no extractor was given to the scraper.
	ErrMissingExtractor = Error("missing extractor")
	// ErrExtractorPanic indicates that the extractor panicked while processing a page.
	ErrExtractorPanic = Error("extractor panicked")
)

// Error is a crawler error.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
