package extract

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/nhatthm/politescrape/internal/record"
)

const (
	// ErrUnsupportedContentType indicates that there is no collector for the content type of the page.
	ErrUnsupportedContentType = Error("unsupported content type")

	mimeJSON = "application/json"
)

var _ Extractor = (*LinksExtractor)(nil)

// LinksExtractor counts the internal and external links of a page.
//
// The content type is sniffed from the content. HTML documents give the href of their anchors, JSON documents and
// plain texts give the http and https links found in their strings. A link is external when it has a host that is not
// the host of the page, relative links are internal. Links with a scheme other than http and https are ignored.
type LinksExtractor struct {
	collectors map[string]collectFunc // Key is media type.
}

// Extract counts the links of the content.
func (e LinksExtractor) Extract(source, content string) (record.Record, error) {
	base, err := url.Parse(source)
	if err != nil {
		return record.Record{}, fmt.Errorf("could not parse page url: %w", err)
	}

	contentType := detectContentType(content)

	collect, ok := e.collectors[contentType]
	if !ok {
		return record.Record{}, fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}

	links, err := collect(strings.NewReader(content))
	if err != nil {
		return record.Record{}, err
	}

	internal, external := countLinks(base, links)

	return record.New().
		SetString("url", source).
		SetNumber("internal_links_num", float64(internal)).
		SetNumber("external_links_num", float64(external)), nil
}

// detectContentType returns the media type of the content, without parameters.
//
// http.DetectContentType sees JSON as plain text, so a valid JSON object or array is checked first.
func detectContentType(content string) string {
	trimmed := strings.TrimSpace(content)

	if (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && json.Valid([]byte(trimmed)) {
		return mimeJSON
	}

	contentType, _, _ := mime.ParseMediaType(http.DetectContentType([]byte(content))) // nolint: errcheck // Sniffed types are well-formed.

	return contentType
}

// countLinks splits the links into internal and external ones by comparing their host with the host of the page.
func countLinks(base *url.URL, links []string) (internal, external int) {
	for _, link := range links {
		u, err := url.Parse(strings.TrimSpace(link))
		if err != nil {
			continue
		}

		if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
			continue
		}

		if u.Host != "" && !strings.EqualFold(u.Host, base.Host) {
			external++

			continue
		}

		internal++
	}

	return internal, external
}

// NewLinks creates a new extractor for counting the links of HTML, JSON and text pages.
func NewLinks() *LinksExtractor {
	return &LinksExtractor{
		collectors: map[string]collectFunc{
			"text/html":  collectHTML,
			"text/plain": collectText,
			mimeJSON:     collectJSON,
		},
	}
}
