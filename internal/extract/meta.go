package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nhatthm/politescrape/internal/record"
)

var _ Extractor = (*MetaExtractor)(nil)

// MetaExtractor extracts the title and the meta description of an HTML page.
//
// The record has the fields url, title and description. Missing elements give empty strings.
type MetaExtractor struct{}

// Extract parses the HTML content.
func (MetaExtractor) Extract(url, content string) (record.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return record.Record{}, fmt.Errorf("could not parse html doc: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	description := strings.TrimSpace(doc.Find(`meta[name="description"]`).First().AttrOr("content", ""))

	return record.New().
		SetString("url", url).
		SetString("title", title).
		SetString("description", description), nil
}

// NewMeta creates a new extractor for the title and the meta description of HTML pages.
func NewMeta() *MetaExtractor {
	return &MetaExtractor{}
}
