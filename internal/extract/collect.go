package extract

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// maxLineBytes is the longest line of a text doc, minified content may have no line break at all.
const maxLineBytes = 16 << 20

// linkPattern matches the http and https links in a text.
// Ref: https://mathiasbynens.be/demo/url-regex
var linkPattern = regexp.MustCompile(`(https?)://(-\.)?([^\s/?.#]+\.?)+(/\S*)?`)

// collectFunc collects the raw links of a document.
type collectFunc func(r io.Reader) ([]string, error)

// collectHTML collects the href of the anchors in an HTML document.
func collectHTML(r io.Reader) ([]string, error) {
	z := html.NewTokenizer(r)

	var links []string

	for {
		switch z.Next() { // nolint: exhaustive // Only the start tags carry links.
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return links, nil
			}

			return nil, fmt.Errorf("could not collect links from html doc: %w", z.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}

			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					// Browsers drop the new lines inside an attribute value.
					links = append(links, strings.ReplaceAll(string(val), "\n", ""))

					break
				}

				if !more {
					break
				}
			}
		}
	}
}

// collectJSON collects the links found in the strings of a JSON document, keys included.
func collectJSON(r io.Reader) ([]string, error) {
	dec := json.NewDecoder(r)

	var links []string

	for {
		token, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return links, nil
		}

		if err != nil {
			return nil, fmt.Errorf("could not collect links from json doc: %w", err)
		}

		if s, ok := token.(string); ok {
			links = append(links, linkPattern.FindAllString(s, -1)...)
		}
	}
}

// collectText collects the links in a plain text document.
func collectText(r io.Reader) ([]string, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)

	var links []string

	for s.Scan() {
		links = append(links, linkPattern.FindAllString(s.Text(), -1)...)
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("could not collect links from text doc: %w", err)
	}

	return links, nil
}
