package crawler

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// parseURL parses the url string into an url.URL.
//
// - If the url string does not have a scheme, it will default to https.
// - If the url string is not a valid url, it will return an error.
// - If the url string does not start with http and https, it will return an error.
func parseURL(s string) (*url.URL, error) {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, err // nolint: wrapcheck // *url.URL error is meaningful, we do not need to wrap it.
	}

	if u.Host == "" {
		return nil, fmt.Errorf("parse %q: %w", s, ErrMissingHostname)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse %q: %w %q", s, ErrUnsupportedScheme, u.Scheme)
	}

	return u, nil
}

// Origin returns the scheme and host of the url, which is the scope of a robots.txt.
//
// The scheme and host are lower-cased and the port is dropped when it is the default one of the scheme:
//
//	https://Example.org:443/path -> https://example.org
//	http://example.org:8080/path -> http://example.org:8080
func Origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()

	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	if port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]" // IPv6 literal without port.
	}

	return scheme + "://" + host
}

// policyPath returns the path and query of the url as robots.txt rules see it.
func policyPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}

	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}

	return p
}
