// Package urlnorm provides the canonical form for proxy-manager URLs:
// scheme lower-cased, default port elided, trailing slash trimmed.
package urlnorm

import (
	"fmt"
	"net/url"
	"strings"
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Normalize parses raw and returns its canonical form, or an error if raw
// is not a valid absolute URL.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()

	if port != "" {
		if def, ok := defaultPorts[scheme]; ok && port == def {
			port = ""
		}
	}

	hostport := host
	if port != "" {
		hostport = host + ":" + port
	}

	path := strings.TrimRight(u.Path, "/")

	result := scheme + "://" + hostport + path
	if u.RawQuery != "" {
		result += "?" + u.RawQuery
	}
	return result, nil
}

// MustNormalize panics on error; for use with compile-time-known constants
// such as in tests.
func MustNormalize(raw string) string {
	n, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return n
}
