// Package labels parses the controller's container-label namespace into
// typed proxy and stream configurations.
package labels

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Redth/npm-docker-sync/internal/domain"
)

// Prefix is the reserved label namespace token. A label belongs to this
// controller iff its key starts with Prefix followed by "." or "-"; the
// two separators are synonyms, so "npm-proxy-domains" and "npm.proxy.domains"
// parse identically.
const Prefix = "npm"

const maxIndex = 99

// Defaults holds the process-wide fallback values for the proxy boolean
// flags, applied when a container's labels don't override them.
type Defaults struct {
	SSLForced        bool
	CachingEnabled   bool
	BlockExploits    bool
	WebsocketUpgrade bool
	HTTP2            bool
	HSTS             bool
	HSTSSubdomains   bool
}

// DefaultDefaults returns the defaults table's own defaults: block_common_exploits
// true, everything else false.
func DefaultDefaults() Defaults {
	return Defaults{BlockExploits: true}
}

// Result is the outcome of parsing one container's labels.
type Result struct {
	Proxies  map[int]*domain.ProxyConfig
	Streams  map[int]*domain.StreamConfig
	Warnings []string
}

// HasReservedLabels reports whether any key in labels belongs to this
// controller's namespace, used by the Event Loop's full scan to skip
// containers with no declarative configuration at all.
func HasReservedLabels(lbls map[string]string) bool {
	for k := range lbls {
		if _, ok := normalizeKey(k); ok {
			return true
		}
	}
	return false
}

// Parse translates a container's labels into proxy and stream
// configurations. Malformed entries for one index produce a warning and are
// skipped; they never prevent other indices from parsing.
func Parse(lbls map[string]string, defaults Defaults) Result {
	proxyFields := map[int]map[string]string{}
	streamFields := map[int]map[string]string{}

	keys := make([]string, 0, len(lbls))
	for k := range lbls {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Two passes: implicit-index-0 forms first, explicit numeric-index forms
	// second, so an explicit "proxy.0.x" overrides an implicit "proxy.x" for
	// the same field per §4.1's "explicit form wins" rule.
	for _, explicitPass := range []bool{false, true} {
		for _, key := range keys {
			rest, ok := normalizeKey(key)
			if !ok {
				continue
			}
			group, index, field, hasExplicitIndex := splitPath(rest)
			if hasExplicitIndex != explicitPass {
				continue
			}
			if index < 0 || index > maxIndex || field == "" {
				continue
			}
			value := lbls[key]
			switch group {
			case "proxy":
				m := proxyFields[index]
				if m == nil {
					m = map[string]string{}
					proxyFields[index] = m
				}
				m[field] = value
			case "stream":
				m := streamFields[index]
				if m == nil {
					m = map[string]string{}
					streamFields[index] = m
				}
				m[field] = value
			}
		}
	}

	result := Result{
		Proxies: map[int]*domain.ProxyConfig{},
		Streams: map[int]*domain.StreamConfig{},
	}

	for idx, fields := range proxyFields {
		cfg, warn := parseProxy(idx, fields, defaults)
		if warn != "" {
			result.Warnings = append(result.Warnings, warn)
			continue
		}
		result.Proxies[idx] = cfg
	}
	for idx, fields := range streamFields {
		cfg, warn := parseStream(idx, fields)
		if warn != "" {
			result.Warnings = append(result.Warnings, warn)
			continue
		}
		result.Streams[idx] = cfg
	}

	return result
}

// normalizeKey strips the reserved prefix and normalizes the remainder to
// dot-separated form, or reports ok=false if key is outside the namespace.
func normalizeKey(key string) (rest string, ok bool) {
	switch {
	case strings.HasPrefix(key, Prefix+"."):
		return strings.TrimPrefix(key, Prefix+"."), true
	case strings.HasPrefix(key, Prefix+"-"):
		return strings.ReplaceAll(strings.TrimPrefix(key, Prefix+"-"), "-", "."), true
	default:
		return "", false
	}
}

// splitPath splits a normalized "proxy.7.domains" / "proxy.domains" path
// into its group, index (default 0), and field name.
func splitPath(rest string) (group string, index int, field string, hasExplicitIndex bool) {
	segments := strings.Split(rest, ".")
	if len(segments) < 2 {
		return "", 0, "", false
	}
	group = segments[0]
	remainder := segments[1:]
	if n, err := strconv.Atoi(remainder[0]); err == nil {
		index = n
		remainder = remainder[1:]
		hasExplicitIndex = true
	}
	field = strings.Join(remainder, ".")
	return group, index, field, hasExplicitIndex
}

func parseBool(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

func splitDomains(raw string) []string {
	var out []string
	for _, d := range strings.Split(raw, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
