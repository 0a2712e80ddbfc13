package npmclient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Redth/npm-docker-sync/internal/domain"
)

// decode converts one raw JSON object returned by the proxy manager into a
// domain.RemoteResource, regardless of kind. Fields this core never
// inspects are preserved verbatim in Raw for hashing and mirroring.
func decode(kind string, raw map[string]any) *domain.RemoteResource {
	r := &domain.RemoteResource{
		Kind: singularKind(kind),
		Raw:  raw,
	}

	if id, ok := asInt(raw["id"]); ok {
		r.ID = id
	}
	if enabled, ok := raw["enabled"]; ok {
		r.Enabled = asBool(enabled)
	} else {
		r.Enabled = true
	}
	if deleted, ok := raw["is_deleted"]; ok {
		r.IsDeleted = asBool(deleted)
	}
	if names, ok := raw["domain_names"].([]any); ok {
		for _, n := range names {
			if s, ok := n.(string); ok {
				r.DomainNames = append(r.DomainNames, s)
			}
		}
	}
	if name, ok := raw["nice_name"].(string); ok {
		r.NiceName = name
	} else if name, ok := raw["name"].(string); ok {
		r.NiceName = name
	}
	if port, ok := asInt(raw["incoming_port"]); ok {
		r.IncomingPort = port
	}
	r.Meta = decodeMeta(raw["meta"])

	return r
}

func decodeMeta(v any) domain.Meta {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	meta := make(domain.Meta, len(m))
	for k, val := range m {
		meta[k] = domain.NewMetaValue(stringify(val))
	}
	return meta
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// asInt accepts the proxy manager's JSON numbers (float64) and numeric
// strings, per the "boolean-as-int wire quirk" tolerance this client
// extends to all numeric fields on read.
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

// asBool accepts true/false, 0/1, and their string forms.
func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "1" || s == "yes" || s == "on"
	default:
		return false
	}
}

func singularKind(kind string) string {
	switch kind {
	case "proxy-hosts":
		return "proxy-host"
	case "streams":
		return "stream"
	case "certificates":
		return "certificate"
	case "access-lists":
		return "access-list"
	case "redirection-hosts":
		return "redirection-host"
	case "dead-hosts":
		return "dead-host"
	default:
		return kind
	}
}

// upstreamError classifies a non-2xx response body, recognizing the
// proxy manager's "domain in use" / "port in use" rejections as
// domain.ErrUpstreamConflict so the Reconciler can treat them distinctly
// from an ordinary transient failure.
func upstreamError(kind string, status int, body []byte) error {
	lower := strings.ToLower(string(body))
	if status >= 400 && status < 500 &&
		(strings.Contains(lower, "already in use") ||
			strings.Contains(lower, "domain") && strings.Contains(lower, "use") ||
			strings.Contains(lower, "port") && strings.Contains(lower, "use")) {
		return fmt.Errorf("%s: %w: %s", kind, domain.ErrUpstreamConflict, body)
	}
	return fmt.Errorf("%s: proxy manager returned %d: %s", kind, status, body)
}
