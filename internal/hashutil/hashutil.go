// Package hashutil provides the two hash functions the Reconciler and
// Resource Mirror use for change detection: a hash over a container's
// reserved-namespace labels, and a canonical-JSON hash over a remote
// resource's payload.
package hashutil

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// LabelHash hashes the subset of labels whose key starts with prefix,
// sorted by key and joined canonically, per §3's `labelHash`.
func LabelHash(lbls map[string]string, prefix string) uint64 {
	keys := make([]string, 0, len(lbls))
	for k := range lbls {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(lbls[k])
		b.WriteByte('\n')
	}
	return xxhash.Sum64String(b.String())
}

// ResourceHash hashes the canonical JSON form of a decoded resource
// payload, per §4.8's `H(canonicalJSON(resource))`. Keys not relevant to
// equality comparison (id, timestamps meta the controller itself stamps)
// are excluded by the caller before this is invoked.
func ResourceHash(payload map[string]any) uint64 {
	return xxhash.Sum64String(canonicalJSON(payload))
}

// canonicalJSON renders v with map keys sorted at every level, so
// semantically identical payloads hash identically regardless of
// unmarshalling order.
func canonicalJSON(v any) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, k)
			b.WriteByte(':')
			writeCanonical(b, t[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	case string:
		enc, _ := json.Marshal(t)
		b.Write(enc)
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case nil:
		b.WriteString("null")
	default:
		b.WriteString(fmt.Sprintf("%v", t))
	}
}
