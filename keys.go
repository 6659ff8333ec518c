package squallcache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// QueryKey derives the canonical cache key for a query: the query name,
// a ":" separator, and the canonical JSON encoding of its variables.
// Object keys are sorted recursively so that two logically equal
// variable sets always produce identical keys.
func QueryKey(name string, variables Value) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte(':')
	canonicalEncode(&b, variables)
	return b.String()
}

// DecodeQueryKey reverses QueryKey, splitting on the first ":"
// (query names must not themselves contain ":"). It
// round-trips the canonical variables text back into a Value tree so
// a fetch orchestrator can rebuild a request body from a queued key alone.
func DecodeQueryKey(key string) (name string, variables Value, err error) {
	name, rest, ok := strings.Cut(key, ":")
	if !ok {
		return "", nil, fmt.Errorf("squallcache: query key %q has no %q separator", key, ":")
	}
	if rest == "" {
		return name, nil, nil
	}
	var v Value
	if err := json.Unmarshal([]byte(rest), &v); err != nil {
		return "", nil, fmt.Errorf("squallcache: decoding variables from query key %q: %w", key, err)
	}
	return name, v, nil
}

// EntityKey derives the store key for an entity: its typename, a ":"
// separator, and its id. Typenames must not contain ":".
func EntityKey(typename, id string) string {
	return typename + ":" + id
}

// canonicalEncode writes v as compact JSON with object keys sorted at
// every level, so that encoding is a pure function of value identity
// regardless of map iteration order. Leaf formatting (number/string
// escaping) is delegated to encoding/json, which is already exercised
// for every scalar the decoder produces; only the key-sorting, which
// has no corpus library to reach for, is hand-rolled here.
func canonicalEncode(b *strings.Builder, v Value) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONLeaf(b, k)
			b.WriteByte(':')
			canonicalEncode(b, val[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			canonicalEncode(b, elem)
		}
		b.WriteByte(']')
	default:
		writeJSONLeaf(b, val)
	}
}

// writeJSONLeaf encodes a scalar (or anything canonicalEncode doesn't
// special-case) using the standard encoder.
func writeJSONLeaf(b *strings.Builder, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		// Scalars decoded by this package's own Unmarshal call never hit
		// this path; guard it for values constructed by hand in tests.
		b.WriteString("null")
		return
	}
	b.Write(data)
}
