package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/hashstructure/v2"
)

// CreateKey builds a deterministic key of the form
//
//	prefix:name1=value1&name2=value2
//
// Parameter names are sorted. Values are JSON-encoded, which keeps type
// information ("5" vs 5, [1] vs 1) and sorts nested map keys, so two records
// with the same contents always produce the same key regardless of
// construction order. Values JSON cannot encode (cycles, channels, funcs,
// NaN) yield an error wrapping ErrUnserializable. Names containing '=' or
// '&' are rejected with ErrInvalidParamName.
func CreateKey(prefix string, params map[string]any) (string, error) {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(':')
	for i, name := range names {
		if strings.ContainsAny(name, "=&") {
			return "", fmt.Errorf("cache: key %q param %q: %w", prefix, name, ErrInvalidParamName)
		}
		data, err := json.Marshal(params[name])
		if err != nil {
			return "", fmt.Errorf("cache: key %q param %q: %w: %w", prefix, name, ErrUnserializable, err)
		}
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.Write(data)
	}
	return b.String(), nil
}

// MustKey is like CreateKey but panics on error. Use it only with literal
// parameter records known to be serializable.
func MustKey(prefix string, params map[string]any) string {
	k, err := CreateKey(prefix, params)
	if err != nil {
		panic(err)
	}
	return k
}

// CreateHashedKey builds prefix:<hash> where hash is a structural hash of
// params. Use it for records too large to embed in a key (full document
// text); prefix-based invalidation still works, per-parameter patterns don't.
func CreateHashedKey(prefix string, params map[string]any) (string, error) {
	h, err := hashstructure.Hash(params, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("cache: key %q: %w: %w", prefix, ErrUnserializable, err)
	}
	return prefix + ":" + strconv.FormatUint(h, 16), nil
}
