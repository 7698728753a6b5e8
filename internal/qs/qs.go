// Package qs decodes URL query strings written in bracket notation into
// nested maps, and encodes nested maps back into query strings.
//
//	filter[and][0][status][eq]=active&filter[and][1][role][eq]=admin
//
// decodes to
//
//	{"filter": {"and": [{"status": {"eq": "active"}}, {"role": {"eq": "admin"}}]}}
//
// Objects whose keys are exactly 0..n-1 become []any. "key[]" appends.
// Repeated plain keys collect into a []any of strings.
package qs

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// MaxDepth bounds the number of bracket segments in a single key.
const MaxDepth = 20

// DecodeError reports a malformed query string.
type DecodeError struct {
	Key     string
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %q: %s: %v", e.Key, e.Message, e.Err)
	}
	return fmt.Sprintf("decode %q: %s", e.Key, e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses a raw query string (with or without a leading "?").
func Decode(raw string) (map[string]any, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return nil, &DecodeError{Key: raw, Message: "invalid query string", Err: err}
	}
	return DecodeValues(values)
}

// DecodeValues nests already-split url.Values. Keys are processed in
// sorted order so the result does not depend on map iteration.
func DecodeValues(values url.Values) (map[string]any, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := map[string]any{}
	for _, key := range keys {
		path, err := splitKey(key)
		if err != nil {
			return nil, err
		}
		for _, v := range values[key] {
			if err := insert(root, key, path, v); err != nil {
				return nil, err
			}
		}
	}
	// The root stays an object even when its keys look like indexes.
	for k, v := range root {
		root[k] = compact(v)
	}
	return root, nil
}

// splitKey turns "a[b][0][]" into ["a", "b", "0", ""].
func splitKey(key string) ([]string, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return []string{key}, nil
	}
	if open == 0 {
		return nil, &DecodeError{Key: key, Message: "key starts with a bracket"}
	}

	path := []string{key[:open]}
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return nil, &DecodeError{Key: key, Message: "unexpected text after bracket"}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, &DecodeError{Key: key, Message: "unterminated bracket"}
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
		if len(path) > MaxDepth {
			return nil, &DecodeError{Key: key, Message: fmt.Sprintf("nesting deeper than %d", MaxDepth)}
		}
	}
	return path, nil
}

func insert(node map[string]any, key string, path []string, value string) error {
	for i, seg := range path {
		last := i == len(path)-1
		if seg == "" {
			// "a[]" appends: use the next free index.
			seg = strconv.Itoa(len(node))
		}

		if last {
			switch existing := node[seg].(type) {
			case nil:
				node[seg] = value
			case string:
				node[seg] = []any{existing, value}
			case []any:
				node[seg] = append(existing, value)
			default:
				return &DecodeError{Key: key, Message: "value conflicts with nested key"}
			}
			return nil
		}

		switch existing := node[seg].(type) {
		case nil:
			child := map[string]any{}
			node[seg] = child
			node = child
		case map[string]any:
			node = existing
		default:
			return &DecodeError{Key: key, Message: "nested key conflicts with value"}
		}
	}
	return nil
}

// compact converts objects keyed 0..n-1 into slices, recursively.
func compact(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		m[k] = compact(child)
	}
	if list, ok := asList(m); ok {
		return list
	}
	return m
}

func asList(m map[string]any) ([]any, bool) {
	if len(m) == 0 {
		return nil, false
	}
	list := make([]any, len(m))
	for k, v := range m {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 || idx >= len(m) || strconv.Itoa(idx) != k {
			return nil, false
		}
		list[idx] = v
	}
	return list, true
}

// Encode flattens a nested map into a bracket-notation query string.
// Keys are sorted; slices are written with explicit indexes.
func Encode(params map[string]any) string {
	values := url.Values{}
	for k, v := range params {
		flatten(values, k, v)
	}
	return values.Encode()
}

func flatten(values url.Values, prefix string, v any) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			flatten(values, prefix+"["+k+"]", child)
		}
	case []any:
		for i, child := range val {
			flatten(values, prefix+"["+strconv.Itoa(i)+"]", child)
		}
	case []string:
		for i, child := range val {
			values.Add(prefix+"["+strconv.Itoa(i)+"]", child)
		}
	default:
		values.Add(prefix, FormatScalar(val))
	}
}

// FormatScalar renders a leaf value the way it would appear in a query string.
func FormatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
