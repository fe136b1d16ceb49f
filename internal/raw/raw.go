// Package raw models heterogeneous source payloads as generic semi-structured
// values and exposes a path-based safe-get accessor over them.
//
// Nothing in this package panics on an unexpected shape: a missing key, an
// index out of range or a scalar where a container was expected all resolve
// to "not found" and the caller's default.
package raw

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Wildcard matches any key of a map or any element of a list. The first
// child (keys in sorted order) that resolves the remaining path wins.
const Wildcard = "*"

// Record is one raw source record.
type Record map[string]any

// Path is a sequence of map keys or list indexes.
type Path []string

// P builds a Path.
func P(segments ...string) Path {
	return Path(segments)
}

// Get resolves path against the record.
func (r Record) Get(path ...string) (any, bool) {
	if r == nil {
		return nil, false
	}
	return lookup(map[string]any(r), path)
}

func lookup(cur any, path []string) (any, bool) {
	if len(path) == 0 {
		if cur == nil {
			return nil, false
		}
		return cur, true
	}
	seg := path[0]
	switch node := cur.(type) {
	case map[string]any:
		if seg == Wildcard {
			keys := make([]string, 0, len(node))
			for k := range node {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if v, ok := lookup(node[k], path[1:]); ok {
					return v, true
				}
			}
			return nil, false
		}
		next, ok := node[seg]
		if !ok {
			return nil, false
		}
		return lookup(next, path[1:])
	case Record:
		return lookup(map[string]any(node), path)
	case []any:
		if seg == Wildcard {
			for _, item := range node {
				if v, ok := lookup(item, path[1:]); ok {
					return v, true
				}
			}
			return nil, false
		}
		idx, err := strconv.Atoi(strings.Trim(seg, "[]"))
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, false
		}
		return lookup(node[idx], path[1:])
	}
	return nil, false
}

// String returns the trimmed string at path, or "" when absent.
// Numbers are rendered without exponent; other types yield "".
func (r Record) String(path ...string) string {
	v, ok := r.Get(path...)
	if !ok {
		return ""
	}
	return asString(v)
}

// FirstString returns the first non-empty string among paths.
func (r Record) FirstString(paths ...Path) string {
	for _, p := range paths {
		if s := r.String(p...); s != "" {
			return s
		}
	}
	return ""
}

// Bool returns the boolean at path. ok is false when the value is absent or
// not interpretable as a boolean.
func (r Record) Bool(path ...string) (value bool, ok bool) {
	v, found := r.Get(path...)
	if !found {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, false
		}
		return parsed, true
	}
	if n, isNum := asInt64(v); isNum {
		return n != 0, true
	}
	return false, false
}

// Int64 returns the integer at path.
func (r Record) Int64(path ...string) (int64, bool) {
	v, ok := r.Get(path...)
	if !ok {
		return 0, false
	}
	return asInt64(v)
}

// Float64 returns the number at path.
func (r Record) Float64(path ...string) (float64, bool) {
	v, ok := r.Get(path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// Map returns the nested object at path, or nil.
func (r Record) Map(path ...string) Record {
	v, ok := r.Get(path...)
	if !ok {
		return nil
	}
	switch m := v.(type) {
	case map[string]any:
		return Record(m)
	case Record:
		return m
	}
	return nil
}

// Slice returns the list at path, or nil.
func (r Record) Slice(path ...string) []any {
	v, ok := r.Get(path...)
	if !ok {
		return nil
	}
	if s, isSlice := v.([]any); isSlice {
		return s
	}
	return nil
}

// Strings collects the string elements of the list at path, optionally
// descending into each element by sub.
func (r Record) Strings(path Path, sub ...string) []string {
	var out []string
	for _, item := range r.Slice(path...) {
		v, ok := lookup(item, sub)
		if !ok {
			continue
		}
		if s := asString(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		if s == math.Trunc(s) && math.Abs(s) < 1e18 {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// FromAny converts a decoded JSON value into a Record when it is an object.
func FromAny(v any) (Record, bool) {
	switch m := v.(type) {
	case map[string]any:
		return Record(m), true
	case Record:
		return m, true
	}
	return nil, false
}

// Decode parses a JSON document into a generic value, keeping numbers as
// json.Number so large identifiers survive intact.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode raw JSON: %w", err)
	}
	return v, nil
}

// Records extracts a list of objects from a decoded value. Non-object
// elements are skipped.
func Records(v any) []Record {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(list))
	for _, item := range list {
		if rec, isRec := FromAny(item); isRec {
			out = append(out, rec)
		}
	}
	return out
}
