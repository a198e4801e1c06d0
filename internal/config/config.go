// Package config defines the JSON task model consumed by the pipeline and the
// environment-driven process settings.
//
// A task file holds either one task object or an array of them:
//
//	[
//	  { "convertor": "rename_col",
//	    "params": { "input_col_idx": 0, "new_col_name": "x" } },
//	  { "convertor": "delete_col",
//	    "params": { "input_col_idx": "area" },
//	    "note": "drop the area column" }
//	]
//
// Params are kept as a free-form Options bag. Their shape is defined by the
// convertor that reads them; nested objects keep their key order so that
// mapping-style params produce columns in the order they were written.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Task is one pipeline step: a convertor key and its raw parameters.
type Task struct {
	// Convertor is the registry key of the convertor to run.
	Convertor string `json:"convertor"`

	// Params holds the raw parameter values, resolved by the convertor.
	Params Options `json:"params"`

	// Note is a free-form annotation carried for humans.
	Note string `json:"note,omitempty"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns provided defaults when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64, so float64 is accepted and truncated.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns the string-valued entries of an object under key.
// Non-string values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	m, ok := o.Map(key)
	if !ok {
		return res
	}
	for _, kv := range m.Pairs {
		if s, ok := kv.Value.(string); ok {
			res[kv.Key] = s
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of strings.
// Returns nil when the key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Map returns the object under key as an OrderedMap. Plain Go maps are
// accepted too; their keys are sorted since they carry no order.
func (o Options) Map(key string) (OrderedMap, bool) {
	v, ok := o[key]
	if !ok {
		return OrderedMap{}, false
	}
	return AsOrderedMap(v)
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// Has reports whether key is present, even with a null value.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// UnmarshalJSON decodes a JSON object, keeping nested objects as
// OrderedMap values. A null or missing object decodes to an empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(bytes.TrimSpace(b)) == "null" {
		*o = Options{}
		return nil
	}
	v, err := decodeOrdered(b)
	if err != nil {
		return err
	}
	m, ok := v.(OrderedMap)
	if !ok {
		return fmt.Errorf("options must be a JSON object, got %T", v)
	}
	out := make(Options, len(m.Pairs))
	for _, kv := range m.Pairs {
		out[kv.Key] = kv.Value
	}
	*o = out
	return nil
}

// KV is a single key/value entry of an OrderedMap.
type KV struct {
	Key   string
	Value any
}

// OrderedMap preserves insertion order of a JSON object.
type OrderedMap struct {
	Pairs []KV
}

// Get returns the value stored under key.
func (m OrderedMap) Get(key string) (any, bool) {
	for _, kv := range m.Pairs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of an existing key or appends a new pair.
func (m *OrderedMap) Set(key string, v any) {
	for i := range m.Pairs {
		if m.Pairs[i].Key == key {
			m.Pairs[i].Value = v
			return
		}
	}
	m.Pairs = append(m.Pairs, KV{Key: key, Value: v})
}

// Keys returns the keys in insertion order.
func (m OrderedMap) Keys() []string {
	out := make([]string, len(m.Pairs))
	for i, kv := range m.Pairs {
		out[i] = kv.Key
	}
	return out
}

// Len returns the number of pairs.
func (m OrderedMap) Len() int { return len(m.Pairs) }

// MarshalJSON emits the pairs as a JSON object in the original order.
func (m OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range m.Pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(kv.Key))
		buf.WriteByte(':')
		vb, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AsOrderedMap converts v to an OrderedMap when it is an object value.
func AsOrderedMap(v any) (OrderedMap, bool) {
	switch m := v.(type) {
	case OrderedMap:
		return m, true
	case *OrderedMap:
		if m == nil {
			return OrderedMap{}, false
		}
		return *m, true
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := OrderedMap{Pairs: make([]KV, 0, len(keys))}
		for _, k := range keys {
			out.Pairs = append(out.Pairs, KV{Key: k, Value: m[k]})
		}
		return out, true
	case map[string]string:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := OrderedMap{Pairs: make([]KV, 0, len(keys))}
		for _, k := range keys {
			out.Pairs = append(out.Pairs, KV{Key: k, Value: m[k]})
		}
		return out, true
	}
	return OrderedMap{}, false
}

// decodeOrdered decodes one JSON value, returning objects as OrderedMap,
// arrays as []any, numbers as float64.
func decodeOrdered(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		// string, float64, bool or nil
		return tok, nil
	}
	switch d {
	case '{':
		m := OrderedMap{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is not a string", kt)
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			m.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", d)
}
