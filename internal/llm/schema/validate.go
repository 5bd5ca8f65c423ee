// Package schema checks a model's JSON body against the *genai.Schema that
// was sent with the request. The remote side is asked to honour the schema
// but is not trusted to.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	genai "google.golang.org/genai"
)

// Error locates the first violation. Path uses $.a.b[2] notation.
type Error struct {
	Path string
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("schema: %s: %s", e.Path, e.Msg) }

// Validate decodes raw and checks it against s. A nil schema only requires
// valid JSON.
func Validate(raw []byte, s *genai.Schema) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return &Error{Path: "$", Msg: "invalid JSON: " + err.Error()}
	}
	if dec.More() {
		return &Error{Path: "$", Msg: "trailing data after JSON value"}
	}
	return check("$", v, s)
}

func check(path string, v any, s *genai.Schema) error {
	if s == nil {
		return nil
	}
	if v == nil {
		if s.Nullable != nil && *s.Nullable {
			return nil
		}
		return &Error{Path: path, Msg: "unexpected null"}
	}
	switch s.Type {
	case genai.TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return typeErr(path, "object", v)
		}
		for _, name := range s.Required {
			if _, ok := obj[name]; !ok {
				return &Error{Path: path, Msg: fmt.Sprintf("missing required property %q", name)}
			}
		}
		for name, prop := range s.Properties {
			pv, ok := obj[name]
			if !ok {
				continue
			}
			if err := check(path+"."+name, pv, prop); err != nil {
				return err
			}
		}
	case genai.TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return typeErr(path, "array", v)
		}
		if s.MinItems != nil && int64(len(arr)) < *s.MinItems {
			return &Error{Path: path, Msg: fmt.Sprintf("expected at least %d items, got %d", *s.MinItems, len(arr))}
		}
		if s.MaxItems != nil && int64(len(arr)) > *s.MaxItems {
			return &Error{Path: path, Msg: fmt.Sprintf("expected at most %d items, got %d", *s.MaxItems, len(arr))}
		}
		for i, item := range arr {
			if err := check(fmt.Sprintf("%s[%d]", path, i), item, s.Items); err != nil {
				return err
			}
		}
	case genai.TypeString:
		str, ok := v.(string)
		if !ok {
			return typeErr(path, "string", v)
		}
		if len(s.Enum) > 0 && !contains(s.Enum, str) {
			return &Error{Path: path, Msg: fmt.Sprintf("%q is not one of [%s]", str, strings.Join(s.Enum, ", "))}
		}
	case genai.TypeNumber:
		n, ok := v.(json.Number)
		if !ok {
			return typeErr(path, "number", v)
		}
		f, err := n.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return &Error{Path: path, Msg: "number out of range"}
		}
	case genai.TypeInteger:
		n, ok := v.(json.Number)
		if !ok {
			return typeErr(path, "integer", v)
		}
		if _, err := n.Int64(); err != nil {
			f, ferr := n.Float64()
			if ferr != nil || f != math.Trunc(f) {
				return &Error{Path: path, Msg: fmt.Sprintf("%s is not an integer", n)}
			}
		}
	case genai.TypeBoolean:
		if _, ok := v.(bool); !ok {
			return typeErr(path, "boolean", v)
		}
	}
	return nil
}

func typeErr(path, want string, got any) error {
	return &Error{Path: path, Msg: fmt.Sprintf("expected %s, got %s", want, kind(got))}
}

func kind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
