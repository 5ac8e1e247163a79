// Package parse pulls a JSON object out of free-form model output.
//
// Model replies are not schema-constrained. ExtractObject is total: any input
// yields an Object, possibly empty, and every accessor takes a default.
package parse

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Object is a read-only view over one parsed JSON object. The zero value is the empty object.
type Object struct {
	res gjson.Result
}

// ExtractObject spans from the first '{' to the last '}' and parses that as an object.
// Without such a span the whole text is tried. Anything unparseable yields the empty object.
//
// Several unrelated {...} fragments get merged into one span; that is accepted.
func ExtractObject(text string) Object {
	if strings.TrimSpace(text) == "" {
		return Object{}
	}

	candidate := text
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first != -1 && last != -1 && last > first {
		candidate = text[first : last+1]
	}

	if !gjson.Valid(candidate) {
		log.Debug().Str("snippet", snippet(text, 100)).Msg("parse: model output is not a json object")
		return Object{}
	}
	res := gjson.Parse(candidate)
	if !res.IsObject() {
		return Object{}
	}
	return Object{res: res}
}

// ExtractArray is the array counterpart of ExtractObject, spanning '[' to ']'.
func ExtractArray(text string) []Object {
	first := strings.Index(text, "[")
	last := strings.LastIndex(text, "]")
	if first == -1 || last <= first {
		return nil
	}
	candidate := text[first : last+1]
	if !gjson.Valid(candidate) {
		return nil
	}
	return objectsOf(gjson.Parse(candidate))
}

func (o Object) get(key string) gjson.Result {
	if !o.res.IsObject() {
		return gjson.Result{}
	}
	return o.res.Get(key)
}

// IsEmpty reports whether the object has no keys.
func (o Object) IsEmpty() bool {
	if !o.res.IsObject() {
		return true
	}
	empty := true
	o.res.ForEach(func(_, _ gjson.Result) bool {
		empty = false
		return false
	})
	return empty
}

// Has reports whether key is present with a non-null value.
func (o Object) Has(key string) bool {
	r := o.get(key)
	return r.Exists() && r.Type != gjson.Null
}

// Raw returns the JSON text of the object, "{}" when empty.
func (o Object) Raw() string {
	if !o.res.IsObject() {
		return "{}"
	}
	return o.res.Raw
}

// Str returns a scalar field as text. Missing, null, blank or non-scalar values yield def.
func (o Object) Str(key, def string) string {
	r := o.get(key)
	switch r.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		if v := strings.TrimSpace(r.String()); v != "" {
			return v
		}
	}
	return def
}

// OptStr is Str without a default: nil means the key carried nothing usable.
func (o Object) OptStr(key string) *string {
	v := o.Str(key, "")
	if v == "" {
		return nil
	}
	return &v
}

func (o Object) Int(key string, def int) int {
	r := o.get(key)
	switch r.Type {
	case gjson.Number:
		return int(r.Int())
	case gjson.String:
		if n, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err == nil {
			return int(n)
		}
	}
	return def
}

func (o Object) Float(key string, def float64) float64 {
	r := o.get(key)
	switch r.Type {
	case gjson.Number:
		return r.Float()
	case gjson.String:
		if n, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err == nil {
			return n
		}
	}
	return def
}

// Strings returns the scalar elements of an array field. Nil when the key is absent or not an array.
func (o Object) Strings(key string) []string {
	r := o.get(key)
	if !r.IsArray() {
		return nil
	}
	out := make([]string, 0, len(r.Array()))
	for _, el := range r.Array() {
		if el.IsObject() || el.IsArray() || el.Type == gjson.Null {
			continue
		}
		if v := strings.TrimSpace(el.String()); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Object returns a nested object field, or the empty object.
func (o Object) Object(key string) Object {
	r := o.get(key)
	if !r.IsObject() {
		return Object{}
	}
	return Object{res: r}
}

// Objects returns the object elements of an array field.
func (o Object) Objects(key string) []Object {
	return objectsOf(o.get(key))
}

func objectsOf(r gjson.Result) []Object {
	if !r.IsArray() {
		return nil
	}
	var out []Object
	for _, el := range r.Array() {
		if el.IsObject() {
			out = append(out, Object{res: el})
		}
	}
	return out
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
