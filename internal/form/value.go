package form

import "strconv"

// Value is a field value: either a string or, for checkbox-like controls, a
// boolean. The unchecked sentinel of a checkbox is the empty string.
type Value struct {
	s      string
	b      bool
	isBool bool
}

// String returns a text value.
func String(s string) Value { return Value{s: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{b: b, isBool: true} }

// IsBool reports whether v holds a boolean.
func (v Value) IsBool() bool { return v.isBool }

// Empty reports whether v is the empty string sentinel.
func (v Value) Empty() bool { return !v.isBool && v.s == "" }

// Truthy reports whether v would count as "set": true booleans and non-empty
// strings.
func (v Value) Truthy() bool {
	if v.isBool {
		return v.b
	}
	return v.s != ""
}

// String returns the textual representation used when rendering.
func (v Value) String() string {
	if v.isBool {
		return strconv.FormatBool(v.b)
	}
	return v.s
}

// Values maps field names to their current value.
type Values map[string]Value

// Get returns the string form of the named value, or "" when missing.
func (vs Values) Get(name string) string {
	return vs[name].String()
}

func (vs Values) clone() Values {
	out := make(Values, len(vs))
	for k, v := range vs {
		out[k] = v
	}
	return out
}

// StringValues builds Values from plain strings.
func StringValues(m map[string]string) Values {
	out := make(Values, len(m))
	for k, v := range m {
		out[k] = String(v)
	}
	return out
}
