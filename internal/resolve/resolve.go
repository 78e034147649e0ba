// Package resolve evaluates declarative fallback chains against untyped
// provider documents. Wearable payloads nest the same logical field in
// different places depending on device and API revision, so each field
// carries an ordered list of candidate accessors; the first candidate
// that is present and type-valid wins. Resolution never fails: a field
// with no valid candidate is simply absent.
package resolve

// Kind declares the type a resolved value must satisfy.
type Kind int

const (
	// Number accepts any numeric JSON value.
	Number Kind = iota
	// String accepts a non-empty string.
	String
	// Slice accepts a non-empty JSON array.
	Slice
	// Map accepts a non-empty JSON object.
	Map
)

// Accessor is one candidate location for a logical field: a key path
// descending through nested objects plus the kind expected at the end.
type Accessor struct {
	Path []string
	Kind Kind
}

// At builds an Accessor for the given kind and key path.
func At(kind Kind, path ...string) Accessor {
	return Accessor{Path: path, Kind: kind}
}

// Field is an ordered fallback chain for one logical field. Chain order
// encodes source precedence; earlier accessors always win over later
// ones regardless of nesting depth.
type Field struct {
	Name  string
	Chain []Accessor
}

// NewField constructs a Field with its fallback chain in priority order.
func NewField(name string, chain ...Accessor) Field {
	return Field{Name: name, Chain: chain}
}

// Resolve returns the first chain entry whose path exists in doc and
// whose value satisfies the declared kind. A malformed path or a
// mismatched type is treated as not present.
func (f Field) Resolve(doc any) (any, bool) {
	for _, acc := range f.Chain {
		value, ok := descend(doc, acc.Path)
		if !ok {
			continue
		}
		switch acc.Kind {
		case Number:
			if n, ok := AsNumber(value); ok {
				return n, true
			}
		case String:
			if s, ok := AsString(value); ok {
				return s, true
			}
		case Slice:
			if s, ok := AsSlice(value); ok {
				return s, true
			}
		case Map:
			if m, ok := AsMap(value); ok {
				return m, true
			}
		}
	}
	return nil, false
}

// Number resolves the field as a float64.
func (f Field) Number(doc any) (float64, bool) {
	value, ok := f.Resolve(doc)
	if !ok {
		return 0, false
	}
	return AsNumber(value)
}

// Int resolves the field as an int, truncating any fractional part.
func (f Field) Int(doc any) (int, bool) {
	n, ok := f.Number(doc)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// String resolves the field as a non-empty string.
func (f Field) String(doc any) (string, bool) {
	value, ok := f.Resolve(doc)
	if !ok {
		return "", false
	}
	return AsString(value)
}

// Slice resolves the field as a non-empty array.
func (f Field) Slice(doc any) ([]any, bool) {
	value, ok := f.Resolve(doc)
	if !ok {
		return nil, false
	}
	return AsSlice(value)
}

// Normalize coerces the ambiguous list-or-object shape some provider
// endpoints return into a plain object: a list yields its first object
// element, anything that is not an object yields an empty one.
func Normalize(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return m
			}
		}
		return map[string]any{}
	default:
		return map[string]any{}
	}
}

// AsNumber reports v as a float64 when it carries a numeric JSON value.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// AsString reports v as a string when it is a non-empty string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// AsSlice reports v as a slice when it is a non-empty JSON array.
func AsSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	if !ok || len(s) == 0 {
		return nil, false
	}
	return s, true
}

// AsMap reports v as a map when it is a non-empty JSON object.
func AsMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	return m, true
}

func descend(doc any, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	current := doc
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}
