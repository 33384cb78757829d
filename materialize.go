package awsquery

import (
	mxj "github.com/clbanning/mxj/v2"
)

const (
	tagItem   = "item"
	tagMember = "member"
)

// Payload is the parsed XML subtree a domain object is built from. Values
// are strings (text content), nested map[string]any elements, or []any
// sequences.
type Payload map[string]any

// materialize parses an XML document into a payload keyed by the root tag.
// Every tag literally named item (EC2) or member (ELB) is forced into a
// sequence even when single, so callers never guess cardinality. Unless
// noKeyAttr is set, sequences shaped entirely as {key, value} element pairs
// collapse into a mapping keyed by the key's content. Empty elements parse
// to an empty string, never an omitted field.
func materialize(body []byte, noKeyAttr bool) (Payload, error) {
	m, err := mxj.NewMapXml(body)
	if err != nil {
		return nil, err
	}

	normalized, _ := normalize(map[string]any(m), noKeyAttr).(map[string]any)

	return Payload(normalized), nil
}

// parseResponse unwraps the document's single root element, returning its
// tag name and content.
func parseResponse(body []byte, noKeyAttr bool) (string, Payload, error) {
	doc, err := materialize(body, noKeyAttr)
	if err != nil {
		return "", nil, err
	}

	for root, content := range doc {
		if m, ok := content.(map[string]any); ok {
			return root, Payload(m), nil
		}
		return root, Payload{}, nil
	}

	return "", Payload{}, nil
}

func normalize(v any, noKeyAttr bool) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, child := range t {
			if k == tagItem || k == tagMember {
				child = forceList(child)
			}
			m[k] = normalize(child, noKeyAttr)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i := range t {
			s[i] = normalize(t[i], noKeyAttr)
		}
		if !noKeyAttr {
			if flat, ok := flattenPairs(s); ok {
				return flat
			}
		}
		return s
	case nil:
		return ""
	default:
		return t
	}
}

func forceList(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return []any{v}
}

// flattenPairs collapses a sequence shaped entirely as {key, value} element
// pairs into a mapping keyed by the key's content, the Query API convention
// for tag sets and similar list-of-pairs responses.
func flattenPairs(s []any) (map[string]any, bool) {
	if len(s) == 0 {
		return nil, false
	}

	m := make(map[string]any, len(s))
	for _, e := range s {
		pair, ok := e.(map[string]any)
		if !ok || len(pair) != 2 {
			return nil, false
		}

		k, ok := pairField(pair, "key", "Key")
		if !ok {
			return nil, false
		}
		key, ok := k.(string)
		if !ok {
			return nil, false
		}

		v, ok := pairField(pair, "value", "Value")
		if !ok {
			return nil, false
		}

		m[key] = v
	}

	return m, true
}

func pairField(m map[string]any, names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := m[n]; ok {
			return v, true
		}
	}
	return nil, false
}

// Get walks nested elements by tag name.
func (p Payload) Get(path ...string) any {
	var cur any = map[string]any(p)
	for _, name := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[name]; !ok {
			return nil
		}
	}
	return cur
}

// Has reports whether an element exists at path, even when empty.
func (p Payload) Has(path ...string) bool {
	var cur any = map[string]any(p)
	for _, name := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		if cur, ok = m[name]; !ok {
			return false
		}
	}
	return true
}

// Str returns the text content at path, or the empty string.
func (p Payload) Str(path ...string) string {
	s, _ := p.Get(path...).(string)
	return s
}

// Map returns the nested element at path, or nil.
func (p Payload) Map(path ...string) Payload {
	m, _ := p.Get(path...).(map[string]any)
	return Payload(m)
}

// List returns the sequence at path normalized to element payloads.
func (p Payload) List(path ...string) []Payload {
	var out []Payload
	for _, e := range forceList(p.Get(path...)) {
		if m, ok := e.(map[string]any); ok {
			out = append(out, Payload(m))
		}
	}
	return out
}

// Strings returns the sequence at path normalized to text elements.
func (p Payload) Strings(path ...string) []string {
	var out []string
	for _, e := range forceList(p.Get(path...)) {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// StrMap returns the flattened {key, value} mapping at path with text
// values.
func (p Payload) StrMap(path ...string) map[string]string {
	m := p.Map(path...)
	if m == nil {
		return nil
	}

	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
