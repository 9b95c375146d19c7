package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Node is one vertex of the source linked-data graph: a class, a property or
// a primitive data type. Relationship fields are normalized to lists at
// decode time, so the builder never sees the scalar form. They are matched by
// local name, so "ex:domainIncludes" and "http://schema.org/domainIncludes"
// decode the same as "schema:domainIncludes"; output always uses the schema:
// prefix.
type Node struct {
	ID             string  `json:"@id"`
	Type           TypeTag `json:"@type"`
	DomainIncludes Refs    `json:"schema:domainIncludes,omitempty"`
	RangeIncludes  Refs    `json:"schema:rangeIncludes,omitempty"`
	Label          Text    `json:"rdfs:label,omitempty"`
	Comment        Text    `json:"rdfs:comment,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode node: %w", err)
	}

	// Sorted so that refs from two relationship keys keep a stable order.
	var out Node
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		raw := fields[key]
		var err error
		switch key {
		case "@id":
			err = json.Unmarshal(raw, &out.ID)
		case "@type":
			err = json.Unmarshal(raw, &out.Type)
		case "rdfs:label":
			err = json.Unmarshal(raw, &out.Label)
		case "rdfs:comment":
			err = json.Unmarshal(raw, &out.Comment)
		default:
			switch localName(key) {
			case "domainIncludes":
				err = appendRefs(&out.DomainIncludes, raw)
			case "rangeIncludes":
				err = appendRefs(&out.RangeIncludes, raw)
			}
		}
		if err != nil {
			return fmt.Errorf("decode node field %s: %w", key, err)
		}
	}
	*n = out
	return nil
}

// localName strips a compact prefix or IRI base from key.
func localName(key string) string {
	if i := strings.LastIndexAny(key, ":/#"); i >= 0 {
		return key[i+1:]
	}
	return key
}

func appendRefs(dst *Refs, raw json.RawMessage) error {
	var refs Refs
	if err := json.Unmarshal(raw, &refs); err != nil {
		return err
	}
	*dst = append(*dst, refs...)
	return nil
}

// Ref is a reference to another node by identifier.
type Ref struct {
	ID string `json:"@id"`
}

// Refs is an ordered, possibly empty list of references. It decodes from a
// single reference object, a bare identifier string, a list of either, or null.
type Refs []Ref

// UnmarshalJSON implements json.Unmarshaler.
func (r *Refs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = nil
		return nil
	}

	if data[0] != '[' {
		ref, err := decodeRef(data)
		if err != nil {
			return err
		}
		*r = Refs{ref}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode reference list: %w", err)
	}
	out := make(Refs, 0, len(raw))
	for _, item := range raw {
		ref, err := decodeRef(item)
		if err != nil {
			return err
		}
		out = append(out, ref)
	}
	*r = out
	return nil
}

func decodeRef(data []byte) (Ref, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return Ref{}, fmt.Errorf("decode reference: %w", err)
		}
		return Ref{ID: id}, nil
	}
	var ref Ref
	if err := json.Unmarshal(data, &ref); err != nil {
		return Ref{}, fmt.Errorf("decode reference: %w", err)
	}
	return ref, nil
}

// IDs returns the referenced identifiers in order.
func (r Refs) IDs() []string {
	ids := make([]string, 0, len(r))
	for _, ref := range r {
		ids = append(ids, ref.ID)
	}
	return ids
}

// TypeTag is the node's @type. The source emits either a single value or a
// list; List records which form was seen because class detection depends on it.
type TypeTag struct {
	Values []string
	List   bool
}

// Scalar builds a single-valued type tag.
func Scalar(value string) TypeTag {
	return TypeTag{Values: []string{value}}
}

// Multi builds a list-valued type tag.
func Multi(values ...string) TypeTag {
	return TypeTag{Values: values, List: true}
}

// Is reports whether the tag is exactly the scalar value v.
func (t TypeTag) Is(v string) bool {
	return !t.List && len(t.Values) == 1 && t.Values[0] == v
}

// Has reports whether v is one of the tag values, in either form.
func (t TypeTag) Has(v string) bool {
	for _, value := range t.Values {
		if value == v {
			return true
		}
	}
	return false
}

// IsZero reports whether the tag carries no value.
func (t TypeTag) IsZero() bool {
	return len(t.Values) == 0
}

func (t TypeTag) String() string {
	if !t.List && len(t.Values) == 1 {
		return t.Values[0]
	}
	return fmt.Sprintf("%v", t.Values)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TypeTag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = TypeTag{}
		return nil
	}
	if data[0] == '[' {
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("decode @type list: %w", err)
		}
		*t = TypeTag{Values: values, List: true}
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("decode @type: %w", err)
	}
	*t = Scalar(value)
	return nil
}

// MarshalJSON keeps the scalar/list form the tag was decoded from.
func (t TypeTag) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	if !t.List && len(t.Values) == 1 {
		return json.Marshal(t.Values[0])
	}
	return json.Marshal(t.Values)
}

// Text is a human-readable literal. JSON-LD emits it as a plain string, a
// value object ({"@language": "en", "@value": "..."}) or a list of those; the
// first value wins.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '[':
		var items []Text
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*t = ""
		if len(items) > 0 {
			*t = items[0]
		}
	default:
		var literal struct {
			Value string `json:"@value"`
		}
		if err := json.Unmarshal(data, &literal); err != nil {
			return err
		}
		*t = Text(literal.Value)
	}
	return nil
}
