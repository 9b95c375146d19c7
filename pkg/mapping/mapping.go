// Package mapping reads and writes a schema's property mapping string: a
// comma-separated list of "property-type" pairs, for example
// "startDate-schema:Date,name-schema:Text".
package mapping

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidType is returned when a property is mapped to a type outside its allowed types.
	ErrInvalidType = errors.New("mapping: type not allowed for property")

	// ErrMalformed is returned for pairs that do not split into property and type.
	ErrMalformed = errors.New("mapping: malformed pair")
)

// Mapping maps property names to the selected type.
type Mapping map[string]string

// Parse decodes a mapping string. Empty entries are ignored; when a property
// appears more than once the first pair wins.
func Parse(s string) (Mapping, error) {
	m := Mapping{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		prop, typ, ok := strings.Cut(pair, "-")
		if !ok || prop == "" || typ == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, pair)
		}
		if _, seen := m[prop]; !seen {
			m[prop] = typ
		}
	}
	return m, nil
}

// Encode renders the mapping with pairs sorted by property name.
func (m Mapping) Encode() string {
	props := make([]string, 0, len(m))
	for p := range m {
		props = append(props, p)
	}
	sort.Strings(props)

	pairs := make([]string, len(props))
	for i, p := range props {
		pairs[i] = p + "-" + m[p]
	}
	return strings.Join(pairs, ",")
}

func (m Mapping) Lookup(property string) (string, bool) {
	t, ok := m[property]
	return t, ok
}

// Set maps property to typ, replacing any previous selection. An empty typ
// clears the mapping. A non-empty typ must be one of allowed.
func (m Mapping) Set(property, typ string, allowed []string) error {
	if property == "" || strings.ContainsAny(property, ",-") {
		return fmt.Errorf("%w: property %q", ErrMalformed, property)
	}
	if typ == "" {
		delete(m, property)
		return nil
	}
	for _, a := range allowed {
		if a == typ {
			m[property] = typ
			return nil
		}
	}
	return fmt.Errorf("%w: %s cannot be %s", ErrInvalidType, property, typ)
}

// Update parses raw, applies Set and returns the re-encoded string.
func Update(raw, property, typ string, allowed []string) (string, error) {
	m, err := Parse(raw)
	if err != nil {
		return "", err
	}
	if err := m.Set(property, typ, allowed); err != nil {
		return "", err
	}
	return m.Encode(), nil
}
