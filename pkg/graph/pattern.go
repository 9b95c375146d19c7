package graph

import "sort"

// stringSet is an unordered set of identifiers.
type stringSet map[string]struct{}

func newStringSet(values ...string) stringSet {
	s := make(stringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s stringSet) add(v string) { s[v] = struct{}{} }

func (s stringSet) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Entry accumulates what the builder learned about one identifier.
type Entry struct {
	ID string
	// Node is nil for stub entries created by a forward reference whose
	// defining node has not been seen.
	Node *Node

	properties   stringSet
	allowedTypes stringSet
	vocab        *Vocabulary
}

// PropertyList returns the applicable property identifiers, sorted.
func (e *Entry) PropertyList() []string { return e.properties.sorted() }

// AllowedTypeList returns the value-type identifiers, sorted.
func (e *Entry) AllowedTypeList() []string { return e.allowedTypes.sorted() }

// HasProperty reports whether id is applicable to this entry.
func (e *Entry) HasProperty(id string) bool { return e.properties.has(id) }

// HasAllowedType reports whether id is an allowed value type of this entry.
func (e *Entry) HasAllowedType(id string) bool { return e.allowedTypes.has(id) }

// IsStub reports whether the entry was only ever referenced.
func (e *Entry) IsStub() bool { return e.Node == nil }

// IsDataType reports whether the node is tagged as a primitive data type.
func (e *Entry) IsDataType() bool {
	return e.Node != nil && e.Node.Type.Has(e.vocab.DataTypeMarker)
}

// IsClass reports whether the entry materializes as an entity: it has a node
// whose type tag is exactly the scalar class marker. A list-valued tag that
// happens to contain the marker does not qualify.
func (e *Entry) IsClass() bool {
	if e.Node == nil || e.IsDataType() {
		return false
	}
	return e.Node.Type.Is(e.vocab.ClassMarker)
}

// Patterns is the builder output: one entry per identifier seen either as a
// node or as a domain/range target.
type Patterns struct {
	vocab   Vocabulary
	entries map[string]*Entry

	// Skipped counts input nodes dropped for having no identifier.
	Skipped int
}

func newPatterns(v Vocabulary) *Patterns {
	return &Patterns{vocab: v, entries: make(map[string]*Entry)}
}

// Vocabulary returns the vocabulary the patterns were built with.
func (p *Patterns) Vocabulary() Vocabulary { return p.vocab }

// Len returns the number of entries.
func (p *Patterns) Len() int { return len(p.entries) }

// Get returns the entry for id.
func (p *Patterns) Get(id string) (*Entry, bool) {
	e, ok := p.entries[id]
	return e, ok
}

// IDs returns every entry identifier, sorted.
func (p *Patterns) IDs() []string {
	ids := make([]string, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Classes returns the entries that materialize as entities, sorted by id.
func (p *Patterns) Classes() []*Entry {
	var out []*Entry
	for _, id := range p.IDs() {
		if e := p.entries[id]; e.IsClass() {
			out = append(out, e)
		}
	}
	return out
}

func (p *Patterns) ensure(id string) *Entry {
	if e, ok := p.entries[id]; ok {
		return e
	}
	e := &Entry{
		ID:           id,
		properties:   newStringSet(p.vocab.Baseline...),
		allowedTypes: newStringSet(),
		vocab:        &p.vocab,
	}
	p.entries[id] = e
	return e
}

// Build derives patterns from schema.org nodes.
func Build(nodes []Node) *Patterns {
	return SchemaOrg.Build(nodes)
}

// Build derives the pattern map from nodes. For every node it merges the node
// into its own entry, adds the node's id to the properties of each
// domainIncludes target, and adds each rangeIncludes target to the node's
// allowed types. Entries referenced before their node is seen are created as
// stubs and filled in later without losing what they accumulated.
func (v Vocabulary) Build(nodes []Node) *Patterns {
	p := newPatterns(v)
	for i := range nodes {
		node := nodes[i]
		if node.ID == "" {
			p.Skipped++
			continue
		}

		self := p.ensure(node.ID)
		self.Node = &node

		for _, class := range node.DomainIncludes {
			if class.ID == "" {
				continue
			}
			p.ensure(class.ID).properties.add(node.ID)
		}

		for _, rng := range node.RangeIncludes {
			if rng.ID == "" {
				continue
			}
			self.allowedTypes.add(rng.ID)
		}
	}
	return p
}
