package graph

import (
	"sync"
	"time"
)

// EntrySummary is the read-only view of one pattern entry.
type EntrySummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type,omitempty"`
	Comment      string   `json:"comment,omitempty"`
	Stub         bool     `json:"stub"`
	Class        bool     `json:"class"`
	DataType     bool     `json:"data_type"`
	Properties   []string `json:"properties"`
	AllowedTypes []string `json:"allowed_types"`
}

// Summary describes the shape of the current pattern map.
type Summary struct {
	Entries   int       `json:"entries"`
	Classes   int       `json:"classes"`
	DataTypes int       `json:"data_types"`
	Stubs     int       `json:"stubs"`
	Skipped   int       `json:"skipped"`
	BuiltAt   time.Time `json:"built_at"`
}

// Projection keeps the most recently built patterns available to readers
// while the pipeline replaces them.
type Projection struct {
	mu       sync.RWMutex
	patterns *Patterns
	builtAt  time.Time
}

// NewProjection creates an empty projection.
func NewProjection() *Projection {
	return &Projection{}
}

// Set replaces the current patterns.
func (p *Projection) Set(patterns *Patterns) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.patterns = patterns
	p.builtAt = time.Now().UTC()
}

// Patterns returns the current patterns, nil before the first build.
func (p *Projection) Patterns() *Patterns {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.patterns
}

// Lookup summarizes the entry for id.
func (p *Projection) Lookup(id string) (EntrySummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.patterns == nil {
		return EntrySummary{}, false
	}
	e, ok := p.patterns.Get(id)
	if !ok {
		return EntrySummary{}, false
	}
	return summarize(p.patterns.vocab, e), true
}

// Summary counts entries by kind.
func (p *Projection) Summary() Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var s Summary
	if p.patterns == nil {
		return s
	}
	s.BuiltAt = p.builtAt
	s.Skipped = p.patterns.Skipped
	for _, e := range p.patterns.entries {
		s.Entries++
		switch {
		case e.IsStub():
			s.Stubs++
		case e.IsDataType():
			s.DataTypes++
		case e.IsClass():
			s.Classes++
		}
	}
	return s
}

func summarize(v Vocabulary, e *Entry) EntrySummary {
	out := EntrySummary{
		ID:           e.ID,
		Name:         v.StripNamespace(e.ID),
		Stub:         e.IsStub(),
		Class:        e.IsClass(),
		DataType:     e.IsDataType(),
		Properties:   e.PropertyList(),
		AllowedTypes: e.AllowedTypeList(),
	}
	if e.Node != nil {
		out.Type = e.Node.Type.String()
		out.Comment = string(e.Node.Comment)
	}
	return out
}
