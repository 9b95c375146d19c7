package graph

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRefs_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "object", input: `{"@id": "schema:Person"}`, want: []string{"schema:Person"}},
		{name: "list", input: `[{"@id": "schema:Person"}, {"@id": "schema:Organization"}]`, want: []string{"schema:Person", "schema:Organization"}},
		{name: "single element list", input: `[{"@id": "schema:Person"}]`, want: []string{"schema:Person"}},
		{name: "bare string", input: `"schema:Person"`, want: []string{"schema:Person"}},
		{name: "empty list", input: `[]`, want: []string{}},
		{name: "null", input: `null`, want: []string{}},
		{name: "number", input: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var refs Refs
			err := json.Unmarshal([]byte(tt.input), &refs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := refs.IDs(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("IDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypeTag_RoundTrip(t *testing.T) {
	var node Node
	if err := json.Unmarshal([]byte(`{"@id": "schema:Text", "@type": ["schema:DataType", "rdfs:Class"]}`), &node); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !node.Type.List {
		t.Error("expected list form")
	}
	if !node.Type.Has("schema:DataType") || node.Type.Is("rdfs:Class") {
		t.Errorf("unexpected tag semantics for %v", node.Type)
	}

	out, err := json.Marshal(node.Type)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `["schema:DataType","rdfs:Class"]` {
		t.Errorf("unexpected encoding %s", out)
	}

	scalar, _ := json.Marshal(Scalar("rdfs:Class"))
	if string(scalar) != `"rdfs:Class"` {
		t.Errorf("unexpected scalar encoding %s", scalar)
	}
}

func TestText_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  Text
	}{
		{`"plain"`, "plain"},
		{`{"@language": "en", "@value": "literal"}`, "literal"},
		{`[{"@language": "en", "@value": "first"}, "second"]`, "first"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var got Text
		if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("input %s: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNode_RelationshipKeysByLocalName(t *testing.T) {
	doc := `[
		{"@id": "ex:owner", "@type": "rdf:Property",
		 "ex:domainIncludes": {"@id": "ex:Widget"},
		 "ex:rangeIncludes": [{"@id": "ex:Person"}, {"@id": "ex:Text"}]},
		{"@id": "schema:name", "@type": "rdf:Property",
		 "http://schema.org/domainIncludes": "schema:Thing",
		 "schema:domainIncludes": {"@id": "schema:Place"},
		 "rdfs:label": "name"}
	]`
	var nodes []Node
	if err := json.Unmarshal([]byte(doc), &nodes); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := nodes[0].DomainIncludes.IDs(); !reflect.DeepEqual(got, []string{"ex:Widget"}) {
		t.Errorf("ex domain = %v", got)
	}
	if got := nodes[0].RangeIncludes.IDs(); !reflect.DeepEqual(got, []string{"ex:Person", "ex:Text"}) {
		t.Errorf("ex range = %v", got)
	}
	// Keys are read in sorted order, so the IRI form comes first.
	if got := nodes[1].DomainIncludes.IDs(); !reflect.DeepEqual(got, []string{"schema:Thing", "schema:Place"}) {
		t.Errorf("merged domain = %v", got)
	}
	if nodes[1].Label != "name" || !nodes[1].Type.Is("rdf:Property") {
		t.Errorf("unexpected node %+v", nodes[1])
	}

	v := Vocabulary{Namespace: "ex:", Baseline: []string{"ex:label"}}.WithDefaults()
	p := v.Build([]Node{nodes[0], {ID: "ex:Widget", Type: Scalar("rdfs:Class")}})
	e, ok := p.Get("ex:Widget")
	if !ok || !reflect.DeepEqual(e.PropertyList(), []string{"ex:label", "ex:owner"}) {
		t.Errorf("ex:Widget properties = %v", e.PropertyList())
	}
}
