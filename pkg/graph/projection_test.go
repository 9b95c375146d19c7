package graph

import "testing"

func TestProjection_SetAndLookup(t *testing.T) {
	proj := NewProjection()

	if _, ok := proj.Lookup("schema:Book"); ok {
		t.Fatal("expected empty projection")
	}
	if s := proj.Summary(); s.Entries != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}

	proj.Set(Build([]Node{
		{ID: "schema:Book", Type: Scalar("rdfs:Class"), Comment: "A book."},
		{ID: "schema:Text", Type: Multi("schema:DataType", "rdfs:Class")},
		{
			ID:             "schema:isbn",
			Type:           Scalar("rdf:Property"),
			DomainIncludes: Refs{{ID: "schema:Book"}, {ID: "schema:Edition"}},
			RangeIncludes:  Refs{{ID: "schema:Text"}},
		},
		{Type: Scalar("rdfs:Class")},
	}))

	book, ok := proj.Lookup("schema:Book")
	if !ok {
		t.Fatal("expected schema:Book")
	}
	if !book.Class || book.Name != "Book" || book.Comment != "A book." {
		t.Errorf("unexpected summary %+v", book)
	}

	s := proj.Summary()
	if s.Entries != 4 || s.Classes != 1 || s.DataTypes != 1 || s.Stubs != 1 || s.Skipped != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.BuiltAt.IsZero() {
		t.Error("expected build time to be recorded")
	}
}
