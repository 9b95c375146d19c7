package graph

import "testing"

func TestStripNamespace(t *testing.T) {
	if got := StripNamespace("schema:JobPosting"); got != "JobPosting" {
		t.Errorf("got %q", got)
	}
	if got := StripNamespace("rdfs:Class"); got != "rdfs:Class" {
		t.Errorf("foreign prefixes must be kept, got %q", got)
	}
}

func TestSimplestDataType(t *testing.T) {
	tests := []struct {
		name   string
		types  []string
		want   string
		wantOK bool
	}{
		{"first data type wins", []string{"schema:Person", "schema:URL", "schema:Date", "schema:Text"}, "schema:Date", true},
		{"no data type", []string{"schema:Person", "schema:Organization"}, "", false},
		{"empty", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SimplestDataType(tt.types)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("SimplestDataType(%v) = %q, %v; want %q, %v", tt.types, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHumanTitle(t *testing.T) {
	tests := map[string]string{
		"JobPosting":     "Job Posting",
		"WebAPI":         "Web API",
		"Thing":          "Thing",
		"3DModel":        "3D Model",
		"URL":            "URL",
		"MedicalWebPage": "Medical Web Page",
		"Already Spaced": "Already Spaced",
	}
	for in, want := range tests {
		if got := HumanTitle(in); got != want {
			t.Errorf("HumanTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	v := Vocabulary{}.WithDefaults()
	if v.ClassMarker != "rdfs:Class" || v.Namespace != "schema:" {
		t.Errorf("unexpected defaults %+v", v)
	}
	if len(v.Baseline) != len(SchemaOrg.Baseline) {
		t.Errorf("expected baseline of %d, got %d", len(SchemaOrg.Baseline), len(v.Baseline))
	}
	v.Baseline[0] = "mutated"
	if SchemaOrg.Baseline[0] == "mutated" {
		t.Error("WithDefaults must copy the baseline")
	}
}
