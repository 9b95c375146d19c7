package mapping

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Mapping
		wantErr error
	}{
		{"empty", "", Mapping{}, nil},
		{"single", "startDate-schema:Date", Mapping{"startDate": "schema:Date"}, nil},
		{"blank entries", ",name-schema:Text,,", Mapping{"name": "schema:Text"}, nil},
		{"first wins", "name-schema:Text,name-schema:URL", Mapping{"name": "schema:Text"}, nil},
		{"type keeps later dashes", "url-schema:URL-x", Mapping{"url": "schema:URL-x"}, nil},
		{"no dash", "name", nil, ErrMalformed},
		{"empty type", "name-", nil, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s: expected %s, got %s", k, v, got[k])
				}
			}
		})
	}
}

func TestEncode_Sorted(t *testing.T) {
	m := Mapping{"url": "schema:URL", "endDate": "schema:DateTime", "name": "schema:Text"}
	want := "endDate-schema:DateTime,name-schema:Text,url-schema:URL"
	if got := m.Encode(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if got := (Mapping{}).Encode(); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestSet(t *testing.T) {
	allowed := []string{"schema:Date", "schema:DateTime"}
	m := Mapping{}

	if err := m.Set("startDate", "schema:Date", allowed); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.Set("startDate", "schema:DateTime", allowed); err != nil {
		t.Fatalf("Set (replace) failed: %v", err)
	}
	if got, _ := m.Lookup("startDate"); got != "schema:DateTime" || len(m) != 1 {
		t.Errorf("expected replacement, got %v", m)
	}

	if err := m.Set("startDate", "schema:Text", allowed); !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
	if err := m.Set("a-b", "schema:Date", allowed); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}

	if err := m.Set("startDate", "", nil); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok := m.Lookup("startDate"); ok {
		t.Error("expected mapping cleared")
	}
}

func TestUpdate(t *testing.T) {
	got, err := Update("name-schema:Text", "startDate", "schema:Date", []string{"schema:Date"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got != "name-schema:Text,startDate-schema:Date" {
		t.Errorf("unexpected mapping %s", got)
	}

	if _, err := Update("broken", "name", "", nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}
