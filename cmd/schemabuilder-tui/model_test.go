package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rmax-ai/schemabuilder/pkg/client"
)

type fakeAPI struct {
	schemas  []client.Schema
	props    []client.Property
	lastOpts client.ListSchemasOptions
	mappings []string
	err      error
}

func (f *fakeAPI) ListSchemas(_ context.Context, opts client.ListSchemasOptions) (client.SchemaList, error) {
	f.lastOpts = opts
	if f.err != nil {
		return client.SchemaList{}, f.err
	}
	return client.SchemaList{Items: f.schemas, Total: len(f.schemas) * 2, TotalPages: 2}, nil
}

func (f *fakeAPI) GetSchema(_ context.Context, id int64) (client.Schema, error) {
	for _, s := range f.schemas {
		if s.ID == id {
			return s, nil
		}
	}
	return client.Schema{}, errors.New("not_found (status 404)")
}

func (f *fakeAPI) ListProperties(_ context.Context, opts client.ListPropertiesOptions) (client.PropertyList, error) {
	per := max(opts.PerPage, 1)
	start := min((max(opts.Page, 1)-1)*per, len(f.props))
	end := min(start+per, len(f.props))
	return client.PropertyList{
		Items:      f.props[start:end],
		Total:      len(f.props),
		TotalPages: (len(f.props) + per - 1) / per,
	}, nil
}

func (f *fakeAPI) SetEnabled(_ context.Context, id int64, enabled bool) (client.Schema, error) {
	for i := range f.schemas {
		if f.schemas[i].ID == id {
			f.schemas[i].Enabled = enabled
			return f.schemas[i], nil
		}
	}
	return client.Schema{}, errors.New("not_found (status 404)")
}

func (f *fakeAPI) SetMapping(_ context.Context, id int64, property, typ string) (client.Schema, error) {
	f.mappings = append(f.mappings, property+"="+typ)
	s, _ := f.GetSchema(context.Background(), id)
	if typ != "" {
		s.Mapping = property + "-" + typ
	} else {
		s.Mapping = ""
	}
	return s, nil
}

func newFake() *fakeAPI {
	return &fakeAPI{
		schemas: []client.Schema{
			{ID: 1, Title: "BusinessEvent", Label: "Business Event", Enabled: true, PropertyIDs: []int64{10}},
			{ID: 2, Title: "Person", Label: "Person", Enabled: true},
		},
		props: []client.Property{
			{ID: 10, Name: "startDate", AllowedTypes: []string{"schema:Date", "schema:DateTime"}, DefaultType: "schema:Date"},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command synchronously. Commands
// issued while typing a search only blink the cursor and are dropped.
func press(t *testing.T, m model, k string) model {
	t.Helper()
	next, cmd := m.Update(key(k))
	m = next.(model)
	if cmd != nil && m.mode != modeSearch {
		if msg := cmd(); msg != nil {
			if _, quit := msg.(tea.QuitMsg); !quit {
				next, _ = m.Update(msg)
				m = next.(model)
			}
		}
	}
	return m
}

func loaded(t *testing.T, f *fakeAPI) model {
	t.Helper()
	m := initialModel(f)
	next, _ := m.Update(m.loadSchemas()())
	return next.(model)
}

func TestModel_LoadAndPage(t *testing.T) {
	f := newFake()
	m := loaded(t, f)

	if len(m.schemas) != 2 || m.totalPages != 2 || m.loading {
		t.Fatalf("unexpected state after load: %+v", m.schemas)
	}
	if !strings.Contains(m.View(), "Business Event") {
		t.Error("expected label in view")
	}

	m = press(t, m, "j")
	if m.cursor != 1 {
		t.Errorf("expected cursor 1, got %d", m.cursor)
	}
	m = press(t, m, "l")
	if m.page != 2 || f.lastOpts.Page != 2 || m.cursor != 0 {
		t.Errorf("expected page 2 request, got page %d opts %+v", m.page, f.lastOpts)
	}
	m = press(t, m, "l")
	if m.page != 2 {
		t.Errorf("expected to stay on last page, got %d", m.page)
	}
}

func TestModel_SearchAndFilter(t *testing.T) {
	f := newFake()
	m := loaded(t, f)

	m = press(t, m, "/")
	if m.mode != modeSearch {
		t.Fatal("expected search mode")
	}
	m = press(t, m, "event")
	m = press(t, m, "enter")
	if m.mode != modeList || f.lastOpts.Search != "event" || f.lastOpts.Page != 1 {
		t.Errorf("expected search request, got %+v", f.lastOpts)
	}

	m = press(t, m, "f")
	if f.lastOpts.Enabled == nil || !*f.lastOpts.Enabled {
		t.Errorf("expected enabled=true filter, got %v", f.lastOpts.Enabled)
	}
	m = press(t, m, "f")
	if f.lastOpts.Enabled == nil || *f.lastOpts.Enabled {
		t.Errorf("expected enabled=false filter, got %v", f.lastOpts.Enabled)
	}
	press(t, m, "f")
	if f.lastOpts.Enabled != nil {
		t.Errorf("expected no filter, got %v", *f.lastOpts.Enabled)
	}
}

func TestModel_ToggleEnabled(t *testing.T) {
	f := newFake()
	m := loaded(t, f)

	m = press(t, m, "e")
	if m.schemas[0].Enabled {
		t.Error("expected first schema disabled")
	}
	if !strings.Contains(m.status, "saved BusinessEvent") {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestModel_PropertiesAndMapping(t *testing.T) {
	f := newFake()
	m := loaded(t, f)

	m = press(t, m, "enter")
	if m.mode != modeProperties || len(m.props) != 1 {
		t.Fatalf("expected properties view, got mode %v props %d", m.mode, len(m.props))
	}
	if !strings.Contains(m.viewport.View(), "schema:Date (default)") {
		t.Errorf("expected default type in view: %q", m.viewport.View())
	}

	m = press(t, m, "t")
	m = press(t, m, "t")
	m = press(t, m, "t")
	want := []string{"startDate=schema:Date", "startDate=schema:DateTime", "startDate="}
	if strings.Join(f.mappings, ",") != strings.Join(want, ",") {
		t.Errorf("expected mapping cycle %v, got %v", want, f.mappings)
	}

	m = press(t, m, "esc")
	if m.mode != modeList {
		t.Error("expected back to list")
	}
}

func TestModel_PropertiesBeyondOnePage(t *testing.T) {
	f := newFake()
	f.props = nil
	f.schemas[0].PropertyIDs = nil
	for i := 1; i <= 120; i++ {
		f.props = append(f.props, client.Property{ID: int64(i), Name: fmt.Sprintf("prop%d", i)})
		f.schemas[0].PropertyIDs = append(f.schemas[0].PropertyIDs, int64(i))
	}
	m := loaded(t, f)

	m = press(t, m, "enter")
	if len(m.props) != 120 {
		t.Fatalf("expected all 120 properties, got %d", len(m.props))
	}
	if m.props[119].Name != "prop120" {
		t.Errorf("expected prop120 last, got %q", m.props[119].Name)
	}
}

func TestModel_Error(t *testing.T) {
	f := newFake()
	f.err = errors.New("connection refused")
	m := loaded(t, f)
	if m.err == nil || !strings.Contains(m.View(), "connection refused") {
		t.Errorf("expected error in view, got %q", m.View())
	}
}

func TestNextType(t *testing.T) {
	allowed := []string{"schema:Date", "schema:DateTime"}
	tests := []struct {
		current, want string
	}{
		{"", "schema:Date"},
		{"schema:Date", "schema:DateTime"},
		{"schema:DateTime", ""},
		{"schema:Text", "schema:Date"},
	}
	for _, tt := range tests {
		if got := nextType(allowed, tt.current); got != tt.want {
			t.Errorf("nextType(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
	if got := nextType(nil, "x"); got != "" {
		t.Errorf("expected empty for no allowed types, got %q", got)
	}
}
