package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schemaorg.jsonld")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	nodes, origin, err := NewFileSource(path).FetchWithOrigin(context.Background())
	if err != nil {
		t.Fatalf("FetchWithOrigin failed: %v", err)
	}
	if origin != OriginFile || len(nodes) != 2 {
		t.Errorf("expected 2 nodes from file, got %d from %s", len(nodes), origin)
	}

	if _, _, err := NewFileSource(filepath.Join(dir, "missing.jsonld")).FetchWithOrigin(context.Background()); !errors.Is(err, ErrFetchFailed) {
		t.Errorf("expected ErrFetchFailed for missing file, got %v", err)
	}

	bad := filepath.Join(dir, "bad.jsonld")
	if err := os.WriteFile(bad, []byte(`{"@graph": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewFileSource(bad).FetchWithOrigin(context.Background()); !errors.Is(err, ErrFetchFailed) {
		t.Errorf("expected ErrFetchFailed for non-array graph, got %v", err)
	}
}
