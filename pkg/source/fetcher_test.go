package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rmax-ai/schemabuilder/pkg/blob"
	"github.com/rmax-ai/schemabuilder/pkg/cache"
)

const sampleDoc = `{
  "@context": {"schema": "https://schema.org/"},
  "@graph": [
    {"@id": "schema:Person", "@type": "rdfs:Class", "rdfs:label": "Person"},
    {"@id": "schema:name", "@type": "rdf:Property",
     "schema:domainIncludes": {"@id": "schema:Person"},
     "schema:rangeIncludes": [{"@id": "schema:Text"}]}
  ]
}`

func newServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("expected Accept: application/json, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/ld+json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestFetch_NetworkThenCache(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, sampleDoc)
	c := cache.NewMemory()
	f := NewFetcher(Options{URL: srv.URL, Cache: c})
	ctx := context.Background()

	nodes, origin, err := f.FetchWithOrigin(ctx)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if origin != OriginNetwork || len(nodes) != 2 {
		t.Fatalf("expected 2 nodes from network, got %d from %s", len(nodes), origin)
	}
	if nodes[1].DomainIncludes.IDs()[0] != "schema:Person" {
		t.Errorf("unexpected node %+v", nodes[1])
	}

	raw, err := c.Get(ctx, CacheKey)
	if err != nil {
		t.Fatalf("expected graph cached under %s: %v", CacheKey, err)
	}
	if !strings.HasPrefix(string(raw), "[") {
		t.Errorf("cache must hold the @graph array, got %.40s", raw)
	}

	nodes, origin, err = f.FetchWithOrigin(ctx)
	if err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if origin != OriginCache || len(nodes) != 2 {
		t.Errorf("expected cached nodes, got %d from %s", len(nodes), origin)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Errorf("expected 1 network call, got %d", n)
	}
}

func TestFetch_WarmCacheMakesNoCalls(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, sampleDoc)
	c := cache.NewMemory()
	ctx := context.Background()
	cached := `[{"@id":"schema:Thing","@type":"rdfs:Class"}]`
	if err := c.Set(ctx, CacheKey, []byte(cached), time.Hour); err != nil {
		t.Fatal(err)
	}

	nodes, err := NewFetcher(Options{URL: srv.URL, Cache: c}).Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != "schema:Thing" {
		t.Errorf("expected the cached array unchanged, got %+v", nodes)
	}
	if n := atomic.LoadInt32(calls); n != 0 {
		t.Errorf("expected zero network calls, got %d", n)
	}
}

func TestFetch_CacheExpiresAfterAYear(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, sampleDoc)
	c := cache.NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })
	f := NewFetcher(Options{URL: srv.URL, Cache: c})
	ctx := context.Background()

	if _, err := f.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	now = now.Add(364 * 24 * time.Hour)
	if _, err := f.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Fatalf("expected cache hit within TTL, got %d calls", n)
	}
	now = now.Add(2 * 24 * time.Hour)
	if _, err := f.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Errorf("expected refetch after TTL, got %d calls", n)
	}
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"not modified is not success", http.StatusNotModified, ``},
		{"created is not success", http.StatusCreated, sampleDoc},
		{"invalid json", http.StatusOK, `{"@graph": [`},
		{"missing graph", http.StatusOK, `{"@context": {}}`},
		{"graph not an array", http.StatusOK, `{"@graph": {"@id": "schema:Thing"}}`},
		{"null graph", http.StatusOK, `{"@graph": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.body)
			c := cache.NewMemory()
			f := NewFetcher(Options{URL: srv.URL, Cache: c})

			_, err := f.Fetch(context.Background())
			if !errors.Is(err, ErrFetchFailed) {
				t.Fatalf("expected ErrFetchFailed, got %v", err)
			}
			if _, err := c.Get(context.Background(), CacheKey); !errors.Is(err, cache.ErrMiss) {
				t.Errorf("nothing may be cached on failure, got %v", err)
			}
		})
	}
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewFetcher(Options{URL: url}).Fetch(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("expected ErrFetchFailed, got %v", err)
	}
}

func TestFetch_CorruptCacheEntryRefetches(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, sampleDoc)
	c := cache.NewMemory()
	ctx := context.Background()
	_ = c.Set(ctx, CacheKey, []byte(`not json`), time.Hour)

	nodes, origin, err := NewFetcher(Options{URL: srv.URL, Cache: c}).FetchWithOrigin(ctx)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if origin != OriginNetwork || len(nodes) != 2 || atomic.LoadInt32(calls) != 1 {
		t.Errorf("expected refetch, got %d nodes from %s", len(nodes), origin)
	}
}

func TestFetch_ArchivesRawBody(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, sampleDoc)
	archive := blob.NewLocalBlobStore(t.TempDir())
	f := NewFetcher(Options{URL: srv.URL, Archive: archive})
	f.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	ctx := context.Background()

	if _, err := f.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	keys, err := archive.List(ctx, "graph")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "graph/20240506T070809Z-") || !strings.HasSuffix(keys[0], ".jsonld") {
		t.Fatalf("unexpected archive keys %v", keys)
	}

	// Cache hits are not archived again.
	if _, err := f.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	keys, _ = archive.List(ctx, "graph")
	if len(keys) != 1 {
		t.Errorf("expected a single archive entry, got %v", keys)
	}
}

func TestReadDocument(t *testing.T) {
	nodes, err := ReadDocument(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("ReadDocument failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("expected 2 nodes, got %d", len(nodes))
	}
	if _, err := ReadDocument(strings.NewReader(`[]`)); err == nil {
		t.Error("expected error for a document without @graph")
	}
}
