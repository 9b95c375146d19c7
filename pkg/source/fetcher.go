// Package source retrieves the vocabulary graph: the cached copy when one is
// warm, otherwise the published JSON-LD document over HTTP.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rmax-ai/schemabuilder/pkg/blob"
	"github.com/rmax-ai/schemabuilder/pkg/cache"
	"github.com/rmax-ai/schemabuilder/pkg/graph"
	"github.com/rmax-ai/schemabuilder/pkg/logger"
)

const (
	DefaultURL = "https://schema.org/version/latest/schemaorg-current-https.jsonld"
	CacheKey   = "schema-builder-schema"
	CacheTTL   = 365 * 24 * time.Hour

	// ArchivePrefix is the blob key prefix for raw fetched documents.
	ArchivePrefix = "graph/"

	maxBodyBytes = 64 << 20
)

// ErrFetchFailed classifies every failure to obtain a usable graph.
var ErrFetchFailed = errors.New("source: fetch failed")

// Origin reports where a graph came from.
type Origin string

const (
	OriginCache   Origin = "cache"
	OriginNetwork Origin = "network"
	OriginFile    Origin = "file"
)

// Options configures a Fetcher. Zero values select the defaults.
type Options struct {
	URL     string
	Client  *http.Client
	Cache   cache.Cache
	Archive blob.BlobStore
	Logger  *logger.Logger
}

// Fetcher returns the @graph array of the vocabulary document.
type Fetcher struct {
	url     string
	client  *http.Client
	cache   cache.Cache
	archive blob.BlobStore
	log     *logger.Logger
	now     func() time.Time
}

func NewFetcher(opts Options) *Fetcher {
	f := &Fetcher{
		url:     opts.URL,
		client:  opts.Client,
		cache:   opts.Cache,
		archive: opts.Archive,
		log:     logger.OrNop(opts.Logger).Named("fetcher"),
		now:     time.Now,
	}
	if f.url == "" {
		f.url = DefaultURL
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 60 * time.Second}
	}
	if f.cache == nil {
		f.cache = cache.NewMemory()
	}
	return f
}

// URL returns the document location this fetcher reads.
func (f *Fetcher) URL() string { return f.url }

// Fetch returns the graph nodes. A warm cache entry makes no network call.
func (f *Fetcher) Fetch(ctx context.Context) ([]graph.Node, error) {
	nodes, _, err := f.FetchWithOrigin(ctx)
	return nodes, err
}

// FetchWithOrigin is Fetch that also reports whether the cache served the graph.
func (f *Fetcher) FetchWithOrigin(ctx context.Context) ([]graph.Node, Origin, error) {
	cached, err := f.cache.Get(ctx, CacheKey)
	switch {
	case err == nil:
		var nodes []graph.Node
		derr := json.Unmarshal(cached, &nodes)
		if derr == nil {
			f.log.Debug("cache_hit", "key", CacheKey, "nodes", len(nodes))
			return nodes, OriginCache, nil
		}
		// Unreadable entries are dropped and refetched.
		f.log.Warn("cache_entry_corrupt", "key", CacheKey, "error", derr)
		_ = f.cache.Delete(ctx, CacheKey)
	case errors.Is(err, cache.ErrMiss):
	default:
		f.log.Warn("cache_read_failed", "key", CacheKey, "error", err)
	}

	body, err := f.download(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	rawGraph, nodes, err := Decode(body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	if err := f.cache.Set(ctx, CacheKey, rawGraph, CacheTTL); err != nil {
		f.log.Warn("cache_write_failed", "key", CacheKey, "error", err)
	}
	f.archiveBody(ctx, body)

	f.log.Info("graph_fetched", "url", f.url, "nodes", len(nodes), "bytes", len(body))
	return nodes, OriginNetwork, nil
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	return body, nil
}

func (f *Fetcher) archiveBody(ctx context.Context, body []byte) {
	if f.archive == nil {
		return
	}
	key := ArchiveKey(f.now(), uuid.NewString())
	if err := f.archive.Put(ctx, key, bytes.NewReader(body)); err != nil {
		f.log.Warn("archive_failed", "key", key, "error", err)
		return
	}
	f.log.Debug("archived", "key", key)
}

// ArchiveKey names a raw document snapshot taken at t.
func ArchiveKey(t time.Time, id string) string {
	return ArchivePrefix + t.UTC().Format("20060102T150405Z") + "-" + id + ".jsonld"
}

// Decode extracts the top-level @graph array of a JSON-LD document and
// decodes its nodes. The raw array is returned for caching.
func Decode(doc []byte) (json.RawMessage, []graph.Node, error) {
	var envelope struct {
		Graph json.RawMessage `json:"@graph"`
	}
	if err := json.Unmarshal(doc, &envelope); err != nil {
		return nil, nil, fmt.Errorf("parse document: %w", err)
	}
	raw := bytes.TrimSpace(envelope.Graph)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, nil, errors.New("document has no @graph array")
	}

	var nodes []graph.Node
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, nil, fmt.Errorf("decode @graph: %w", err)
	}
	return raw, nodes, nil
}

// ReadDocument decodes a JSON-LD document from r, for offline builds.
func ReadDocument(r io.Reader) ([]graph.Node, error) {
	doc, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(doc) > maxBodyBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", maxBodyBytes)
	}
	_, nodes, err := Decode(doc)
	return nodes, err
}
