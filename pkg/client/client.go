// Package client is a typed HTTP client for the schemabuilder daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRetries = 3
	maxPerPage     = 100
)

// Client talks to a schemabuilder daemon.
type Client struct {
	endpoint   string
	adminToken string
	http       *http.Client
	backoff    BackoffStrategy
	retries    int
}

// NewClient creates a new client.
// endpoint defaults to "http://127.0.0.1:8090" if empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8090"
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: DefaultBackoff(),
		retries: defaultRetries,
	}
}

// SetAdminToken sets the bearer token sent on admin requests.
func (c *Client) SetAdminToken(token string) {
	c.adminToken = token
}

// SetBackoff replaces the retry strategy used for GET requests.
func (c *Client) SetBackoff(b BackoffStrategy, retries int) {
	c.backoff = b
	c.retries = retries
}

// Health fetches /v1/health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	_, err := c.getJSON(ctx, "/v1/health", nil, &h)
	return h, err
}

// ListSchemas fetches one page of schemas.
func (c *Client) ListSchemas(ctx context.Context, opts ListSchemasOptions) (SchemaList, error) {
	q := url.Values{}
	setString(q, "search", opts.Search)
	setString(q, "orderby", opts.OrderBy)
	setString(q, "order", opts.Order)
	setInt(q, "page", opts.Page)
	setInt(q, "per_page", opts.PerPage)
	if opts.Enabled != nil {
		q.Set("enabled", strconv.FormatBool(*opts.Enabled))
	}

	var out SchemaList
	h, err := c.getJSON(ctx, "/v1/schemas", q, &out.Items)
	if err != nil {
		return SchemaList{}, err
	}
	out.Total, out.TotalPages = pageHeaders(h)
	return out, nil
}

// GetSchema fetches one schema by id.
func (c *Client) GetSchema(ctx context.Context, id int64) (Schema, error) {
	var s Schema
	_, err := c.getJSON(ctx, fmt.Sprintf("/v1/schemas/%d", id), nil, &s)
	return s, err
}

// SetEnabled toggles a schema.
func (c *Client) SetEnabled(ctx context.Context, id int64, enabled bool) (Schema, error) {
	var s Schema
	err := c.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("/v1/schemas/%d", id), map[string]bool{"enabled": enabled}, false, &s)
	return s, err
}

// SetMapping maps property of schema id to typ. An empty typ clears it.
func (c *Client) SetMapping(ctx context.Context, id int64, property, typ string) (Schema, error) {
	var s Schema
	body := map[string]string{"property": property, "type": typ}
	err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/v1/schemas/%d/mapping", id), body, false, &s)
	return s, err
}

// ListProperties fetches one page of properties.
func (c *Client) ListProperties(ctx context.Context, opts ListPropertiesOptions) (PropertyList, error) {
	q := url.Values{}
	if len(opts.Include) > 0 {
		ids := make([]string, len(opts.Include))
		for i, id := range opts.Include {
			ids[i] = strconv.FormatInt(id, 10)
		}
		q.Set("include", strings.Join(ids, ","))
	}
	setString(q, "search", opts.Search)
	setInt(q, "page", opts.Page)
	setInt(q, "per_page", opts.PerPage)

	var out PropertyList
	h, err := c.getJSON(ctx, "/v1/properties", q, &out.Items)
	if err != nil {
		return PropertyList{}, err
	}
	out.Total, out.TotalPages = pageHeaders(h)
	return out, nil
}

// PropertyLister is the part of Client that AllProperties pages through.
type PropertyLister interface {
	ListProperties(ctx context.Context, opts ListPropertiesOptions) (PropertyList, error)
}

// AllProperties fetches every property in ids, one max-size page at a time.
func AllProperties(ctx context.Context, l PropertyLister, ids []int64) ([]Property, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []Property
	for page := 1; ; page++ {
		list, err := l.ListProperties(ctx, ListPropertiesOptions{Include: ids, Page: page, PerPage: maxPerPage})
		if err != nil {
			return nil, err
		}
		out = append(out, list.Items...)
		if page >= list.TotalPages || len(list.Items) == 0 {
			return out, nil
		}
	}
}

// Report downloads a report body.
func (c *Client) Report(ctx context.Context, reportType, format string) ([]byte, error) {
	q := url.Values{}
	q.Set("type", reportType)
	setString(q, "format", format)

	resp, err := c.get(ctx, "/v1/reports", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Run triggers a pipeline run. Requires the admin token.
func (c *Client) Run(ctx context.Context) (RunReport, error) {
	var r RunReport
	err := c.sendJSON(ctx, http.MethodPost, "/v1/admin/run", nil, true, &r)
	return r, err
}

// Guard reports the run guard state. Requires the admin token.
func (c *Client) Guard(ctx context.Context) (Guard, error) {
	var g Guard
	err := c.sendJSON(ctx, http.MethodGet, "/v1/admin/guard", nil, true, &g)
	return g, err
}

// ResetGuard clears the run guard. Requires the admin token.
func (c *Client) ResetGuard(ctx context.Context) (Guard, error) {
	var g Guard
	err := c.sendJSON(ctx, http.MethodDelete, "/v1/admin/guard", nil, true, &g)
	return g, err
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) (http.Header, error) {
	resp, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.Header, nil
}

// get retries transport errors and 5xx responses with backoff. The caller
// closes the body of the returned 2xx response.
func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	target := c.endpoint + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var (
		lastErr  error
		lastResp *http.Response
	)
	attempts := max(c.retries, 1)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, retryDelay(c.backoff, attempt-1, lastResp)); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr, lastResp = err, nil
			continue
		}
		if resp.StatusCode/100 == 2 {
			return resp, nil
		}
		apiErr := decodeError(resp)
		if !retryable(resp.StatusCode) {
			return nil, apiErr
		}
		lastErr, lastResp = apiErr, resp
	}
	return nil, fmt.Errorf("GET %s failed after %d attempts: %w", path, attempts, lastErr)
}

// sendJSON issues a single non-retried request.
func (c *Client) sendJSON(ctx context.Context, method, path string, body any, admin bool, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		if c.adminToken == "" {
			return errors.New("admin token not configured")
		}
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// A failed admin run still carries its report.
	if resp.StatusCode/100 != 2 && !(resp.StatusCode == http.StatusBadGateway && path == "/v1/admin/run") {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode == http.StatusBadGateway {
		return &APIError{StatusCode: resp.StatusCode, Code: "run_failed"}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	defer resp.Body.Close()
	apiErr := &APIError{StatusCode: resp.StatusCode}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr)
	return apiErr
}

func pageHeaders(h http.Header) (int, int) {
	total, _ := strconv.Atoi(h.Get("X-Total-Count"))
	pages, _ := strconv.Atoi(h.Get("X-Total-Pages"))
	return total, pages
}

func setString(q url.Values, key, v string) {
	if v != "" {
		q.Set(key, v)
	}
}

func setInt(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}
