// Package supabase is a minimal client for the hosted data store's REST
// interface (PostgREST). It only implements what this service needs:
// create-or-merge writes with an explicit patch fallback on conflict.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func New(baseURL, serviceKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if both the base URL and service key are set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.serviceKey != ""
}

// Error is a failed store call. Message is the store's own message when
// one could be extracted from the response body, else the HTTP status text.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("supabase: %s (status %d)", e.Message, e.Status)
}

// UpsertResult reports the outcome of an Upsert. Created is true when the
// store inserted a new row (HTTP 201) as opposed to merging an existing one.
type UpsertResult struct {
	Created bool
	Body    json.RawMessage
}

// Upsert writes record to table as a create with merge-on-conflict
// resolution keyed by conflictKey. The store's merge directive does not
// cover every field combination, so a 409 falls back to an explicit PATCH
// filtered by the conflict key, with the key itself excluded from the
// patch body.
func (c *Client) Upsert(ctx context.Context, table string, record any, conflictKey string) (*UpsertResult, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?on_conflict=%s", c.baseURL, table, url.QueryEscape(conflictKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		io.Copy(io.Discard, resp.Body)
		return c.patchByKey(ctx, table, body, conflictKey)
	}

	return readResult(resp)
}

// patchByKey updates the row matching conflictKey instead of inserting.
// The key field is stripped from the patch body.
func (c *Client) patchByKey(ctx context.Context, table string, record []byte, conflictKey string) (*UpsertResult, error) {
	var fields map[string]any
	if err := json.Unmarshal(record, &fields); err != nil {
		return nil, fmt.Errorf("decode record for patch: %w", err)
	}
	keyValue, _ := fields[conflictKey].(string)
	if keyValue == "" {
		return nil, fmt.Errorf("patch fallback: record has no %s", conflictKey)
	}
	delete(fields, conflictKey)

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s=eq.%s", c.baseURL, table, conflictKey, url.QueryEscape(keyValue))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("patch %s: %w", table, err)
	}
	defer resp.Body.Close()

	return readResult(resp)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
}

func readResult(resp *http.Response) (*UpsertResult, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}

	return &UpsertResult{
		Created: resp.StatusCode == http.StatusCreated,
		Body:    raw,
	}, nil
}

// errorMessage pulls the store's message or error field out of a failure
// body, falling back to the HTTP status text.
func errorMessage(raw []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
		Err     string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Err != "" {
			return payload.Err
		}
	}
	return http.StatusText(status)
}
