// Package apiclient is the gateway's HTTP client for the remote ledger API.
// The sync coordinator replays queued writes through it; the connectivity
// watcher uses Ping as its probe.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Francodev23/joyas-pwa/internal/queue"
)

const (
	salesPath    = "/api/sales"
	paymentsPath = "/api/payments"
	healthPath   = "/api/health"
)

// TokenFunc supplies the bearer token for authenticated calls. A nil func
// means unauthenticated requests.
type TokenFunc func(ctx context.Context) (string, error)

// StatusError reports a remote rejection: the server answered, but not 2xx.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote returned status %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
}

func New(baseURL string, httpClient *http.Client, token TokenFunc) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		token:   token,
	}
}

// Dispatch replays one queued operation against the endpoint matching its
// type. Each type maps to exactly one write endpoint.
func (c *Client) Dispatch(ctx context.Context, op queue.Operation) error {
	switch op.Type {
	case queue.OpCreateSale:
		return c.post(ctx, salesPath, op.Payload, op.IdempotencyKey)
	case queue.OpCreatePayment:
		return c.post(ctx, paymentsPath, op.Payload, op.IdempotencyKey)
	}
	return fmt.Errorf("no endpoint for operation type %q", op.Type)
}

func (c *Client) CreateSale(ctx context.Context, payload json.RawMessage) error {
	return c.post(ctx, salesPath, payload, "")
}

func (c *Client) CreatePayment(ctx context.Context, payload json.RawMessage) error {
	return c.post(ctx, paymentsPath, payload, "")
}

// Ping reports whether the remote API is reachable. Any HTTP response counts
// as online; only a transport failure counts as offline.
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return true
}

func (c *Client) post(ctx context.Context, path string, payload json.RawMessage, idempotencyKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("resolve token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
