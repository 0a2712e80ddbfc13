// Package npmclient implements the ProxyManagerClient output port: a
// token-authenticated JSON/HTTP CRUD client over the reverse-proxy
// manager's REST API.
package npmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/Redth/npm-docker-sync/internal/domain"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

// tokenSkew is how much earlier than the server's own expiry we consider
// the cached token stale, so a request never races a token that expires
// mid-flight. The proxy manager issues tokens valid 24h; refreshing an
// hour early keeps us comfortably inside that window.
const tokenSkew = 1 * time.Hour

// Client is the Proxy-Manager Client adapter.
type Client struct {
	baseURL  string
	email    string
	password string
	http     *http.Client
	limiter  *rate.Limiter

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	refresh   singleflight.Group
}

// New constructs a Client for a proxy-manager instance at baseURL,
// authenticating with email/password. baseURL should already be normalized.
func New(baseURL, email, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		email:    email,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(10), 20),
	}
}

// NewWithHTTPClient constructs a Client using a caller-supplied http.Client,
// for testing against a fake server.
func NewWithHTTPClient(baseURL, email, password string, httpClient *http.Client) *Client {
	c := New(baseURL, email, password)
	c.http = httpClient
	return c
}

// NPMURL returns the base URL this client talks to.
func (c *Client) NPMURL() string { return c.baseURL }

type tokenResponse struct {
	Token   string `json:"token"`
	Expires string `json:"expires"`
}

// ensureToken returns a valid cached token, refreshing it if absent or
// within tokenSkew of expiry. Concurrent callers collapse onto a single
// in-flight refresh via singleflight; each then re-checks under the read
// lock in case another caller's refresh already satisfied it.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	tok, exp := c.token, c.expiresAt
	c.mu.RUnlock()
	if tok != "" && time.Until(exp) > tokenSkew {
		return tok, nil
	}

	v, err, _ := c.refresh.Do("token", func() (interface{}, error) {
		c.mu.RLock()
		tok, exp := c.token, c.expiresAt
		c.mu.RUnlock()
		if tok != "" && time.Until(exp) > tokenSkew {
			return tok, nil
		}
		return c.authenticate(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	ctx = logging.Component(ctx, "npmclient")
	log := logging.From(ctx)

	body, err := json.Marshal(map[string]string{
		"identity": c.email,
		"secret":   c.password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tokens", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", logging.WrapErr(ctx, err, "authenticate")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("authenticate: proxy manager returned %d: %s", resp.StatusCode, raw)
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	expiresAt := time.Now().Add(23 * time.Hour)
	if parsed, err := time.Parse(time.RFC3339, tr.Expires); err == nil {
		expiresAt = parsed
	}

	c.mu.Lock()
	c.token = tr.Token
	c.expiresAt = expiresAt
	c.mu.Unlock()

	log.Info("refreshed proxy manager token", "expires_at", expiresAt)
	return tr.Token, nil
}

// do issues an authenticated request under the rate limiter, retrying once
// on a 401 to cover a token revoked out from under us.
func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.doOnce(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return c.doOnce(ctx, method, path, payload)
	}
	return resp, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	tok, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

// List returns every non-deleted resource of the given kind.
func (c *Client) List(ctx context.Context, kind string) ([]*domain.RemoteResource, error) {
	ctx = logging.Component(ctx, "npmclient")
	resp, err := c.do(ctx, http.MethodGet, "/api/nginx/"+kind, nil)
	if err != nil {
		return nil, logging.WrapErr(ctx, err, "list "+kind)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read list response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list %s: proxy manager returned %d: %s", kind, resp.StatusCode, raw)
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	result := make([]*domain.RemoteResource, 0, len(items))
	for _, item := range items {
		r := decode(kind, item)
		if r.IsDeleted {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

// Create writes a new resource of the given kind.
func (c *Client) Create(ctx context.Context, kind string, payload map[string]any) (*domain.RemoteResource, error) {
	ctx = logging.Component(ctx, "npmclient")
	resp, err := c.do(ctx, http.MethodPost, "/api/nginx/"+kind, payload)
	if err != nil {
		return nil, logging.WrapErr(ctx, err, "create "+kind)
	}
	return decodeSingleResponse(kind, resp)
}

// Update replaces a resource's fields in place.
func (c *Client) Update(ctx context.Context, kind string, id int, payload map[string]any) (*domain.RemoteResource, error) {
	ctx = logging.Component(ctx, "npmclient")
	resp, err := c.do(ctx, http.MethodPut, "/api/nginx/"+kind+"/"+strconv.Itoa(id), payload)
	if err != nil {
		return nil, logging.WrapErr(ctx, err, "update "+kind)
	}
	return decodeSingleResponse(kind, resp)
}

// Delete removes a resource. Deleting an already-absent id is not an error.
func (c *Client) Delete(ctx context.Context, kind string, id int) error {
	ctx = logging.Component(ctx, "npmclient")
	resp, err := c.do(ctx, http.MethodDelete, "/api/nginx/"+kind+"/"+strconv.Itoa(id), nil)
	if err != nil {
		return logging.WrapErr(ctx, err, "delete "+kind)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	raw, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("delete %s/%d: proxy manager returned %d: %s", kind, id, resp.StatusCode, raw)
}

func decodeSingleResponse(kind string, resp *http.Response) (*domain.RemoteResource, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, upstreamError(kind, resp.StatusCode, raw)
	}

	var item map[string]any
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decode(kind, item), nil
}
