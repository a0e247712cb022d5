package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"sheetsync-bridge/ingest/domain"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public HubSpot API host.
const DefaultBaseURL = "https://api.hubapi.com"

var (
	// ErrNoToken means the client was built without an access token.
	ErrNoToken = errors.New("hubspot: access token not configured")

	// ErrUpstream wraps any non-success response from the HubSpot API.
	ErrUpstream = errors.New("hubspot: upstream error")
)

const (
	maxAttempts   = 5
	baseBackoff   = 500 * time.Millisecond
	maxBackoff    = 6 * time.Second
	maxErrSnippet = 500
)

// Client talks to the HubSpot CRM v3 contacts API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	limiter *rate.Limiter
}

type Option func(*Client)

// WithBaseURL points the client at a different host (tests use an
// httptest server).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithRateLimit throttles outgoing requests with a token bucket.
// rps <= 0 disables the throttle.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an access token is present.
func (c *Client) Configured() bool {
	return c.token != ""
}

// do sends one API request, retrying 429 and 5xx responses with doubling
// backoff (0.5s, 1s, 2s, 4s, capped at 6s). The caller owns the response
// body.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("hubspot: encode request: %w", err)
		}
	}

	var resp *http.Response
	for attempt := 0; attempt < maxAttempts; attempt++ {
		// Retried attempts spend a token too; the backoff alone does not
		// keep a burst of 429 retries inside the configured rate.
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.httpc.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Retryable status: drain and retry after backoff.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := baseBackoff << attempt
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("%w: %s %s kept failing with status %d", ErrUpstream, method, path, lastStatus(resp))
}

func lastStatus(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// FindByEmail returns the contact id for an email, or "" when no contact
// matches.
func (c *Client) FindByEmail(ctx context.Context, email string) (string, error) {
	payload := map[string]any{
		"filterGroups": []any{
			map[string]any{
				"filters": []any{
					map[string]any{"propertyName": "email", "operator": "EQ", "value": email},
				},
			},
		},
		"properties": []string{"email"},
	}

	resp, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", upstreamError("search", resp)
	}

	var out struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("hubspot: decode search response: %w", err)
	}
	if len(out.Results) == 0 {
		return "", nil
	}
	return out.Results[0].ID, nil
}

// Create creates a contact and returns its id.
func (c *Client) Create(ctx context.Context, props map[string]string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/contacts", map[string]any{"properties": props})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", upstreamError("create", resp)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("hubspot: decode create response: %w", err)
	}
	return out.ID, nil
}

// Update patches the properties of an existing contact.
func (c *Client) Update(ctx context.Context, contactID string, props map[string]string) error {
	resp, err := c.do(ctx, http.MethodPatch, "/crm/v3/objects/contacts/"+contactID, map[string]any{"properties": props})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return upstreamError("update", resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Upsert implements domain.Upserter: update by email when the contact
// exists, create it otherwise.
func (c *Client) Upsert(ctx context.Context, contact domain.Contact) (domain.UpsertResult, error) {
	if contact.Email == "" {
		return domain.UpsertResult{Skipped: true, Reason: "missing email"}, nil
	}

	props := contact.Props()

	id, err := c.FindByEmail(ctx, contact.Email)
	if err != nil {
		return domain.UpsertResult{}, err
	}

	if id != "" {
		if err := c.Update(ctx, id, props); err != nil {
			return domain.UpsertResult{}, err
		}
		return domain.UpsertResult{Updated: true, ID: id}, nil
	}

	newID, err := c.Create(ctx, props)
	if err != nil {
		return domain.UpsertResult{}, err
	}
	return domain.UpsertResult{Created: true, ID: newID}, nil
}

func upstreamError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrSnippet))
	return fmt.Errorf("%w: %s: status %d: %s", ErrUpstream, op, resp.StatusCode, bytes.TrimSpace(body))
}
