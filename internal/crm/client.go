package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-quotes/internal/obs"
	"github.com/noah-isme/backend-quotes/internal/resilience"
)

// Client talks to the CRM REST API: the product catalog on the read side and
// the deal record store (properties + line-item associations) on the write
// side. All calls go through the resilience wrapper.
type Client struct {
	baseURL string
	token   string
	http    *resilience.HTTPClient
	logger  zerolog.Logger
}

// ClientConfig groups Client dependencies.
type ClientConfig struct {
	BaseURL     string
	AccessToken string
	HTTP        *resilience.HTTPClient
	Logger      zerolog.Logger
}

// NewClient constructs a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("crm: base url is required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("crm: access token is required")
	}
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &resilience.HTTPClient{Client: &http.Client{Timeout: 10 * time.Second}}
	}
	return &Client{
		baseURL: base,
		token:   cfg.AccessToken,
		http:    httpClient,
		logger:  cfg.Logger,
	}, nil
}

// do performs one API call, decoding the JSON response into out when non-nil.
// Non-2xx responses surface as errors carrying the status and a body snippet.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("crm: encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("crm: build %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	c.observe(operation, start, err == nil && resp != nil && resp.StatusCode < 400)
	if err != nil {
		return fmt.Errorf("crm: %s: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(snippet))).
			Msg("crm_request_failed")
		return fmt.Errorf("crm: %s: status %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("crm: decode %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) observe(operation string, start time.Time, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	if obs.CRMRequestTotal != nil {
		obs.CRMRequestTotal.WithLabelValues(operation, result).Inc()
	}
	if obs.CRMRequestLatency != nil {
		obs.CRMRequestLatency.WithLabelValues(operation).Observe(obs.DurationMillis(time.Since(start)))
	}
}

// Ping performs a minimal authenticated call used by readiness probes.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var out struct {
		Results []json.RawMessage `json:"results"`
	}
	return c.do(ctx, "ping", http.MethodGet, "/crm/v3/objects/products?limit=1&properties=name", nil, &out)
}
