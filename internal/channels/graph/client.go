// Package graph provides a minimal Facebook Graph API client shared by the
// facebook and instagram publishers.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the versioned Graph API root.
	DefaultBaseURL   = "https://graph.facebook.com/v20.0"
	defaultTimeout   = 15 * time.Second
	defaultRateLimit = 2.0 // requests per second
	maxErrorBody     = 4 << 10
)

// Config holds Graph API client configuration.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	RateLimit   float64 // requests per second, 0 uses the default
}

// Client issues authenticated Graph API requests.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a Graph API client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit == 0 {
		config.RateLimit = defaultRateLimit
	}

	return &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		accessToken: config.AccessToken,
		httpClient:  &http.Client{Timeout: config.Timeout},
		limiter:     rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// APIError is an error reported by the Graph API or by the transport.
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("graph api error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("graph api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("graph api error: %s", e.Message)
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// URL returns the absolute URL of a Graph API path such as "{page-id}/photos".
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Get performs a GET on path with query params and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path)+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

// PostJSON posts body to endpoint as JSON and decodes the response into out.
// The access token is added to body under "access_token". An endpoint that is
// not absolute is resolved against the base URL.
func (c *Client) PostJSON(ctx context.Context, endpoint string, body map[string]string, out any) error {
	payload := make(map[string]string, len(body)+1)
	for k, v := range body {
		payload[k] = v
	}
	payload["access_token"] = c.accessToken

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = c.URL(endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("send request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Type = envelope.Error.Type
		apiErr.Message = envelope.Error.Message
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
