package compass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is the public Compass API endpoint.
const DefaultBaseURL = "https://api.compasslabs.ai"

// HTTPDoer abstracts HTTP clients used by the Compass client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the Compass REST API.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    HTTPDoer
}

// APIError is a non-2xx response from the Compass API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (err *APIError) Error() string {
	body := strings.TrimSpace(err.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("compass %s %s: status %d: %s", err.Method, err.Path, err.StatusCode, body)
}

// NewClient builds a client. An empty base URL selects DefaultBaseURL.
func NewClient(baseURL, apiKey string, httpClient HTTPDoer) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("compass api key is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid compass base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{BaseURL: baseURL, APIKey: apiKey, HTTP: httpClient}, nil
}

// ClientFromEnv reads COMPASS_API_KEY and, when set, COMPASS_BASE_URL.
// baseURL is used when the environment does not override it.
func ClientFromEnv(baseURL string, httpClient HTTPDoer) (*Client, error) {
	if override := strings.TrimSpace(os.Getenv("COMPASS_BASE_URL")); override != "" {
		baseURL = override
	}
	apiKey := strings.TrimSpace(os.Getenv("COMPASS_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("COMPASS_API_KEY is required")
	}
	return NewClient(baseURL, apiKey, httpClient)
}

// Get issues a GET request and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req, path)
}

// Post issues a POST request with a JSON body and returns the raw JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) (json.RawMessage, error) {
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compass %s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read compass response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Method: req.Method, Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("compass %s %s: response is not JSON", req.Method, path)
	}
	return body, nil
}
