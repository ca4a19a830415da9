package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/kantharos-net/LinkedinAutoPost/internal/config"
)

const (
	maxRetries     = 3
	initialBackoff = time.Second
	maxBackoff     = 5 * time.Second
	maxJitter      = 200 * time.Millisecond
	requestTimeout = 30 * time.Second
)

// retryStatuses are the transiently-retryable upstream responses: rate
// limiting plus the common gateway failure codes.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// SettingsProvider yields the current settings. The client reads it fresh on
// every call so configuration changes apply to all subsequent requests.
type SettingsProvider interface {
	Settings() config.Settings
}

// Client is the stateless request layer against the remote publishing
// service: it builds requests from the configured base URL, attaches the
// bearer credential, retries transient failures with backoff, and normalizes
// errors.
type Client struct {
	settings     SettingsProvider
	httpClient   *http.Client
	streamClient *http.Client
	backoff      func(attempt int) time.Duration
}

// NewClient creates a Client reading its configuration from the given
// provider.
func NewClient(settings SettingsProvider) *Client {
	return &Client{
		settings: settings,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		// The log stream is long-lived; no client-level timeout.
		streamClient: &http.Client{},
		backoff:      defaultBackoff,
	}
}

// defaultBackoff doubles per attempt with a bounded random component, capped
// at maxBackoff.
func defaultBackoff(attempt int) time.Duration {
	d := initialBackoff<<attempt + time.Duration(rand.Int63n(int64(maxJitter)))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// GenerateRequest is the body for POST /makePostContent.
type GenerateRequest struct {
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

// PublishRequest is the body for POST /postPost.
type PublishRequest struct {
	Text string `json:"text"`
}

// PublishResponse is the JSON returned by POST /postPost.
type PublishResponse struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text,omitempty"`
}

// Health probes the service root and returns its response text.
func (c *Client) Health(ctx context.Context) (string, error) {
	body, _, err := c.do(ctx, http.MethodGet, "/", nil, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// GeneratePostContent asks the remote service to synthesize post content.
// The upstream replies with either a bare string (JSON or plain text) or a
// JSON object carrying a content field; an empty result is an error.
func (c *Client) GeneratePostContent(ctx context.Context, req GenerateRequest) (string, error) {
	body, contentType, err := c.do(ctx, http.MethodPost, "/makePostContent", req, nil)
	if err != nil {
		return "", err
	}

	content := string(body)
	if isJSONContentType(contentType) {
		var s string
		if jsonErr := json.Unmarshal(body, &s); jsonErr == nil {
			content = s
		} else {
			var env struct {
				Content string `json:"content"`
			}
			if json.Unmarshal(body, &env) == nil && env.Content != "" {
				content = env.Content
			}
		}
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("generate: remote returned empty content")
	}
	return content, nil
}

// PublishPost submits the post text for publishing and returns the remote
// response.
func (c *Client) PublishPost(ctx context.Context, req PublishRequest) (*PublishResponse, error) {
	body, _, err := c.do(ctx, http.MethodPost, "/postPost", req, nil)
	if err != nil {
		return nil, err
	}

	var resp PublishResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("publish: invalid response body: %w", err)
	}
	return &resp, nil
}

// do performs one logical request with the retry/backoff policy. It returns
// the response body and content type on success, a *APIError on HTTP
// failure, and a wrapped transport error when no response arrived at all
// (transport failures are not retried).
func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string) ([]byte, string, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("marshalling request: %w", err)
		}
	}

	url := c.buildURL(path)

	var lastErr *APIError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, "", fmt.Errorf("creating request: %w", err)
		}
		c.setHeaders(req, headers)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("executing request: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			respBody, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, "", fmt.Errorf("reading response body: %w", err)
			}
			return respBody, resp.Header.Get("Content-Type"), nil
		}

		apiErr := normalizeErrorResponse(resp)
		resp.Body.Close()

		if !retryStatuses[resp.StatusCode] || attempt == maxRetries {
			return nil, "", apiErr
		}
		lastErr = apiErr

		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}

	return nil, "", lastErr
}

// buildURL joins the configured base URL (trailing slash stripped, read
// fresh on every call) with the path (leading slash enforced).
func (c *Client) buildURL(path string) string {
	base := strings.TrimRight(c.settings.Settings().APIBaseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// setHeaders applies the default headers, then caller-supplied overrides.
func (c *Client) setHeaders(req *http.Request, headers map[string]string) {
	req.Header.Set("Content-Type", "application/json")
	if token := c.settings.Settings().APIToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

func isJSONContentType(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}
