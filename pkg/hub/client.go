package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/llmhub/pkg/api"
	"github.com/rhuss/llmhub/pkg/credentials"
	"github.com/rhuss/llmhub/pkg/debug"
	"github.com/rhuss/llmhub/pkg/observability"
)

const (
	contentTypeJSON  = "application/json"
	defaultUserAgent = "llmhub/1.0"
	defaultTimeout   = 120 * time.Second
)

// Request describes one call to the hub.
type Request struct {
	// Method is the HTTP method, e.g. http.MethodGet.
	Method string

	// URL is the endpoint path, resolved against BaseURL. An absolute
	// URL is used as-is.
	URL string

	// BaseURL overrides the credentials' base URL when set.
	BaseURL string

	// Body is JSON-encoded when non-nil.
	Body any
}

// AuthenticatedClient performs authenticated calls against the hub and
// returns the decoded JSON response body.
type AuthenticatedClient interface {
	Do(ctx context.Context, creds *credentials.Credentials, req Request) (any, error)
}

// Config holds configuration for the hub client.
type Config struct {
	// Timeout for individual HTTP requests. Defaults to 120s.
	Timeout time.Duration

	// UserAgent sent with every request. Defaults to "llmhub/1.0".
	UserAgent string

	// Transport overrides the default tuned transport (useful for testing).
	Transport http.RoundTripper
}

// Client is the production AuthenticatedClient. It sends the credentials'
// API key as a bearer token plus any extra headers configured on them.
//
// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// Ensure Client implements AuthenticatedClient at compile time.
var _ AuthenticatedClient = (*Client)(nil)

// NewClient creates a Client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Transport == nil {
		cfg.Transport = newTransport()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		userAgent: cfg.UserAgent,
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Do sends req authenticated with creds and decodes the JSON response.
// Numbers are decoded as json.Number so the value round-trips unchanged.
func (c *Client) Do(ctx context.Context, creds *credentials.Credentials, req Request) (any, error) {
	baseURL := req.BaseURL
	if baseURL == "" {
		baseURL = creds.BaseURLOrDefault()
	}
	url := ResolveURL(baseURL, req.URL)
	operation := OperationLabel(req.URL)

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
		}
		body = bytes.NewReader(data)
		debug.Log("hub", "request body", "operation", operation, "bytes", len(data))
		debug.Raw("hub", string(data))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", c.userAgent)
	if creds != nil {
		if creds.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+creds.APIKey)
		}
		for k, v := range creds.Headers {
			httpReq.Header.Set(k, v)
		}
	}

	debug.Log("hub", "request", "method", req.Method, "url", url)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	observability.HubLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.HubRequestsTotal.WithLabelValues(operation, "network_error").Inc()
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	debug.Log("hub", "response", "method", req.Method, "url", url, "status", httpResp.StatusCode)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		observability.HubRequestsTotal.WithLabelValues(operation, statusClass(httpResp.StatusCode)).Inc()
		return nil, MapHTTPError(httpResp)
	}

	payload, err := decodeBody(httpResp.Body)
	if err != nil {
		observability.HubRequestsTotal.WithLabelValues(operation, "decode_error").Inc()
		return nil, err
	}

	observability.HubRequestsTotal.WithLabelValues(operation, "ok").Inc()
	return payload, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func decodeBody(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to read hub response: %s", err.Error()))
	}
	debug.Raw("hub", string(data))

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, api.NewServerError("hub returned an empty response body")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse hub response: %s", err.Error()))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, api.NewServerError("failed to parse hub response: trailing data after JSON value")
	}
	return payload, nil
}

// ResolveURL joins path onto baseURL the way a relative request URL is
// resolved against a base: exactly one slash between them. Absolute URLs
// are returned unchanged.
func ResolveURL(baseURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// OperationLabel names the hub operation for metrics.
func OperationLabel(path string) string {
	switch strings.Trim(path, "/") {
	case "models":
		return "list_models"
	case "chat/completions":
		return "chat_completion"
	default:
		return "other"
	}
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
