package wp

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/ajitpratap0/wpbridge/pkg/config"
	"github.com/ajitpratap0/wpbridge/pkg/errors"
)

// apiNamespace is the WordPress REST namespace all collection paths live under.
const apiNamespace = "/wp/v2"

// Response carries one API response body plus the pagination metadata
// WordPress reports through headers.
type Response struct {
	// Body is the raw response body; nil when the API denied authorization
	Body []byte
	// Total is the X-WP-Total header value (total items in the collection)
	Total int
	// TotalPages is the X-WP-TotalPages header value
	TotalPages int
	// Denied is set when the API answered 401/403
	Denied bool
}

// Client executes GET requests against one WordPress site.
// Authorization failures are classified as "no content available" rather
// than fatal; only transport-level failures and unexpected statuses are
// surfaced as errors.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a transport for the configured site.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeouts.Connection,
			KeepAlive: cfg.Timeouts.Connection,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     cfg.Timeouts.Idle,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		logger.Warn("failed to configure HTTP/2", zap.Error(err))
	}

	base := strings.TrimSuffix(cfg.WordPress.BaseURL, "/") + cfg.WordPress.APIPrefix + apiNamespace

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   cfg.Timeouts.Request,
			Transport: transport,
		},
		logger: logger.With(zap.String("component", "wp_client")),
	}
}

// Get executes one GET against {base}{apiPrefix}/wp/v2/{path}.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	fullURL := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create request").
			WithDetail("path", path)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "wpbridge/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "request failed").
			WithDetail("path", path)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		// The API answered but withholds content; treat as empty.
		c.logger.Debug("authorization denied, returning empty result",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &Response{Denied: true}, nil
	case http.StatusOK:
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Newf(errors.ErrorTypeConnection, "unexpected status %d for %s", resp.StatusCode, path).
			WithDetail("path", path).
			WithDetail("status", resp.StatusCode).
			WithDetail("payload_preview", string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read response body").
			WithDetail("path", path)
	}

	return &Response{
		Body:       body,
		Total:      headerInt(resp.Header, "X-WP-Total"),
		TotalPages: headerInt(resp.Header, "X-WP-TotalPages"),
	}, nil
}

// GetJSON executes a GET and decodes the body into v. An authorization
// denial leaves v untouched and returns without error.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, v interface{}) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if resp.Denied || len(resp.Body) == 0 {
		return nil
	}
	if err := gojson.Unmarshal(resp.Body, v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to decode response").
			WithDetail("path", path).
			WithDetail("payload_preview", preview(resp.Body, 256))
	}
	return nil
}

func headerInt(h http.Header, name string) int {
	v, err := strconv.Atoi(h.Get(name))
	if err != nil {
		return 0
	}
	return v
}
