package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/rescale/witdl/internal/config"
	"github.com/rescale/witdl/internal/constants"
	"github.com/rescale/witdl/internal/http"
	"github.com/rescale/witdl/internal/models"
	"github.com/rescale/witdl/internal/version"
)

// maxErrorBody bounds how much of an error response is kept in StatusError.
const maxErrorBody = 4 << 10

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct{}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Error().Fields(keysAndValues).Msg("[RETRY] " + msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings, not all info
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("[RETRY] " + msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	log.Warn().Fields(keysAndValues).Msg("[RETRY] " + msg)
}

// Option customizes a Client.
type Option func(*clientOptions)

type clientOptions struct {
	warmupURL string
}

// WithWarmupURL sets the URL requested once through the proxy when proxy
// warmup is enabled in the config.
func WithWarmupURL(u string) Option {
	return func(o *clientOptions) { o.warmupURL = u }
}

// Client talks to the work-tracking REST API with a personal access token.
type Client struct {
	httpClient     *nethttp.Client
	authHeader     string
	apiVersion     string
	requestTimeout time.Duration
}

// NewClient creates a new API client
func NewClient(cfg *config.Config, token string, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("personal access token is empty")
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	baseClient, err := http.CreateOptimizedClient(cfg, o.warmupURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	// Wrap with retry logic
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = baseClient
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = constants.RetryWaitMin
	retryClient.RetryWaitMax = constants.RetryWaitMax
	retryClient.Logger = &retryLogger{}
	// Hand the last response back so the status code reaches StatusError.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = constants.DefaultAPIVersion
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}

	return &Client{
		httpClient:     retryClient.StandardClient(),
		authHeader:     "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+token)),
		apiVersion:     apiVersion,
		requestTimeout: timeout,
	}, nil
}

// Authorize verifies the token against serverURL (an organization or
// collection URL) and returns a connection bound to it.
func (c *Client) Authorize(ctx context.Context, serverURL string) (*Connection, error) {
	base, err := normalizeServerURL(serverURL)
	if err != nil {
		return nil, err
	}
	conn := &Connection{client: c, baseURL: base}

	var data models.ConnectionData
	resp, err := conn.getMetadata(ctx, "connection data", "/_apis/connectionData", nil, &data)
	if err != nil {
		return nil, err
	}
	// A 203 is the sign-in page served for rejected credentials.
	if resp.StatusCode == nethttp.StatusNonAuthoritativeInfo {
		return nil, &StatusError{Op: "connection data", StatusCode: resp.StatusCode}
	}

	user := data.AuthenticatedUser
	if user == nil || user.ID == "" || user.ID == constants.AnonymousIdentityID {
		return nil, fmt.Errorf("%w: service did not accept the token as an identity", ErrUnauthorized)
	}
	conn.User = user

	log.Debug().
		Str("server", base).
		Str("user", user.ProviderDisplayName).
		Str("instance", data.InstanceID).
		Msg("Authorized")
	return conn, nil
}

// Connection is an authorized session with one server.
type Connection struct {
	client  *Client
	baseURL string

	// User is the authenticated identity.
	User *models.Identity
}

// BaseURL returns the normalized server URL.
func (c *Connection) BaseURL() string {
	return c.baseURL
}

// QueryByID runs a saved query. A 204 or an empty body yields a nil result.
func (c *Connection) QueryByID(ctx context.Context, queryID string) (models.QueryResult, error) {
	path := "/_apis/wit/wiql/" + url.PathEscape(queryID)

	var wiql *models.WiqlResult
	resp, err := c.getMetadata(ctx, "query "+queryID, path, nil, &wiql)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == nethttp.StatusNoContent || wiql == nil {
		return nil, nil
	}
	return wiql.QueryResult(), nil
}

// GetWorkItem fetches a work item with its relations expanded.
func (c *Connection) GetWorkItem(ctx context.Context, id int) (*models.WorkItem, error) {
	path := "/_apis/wit/workitems/" + strconv.Itoa(id)
	query := url.Values{"$expand": []string{"relations"}}

	var item *models.WorkItem
	if _, err := c.getMetadata(ctx, fmt.Sprintf("work item %d", id), path, query, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetAttachmentContent opens the content stream of an attachment. The
// caller must close it. The stream is bounded only by ctx.
func (c *Connection) GetAttachmentContent(ctx context.Context, attachmentID string) (io.ReadCloser, error) {
	path := "/_apis/wit/attachments/" + url.PathEscape(attachmentID)
	query := url.Values{"download": []string{"true"}}

	resp, err := c.do(ctx, path, query, "application/octet-stream")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != nethttp.StatusOK {
		defer resp.Body.Close()
		return nil, newStatusError("attachment "+attachmentID, resp)
	}
	return resp.Body, nil
}

// getMetadata issues a JSON GET bounded by the configured request timeout
// and decodes the body into out. An empty body leaves out untouched.
func (c *Connection) getMetadata(ctx context.Context, op, path string, query url.Values, out interface{}) (*nethttp.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.client.requestTimeout)
	defer cancel()

	resp, err := c.do(ctx, path, query, "application/json")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(op, resp)
	}
	if resp.StatusCode == nethttp.StatusNoContent || resp.StatusCode == nethttp.StatusNonAuthoritativeInfo {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return resp, nil
}

// do performs an authenticated GET with the api-version parameter.
func (c *Connection) do(ctx context.Context, path string, query url.Values, accept string) (*nethttp.Response, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.client.apiVersion)

	reqURL := c.baseURL + path + "?" + query.Encode()
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.client.authHeader)
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "witdl/"+version.Version)

	resp, err := c.client.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", reqURL).Msg("API call failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode == nethttp.StatusTooManyRequests {
		log.Warn().
			Str("path", path).
			Str("retry_after", resp.Header.Get("Retry-After")).
			Msg("Throttled by the service")
	}
	return resp, nil
}

// normalizeServerURL validates an organization/collection URL and trims
// trailing slashes.
func normalizeServerURL(serverURL string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if trimmed == "" {
		return "", fmt.Errorf("server URL is empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid server URL %q: scheme must be http or https", serverURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", serverURL)
	}
	return trimmed, nil
}
