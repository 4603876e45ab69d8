// Package backend provides a client for the exposure-notification
// backend API.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/jellelicht/exposure-agent/internal/model"
)

// Client defines the backend operations consumed by the processing core.
type Client interface {
	// GetManifest fetches the current manifest.
	GetManifest(ctx context.Context) (*model.Manifest, error)
	// GetExposureKeySet streams the raw key set file for the given id.
	// The caller owns the returned body and must close it.
	GetExposureKeySet(ctx context.Context, id string) (io.ReadCloser, error)
	// GetRiskCalculationParameters fetches the scoring configuration
	// referenced by the manifest.
	GetRiskCalculationParameters(ctx context.Context, id string) (*model.RiskCalculationParameters, error)
	// GetAppConfig fetches the app config referenced by the manifest.
	GetAppConfig(ctx context.Context, id string) (*model.AppConfig, error)
}

// Option configures the backend client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL:   baseURL,
		userAgent: "exposure-agent/1.0",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes a GET with exponential backoff on transient failures
// (429, 500, 502, 503). Returns the open response on success; the
// caller closes the body.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) (*http.Response, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "backend: rate limiter wait")
		}

		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
		} else if retryableStatusCode(resp.StatusCode) {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("backend: status %d from %s", resp.StatusCode, req.URL.Path)
		} else {
			return resp, nil
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return nil, lastErr
}

func (c *httpClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, eris.Wrap(err, "backend: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "backend: GET %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("backend: unexpected status %d from %s", resp.StatusCode, path)
	}
	return resp, nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrapf(err, "backend: decode %s", path)
	}
	return nil
}

func (c *httpClient) GetManifest(ctx context.Context) (*model.Manifest, error) {
	var m model.Manifest
	if err := c.getJSON(ctx, "/v1/manifest", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *httpClient) GetExposureKeySet(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/v1/exposurekeyset/%s", id))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *httpClient) GetRiskCalculationParameters(ctx context.Context, id string) (*model.RiskCalculationParameters, error) {
	var p model.RiskCalculationParameters
	if err := c.getJSON(ctx, fmt.Sprintf("/v1/riskcalculationparameters/%s", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *httpClient) GetAppConfig(ctx context.Context, id string) (*model.AppConfig, error) {
	var cfg model.AppConfig
	if err := c.getJSON(ctx, fmt.Sprintf("/v1/appconfig/%s", id), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
