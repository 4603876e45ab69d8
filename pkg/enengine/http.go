package enengine

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// HTTPEngine talks to a platform exposure service over a local HTTP
// endpoint. The service runs on the same host; files are passed by
// path, not uploaded.
type HTTPEngine struct {
	baseURL string
	http    *http.Client
}

// HTTPOption configures the HTTP engine client.
type HTTPOption func(*HTTPEngine)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(e *HTTPEngine) {
		e.http = hc
	}
}

// NewHTTP creates an engine client for the given local service URL.
func NewHTTP(baseURL string, opts ...HTTPOption) *HTTPEngine {
	e := &HTTPEngine{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enabled queries the service status endpoint. Any failure to reach the
// service counts as disabled.
func (e *HTTPEngine) Enabled(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/status", nil)
	if err != nil {
		return false
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var status struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false
	}
	return status.Enabled
}

type provideRequest struct {
	Files  []string `json:"files"`
	Config Config   `json:"configuration"`
	Token  string   `json:"token"`
}

func (e *HTTPEngine) ProvideDiagnosisKeys(ctx context.Context, files []string, cfg Config, token string) error {
	payload, err := json.Marshal(provideRequest{Files: files, Config: cfg, Token: token})
	if err != nil {
		return eris.Wrap(err, "enengine: marshal provide request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/diagnosiskeys", bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "enengine: create provide request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "enengine: provide diagnosis keys")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		var detail struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		return eris.Errorf("enengine: provide diagnosis keys: status %d: %s", resp.StatusCode, detail.Error)
	}
	return nil
}

func (e *HTTPEngine) GetSummary(ctx context.Context, token string) (*Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/summary/"+token, nil)
	if err != nil {
		return nil, eris.Wrap(err, "enengine: create summary request")
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "enengine: get summary")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("enengine: get summary: status %d", resp.StatusCode)
	}

	var summary Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, eris.Wrap(err, "enengine: decode summary")
	}
	return &summary, nil
}
