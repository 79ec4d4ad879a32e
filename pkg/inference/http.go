package inference

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
)

// HTTPOption configures HTTP-backed pipelines.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	client  *http.Client
	apiKey  string
	timeout time.Duration
}

// WithHTTPClient injects a custom HTTP client. Nil keeps the default.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(cfg *httpConfig) {
		if client != nil {
			cfg.client = client
		}
	}
}

// WithAPIKey sets a bearer token sent on every request.
func WithAPIKey(key string) HTTPOption {
	return func(cfg *httpConfig) {
		cfg.apiKey = strings.TrimSpace(key)
	}
}

// WithRequestTimeout caps each HTTP call. Zero leaves calls bounded only by
// the caller's context.
func WithRequestTimeout(timeout time.Duration) HTTPOption {
	return func(cfg *httpConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

func newHTTPConfig(options ...HTTPOption) httpConfig {
	cfg := httpConfig{client: http.DefaultClient}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}

// StatusError reports a non-2xx response from a backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("inference: unexpected status %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("inference: unexpected status %d: %s", e.Code, e.Message)
}

// StatusCode returns the HTTP status of the failed call.
func (e *StatusError) StatusCode() int { return e.Code }

func (cfg httpConfig) post(ctx context.Context, url string, payload any) (*http.Response, context.CancelFunc, error) {
	if url == "" {
		return nil, nil, errors.New("inference: endpoint is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("inference: encode request: %w", err)
	}

	reqCtx := ctx
	cancel := context.CancelFunc(func() {})
	if cfg.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, cfg.timeout)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if cfg.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.apiKey)
	}

	resp, err := cfg.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() {
			_ = resp.Body.Close()
			cancel()
		}()
		return nil, nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	return resp, cancel, nil
}

func (cfg httpConfig) postJSON(ctx context.Context, url string, payload, out any) error {
	resp, cancel, err := cfg.post(ctx, url, payload)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("inference: read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("inference: decode response: %w", err)
	}
	return nil
}

func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != nil {
		return strings.TrimSpace(fmt.Sprint(payload.Error))
	}
	return strings.TrimSpace(string(data))
}

func reportProgress(fn ProgressFunc, p Progress) {
	if fn == nil {
		return
	}
	if p.Percent == 0 && p.Total > 0 {
		p.Percent = float64(p.Loaded) / float64(p.Total) * 100
	}
	fn(p)
}
