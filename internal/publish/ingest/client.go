// Package ingest implements the publisher adapter for the downstream
// ingestion API: batch entity upserts with an update-existing policy
// and per-entity failure reporting.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/seclane/pulsefeed/internal/core/domain"
	"github.com/seclane/pulsefeed/internal/core/ports/driven"
	"github.com/seclane/pulsefeed/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	bundlesPath  = "/api/v1/bundles"
	malwaresPath = "/api/v1/malwares"
)

// Ensure Client implements the port.
var _ driven.Publisher = (*Client)(nil)

// ClientConfig configures an ingest client.
type ClientConfig struct {
	BaseURL        string
	Token          string
	SourceID       string
	UpdateExisting bool
	Timeout        time.Duration
}

// Client talks to the ingestion API with bearer token auth.
type Client struct {
	baseURL        string
	sourceID       string
	updateExisting bool
	httpClient     *http.Client
}

// NewClient creates an ingest client. The bearer token is attached via
// an oauth2 static token source.
func NewClient(ctx context.Context, cfg ClientConfig) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	hc := oauth2.NewClient(ctx, ts)
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc.Timeout = cfg.Timeout

	return &Client{
		baseURL:        cfg.BaseURL,
		sourceID:       cfg.SourceID,
		updateExisting: cfg.UpdateExisting,
		httpClient:     hc,
	}
}

// bundleRequest is the wire format of a publish batch.
type bundleRequest struct {
	SourceID string          `json:"source_id"`
	Entities []domain.Entity `json:"entities"`
}

// bundleResponse carries per-entity acknowledgements.
type bundleResponse struct {
	Results []entityResult `json:"results"`
}

type entityResult struct {
	ID     string `json:"id"`
	Status string `json:"status"` // created, updated, skipped, failed
	Error  string `json:"error,omitempty"`
}

// Publish upserts a batch of entities. Entities already known
// downstream are skipped unless update-existing is configured; skipped
// acks count as success. Per-entity failures are returned as a
// *domain.PartialPublishError carrying the failed subset.
func (c *Client) Publish(ctx context.Context, batch []domain.Entity) error {
	if len(batch) == 0 {
		return nil
	}

	reqURL := fmt.Sprintf("%s%s?update_existing=%t", c.baseURL, bundlesPath, c.updateExisting)
	body, err := json.Marshal(bundleRequest{SourceID: c.sourceID, Entities: batch})
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}

	var resp bundleResponse
	if err := c.do(ctx, http.MethodPost, reqURL, body, &resp); err != nil {
		return err
	}

	byID := make(map[string]domain.Entity, len(batch))
	for _, e := range batch {
		byID[e.ID] = e
	}

	var failed []domain.Entity
	reasons := make(map[string]string)
	for _, res := range resp.Results {
		if res.Status != "failed" {
			continue
		}
		if e, ok := byID[res.ID]; ok {
			failed = append(failed, e)
			reasons[res.ID] = res.Error
		}
	}

	if len(failed) > 0 {
		return &domain.PartialPublishError{Failed: failed, Reasons: reasons}
	}

	logger.Debug("ingest: published %d entities", len(batch))
	return nil
}

// MalwareID resolves a name against the downstream malware catalogue.
func (c *Client) MalwareID(ctx context.Context, name string) (string, error) {
	reqURL := fmt.Sprintf("%s%s?name=%s", c.baseURL, malwaresPath, url.QueryEscape(name))

	var resp struct {
		Results []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, reqURL, nil, &resp); err != nil {
		return "", err
	}

	if len(resp.Results) == 0 {
		return "", domain.ErrNotFound
	}
	if len(resp.Results) > 1 {
		logger.Debug("ingest: more than one malware matches %q, using first", name)
	}
	return resp.Results[0].ID, nil
}

// do performs one request and decodes the JSON response.
func (c *Client) do(ctx context.Context, method, reqURL string, body []byte, into any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: ingest API returned %d", domain.ErrAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Message: string(msg), URL: reqURL}
	}

	if into == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// APIError represents an ingestion API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ingest: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}
