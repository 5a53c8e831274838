package klaviyo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public Klaviyo REST API root.
const DefaultBaseURL = "https://a.klaviyo.com/api"

// DefaultRevision pins the API schema version sent on every request.
const DefaultRevision = "2024-10-15"

// HTTPDoer is the interface for executing HTTP requests.
// *http.Client satisfies it; tests substitute their own.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds Klaviyo API client configuration.
type Config struct {
	BaseURL  string
	Revision string
	Timeout  time.Duration
}

// Client is a Klaviyo API client bound to a single caller-supplied private
// API key. The key is forwarded verbatim on every request and never stored
// anywhere else.
type Client struct {
	baseURL    string
	revision   string
	apiKey     string
	httpClient HTTPDoer
}

// APIError is a non-2xx response from the Klaviyo API. Detail carries the
// platform's own error message when the error envelope could be parsed.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("klaviyo API error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("klaviyo API error (status %d)", e.StatusCode)
}

// PermissionDenied reports whether the platform rejected the API key's
// scopes rather than the request itself.
func (e *APIError) PermissionDenied() bool { return e.StatusCode == http.StatusForbidden }

// NewClient creates a Klaviyo API client for the given private API key.
func NewClient(cfg Config, apiKey string) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	revision := cfg.Revision
	if revision == "" {
		revision = DefaultRevision
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		revision:   revision,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client HTTPDoer) {
	c.httpClient = client
}

// doRequest performs an authenticated request against the Klaviyo API.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Klaviyo-API-Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("revision", c.revision)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope errorResponse
		if json.Unmarshal(respBody, &envelope) == nil && len(envelope.Errors) > 0 {
			apiErr.Detail = envelope.Errors[0].Detail
		}
		return nil, apiErr
	}

	return respBody, nil
}

// ListMetrics retrieves the full metric catalog for the account.
func (c *Client) ListMetrics(ctx context.Context) ([]Metric, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/metrics/", nil)
	if err != nil {
		return nil, err
	}

	var response metricListResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse metrics response: %w", err)
	}

	metrics := make([]Metric, 0, len(response.Data))
	for _, m := range response.Data {
		metrics = append(metrics, Metric{ID: m.ID, Name: m.Attributes.Name})
	}
	return metrics, nil
}

// CreateSegment creates a segment with the given name and definition.
// The returned segment's ProfileCount is not meaningful yet: membership is
// materialized asynchronously by the platform.
func (c *Client) CreateSegment(ctx context.Context, name string, def SegmentDefinition) (*Segment, error) {
	payload := segmentCreateRequest{
		Data: segmentData{
			Type: "segment",
			Attributes: segmentAttributes{
				Name:       name,
				Definition: &def,
			},
		},
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/segments/", payload)
	if err != nil {
		return nil, err
	}

	var response segmentDetailResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse segment response: %w", err)
	}
	if response.Data.ID == "" {
		return nil, fmt.Errorf("segment created but no ID returned")
	}

	return &Segment{
		ID:           response.Data.ID,
		Name:         response.Data.Attributes.Name,
		ProfileCount: response.Data.Attributes.ProfilesCount,
	}, nil
}

// GetSegment retrieves a segment including its profile count.
func (c *Client) GetSegment(ctx context.Context, segmentID string) (*Segment, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/segments/%s/", segmentID), nil)
	if err != nil {
		return nil, err
	}

	var response segmentDetailResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse segment response: %w", err)
	}

	return &Segment{
		ID:           response.Data.ID,
		Name:         response.Data.Attributes.Name,
		ProfileCount: response.Data.Attributes.ProfilesCount,
	}, nil
}

// DeleteSegment deletes a segment.
func (c *Client) DeleteSegment(ctx context.Context, segmentID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/segments/%s/", segmentID), nil)
	if err != nil {
		return fmt.Errorf("failed to delete segment %s: %w", segmentID, err)
	}
	return nil
}

// FirstProfilesPage returns the endpoint for the first membership page of a
// segment at the given page size. Subsequent pages come from
// ProfilePage.NextPage.
func FirstProfilesPage(segmentID string, pageSize int) string {
	return fmt.Sprintf("/segments/%s/profiles/?page[size]=%d", segmentID, pageSize)
}

// GetSegmentProfiles retrieves one page of segment members. pageURL is an
// API-relative endpoint; absolute cursor links from a previous page are
// normalized back to a relative path.
func (c *Client) GetSegmentProfiles(ctx context.Context, pageURL string) (*ProfilePage, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, c.relativePath(pageURL), nil)
	if err != nil {
		return nil, err
	}

	var response profileListResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse profiles response: %w", err)
	}

	page := &ProfilePage{
		Profiles: make([]Profile, 0, len(response.Data)),
		NextPage: response.Links.Next,
	}
	for _, p := range response.Data {
		page.Profiles = append(page.Profiles, Profile{
			ID:      p.ID,
			Email:   p.Attributes.Email,
			Phone:   p.Attributes.PhoneNumber,
			Created: p.Attributes.Created,
			Updated: p.Attributes.Updated,
		})
	}
	return page, nil
}

// relativePath strips the configured base URL from cursor links so they can
// be passed back through doRequest.
func (c *Client) relativePath(pageURL string) string {
	return strings.TrimPrefix(pageURL, c.baseURL)
}
