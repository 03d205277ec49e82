package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a thin HTTP client over the qdrant points API. Connections are
// safe for concurrent read-only queries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type searchHit struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Search runs one similarity search against a collection.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int, filter map[string]any) ([]searchHit, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter != nil {
		reqBody["filter"] = filter
	}

	var response struct {
		Result []searchHit `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, collection)
	if err := c.postJSON(ctx, url, reqBody, &response); err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	return response.Result, nil
}

// FetchPoints retrieves points by id, used to resolve parent chunks in the
// multi-vector scheme.
func (c *Client) FetchPoints(ctx context.Context, collection string, ids []string) ([]searchHit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"ids":          ids,
		"with_payload": true,
	}

	var response struct {
		Result []struct {
			ID      any            `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points", c.baseURL, collection)
	if err := c.postJSON(ctx, url, reqBody, &response); err != nil {
		return nil, fmt.Errorf("qdrant fetch points: %w", err)
	}

	out := make([]searchHit, 0, len(response.Result))
	for _, r := range response.Result {
		out = append(out, searchHit{ID: r.ID, Payload: r.Payload})
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, url string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
