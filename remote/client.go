// Package remote implements the HTTP clients for the two remote search
// endpoint families. Backend payloads are decoded into search.MemoryItem at
// this boundary; anything that fails decoding is dropped with a logged
// warning rather than propagated.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/pkeller/memsearch/search"
)

// Client holds the HTTP plumbing shared by both endpoint families.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     zerolog.Logger
}

// NewClient creates a backend client. Per-call deadlines come from the
// caller's context, so the underlying http.Client carries no timeout of its
// own.
func NewClient(baseURL, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger.With().Str("component", "remoteClient").Logger(),
	}
}

// wireItem is the backend's result shape. Fields beyond these are ignored.
type wireItem struct {
	ID                string   `json:"id"`
	OwnerID           string   `json:"owner_id"`
	Type              string   `json:"type"`
	Title             string   `json:"title"`
	Summary           string   `json:"summary"`
	Tags              []string `json:"tags"`
	Category          string   `json:"category"`
	Timestamp         string   `json:"timestamp"` // RFC3339, may be empty
	Outcome           string   `json:"outcome"`
	SatisfactionScore *float64 `json:"satisfaction_score"`
	ContainerTag      string   `json:"container_tag"`
	Score             float64  `json:"score"`
}

// postSearch issues one search call and decodes the results. 4xx responses
// are wrapped with backoff.Permanent so the fetcher's retry loop stops;
// network errors and 5xx responses stay retryable.
func (c *Client) postSearch(ctx context.Context, path string, payload interface{}) ([]search.MemoryItem, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("remote: marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("remote: create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Body close error can be ignored

	if resp.StatusCode >= 400 {
		var apiErr map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)

		if resp.StatusCode < 500 {
			return nil, backoff.Permanent(fmt.Errorf("remote: API error %s: %v", resp.Status, apiErr))
		}
		c.logger.Warn().Str("status", resp.Status).Str("path", path).Msg("Server error from search backend")
		return nil, fmt.Errorf("remote: server error %s: %v", resp.Status, apiErr)
	}

	var searchResp struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("remote: decode response: %w", err)
	}

	items := make([]search.MemoryItem, 0, len(searchResp.Results))
	dropped := 0
	for _, raw := range searchResp.Results {
		item, err := decodeItem(raw)
		if err != nil {
			dropped++
			c.logger.Warn().Err(err).Str("path", path).Msg("Dropping undecodable backend result")
			continue
		}
		items = append(items, item)
	}
	if dropped > 0 {
		c.logger.Warn().Int("dropped", dropped).Int("kept", len(items)).Str("path", path).Msg("Backend returned undecodable results")
	}
	return items, nil
}

func decodeItem(raw json.RawMessage) (search.MemoryItem, error) {
	var w wireItem
	if err := json.Unmarshal(raw, &w); err != nil {
		return search.MemoryItem{}, fmt.Errorf("unmarshal result: %w", err)
	}
	if w.ID == "" {
		return search.MemoryItem{}, fmt.Errorf("result has no id")
	}

	typ := search.ContentType(w.Type)
	switch typ {
	case search.TypeConversation, search.TypePattern, search.TypeDocument:
	default:
		return search.MemoryItem{}, fmt.Errorf("result %s has unknown type %q", w.ID, w.Type)
	}

	var ts time.Time
	if w.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, w.Timestamp)
		if err != nil {
			return search.MemoryItem{}, fmt.Errorf("result %s has bad timestamp %q: %w", w.ID, w.Timestamp, err)
		}
		ts = parsed
	}

	return search.MemoryItem{
		ID:           w.ID,
		OwnerID:      w.OwnerID,
		Type:         typ,
		ContainerTag: w.ContainerTag,
		VectorScore:  w.Score,
		Fields: search.Fields{
			Title:             w.Title,
			Summary:           w.Summary,
			Tags:              w.Tags,
			Category:          w.Category,
			Timestamp:         ts,
			Outcome:           w.Outcome,
			SatisfactionScore: w.SatisfactionScore,
		},
	}, nil
}
