package remote

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pkeller/memsearch/search"
)

const memorySearchPath = "/v1/memories/search"

// MemoryOptions configures the memory endpoint family, which searches short
// structured records with a single similarity threshold.
type MemoryOptions struct {
	MinScore float64
	Rerank   bool
}

// MemoryClient implements search.CandidateSource over the memory family.
type MemoryClient struct {
	client *Client
	opts   MemoryOptions
}

// NewMemoryClient creates a memory family source.
func NewMemoryClient(baseURL, apiKey string, opts MemoryOptions, logger zerolog.Logger) *MemoryClient {
	return &MemoryClient{
		client: NewClient(baseURL, apiKey, logger.With().Str("family", "memory").Logger()),
		opts:   opts,
	}
}

// Family identifies this source's endpoint family.
func (m *MemoryClient) Family() search.Family {
	return search.FamilyMemory
}

// FetchCandidates runs one memory search with limit as the over-fetch window.
func (m *MemoryClient) FetchCandidates(ctx context.Context, q *search.Query, limit int) ([]search.MemoryItem, error) {
	payload := map[string]interface{}{
		"query":     q.RawText,
		"limit":     limit,
		"min_score": m.opts.MinScore,
		"rerank":    m.opts.Rerank,
	}
	if q.ContainerTag != "" {
		payload["container_tag"] = q.ContainerTag
	}
	return m.client.postSearch(ctx, memorySearchPath, payload)
}
