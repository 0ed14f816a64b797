package remote

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pkeller/memsearch/search"
)

const documentSearchPath = "/v1/documents/search"

// DocumentOptions configures the document endpoint family, which searches
// ingested long-form content with independent per-document and per-chunk
// relevance thresholds.
type DocumentOptions struct {
	MinDocumentScore float64
	MinChunkScore    float64
	RewriteQuery     bool
	Rerank           bool
}

// DocumentClient implements search.CandidateSource over the document family.
type DocumentClient struct {
	client *Client
	opts   DocumentOptions
}

// NewDocumentClient creates a document family source.
func NewDocumentClient(baseURL, apiKey string, opts DocumentOptions, logger zerolog.Logger) *DocumentClient {
	return &DocumentClient{
		client: NewClient(baseURL, apiKey, logger.With().Str("family", "document").Logger()),
		opts:   opts,
	}
}

// Family identifies this source's endpoint family.
func (d *DocumentClient) Family() search.Family {
	return search.FamilyDocument
}

// FetchCandidates runs one document search. The backend has no pagination,
// so limit is the over-fetch window, not a page size.
func (d *DocumentClient) FetchCandidates(ctx context.Context, q *search.Query, limit int) ([]search.MemoryItem, error) {
	payload := map[string]interface{}{
		"query":              q.RawText,
		"limit":              limit,
		"min_document_score": d.opts.MinDocumentScore,
		"min_chunk_score":    d.opts.MinChunkScore,
		"rewrite_query":      d.opts.RewriteQuery,
		"rerank":             d.opts.Rerank,
	}
	if q.ContainerTag != "" {
		payload["container_tag"] = q.ContainerTag
	}
	return d.client.postSearch(ctx, documentSearchPath, payload)
}
