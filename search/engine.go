package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultLimit applies when the request leaves limit unset.
	DefaultLimit = 20
	// MaxLimit is the largest page a caller may request.
	MaxLimit = 100
)

// EngineConfig holds the engine-level tuning parameters.
type EngineConfig struct {
	OverfetchMultiplier int
	OverfetchFloor      int
	QueryTimeout        time.Duration
	SharedOwner         string
}

// Engine runs the full pipeline: normalize, fetch, filter, score, sort,
// paginate, with the result cache in front of the fetch. It owns no state
// beyond the injected cache; concurrent Search calls are independent.
type Engine struct {
	fetcher *Fetcher
	cache   *ResultCache // nil disables caching
	cfg     EngineConfig
	logger  zerolog.Logger
	now     func() time.Time
}

// NewEngine creates an Engine. cache may be nil to disable result caching;
// correctness is identical either way.
func NewEngine(fetcher *Fetcher, cache *ResultCache, cfg EngineConfig, logger zerolog.Logger) *Engine {
	return &Engine{
		fetcher: fetcher,
		cache:   cache,
		cfg:     cfg,
		logger:  logger.With().Str("component", "engine").Logger(),
		now:     time.Now,
	}
}

// Search turns a request into one deterministic, tenant-isolated page.
// Errors surfaced to the caller are limited to InvalidQuery,
// SearchUnavailable, and SearchTimeout.
func (e *Engine) Search(ctx context.Context, req Request) (*Page, error) {
	q, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	logger := e.logger.With().
		Str("query_id", uuid.NewString()).
		Str("caller_id", q.CallerID).
		Logger()
	logger.Info().
		Str("query", q.RawText).
		Interface("tokens", q.Tokens).
		Interface("types", q.TypeFilter).
		Interface("tags", q.TagFilter).
		Int("limit", q.Limit).
		Int("offset", q.Offset).
		Msg("Search: start")

	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	if e.cache != nil {
		if cached, ok := e.cache.Get(q); ok {
			// Visibility is a hard invariant, re-enforced even on cached
			// entries.
			results := e.verifyVisible(cached.Results, q, logger)
			page := e.buildPage(results, q, cached.MaybeMore)
			page.Degraded = cached.Degraded
			logger.Info().
				Int("cached", len(results)).
				Int("returned", len(page.Items)).
				Msg("Search: served from cache")
			return &page, nil
		}
	}

	overfetch := q.Limit * e.cfg.OverfetchMultiplier
	if overfetch < e.cfg.OverfetchFloor {
		overfetch = e.cfg.OverfetchFloor
	}

	results, fetched, err := e.fetchScored(ctx, q, overfetch, logger)
	if err != nil {
		return nil, e.mapPipelineError(ctx, err)
	}

	// One bounded re-fetch with a doubled over-fetch window when filtering
	// left the page under-filled but the backend suggested more candidates
	// exist.
	maybeMore := fetched.MaybeMore
	if maybeMore && len(results) < q.Offset+q.Limit {
		logger.Info().
			Int("postFilter", len(results)).
			Int("needed", q.Offset+q.Limit).
			Int("overfetch", overfetch*2).
			Msg("Search: page under-filled, re-fetching with doubled over-fetch")
		wider, widerFetched, err := e.fetchScored(ctx, q, overfetch*2, logger)
		if err != nil {
			if IsTimeout(e.mapPipelineError(ctx, err)) {
				return nil, NewTimeoutError("query deadline exceeded during re-fetch", err)
			}
			// The first round already produced a usable set; keep it.
			logger.Warn().Err(err).Msg("Search: re-fetch failed, returning first-round results")
		} else {
			results = wider
			fetched = widerFetched
			maybeMore = widerFetched.MaybeMore
		}
	}

	if e.cache != nil {
		e.cache.Put(q, CachedResults{
			Results:   results,
			Degraded:  fetched.Degraded,
			MaybeMore: maybeMore,
		})
	}

	page := e.buildPage(results, q, maybeMore)
	page.Degraded = fetched.Degraded
	logger.Info().
		Int("candidates", len(results)).
		Int("returned", len(page.Items)).
		Bool("hasMore", page.HasMore).
		Bool("degraded", page.Degraded).
		Msg("Search: done")
	return &page, nil
}

// buildPage paginates the ranked set and keeps hasMore conservative: a short
// page with candidates possibly hidden beyond the over-fetch window signals
// more rather than claiming the end of the result set. Applied on cache hits
// and misses alike so the cache stays behaviorally invisible.
func (e *Engine) buildPage(results []ScoredResult, q *Query, maybeMore bool) Page {
	page := Paginate(results, q.Offset, q.Limit)
	if !page.HasMore && len(page.Items) < q.Limit && maybeMore {
		page.HasMore = true
	}
	return page
}

// fetchScored runs fetch, filter, and score for one over-fetch window.
func (e *Engine) fetchScored(ctx context.Context, q *Query, overfetch int, logger zerolog.Logger) ([]ScoredResult, *FetchResult, error) {
	fetched, err := e.fetcher.Fetch(ctx, q, overfetch)
	if err != nil {
		return nil, nil, err
	}
	visible := FilterCandidates(fetched.Items, q, e.cfg.SharedOwner, logger)
	results := ScoreAll(visible, q.Tokens, e.now())
	return results, fetched, nil
}

// verifyVisible drops cached results the caller must not see. A correct
// cache never produces any, but tenant isolation does not get to depend on
// that.
func (e *Engine) verifyVisible(results []ScoredResult, q *Query, logger zerolog.Logger) []ScoredResult {
	kept := results[:0:0]
	for _, r := range results {
		if Visible(&r.Item, q.CallerID, e.cfg.SharedOwner) {
			kept = append(kept, r)
		}
	}
	if len(kept) != len(results) {
		logger.Error().
			Int("dropped", len(results)-len(kept)).
			Msg("verifyVisible: cached entry contained items invisible to caller")
	}
	return kept
}

// validate rejects malformed requests before any remote call and produces
// the normalized Query.
func (e *Engine) validate(req Request) (*Query, error) {
	if req.CallerID == "" {
		return nil, NewInvalidQueryError("caller_id is required")
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return nil, NewInvalidQueryError(fmt.Sprintf("limit must be between 1 and %d, got %d", MaxLimit, req.Limit))
	}
	if req.Offset < 0 {
		return nil, NewInvalidQueryError(fmt.Sprintf("offset must not be negative, got %d", req.Offset))
	}
	if req.DateFrom != nil && req.DateTo != nil && req.DateFrom.After(*req.DateTo) {
		return nil, NewInvalidQueryError("date_from must not be after date_to")
	}
	for _, t := range req.Types {
		switch t {
		case TypeConversation, TypePattern, TypeDocument:
		default:
			return nil, NewInvalidQueryError(fmt.Sprintf("unknown type %q", t))
		}
	}

	return &Query{
		RawText:      req.Query,
		Tokens:       Tokenize(req.Query),
		TypeFilter:   req.Types,
		TagFilter:    req.Tags,
		DateFrom:     req.DateFrom,
		DateTo:       req.DateTo,
		ContainerTag: req.ContainerTag,
		CallerID:     req.CallerID,
		Limit:        limit,
		Offset:       req.Offset,
	}, nil
}

// mapPipelineError converts internal failures into the caller-visible
// taxonomy. Deadline expiry becomes SearchTimeout rather than a partial
// silent success.
func (e *Engine) mapPipelineError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError("query deadline exceeded", err)
	}
	var searchErr *Error
	if errors.As(err, &searchErr) {
		return err
	}
	return NewUnavailableError("search pipeline failed", err)
}
