package search

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// CandidateSource is one capability-tagged fetch strategy wrapping a remote
// endpoint family. Implementations mark non-retryable failures (4xx,
// validation) with backoff.Permanent so the Fetcher's retry loop stops.
type CandidateSource interface {
	Family() Family
	FetchCandidates(ctx context.Context, q *Query, limit int) ([]MemoryItem, error)
}

// FetcherConfig bounds the Fetcher's remote call behavior.
type FetcherConfig struct {
	CallTimeout    time.Duration // independent timeout per backend call
	MaxRetries     uint64        // retry ceiling per call on transient failures
	InitialBackoff time.Duration
}

// Fetcher produces a superset of candidates large enough that, after
// filtering, the requested page can almost always be filled without a second
// round-trip. Calls to the backend families run concurrently.
type Fetcher struct {
	sources []CandidateSource
	cfg     FetcherConfig
	logger  zerolog.Logger
}

// NewFetcher creates a Fetcher over the given sources.
func NewFetcher(sources []CandidateSource, cfg FetcherConfig, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		sources: sources,
		cfg:     cfg,
		logger:  logger.With().Str("component", "fetcher").Logger(),
	}
}

// FetchResult is the outcome of one fan-out.
type FetchResult struct {
	Items    []MemoryItem
	Degraded bool
	// MaybeMore reports whether any healthy family filled its over-fetch
	// window completely, suggesting candidates exist beyond it.
	MaybeMore      bool
	FailedFamilies []Family
}

// Fetch queries every family relevant to the active type filter with the
// given over-fetch size, deduplicates by id keeping the higher vector score,
// and degrades gracefully when one family fails after retries. When every
// relevant family fails it returns a SearchUnavailable error.
func (f *Fetcher) Fetch(ctx context.Context, q *Query, overfetch int) (*FetchResult, error) {
	active := make([]CandidateSource, 0, len(f.sources))
	for _, src := range f.sources {
		if q.WantsFamily(src.Family()) {
			active = append(active, src)
		}
	}
	if len(active) == 0 {
		f.logger.Info().
			Interface("typeFilter", q.TypeFilter).
			Msg("Fetch: type filter excludes every backend family")
		return &FetchResult{Items: []MemoryItem{}}, nil
	}

	type familyResult struct {
		items []MemoryItem
		err   error
	}
	results := make([]familyResult, len(active))

	// Each goroutine records its own outcome and returns nil: a family
	// failing must not cancel the other family's call.
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range active {
		g.Go(func() error {
			items, err := f.fetchWithRetry(gctx, src, q, overfetch)
			results[i] = familyResult{items: items, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &FetchResult{}
	var failures []error
	byID := make(map[string]int, overfetch)
	for i, src := range active {
		res := results[i]
		if res.err != nil {
			f.logger.Warn().
				Err(res.err).
				Str("family", string(src.Family())).
				Msg("Fetch: backend family failed after retries")
			out.Degraded = true
			out.FailedFamilies = append(out.FailedFamilies, src.Family())
			failures = append(failures, res.err)
			continue
		}
		if len(res.items) >= overfetch {
			out.MaybeMore = true
		}
		for _, item := range res.items {
			if at, seen := byID[item.ID]; seen {
				if item.VectorScore > out.Items[at].VectorScore {
					out.Items[at] = item
				}
				continue
			}
			byID[item.ID] = len(out.Items)
			out.Items = append(out.Items, item)
		}
	}

	if len(failures) == len(active) {
		return nil, NewUnavailableError("all backend families failed", errors.Join(failures...))
	}

	f.logger.Info().
		Int("families", len(active)).
		Int("failed", len(out.FailedFamilies)).
		Int("candidates", len(out.Items)).
		Int("overfetch", overfetch).
		Bool("degraded", out.Degraded).
		Bool("maybeMore", out.MaybeMore).
		Msg("Fetch: fan-out completed")
	return out, nil
}

// fetchWithRetry runs one family's call with an independent per-attempt
// timeout and bounded exponential backoff. Transient failures (timeouts,
// 5xx) are retried; errors the source marked permanent are not.
func (f *Fetcher) fetchWithRetry(ctx context.Context, src CandidateSource, q *Query, limit int) ([]MemoryItem, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.cfg.InitialBackoff
	eb.Multiplier = 2.0
	eb.RandomizationFactor = 0.2
	eb.MaxElapsedTime = 0 // the query deadline bounds us, not elapsed time
	eb.Reset()
	b := backoff.WithContext(backoff.WithMaxRetries(eb, f.cfg.MaxRetries), ctx)

	var items []MemoryItem
	attempt := 0
	operation := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, f.cfg.CallTimeout)
		defer cancel()

		fetched, err := src.FetchCandidates(callCtx, q, limit)
		if err != nil {
			// Query cancellation propagates immediately rather than burning
			// the remaining retry budget.
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			f.logger.Warn().
				Err(err).
				Str("family", string(src.Family())).
				Int("attempt", attempt).
				Msg("fetchWithRetry: backend call failed")
			return err
		}
		items = fetched
		return nil
	}

	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return items, nil
}
