// Package search implements the hybrid memory search pipeline.
//
// A query moves through five stages:
//
//  1. Normalization: the raw query text is lowercased and split into
//     unique tokens (see Tokenize). Two queries that differ only in
//     punctuation, case, or token order produce the same token list.
//
//  2. Candidate fetching: the Fetcher fans out to the remote backend
//     families in parallel, over-fetching candidates so that local
//     filtering and pagination have room to work. Transient backend
//     failures are retried with exponential backoff; if one family
//     fails after retries the pipeline continues in degraded mode
//     with the surviving family's results.
//
//  3. Filtering: FilterCandidates enforces tenant isolation (a caller
//     only ever sees records it owns or records owned by the shared
//     owner) and applies the query's type, tag, date, and container
//     filters. The ownership check is repeated for cache hits so a
//     stale or corrupted cache entry can never leak another caller's
//     records.
//
//  4. Scoring: ScoreItem blends vector similarity, weighted keyword
//     overlap, recency decay, and recorded satisfaction into a single
//     final score. Results are ordered by final score descending with
//     record id as a deterministic tie-break.
//
//  5. Pagination: Paginate slices the ranked list for the requested
//     offset and limit. When the window is under-filled and the
//     backends signalled more candidates may exist, the Engine
//     performs a single re-fetch with a doubled over-fetch count
//     before giving up.
//
// The Engine ties the stages together and caches the ranked,
// pre-pagination result list per (tokens, filters, caller) so that
// paging through results does not re-query the backends.
package search
