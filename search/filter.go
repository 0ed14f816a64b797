package search

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Visible enforces the tenant isolation invariant: an item is visible to the
// caller only when it is owned by the caller or by the reserved shared owner.
// This check runs on every path that can surface an item, including cache
// hits, regardless of what the remote backend returned.
func Visible(item *MemoryItem, callerID, sharedOwner string) bool {
	return item.OwnerID == callerID || item.OwnerID == sharedOwner
}

// FilterCandidates removes candidates the caller is not entitled to see and
// candidates outside the requested type/tag/container/date filters.
// Visibility is checked first so invisible items are never scored.
func FilterCandidates(items []MemoryItem, q *Query, sharedOwner string, logger zerolog.Logger) []MemoryItem {
	kept := lo.Filter(items, func(item MemoryItem, _ int) bool {
		return passesFilters(&item, q, sharedOwner, logger)
	})
	logger.Debug().
		Int("candidates", len(items)).
		Int("kept", len(kept)).
		Str("callerID", q.CallerID).
		Msg("FilterCandidates: applied visibility and filters")
	return kept
}

func passesFilters(item *MemoryItem, q *Query, sharedOwner string, logger zerolog.Logger) bool {
	if !Visible(item, q.CallerID, sharedOwner) {
		logger.Debug().
			Str("reason", "owner not visible to caller").
			Str("item_id", item.ID).
			Str("item_owner", item.OwnerID).
			Str("caller_id", q.CallerID).
			Msg("passesFilters: item filtered")
		return false
	}

	// Items without a container tag pass only when no container filter is set.
	if q.ContainerTag != "" && item.ContainerTag != q.ContainerTag {
		logger.Debug().
			Str("reason", "container tag mismatch").
			Str("item_id", item.ID).
			Str("item_container", item.ContainerTag).
			Str("query_container", q.ContainerTag).
			Msg("passesFilters: item filtered")
		return false
	}

	if !q.WantsType(item.Type) {
		logger.Debug().
			Str("reason", "type mismatch").
			Str("item_id", item.ID).
			Str("item_type", string(item.Type)).
			Interface("query_types", q.TypeFilter).
			Msg("passesFilters: item filtered")
		return false
	}

	if len(q.TagFilter) > 0 && !tagsIntersect(item.Fields.Tags, q.TagFilter) {
		logger.Debug().
			Str("reason", "no tag overlap").
			Str("item_id", item.ID).
			Interface("item_tags", item.Fields.Tags).
			Interface("query_tags", q.TagFilter).
			Msg("passesFilters: item filtered")
		return false
	}

	ts := item.Fields.Timestamp
	if q.DateFrom != nil && (ts.IsZero() || ts.Before(*q.DateFrom)) {
		logger.Debug().
			Str("reason", "before date range").
			Str("item_id", item.ID).
			Time("item_timestamp", ts).
			Msg("passesFilters: item filtered")
		return false
	}
	if q.DateTo != nil && (ts.IsZero() || ts.After(*q.DateTo)) {
		logger.Debug().
			Str("reason", "after date range").
			Str("item_id", item.ID).
			Time("item_timestamp", ts).
			Msg("passesFilters: item filtered")
		return false
	}

	return true
}

// tagsIntersect compares tags at the token level so "error-handling" on an
// item matches a requested tag "error handling".
func tagsIntersect(itemTags, queryTags []string) bool {
	itemSets := make([]map[string]struct{}, 0, len(itemTags))
	for _, tag := range itemTags {
		itemSets = append(itemSets, tokenSet(tag))
	}
	for _, want := range queryTags {
		wantTokens := Tokenize(want)
		if len(wantTokens) == 0 {
			continue
		}
		for _, have := range itemSets {
			if containsAllTokens(have, wantTokens) {
				return true
			}
		}
	}
	return false
}

func containsAllTokens(set map[string]struct{}, tokens []string) bool {
	for _, tok := range tokens {
		if _, ok := set[tok]; !ok {
			return false
		}
	}
	return true
}
