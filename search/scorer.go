package search

import (
	"math"
	"sort"
	"time"
)

// Fixed fusion weights. Vector similarity dominates; keyword relevance
// breaks ties between semantically close candidates; recency and
// satisfaction nudge.
const (
	WeightVector       = 0.60
	WeightKeyword      = 0.30
	WeightRecency      = 0.07
	WeightSatisfaction = 0.03
)

// Per-field keyword weights. The keyword component is the max over fields of
// fieldWeight * overlapRatio, computed across every field.
const (
	fieldWeightTitle    = 1.0
	fieldWeightSummary  = 0.7
	fieldWeightTags     = 0.5
	fieldWeightCategory = 0.4
)

const (
	// recencyHalfLifeDays controls the exponential age decay.
	recencyHalfLifeDays = 30.0
	// neutralScore is used where a component has no signal to offer.
	neutralScore = 0.5
	// scoreEpsilon is the tolerance within which two final scores are
	// considered equal for tie-breaking.
	scoreEpsilon = 1e-9
)

// ScoreItem computes the full breakdown for one candidate against the query
// tokens. Every component and the final score lie in [0,1].
func ScoreItem(item *MemoryItem, tokens []string, now time.Time) ScoreBreakdown {
	b := ScoreBreakdown{
		Vector:       clamp01(item.VectorScore),
		Keyword:      keywordScore(item, tokens),
		Recency:      recencyScore(item, now),
		Satisfaction: satisfactionScore(item),
	}
	b.Final = clamp01(WeightVector*b.Vector +
		WeightKeyword*b.Keyword +
		WeightRecency*b.Recency +
		WeightSatisfaction*b.Satisfaction)
	return b
}

// ScoreAll scores every candidate and returns them sorted by
// (final desc, id asc), which guarantees a total order and therefore
// deterministic, stable pagination.
func ScoreAll(items []MemoryItem, tokens []string, now time.Time) []ScoredResult {
	results := make([]ScoredResult, 0, len(items))
	for _, item := range items {
		results = append(results, ScoredResult{
			Item:  item,
			Score: ScoreItem(&item, tokens, now),
		})
	}
	SortResults(results)
	return results
}

// SortResults orders results by final score descending, breaking ties within
// scoreEpsilon by id ascending.
func SortResults(results []ScoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		di := results[i].Score.Final - results[j].Score.Final
		if math.Abs(di) <= scoreEpsilon {
			return results[i].Item.ID < results[j].Item.ID
		}
		return di > 0
	})
}

// keywordScore computes token-overlap relevance across all weighted fields
// with no early return: a strong match in a low-weight field still loses to
// a strong match in a high-weight one, but never disappears.
func keywordScore(item *MemoryItem, tokens []string) float64 {
	if len(tokens) == 0 {
		// Empty query matches everything; the keyword component is neutral,
		// not zero.
		return neutralScore
	}

	best := 0.0
	consider := func(weight, ratio float64) {
		if s := weight * ratio; s > best {
			best = s
		}
	}
	consider(fieldWeightTitle, overlapRatio(tokenSet(item.Fields.Title), tokens))
	consider(fieldWeightSummary, overlapRatio(tokenSet(item.Fields.Summary), tokens))
	consider(fieldWeightTags, overlapRatio(tagTokenSet(item.Fields.Tags), tokens))
	consider(fieldWeightCategory, overlapRatio(tokenSet(item.Fields.Category), tokens))
	return clamp01(best)
}

// overlapRatio is the fraction of query tokens present as whole tokens in
// the field's token set.
func overlapRatio(field map[string]struct{}, tokens []string) float64 {
	if len(tokens) == 0 || len(field) == 0 {
		return 0
	}
	matched := 0
	for _, tok := range tokens {
		if _, ok := field[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

func tagTokenSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tag := range tags {
		for tok := range tokenSet(tag) {
			set[tok] = struct{}{}
		}
	}
	return set
}

// recencyScore decays exponentially with age. Items without a timestamp get
// a neutral score rather than being treated as infinitely old.
func recencyScore(item *MemoryItem, now time.Time) float64 {
	ts := item.Fields.Timestamp
	if ts.IsZero() {
		return neutralScore
	}
	ageDays := now.Sub(ts).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return clamp01(math.Exp(-ageDays / recencyHalfLifeDays))
}

// satisfactionScore maps the 0..5 satisfaction signal into [0,1]. Only
// conversation records currently carry the signal; everything else (and
// conversations without one) gets the neutral default. The policy lives
// here alone so it can change without touching the fusion weights.
func satisfactionScore(item *MemoryItem) float64 {
	if item.Fields.SatisfactionScore == nil {
		return neutralScore
	}
	return clamp01(*item.Fields.SatisfactionScore / 5.0)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
