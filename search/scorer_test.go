package search

import (
	"math"
	"testing"
	"time"
)

var scoreNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func TestKeywordMatchesAcrossAllFields(t *testing.T) {
	// A tag-only match must survive even when title and summary score zero.
	item := MemoryItem{
		ID:      "a",
		OwnerID: "alice",
		Type:    TypePattern,
		Fields: Fields{
			Title: "Retry Pattern",
			Tags:  []string{"error-handling", "retry"},
		},
	}

	got := keywordScore(&item, Tokenize("error handling"))
	want := 0.5 // tags weight 0.5 * full overlap
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected keyword score %v, got %v", want, got)
	}
}

func TestKeywordTokenEquivalence(t *testing.T) {
	item := MemoryItem{
		ID:     "a",
		Fields: Fields{Tags: []string{"error-handling"}},
	}
	spaced := keywordScore(&item, Tokenize("error handling"))
	hyphenated := keywordScore(&item, Tokenize("error-handling"))
	if spaced != hyphenated {
		t.Fatalf("expected identical keyword scores, got %v vs %v", spaced, hyphenated)
	}
}

func TestKeywordPicksHighestWeightedField(t *testing.T) {
	item := MemoryItem{
		ID: "a",
		Fields: Fields{
			Title:    "connection pooling deep dive",
			Summary:  "pooling",
			Category: "pooling",
		},
	}
	// Title overlap is 1/2 at weight 1.0 = 0.5; summary is 1/2 at 0.7 = 0.35.
	got := keywordScore(&item, Tokenize("pooling postgres"))
	if math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("expected best-field score 0.5, got %v", got)
	}
}

func TestKeywordNeutralForEmptyQuery(t *testing.T) {
	item := MemoryItem{ID: "a", Fields: Fields{Title: "anything"}}
	if got := keywordScore(&item, nil); got != neutralScore {
		t.Fatalf("expected neutral keyword score %v for empty query, got %v", neutralScore, got)
	}
}

func TestRecencyDecay(t *testing.T) {
	fresh := MemoryItem{Fields: Fields{Timestamp: scoreNow}}
	if got := recencyScore(&fresh, scoreNow); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected recency ~1.0 for a fresh item, got %v", got)
	}

	aged := MemoryItem{Fields: Fields{Timestamp: scoreNow.AddDate(0, 0, -30)}}
	want := math.Exp(-1)
	if got := recencyScore(&aged, scoreNow); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected recency %v at 30 days, got %v", want, got)
	}

	undated := MemoryItem{}
	if got := recencyScore(&undated, scoreNow); got != neutralScore {
		t.Fatalf("expected neutral recency for undated item, got %v", got)
	}
}

func TestSatisfactionNeutralWhenAbsent(t *testing.T) {
	pattern := MemoryItem{Type: TypePattern}
	if got := satisfactionScore(&pattern); got != neutralScore {
		t.Fatalf("expected neutral satisfaction, got %v", got)
	}

	score := 4.0
	conv := MemoryItem{Type: TypeConversation, Fields: Fields{SatisfactionScore: &score}}
	if got := satisfactionScore(&conv); math.Abs(got-0.8) > 1e-12 {
		t.Fatalf("expected satisfaction 0.8, got %v", got)
	}
}

func TestScoreBounds(t *testing.T) {
	high := 7.5 // out-of-range satisfaction from a misbehaving backend
	items := []MemoryItem{
		{ID: "a", VectorScore: 1.7, Fields: Fields{Title: "error handling", Timestamp: scoreNow.AddDate(0, 0, 1)}},
		{ID: "b", VectorScore: -0.3, Fields: Fields{SatisfactionScore: &high}},
		{ID: "c", VectorScore: 0.42, Fields: Fields{Timestamp: scoreNow.AddDate(-3, 0, 0)}},
	}

	for _, r := range ScoreAll(items, Tokenize("error handling"), scoreNow) {
		for name, v := range map[string]float64{
			"vector":       r.Score.Vector,
			"keyword":      r.Score.Keyword,
			"recency":      r.Score.Recency,
			"satisfaction": r.Score.Satisfaction,
			"final":        r.Score.Final,
		} {
			if v < 0 || v > 1 {
				t.Fatalf("item %s: %s score %v out of [0,1]", r.Item.ID, name, v)
			}
		}
	}
}

func TestFinalScoreWeighting(t *testing.T) {
	sat := 5.0
	item := MemoryItem{
		ID:          "a",
		VectorScore: 0.9,
		Fields: Fields{
			Title:             "error handling",
			Timestamp:         scoreNow,
			SatisfactionScore: &sat,
		},
	}

	b := ScoreItem(&item, Tokenize("error handling"), scoreNow)
	want := 0.60*0.9 + 0.30*1.0 + 0.07*1.0 + 0.03*1.0
	if math.Abs(b.Final-want) > 1e-9 {
		t.Fatalf("expected final score %v, got %v", want, b.Final)
	}
}

func TestTieBreakByIDAscending(t *testing.T) {
	items := []MemoryItem{
		{ID: "zulu", VectorScore: 0.5},
		{ID: "alpha", VectorScore: 0.5},
		{ID: "mike", VectorScore: 0.5},
	}
	results := ScoreAll(items, nil, scoreNow)
	want := []string{"alpha", "mike", "zulu"}
	for i, r := range results {
		if r.Item.ID != want[i] {
			t.Fatalf("expected tie-broken order %v, got position %d = %s", want, i, r.Item.ID)
		}
	}
}
