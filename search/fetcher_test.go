package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// stubSource is a scripted CandidateSource. Each source is only ever called
// from its own goroutine within a fetch.
type stubSource struct {
	family    Family
	items     []MemoryItem
	failures  int  // fail this many calls before succeeding
	permanent bool // mark failures permanent (not retried)
	calls     int
	limits    []int
	block     bool // block until ctx is done
}

func (s *stubSource) Family() Family { return s.family }

func (s *stubSource) FetchCandidates(ctx context.Context, q *Query, limit int) ([]MemoryItem, error) {
	s.calls++
	s.limits = append(s.limits, limit)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.calls <= s.failures {
		err := fmt.Errorf("backend down (call %d)", s.calls)
		if s.permanent {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	if limit < len(s.items) {
		return s.items[:limit], nil
	}
	return s.items, nil
}

func fastFetcherConfig() FetcherConfig {
	return FetcherConfig{
		CallTimeout:    50 * time.Millisecond,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
	}
}

func memItem(id, owner string, typ ContentType, score float64) MemoryItem {
	return MemoryItem{ID: id, OwnerID: owner, Type: typ, VectorScore: score}
}

func TestFetchMergesAndDeduplicates(t *testing.T) {
	doc := &stubSource{family: FamilyDocument, items: []MemoryItem{
		memItem("dup", "alice", TypeDocument, 0.4),
		memItem("doc-only", "alice", TypeDocument, 0.8),
	}}
	mem := &stubSource{family: FamilyMemory, items: []MemoryItem{
		memItem("dup", "alice", TypeConversation, 0.9),
		memItem("mem-only", "alice", TypeConversation, 0.7),
	}}

	f := NewFetcher([]CandidateSource{doc, mem}, fastFetcherConfig(), zerolog.Nop())
	res, err := f.Fetch(context.Background(), &Query{CallerID: "alice"}, 50)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if res.Degraded {
		t.Fatalf("unexpected degraded result")
	}
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 deduplicated items, got %d", len(res.Items))
	}
	for _, item := range res.Items {
		if item.ID == "dup" && item.VectorScore != 0.9 {
			t.Fatalf("expected duplicate to keep the higher vector score, got %v", item.VectorScore)
		}
	}
}

func TestFetchSkipsIrrelevantFamily(t *testing.T) {
	doc := &stubSource{family: FamilyDocument, items: []MemoryItem{memItem("d", "alice", TypeDocument, 0.5)}}
	mem := &stubSource{family: FamilyMemory, items: []MemoryItem{memItem("m", "alice", TypeConversation, 0.5)}}

	f := NewFetcher([]CandidateSource{doc, mem}, fastFetcherConfig(), zerolog.Nop())
	q := &Query{CallerID: "alice", TypeFilter: []ContentType{TypeConversation}}
	res, err := f.Fetch(context.Background(), q, 50)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if doc.calls != 0 {
		t.Fatalf("document family should have been skipped, saw %d calls", doc.calls)
	}
	if len(res.Items) != 1 || res.Items[0].ID != "m" {
		t.Fatalf("expected only the memory family item, got %v", res.Items)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	mem := &stubSource{
		family:   FamilyMemory,
		failures: 2,
		items:    []MemoryItem{memItem("m", "alice", TypeConversation, 0.5)},
	}

	f := NewFetcher([]CandidateSource{mem}, fastFetcherConfig(), zerolog.Nop())
	res, err := f.Fetch(context.Background(), &Query{CallerID: "alice", TypeFilter: []ContentType{TypeConversation}}, 50)
	if err != nil {
		t.Fatalf("fetch failed despite retry budget: %v", err)
	}
	if mem.calls != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", mem.calls)
	}
	if res.Degraded || len(res.Items) != 1 {
		t.Fatalf("expected healthy result after retries, got degraded=%v len=%d", res.Degraded, len(res.Items))
	}
}

func TestFetchDoesNotRetryPermanentFailures(t *testing.T) {
	mem := &stubSource{family: FamilyMemory, failures: 99, permanent: true}
	doc := &stubSource{family: FamilyDocument, items: []MemoryItem{memItem("d", "alice", TypeDocument, 0.5)}}

	f := NewFetcher([]CandidateSource{doc, mem}, fastFetcherConfig(), zerolog.Nop())
	res, err := f.Fetch(context.Background(), &Query{CallerID: "alice"}, 50)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if mem.calls != 1 {
		t.Fatalf("permanent failure must not be retried, saw %d calls", mem.calls)
	}
	if !res.Degraded {
		t.Fatalf("expected degraded result when one family fails")
	}
}

func TestFetchDegradedWhenOneFamilyFails(t *testing.T) {
	doc := &stubSource{family: FamilyDocument, failures: 99}
	mem := &stubSource{family: FamilyMemory, items: []MemoryItem{
		memItem("m1", "alice", TypeConversation, 0.9),
		memItem("m2", "alice", TypeConversation, 0.8),
		memItem("m3", "alice", TypeConversation, 0.7),
		memItem("m4", "alice", TypeConversation, 0.6),
		memItem("m5", "alice", TypeConversation, 0.5),
	}}

	f := NewFetcher([]CandidateSource{doc, mem}, fastFetcherConfig(), zerolog.Nop())
	res, err := f.Fetch(context.Background(), &Query{CallerID: "alice"}, 50)
	if err != nil {
		t.Fatalf("expected degraded success, got error: %v", err)
	}
	if !res.Degraded {
		t.Fatalf("expected degraded=true")
	}
	if len(res.Items) != 5 {
		t.Fatalf("expected the healthy family's 5 items, got %d", len(res.Items))
	}
	if len(res.FailedFamilies) != 1 || res.FailedFamilies[0] != FamilyDocument {
		t.Fatalf("expected document family marked failed, got %v", res.FailedFamilies)
	}
}

func TestFetchUnavailableWhenAllFamiliesFail(t *testing.T) {
	doc := &stubSource{family: FamilyDocument, failures: 99}
	mem := &stubSource{family: FamilyMemory, failures: 99}

	f := NewFetcher([]CandidateSource{doc, mem}, fastFetcherConfig(), zerolog.Nop())
	_, err := f.Fetch(context.Background(), &Query{CallerID: "alice"}, 50)
	if !IsUnavailable(err) {
		t.Fatalf("expected SearchUnavailable, got %v", err)
	}
}

func TestFetchCancellationPropagates(t *testing.T) {
	doc := &stubSource{family: FamilyDocument, block: true}
	mem := &stubSource{family: FamilyMemory, block: true}

	cfg := fastFetcherConfig()
	cfg.CallTimeout = time.Second
	f := NewFetcher([]CandidateSource{doc, mem}, cfg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, &Query{CallerID: "alice"}, 50)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected error after cancellation")
		}
		if !errors.Is(err, context.Canceled) && !IsUnavailable(err) {
			t.Fatalf("expected a cancellation-driven failure, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch did not return after cancellation")
	}
}

func TestFetchMaybeMoreWhenWindowFilled(t *testing.T) {
	items := make([]MemoryItem, 10)
	for i := range items {
		items[i] = memItem(fmt.Sprintf("m%02d", i), "alice", TypeConversation, 0.5)
	}
	mem := &stubSource{family: FamilyMemory, items: items}

	f := NewFetcher([]CandidateSource{mem}, fastFetcherConfig(), zerolog.Nop())
	q := &Query{CallerID: "alice", TypeFilter: []ContentType{TypeConversation}}

	res, err := f.Fetch(context.Background(), q, 10)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !res.MaybeMore {
		t.Fatalf("expected MaybeMore when the family filled its window")
	}

	res, err = f.Fetch(context.Background(), q, 50)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if res.MaybeMore {
		t.Fatalf("expected MaybeMore=false when the window was not filled")
	}
}
