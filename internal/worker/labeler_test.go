package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chorus-insights/chorus/internal/cache"
	"github.com/chorus-insights/chorus/internal/llm"
	"github.com/chorus-insights/chorus/internal/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// flakyProvider fails a configured number of calls before succeeding
type flakyProvider struct {
	failures    int32
	calls       int32
	corrections []string
}

func (p *flakyProvider) Name() string { return "flaky" }

func (p *flakyProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *flakyProvider) LabelQuote(ctx context.Context, req llm.LabelRequest) (*llm.QuoteLabel, error) {
	n := atomic.AddInt32(&p.calls, 1)
	if n <= atomic.LoadInt32(&p.failures) {
		return nil, errors.New("transient upstream error")
	}
	return &llm.QuoteLabel{
		RelevanceScore:  4.0,
		Sentiment:       model.SentimentNegative,
		StakeholderRole: model.RoleChampion,
		DecisionImpact:  model.ImpactDifferentiator,
		Corrections:     p.corrections,
	}, nil
}

func noSleep(t *testing.T) func() {
	t.Helper()
	orig := labelSleepFunc
	labelSleepFunc = func(ctx context.Context, d time.Duration) error { return nil }
	return func() { labelSleepFunc = orig }
}

func testQuote(id string) model.ScoredQuote {
	return model.ScoredQuote{
		QuoteID:     id,
		Text:        "the rollout took three weeks longer than promised",
		Criterion:   "onboarding",
		InterviewID: "sarah::acme",
		Company:     "acme",
		Interviewee: "Sarah",
	}
}

func testConcurrency() model.ConcurrencyConfig {
	return model.ConcurrencyConfig{LabelWorkers: 2, MaxRetries: 3}
}

func TestLabelQuotes_RetriesTransientFailures(t *testing.T) {
	defer noSleep(t)()

	provider := &flakyProvider{failures: 2}
	b := NewBatchLabeler(provider, nil, nil, testConcurrency(), "v1", nil)

	results := b.LabelQuotes(context.Background(), "acme-research", []model.ScoredQuote{testQuote("q1")})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Fatalf("expected success after retries, got %v", results[0].Error)
	}
	if results[0].Label.StakeholderRole != model.RoleChampion {
		t.Errorf("unexpected label: %+v", results[0].Label)
	}
	if got := atomic.LoadInt32(&provider.calls); got != 3 {
		t.Errorf("provider calls = %d, want 3 (2 failures + 1 success)", got)
	}
}

func TestLabelQuotes_BoundedRetries(t *testing.T) {
	defer noSleep(t)()

	provider := &flakyProvider{failures: 100}
	b := NewBatchLabeler(provider, nil, nil, testConcurrency(), "v1", nil)

	results := b.LabelQuotes(context.Background(), "acme-research", []model.ScoredQuote{testQuote("q1")})
	if results[0].Error == nil {
		t.Fatal("expected the exhausted retries to surface as an error")
	}
	if got := atomic.LoadInt32(&provider.calls); got != 3 {
		t.Errorf("provider calls = %d, retries must be bounded at 3", got)
	}
}

func TestLabelQuotes_CacheSkipsRepeatCalls(t *testing.T) {
	defer noSleep(t)()

	provider := &flakyProvider{}
	c := cache.NewMemoryCache(time.Hour, time.Hour)
	b := NewBatchLabeler(provider, nil, c, testConcurrency(), "v1", nil)

	quotes := []model.ScoredQuote{testQuote("q1")}
	if res := b.LabelQuotes(context.Background(), "acme-research", quotes); res[0].Error != nil {
		t.Fatalf("first run: %v", res[0].Error)
	}
	if res := b.LabelQuotes(context.Background(), "acme-research", quotes); res[0].Error != nil {
		t.Fatalf("second run: %v", res[0].Error)
	}

	if got := atomic.LoadInt32(&provider.calls); got != 1 {
		t.Errorf("provider calls = %d, the second run should be served from cache", got)
	}
}

func TestLabelQuotes_CacheKeyedByPromptVersion(t *testing.T) {
	defer noSleep(t)()

	provider := &flakyProvider{}
	c := cache.NewMemoryCache(time.Hour, time.Hour)
	quotes := []model.ScoredQuote{testQuote("q1")}

	b1 := NewBatchLabeler(provider, nil, c, testConcurrency(), "v1", nil)
	b1.LabelQuotes(context.Background(), "acme-research", quotes)

	b2 := NewBatchLabeler(provider, nil, c, testConcurrency(), "v2", nil)
	b2.LabelQuotes(context.Background(), "acme-research", quotes)

	if got := atomic.LoadInt32(&provider.calls); got != 2 {
		t.Errorf("provider calls = %d, a prompt change must invalidate the cache", got)
	}
}

func TestLabelQuotes_BatchFarExceedingWorkerCount(t *testing.T) {
	defer noSleep(t)()

	provider := &flakyProvider{}
	b := NewBatchLabeler(provider, nil, nil, testConcurrency(), "v1", nil)

	quotes := make([]model.ScoredQuote, 300)
	for i := range quotes {
		quotes[i] = testQuote(fmt.Sprintf("q%03d", i))
	}

	done := make(chan []*LabelResult, 1)
	go func() {
		done <- b.LabelQuotes(context.Background(), "acme-research", quotes)
	}()

	select {
	case results := <-done:
		if len(results) != 300 {
			t.Fatalf("expected 300 results, got %d", len(results))
		}
		for _, r := range results {
			if r.Error != nil {
				t.Fatalf("quote %s failed: %v", r.Quote.QuoteID, r.Error)
			}
		}
	case <-time.After(10 * time.Second):
		t.Fatal("labeler stalled on a batch far larger than its worker count")
	}
}

func TestLabelQuotes_LogsClampCorrections(t *testing.T) {
	defer noSleep(t)()

	core, logs := observer.New(zap.WarnLevel)
	provider := &flakyProvider{corrections: []string{"relevance_score 9.1 clamped to 5"}}
	b := NewBatchLabeler(provider, nil, nil, testConcurrency(), "v1", zap.New(core))

	results := b.LabelQuotes(context.Background(), "acme-research", []model.ScoredQuote{testQuote("q1")})
	if results[0].Error != nil {
		t.Fatalf("label: %v", results[0].Error)
	}

	entries := logs.FilterMessage("label clamped at boundary").All()
	if len(entries) != 1 {
		t.Fatalf("got %d clamp log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["quote_id"] != "q1" {
		t.Errorf("clamp log quote_id = %v, want q1", fields["quote_id"])
	}
	if fields["correction"] != "relevance_score 9.1 clamped to 5" {
		t.Errorf("clamp log correction = %v", fields["correction"])
	}
}

func TestLabelQuotes_CorrectionsStayOutOfCache(t *testing.T) {
	defer noSleep(t)()

	provider := &flakyProvider{corrections: []string{"sentiment defaulted to neutral"}}
	c := cache.NewMemoryCache(time.Hour, time.Hour)
	b := NewBatchLabeler(provider, nil, c, testConcurrency(), "v1", nil)

	quotes := []model.ScoredQuote{testQuote("q1")}
	b.LabelQuotes(context.Background(), "acme-research", quotes)

	results := b.LabelQuotes(context.Background(), "acme-research", quotes)
	if results[0].Error != nil {
		t.Fatalf("cached run: %v", results[0].Error)
	}
	if len(results[0].Label.Corrections) != 0 {
		t.Errorf("cache replayed corrections: %v", results[0].Label.Corrections)
	}
}

func TestLabelQuotes_CancelledContext(t *testing.T) {
	provider := &flakyProvider{failures: 100}
	b := NewBatchLabeler(provider, nil, nil, testConcurrency(), "v1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := b.LabelQuotes(ctx, "acme-research", []model.ScoredQuote{testQuote("q1")})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !errors.Is(results[0].Error, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", results[0].Error)
	}
}
