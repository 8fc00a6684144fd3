package dedup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/chorus-insights/chorus/internal/model"
	"github.com/chorus-insights/chorus/internal/store"
)

func openTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "chorus.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRC() model.RunContext {
	return model.RunContext{ClientID: "acme-research", Config: model.DefaultConfig()}
}

func rawTheme(subject, statement string, quoteIDs []string) model.RawTheme {
	return model.RawTheme{
		RawThemeID:         model.RawThemeKey("acme-research", subject, quoteIDs),
		ClientID:           "acme-research",
		Subject:            subject,
		Statement:          statement,
		Source:             model.SourceInterview,
		SupportingQuoteIDs: quoteIDs,
		CompanyCoverage:    []string{"acme", "globex"},
		DominantSentiment:  model.SentimentNegative,
		ImpactScore:        6.0,
		EvidenceStrength:   0.8,
		CreatedAt:          time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestAbsorb_SeedsNewCanonical(t *testing.T) {
	st := openTestStore(t)
	d := NewDeduplicator(st, nil, model.DefaultConfig().Dedup, nil)
	ctx := context.Background()

	mapping, err := d.Absorb(ctx, testRC(), rawTheme("onboarding", "onboarding drags deployments", []string{"q1", "q2"}))
	if err != nil {
		t.Fatalf("absorb: %v", err)
	}
	if mapping == nil {
		t.Fatal("expected a mapping for a fresh raw theme")
	}
	if mapping.RelationshipType != model.RelEvidenceOf {
		t.Errorf("relationship = %s, want evidence_of", mapping.RelationshipType)
	}
	if mapping.AnalystDecision != model.DecisionPending {
		t.Errorf("decision = %s, new mappings must await review", mapping.AnalystDecision)
	}

	canonical, err := st.GetCanonicalTheme(ctx, "acme-research", mapping.CanonicalID)
	if err != nil {
		t.Fatalf("get canonical: %v", err)
	}
	if canonical.CanonicalStatement != "onboarding drags deployments" {
		t.Errorf("canonical statement = %q", canonical.CanonicalStatement)
	}
	// Aggregates stay empty until an analyst approves the mapping.
	if canonical.EvidenceCount != 0 {
		t.Errorf("unapproved canonical evidence count = %d, want 0", canonical.EvidenceCount)
	}
}

func TestAbsorb_SuggestsMergeForSimilarTheme(t *testing.T) {
	st := openTestStore(t)
	d := NewDeduplicator(st, nil, model.DefaultConfig().Dedup, nil)
	ctx := context.Background()

	first, err := d.Absorb(ctx, testRC(), rawTheme("onboarding",
		"negative sentiment on onboarding across 4 quotes from 2 companies", []string{"q1", "q2"}))
	if err != nil {
		t.Fatalf("first absorb: %v", err)
	}

	second, err := d.Absorb(ctx, testRC(), rawTheme("onboarding",
		"negative sentiment on onboarding across 6 quotes from 3 companies", []string{"q3", "q4", "q5"}))
	if err != nil {
		t.Fatalf("second absorb: %v", err)
	}

	if second.RelationshipType != model.RelMergedInto {
		t.Fatalf("relationship = %s, want merged_into", second.RelationshipType)
	}
	if second.CanonicalID != first.CanonicalID {
		t.Error("merge suggestion should point at the existing canonical")
	}
	if second.AnalystDecision != model.DecisionPending {
		t.Errorf("decision = %s, merge suggestions must await review", second.AnalystDecision)
	}
	if second.MergeRationale == "" {
		t.Error("merge suggestion should carry a rationale")
	}
	if second.ConfidenceScore < model.DefaultConfig().Dedup.MergeThreshold {
		t.Errorf("merge confidence %v below threshold", second.ConfidenceScore)
	}
}

func TestAbsorb_DissimilarThemeSeedsItsOwnCanonical(t *testing.T) {
	st := openTestStore(t)
	d := NewDeduplicator(st, nil, model.DefaultConfig().Dedup, nil)
	ctx := context.Background()

	first, err := d.Absorb(ctx, testRC(), rawTheme("onboarding",
		"support response times frustrate champions", []string{"q1", "q2"}))
	if err != nil {
		t.Fatalf("first absorb: %v", err)
	}

	positive := rawTheme("onboarding", "self-serve setup won the technical evaluation", []string{"q3", "q4"})
	positive.DominantSentiment = model.SentimentPositive
	second, err := d.Absorb(ctx, testRC(), positive)
	if err != nil {
		t.Fatalf("second absorb: %v", err)
	}

	if second.RelationshipType != model.RelEvidenceOf {
		t.Errorf("relationship = %s, want a new canonical via evidence_of", second.RelationshipType)
	}
	if second.CanonicalID == first.CanonicalID {
		t.Error("dissimilar theme must not merge into the existing canonical")
	}
}

func TestAbsorb_Idempotent(t *testing.T) {
	st := openTestStore(t)
	d := NewDeduplicator(st, nil, model.DefaultConfig().Dedup, nil)
	ctx := context.Background()

	theme := rawTheme("onboarding", "onboarding drags deployments", []string{"q1", "q2"})
	if _, err := d.Absorb(ctx, testRC(), theme); err != nil {
		t.Fatalf("first absorb: %v", err)
	}

	mapping, err := d.Absorb(ctx, testRC(), theme)
	if err != nil {
		t.Fatalf("re-absorb: %v", err)
	}
	if mapping != nil {
		t.Error("re-absorbing an identical raw theme must change nothing")
	}

	canonicals, err := st.ListCanonicalBySubject(ctx, "acme-research", "onboarding")
	if err != nil {
		t.Fatalf("list canonicals: %v", err)
	}
	if len(canonicals) != 1 {
		t.Errorf("canonical count after re-absorb = %d, want 1", len(canonicals))
	}
}
