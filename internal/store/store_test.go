package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chorus-insights/chorus/internal/model"
	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chorus.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleQuote(id string) model.ScoredQuote {
	return model.ScoredQuote{
		QuoteID:         id,
		Text:            "the rollout took three weeks longer than the vendor promised",
		Criterion:       "onboarding",
		RelevanceScore:  4.2,
		Sentiment:       model.SentimentNegative,
		InterviewID:     "sarah chen::acme",
		Company:         "acme",
		Interviewee:     "Sarah Chen",
		DealStatus:      "won",
		StakeholderRole: model.RoleChampion,
		DecisionImpact:  model.ImpactDifferentiator,
	}
}

func TestQuotes_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := sampleQuote("q1")
	if err := s.SaveQuotes(ctx, "acme-research", []model.ScoredQuote{want}); err != nil {
		t.Fatalf("save quotes: %v", err)
	}

	got, err := s.GetQuote(ctx, "acme-research", "q1")
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("quote round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestQuotes_SaveIsIdempotentUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	q := sampleQuote("q1")
	if err := s.SaveQuotes(ctx, "acme-research", []model.ScoredQuote{q}); err != nil {
		t.Fatalf("save quotes: %v", err)
	}
	q.RelevanceScore = 3.0
	if err := s.SaveQuotes(ctx, "acme-research", []model.ScoredQuote{q}); err != nil {
		t.Fatalf("re-save quotes: %v", err)
	}

	got, err := s.GetQuote(ctx, "acme-research", "q1")
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if got.RelevanceScore != 3.0 {
		t.Errorf("re-save should update in place, relevance = %v", got.RelevanceScore)
	}

	quotes, err := s.ListQuotes(ctx, "acme-research")
	if err != nil {
		t.Fatalf("list quotes: %v", err)
	}
	if len(quotes) != 1 {
		t.Errorf("expected 1 quote after upsert, got %d", len(quotes))
	}
}

func TestQuotes_MarkUnscoredExcludesFromListing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveQuotes(ctx, "acme-research", []model.ScoredQuote{sampleQuote("q1"), sampleQuote("q2")}); err != nil {
		t.Fatalf("save quotes: %v", err)
	}
	if err := s.MarkUnscored(ctx, "acme-research", "q2", "labeling timed out"); err != nil {
		t.Fatalf("mark unscored: %v", err)
	}

	quotes, err := s.ListQuotes(ctx, "acme-research")
	if err != nil {
		t.Fatalf("list quotes: %v", err)
	}
	if len(quotes) != 1 || quotes[0].QuoteID != "q1" {
		t.Errorf("unscored quote must not appear in aggregation listings, got %v", quotes)
	}
}

func TestQuotes_ClientIsolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveQuotes(ctx, "acme-research", []model.ScoredQuote{sampleQuote("q1")}); err != nil {
		t.Fatalf("save quotes: %v", err)
	}

	if _, err := s.GetQuote(ctx, "other-client", "q1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-client read should be ErrNotFound, got %v", err)
	}
}

func TestFindings_UpsertByNaturalKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	f := model.Finding{
		FindingID:                model.FindingKey("onboarding", "onboarding/negative"),
		Criterion:                "onboarding",
		Statement:                "onboarding friction recurs",
		BaseScore:                3,
		StakeholderMultiplier:    1.5,
		DecisionImpactMultiplier: 2.0,
		EvidenceMultiplier:       1.0,
		Confidence:               9.0,
		Priority:                 model.PriorityHigh,
		SourceInterviewIDs:       []string{"a::acme", "b::globex"},
		SupportingQuoteIDs:       []string{"q1", "q2"},
	}

	if err := s.UpsertFinding(ctx, "acme-research", f); err != nil {
		t.Fatalf("upsert finding: %v", err)
	}
	f.Confidence = 8.0
	if err := s.UpsertFinding(ctx, "acme-research", f); err != nil {
		t.Fatalf("re-upsert finding: %v", err)
	}

	findings, err := s.ListFindings(ctx, "acme-research")
	if err != nil {
		t.Fatalf("list findings: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding after upsert, got %d", len(findings))
	}
	if findings[0].Confidence != 8.0 {
		t.Errorf("confidence = %v, want updated 8.0", findings[0].Confidence)
	}
	if diff := cmp.Diff(f.SourceInterviewIDs, findings[0].SourceInterviewIDs); diff != "" {
		t.Errorf("interview IDs mismatch (-want +got):\n%s", diff)
	}
}

func sampleRawTheme() model.RawTheme {
	ids := []string{"q1", "q2", "q3"}
	return model.RawTheme{
		RawThemeID:         model.RawThemeKey("acme-research", "onboarding", ids),
		ClientID:           "acme-research",
		Subject:            "onboarding",
		Statement:          "onboarding is the dominant friction point",
		Source:             model.SourceInterview,
		SupportingQuoteIDs: ids,
		CompanyCoverage:    []string{"acme", "globex"},
		Diversity: model.DiversityMetrics{
			CompanyDiversity:     0.66,
			IntervieweeDiversity: 0.66,
			SentimentBalance:     0.5,
			QuoteBalance:         1.0,
		},
		DominantSentiment: model.SentimentNegative,
		ImpactScore:       6.0,
		EvidenceStrength:  0.8,
		CreatedAt:         time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestRawThemes_AppendOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	theme := sampleRawTheme()
	inserted, err := s.InsertRawTheme(ctx, theme)
	if err != nil {
		t.Fatalf("insert raw theme: %v", err)
	}
	if !inserted {
		t.Fatal("first insert should report true")
	}

	// A second insert of the same record is ignored, and any attempted edit
	// in the duplicate is discarded.
	theme.Statement = "an edited statement that must never land"
	inserted, err = s.InsertRawTheme(ctx, theme)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Error("duplicate insert should report false")
	}

	got, err := s.GetRawTheme(ctx, "acme-research", theme.RawThemeID)
	if err != nil {
		t.Fatalf("get raw theme: %v", err)
	}
	if got.Statement != "onboarding is the dominant friction point" {
		t.Errorf("raw theme was mutated: %q", got.Statement)
	}
	if diff := cmp.Diff(sampleRawTheme(), *got); diff != "" {
		t.Errorf("raw theme round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCanonical_VersionConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ct := model.CanonicalTheme{
		CanonicalID:        "c1",
		ClientID:           "acme-research",
		Subject:            "onboarding",
		CanonicalStatement: "onboarding needs dedicated tooling",
		PrimaryFacet:       "onboarding",
		DominantSentiment:  model.SentimentNegative,
		Version:            1,
		UpdatedAt:          time.Now().UTC(),
	}
	if err := s.InsertCanonicalTheme(ctx, ct); err != nil {
		t.Fatalf("insert canonical: %v", err)
	}

	fresh := ct
	fresh.EvidenceCount = 3
	if err := s.UpdateCanonicalAggregates(ctx, &fresh); err != nil {
		t.Fatalf("update aggregates: %v", err)
	}
	if fresh.Version != 2 {
		t.Errorf("version after update = %d, want 2", fresh.Version)
	}

	// A writer holding the stale version must be rejected.
	stale := ct
	stale.EvidenceCount = 99
	if err := s.UpdateCanonicalAggregates(ctx, &stale); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale update error = %v, want ErrVersionConflict", err)
	}

	got, err := s.GetCanonicalTheme(ctx, "acme-research", "c1")
	if err != nil {
		t.Fatalf("get canonical: %v", err)
	}
	if got.EvidenceCount != 3 {
		t.Errorf("evidence count = %d, stale write must not land", got.EvidenceCount)
	}
}

func TestMappings_DecisionHistoryAppendOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := model.ThemeMapping{
		MappingID:        "m1",
		ClientID:         "acme-research",
		RawThemeID:       "r1",
		CanonicalID:      "c1",
		RelationshipType: model.RelMergedInto,
		ConfidenceScore:  0.82,
		AnalystDecision:  model.DecisionPending,
		MergeRationale:   "statement=0.84 keywords=0.75 sentiment=1.00 combined=0.82",
		Version:          1,
		UpdatedAt:        time.Now().UTC(),
	}
	if err := s.InsertMapping(ctx, m); err != nil {
		t.Fatalf("insert mapping: %v", err)
	}

	if err := s.UpdateMappingDecision(ctx, "acme-research", "m1", 1, model.DecisionDenied, "wrong cluster"); err != nil {
		t.Fatalf("deny: %v", err)
	}
	if err := s.UpdateMappingDecision(ctx, "acme-research", "m1", 2, model.DecisionEdited, "statement reworded"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := s.UpdateMappingDecision(ctx, "acme-research", "m1", 3, model.DecisionApproved, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Stale version loses the race.
	err := s.UpdateMappingDecision(ctx, "acme-research", "m1", 1, model.DecisionDenied, "")
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale decision error = %v, want ErrVersionConflict", err)
	}

	history, err := s.ListDecisionHistory(ctx, "acme-research", "m1")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	wantTrail := []model.AnalystDecision{model.DecisionDenied, model.DecisionEdited, model.DecisionApproved}
	if len(history) != len(wantTrail) {
		t.Fatalf("history length = %d, want %d", len(history), len(wantTrail))
	}
	for i, want := range wantTrail {
		if history[i].Decision != want {
			t.Errorf("history[%d] = %s, want %s", i, history[i].Decision, want)
		}
	}

	got, err := s.GetMapping(ctx, "acme-research", "m1")
	if err != nil {
		t.Fatalf("get mapping: %v", err)
	}
	if got.AnalystDecision != model.DecisionApproved {
		t.Errorf("final decision = %s, want approved", got.AnalystDecision)
	}
	if got.Version != 4 {
		t.Errorf("final version = %d, want 4", got.Version)
	}
}

func TestMappings_ListPendingIncludesEdited(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, decision := range []model.AnalystDecision{model.DecisionPending, model.DecisionEdited, model.DecisionApproved} {
		m := model.ThemeMapping{
			MappingID:        string(rune('a' + i)),
			ClientID:         "acme-research",
			RawThemeID:       "r1",
			CanonicalID:      string(rune('x' + i)),
			RelationshipType: model.RelEvidenceOf,
			ConfidenceScore:  1.0,
			AnalystDecision:  decision,
			Version:          1,
			UpdatedAt:        time.Now().UTC(),
		}
		if err := s.InsertMapping(ctx, m); err != nil {
			t.Fatalf("insert mapping: %v", err)
		}
	}

	pending, err := s.ListPendingMappings(ctx, "acme-research")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending count = %d, want 2 (pending + edited)", len(pending))
	}
}

func TestQuoteCuration_DefaultsToPending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cur, err := s.GetQuoteCuration(ctx, "acme-research", "q1")
	if err != nil {
		t.Fatalf("get curation: %v", err)
	}
	if cur.Decision != model.DecisionPending || cur.Featured {
		t.Errorf("default curation = %+v, want pending and unfeatured", cur)
	}

	cur.Featured = true
	if err := s.SetQuoteCuration(ctx, *cur); err != nil {
		t.Fatalf("set curation: %v", err)
	}
	got, err := s.GetQuoteCuration(ctx, "acme-research", "q1")
	if err != nil {
		t.Fatalf("get curation: %v", err)
	}
	if !got.Featured {
		t.Error("featured flag should persist")
	}
}
