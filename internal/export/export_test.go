package export

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chorus-insights/chorus/internal/dedup"
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

func exportQuote(id, company, interviewee string) model.ScoredQuote {
	return model.ScoredQuote{
		QuoteID:        id,
		Text:           "the rollout took three weeks longer than promised",
		Criterion:      "onboarding",
		RelevanceScore: 4.0,
		Sentiment:      model.SentimentNegative,
		InterviewID:    strings.ToLower(interviewee) + "::" + company,
		Company:        company,
		Interviewee:    interviewee,
	}
}

func exportRawTheme(subject, statement string, quoteIDs []string) model.RawTheme {
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

// seedTheme absorbs one raw theme and returns its pending mapping
func seedTheme(t *testing.T, st *store.SQLiteStore, subject, statement string, quoteIDs []string) *model.ThemeMapping {
	t.Helper()
	d := dedup.NewDeduplicator(st, nil, model.DefaultConfig().Dedup, nil)
	mapping, err := d.Absorb(context.Background(), testRC(), exportRawTheme(subject, statement, quoteIDs))
	if err != nil {
		t.Fatalf("absorb: %v", err)
	}
	if mapping == nil {
		t.Fatal("expected a mapping for a fresh raw theme")
	}
	return mapping
}

func TestBuild_OnlyApprovedThemesSurface(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rc := testRC()

	if err := st.SaveQuotes(ctx, rc.ClientID, []model.ScoredQuote{
		exportQuote("q1", "acme", "Sarah"),
		exportQuote("q2", "globex", "Marcus"),
	}); err != nil {
		t.Fatalf("save quotes: %v", err)
	}
	mapping := seedTheme(t, st, "onboarding", "onboarding drags deployments", []string{"q1", "q2"})

	exp := NewExporter(st, nil)

	report, err := exp.Build(ctx, rc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(report.Themes) != 0 {
		t.Fatalf("pending themes must not export, got %d themes", len(report.Themes))
	}

	curator := dedup.NewCurator(st, nil)
	if _, err := curator.Decide(ctx, rc, mapping.MappingID, model.DecisionApproved, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	report, err = exp.Build(ctx, rc)
	if err != nil {
		t.Fatalf("build after approval: %v", err)
	}
	if len(report.Themes) != 1 {
		t.Fatalf("got %d themes, want 1", len(report.Themes))
	}
	theme := report.Themes[0]
	if theme.CanonicalStatement != "onboarding drags deployments" {
		t.Errorf("statement = %q", theme.CanonicalStatement)
	}
	if len(theme.Quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(theme.Quotes))
	}
	for _, q := range theme.Quotes {
		if q.Company == "" || q.Interviewee == "" {
			t.Errorf("quote %s missing attribution: %+v", q.QuoteID, q)
		}
		if q.RelevanceScore != 4.0 {
			t.Errorf("quote %s relevance = %v, want 4.0", q.QuoteID, q.RelevanceScore)
		}
		if q.Sentiment != model.SentimentNegative {
			t.Errorf("quote %s sentiment = %s", q.QuoteID, q.Sentiment)
		}
	}
}

func TestBuild_ExcludesDeniedQuotes(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rc := testRC()

	if err := st.SaveQuotes(ctx, rc.ClientID, []model.ScoredQuote{
		exportQuote("q1", "acme", "Sarah"),
		exportQuote("q2", "globex", "Marcus"),
	}); err != nil {
		t.Fatalf("save quotes: %v", err)
	}
	mapping := seedTheme(t, st, "onboarding", "onboarding drags deployments", []string{"q1", "q2"})

	curator := dedup.NewCurator(st, nil)
	if _, err := curator.Decide(ctx, rc, mapping.MappingID, model.DecisionApproved, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := st.SetQuoteCuration(ctx, model.QuoteCuration{
		ClientID: rc.ClientID,
		QuoteID:  "q2",
		Decision: model.DecisionDenied,
	}); err != nil {
		t.Fatalf("deny quote: %v", err)
	}

	report, err := NewExporter(st, nil).Build(ctx, rc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(report.Themes) != 1 {
		t.Fatalf("got %d themes, want 1", len(report.Themes))
	}
	quotes := report.Themes[0].Quotes
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if quotes[0].QuoteID != "q1" {
		t.Errorf("surviving quote = %s, want q1", quotes[0].QuoteID)
	}
}

func TestBuild_FeaturedQuotesLead(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rc := testRC()

	if err := st.SaveQuotes(ctx, rc.ClientID, []model.ScoredQuote{
		exportQuote("q1", "acme", "Sarah"),
		exportQuote("q2", "globex", "Marcus"),
		exportQuote("q3", "initech", "Priya"),
	}); err != nil {
		t.Fatalf("save quotes: %v", err)
	}
	mapping := seedTheme(t, st, "onboarding", "onboarding drags deployments", []string{"q1", "q2", "q3"})

	curator := dedup.NewCurator(st, nil)
	if _, err := curator.Decide(ctx, rc, mapping.MappingID, model.DecisionApproved, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := st.SetQuoteCuration(ctx, model.QuoteCuration{
		ClientID: rc.ClientID,
		QuoteID:  "q3",
		Decision: model.DecisionApproved,
		Featured: true,
	}); err != nil {
		t.Fatalf("feature quote: %v", err)
	}

	report, err := NewExporter(st, nil).Build(ctx, rc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	quotes := report.Themes[0].Quotes
	if len(quotes) != 3 {
		t.Fatalf("got %d quotes, want 3", len(quotes))
	}
	if quotes[0].QuoteID != "q3" || !quotes[0].Featured {
		t.Errorf("featured quote must lead, got %s (featured=%v)", quotes[0].QuoteID, quotes[0].Featured)
	}
	if quotes[1].QuoteID != "q1" || quotes[2].QuoteID != "q2" {
		t.Errorf("remaining quotes out of order: %s, %s", quotes[1].QuoteID, quotes[2].QuoteID)
	}
}

func TestBuild_SortsByConfidence(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rc := testRC()

	if err := st.SaveQuotes(ctx, rc.ClientID, []model.ScoredQuote{
		exportQuote("q1", "acme", "Sarah"),
		exportQuote("q2", "globex", "Marcus"),
	}); err != nil {
		t.Fatalf("save quotes: %v", err)
	}

	// Two unrelated subjects so dedup seeds two canonicals.
	m1 := seedTheme(t, st, "onboarding", "onboarding drags deployments for weeks", []string{"q1"})
	m2 := seedTheme(t, st, "pricing", "usage pricing surprises finance teams", []string{"q2"})

	curator := dedup.NewCurator(st, nil)
	for _, m := range []*model.ThemeMapping{m1, m2} {
		if _, err := curator.Decide(ctx, rc, m.MappingID, model.DecisionApproved, ""); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}

	report, err := NewExporter(st, nil).Build(ctx, rc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(report.Themes) != 2 {
		t.Fatalf("got %d themes, want 2", len(report.Themes))
	}
	if report.Themes[0].ConfidenceScore < report.Themes[1].ConfidenceScore {
		t.Error("themes must sort strongest first")
	}
}
