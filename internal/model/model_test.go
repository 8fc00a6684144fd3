package model

import (
	"strings"
	"testing"
)

func TestDeriveInterviewID(t *testing.T) {
	tests := []struct {
		interviewee string
		company     string
		want        string
	}{
		{"Sarah Chen", "Acme Corp", "sarah chen::acme corp"},
		{"  Sarah   Chen ", "ACME CORP", "sarah chen::acme corp"},
		{"sarah chen", "acme corp", "sarah chen::acme corp"},
		{"", "", "::"},
	}

	for _, tt := range tests {
		got := DeriveInterviewID(tt.interviewee, tt.company)
		if got != tt.want {
			t.Errorf("DeriveInterviewID(%q, %q) = %q, want %q", tt.interviewee, tt.company, got, tt.want)
		}
	}
}

func TestDeriveInterviewID_SamePersonDifferentCompanies(t *testing.T) {
	a := DeriveInterviewID("Jordan Park", "Acme")
	b := DeriveInterviewID("Jordan Park", "Globex")
	if a == b {
		t.Error("same interviewee at different companies must yield distinct interview IDs")
	}
}

func TestNormalize_ClampsRelevance(t *testing.T) {
	q := ScoredQuote{QuoteID: "q1", RelevanceScore: 7.2, Sentiment: SentimentPositive, Interviewee: "A", Company: "B"}
	corrections := q.Normalize()
	if q.RelevanceScore != 5 {
		t.Errorf("expected relevance clamped to 5, got %v", q.RelevanceScore)
	}
	if len(corrections) != 1 {
		t.Errorf("expected 1 correction, got %d: %v", len(corrections), corrections)
	}

	q = ScoredQuote{QuoteID: "q2", RelevanceScore: -1, Sentiment: SentimentNegative}
	q.Normalize()
	if q.RelevanceScore != 0 {
		t.Errorf("expected relevance clamped to 0, got %v", q.RelevanceScore)
	}
}

func TestNormalize_DefaultsSentiment(t *testing.T) {
	q := ScoredQuote{QuoteID: "q1", RelevanceScore: 3, Sentiment: "enthusiastic"}
	corrections := q.Normalize()
	if q.Sentiment != SentimentNeutral {
		t.Errorf("expected neutral sentiment, got %q", q.Sentiment)
	}
	found := false
	for _, c := range corrections {
		if strings.Contains(c, "sentiment") {
			found = true
		}
	}
	if !found {
		t.Error("expected a sentiment correction to be recorded")
	}
}

func TestNormalize_DerivesInterviewID(t *testing.T) {
	q := ScoredQuote{QuoteID: "q1", RelevanceScore: 3, Sentiment: SentimentNeutral, Interviewee: "Sam Lee", Company: "Initech"}
	q.Normalize()
	if q.InterviewID != "sam lee::initech" {
		t.Errorf("expected derived interview ID, got %q", q.InterviewID)
	}
}

func TestFindingKey_Stable(t *testing.T) {
	a := FindingKey("onboarding", "onboarding/negative")
	b := FindingKey("onboarding", "onboarding/negative")
	if a != b {
		t.Error("finding key must be deterministic")
	}
	if len(a) != 16 {
		t.Errorf("expected 16-char key, got %d", len(a))
	}
	if a == FindingKey("onboarding", "onboarding/positive") {
		t.Error("different pattern signatures must yield different keys")
	}
}

func TestRawThemeKey_OrderInsensitive(t *testing.T) {
	a := RawThemeKey("acme", "pricing", []string{"q1", "q2", "q3"})
	b := RawThemeKey("acme", "pricing", []string{"q3", "q1", "q2"})
	if a != b {
		t.Error("raw theme key must not depend on quote ID order")
	}
	if a == RawThemeKey("globex", "pricing", []string{"q1", "q2", "q3"}) {
		t.Error("different clients must yield different keys")
	}
}

func TestRawThemeKey_DoesNotMutateInput(t *testing.T) {
	ids := []string{"q3", "q1", "q2"}
	RawThemeKey("acme", "pricing", ids)
	if ids[0] != "q3" || ids[1] != "q1" || ids[2] != "q2" {
		t.Error("key derivation must not reorder the caller's slice")
	}
}

func TestAnalystDecision_Transitions(t *testing.T) {
	tests := []struct {
		from, to AnalystDecision
		allowed  bool
	}{
		{DecisionPending, DecisionApproved, true},
		{DecisionPending, DecisionDenied, true},
		{DecisionPending, DecisionEdited, true},
		{DecisionPending, DecisionPending, false},
		{DecisionEdited, DecisionPending, true},
		{DecisionEdited, DecisionApproved, true},
		{DecisionEdited, DecisionDenied, true},
		{DecisionApproved, DecisionEdited, true},
		{DecisionApproved, DecisionDenied, false},
		{DecisionApproved, DecisionPending, false},
		{DecisionDenied, DecisionEdited, true},
		{DecisionDenied, DecisionApproved, false},
		{DecisionDenied, DecisionPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.allowed {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestSentiment_Valid(t *testing.T) {
	for _, s := range Sentiments {
		if !s.Valid() {
			t.Errorf("sentiment %q should be valid", s)
		}
	}
	if Sentiment("angry").Valid() {
		t.Error("unrecognized sentiment should be invalid")
	}
}

func TestThemeSource_Valid(t *testing.T) {
	for _, s := range []ThemeSource{SourceResearch, SourceDiscovered, SourceInterview} {
		if !s.Valid() {
			t.Errorf("source %q should be valid", s)
		}
	}
	if ThemeSource("guesswork").Valid() {
		t.Error("unrecognized source should be invalid")
	}
}

func TestWordCount(t *testing.T) {
	q := ScoredQuote{Text: "the onboarding flow cost us two full weeks"}
	if got := q.WordCount(); got != 8 {
		t.Errorf("WordCount = %d, want 8", got)
	}
	if (ScoredQuote{}).WordCount() != 0 {
		t.Error("empty quote should count zero words")
	}
}
