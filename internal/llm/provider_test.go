package llm

import (
	"strings"
	"testing"

	"github.com/chorus-insights/chorus/internal/model"
)

func TestParseLabel_PlainJSON(t *testing.T) {
	raw := `{"relevance_score": 4.5, "sentiment": "negative", "stakeholder_role": "executive",
		"decision_impact": "blocker", "perspective_shifting": true, "reasoning": "explicit deal blocker"}`

	label, corrections, err := ParseLabel(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(corrections) != 0 {
		t.Errorf("unexpected corrections: %v", corrections)
	}
	if label.RelevanceScore != 4.5 {
		t.Errorf("relevance = %v, want 4.5", label.RelevanceScore)
	}
	if label.Sentiment != model.SentimentNegative {
		t.Errorf("sentiment = %q, want negative", label.Sentiment)
	}
	if label.StakeholderRole != model.RoleExecutive {
		t.Errorf("role = %q, want executive", label.StakeholderRole)
	}
	if label.DecisionImpact != model.ImpactBlocker {
		t.Errorf("impact = %q, want blocker", label.DecisionImpact)
	}
	if !label.PerspectiveShifting {
		t.Error("perspective_shifting should be true")
	}
}

func TestParseLabel_StripsCodeFences(t *testing.T) {
	raw := "```json\n{\"relevance_score\": 3, \"sentiment\": \"positive\"}\n```"
	label, _, err := ParseLabel(raw)
	if err != nil {
		t.Fatalf("parse fenced JSON: %v", err)
	}
	if label.RelevanceScore != 3 || label.Sentiment != model.SentimentPositive {
		t.Errorf("unexpected label: %+v", label)
	}
}

func TestParseLabel_ClampsRelevance(t *testing.T) {
	label, corrections, err := ParseLabel(`{"relevance_score": 9.1, "sentiment": "neutral"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if label.RelevanceScore != 5 {
		t.Errorf("relevance = %v, want clamped 5", label.RelevanceScore)
	}
	if len(corrections) != 1 || !strings.Contains(corrections[0], "clamped") {
		t.Errorf("expected a clamp correction, got %v", corrections)
	}

	label, _, err = ParseLabel(`{"relevance_score": -2, "sentiment": "neutral"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if label.RelevanceScore != 0 {
		t.Errorf("relevance = %v, want clamped 0", label.RelevanceScore)
	}
}

func TestParseLabel_DefaultsInvalidSentiment(t *testing.T) {
	label, corrections, err := ParseLabel(`{"relevance_score": 2, "sentiment": "ecstatic"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if label.Sentiment != model.SentimentNeutral {
		t.Errorf("sentiment = %q, want defaulted neutral", label.Sentiment)
	}
	if len(corrections) != 1 {
		t.Errorf("expected 1 correction, got %v", corrections)
	}
}

func TestParseLabel_RejectsGarbage(t *testing.T) {
	if _, _, err := ParseLabel("the quote seems quite negative to me"); err == nil {
		t.Error("non-JSON response should fail to parse")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(LabelRequest{
		Text:       "we almost walked away over the audit gaps",
		Criterion:  "security",
		DealStatus: "won",
	})
	for _, want := range []string{"security", "won", "audit gaps"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	noDeal := BuildPrompt(LabelRequest{Text: "fine", Criterion: "support"})
	if strings.Contains(noDeal, "Deal outcome") {
		t.Error("prompt should omit deal outcome when unknown")
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{Provider: ""})
	if err != nil || p != nil {
		t.Errorf("empty provider should disable labeling, got %v / %v", p, err)
	}

	if _, err := NewProvider(Config{Provider: "clippy"}); err == nil {
		t.Error("unknown provider should be rejected")
	}

	p, err = NewProvider(Config{Provider: "openai", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("openai provider: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("provider name = %q, want openai", p.Name())
	}
}
