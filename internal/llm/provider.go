package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chorus-insights/chorus/internal/model"
)

// Provider defines the interface for external quote-labeling collaborators
type Provider interface {
	// Name returns the provider name
	Name() string

	// LabelQuote scores one interview quote against a business criterion
	LabelQuote(ctx context.Context, req LabelRequest) (*QuoteLabel, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// LabelRequest contains the input for quote labeling
type LabelRequest struct {
	// Text is the verbatim quote from the interview transcript
	Text string

	// Criterion is the business dimension to evaluate the quote against
	Criterion string

	// DealStatus gives the collaborator deal-outcome context (won, lost, renewal)
	DealStatus string

	// Model overrides the configured model for this request
	Model string
}

// QuoteLabel is the structured label the collaborator returns for one quote
type QuoteLabel struct {
	RelevanceScore      float64               `json:"relevance_score"` // 0-5
	Sentiment           model.Sentiment       `json:"sentiment"`
	StakeholderRole     model.StakeholderRole `json:"stakeholder_role"`
	DecisionImpact      model.DecisionImpact  `json:"decision_impact"`
	PerspectiveShifting bool                  `json:"perspective_shifting"`
	Reasoning           string                `json:"reasoning,omitempty"`

	// Model records which model produced the label
	Model string `json:"model,omitempty"`

	// Corrections records boundary clamps applied while parsing the raw
	// completion (out-of-range relevance, unknown sentiment). Carried to
	// the caller for audit logging, never cached.
	Corrections []string `json:"-"`
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	// PromptVersion keys the label cache so prompt changes invalidate it
	PromptVersion string

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:      "", // Disabled by default
		Timeout:       30,
		MaxTokens:     500,
		PromptVersion: "v1",
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider:      mc.Provider,
		Model:         mc.Model,
		APIKey:        mc.APIKey,
		BaseURL:       mc.BaseURL,
		Timeout:       mc.Timeout,
		MaxTokens:     mc.MaxTokens,
		PromptVersion: mc.PromptVersion,
		HTTPProxy:     mc.HTTPProxy,
		HTTPSProxy:    mc.HTTPSProxy,
		NoProxy:       mc.NoProxy,
	}
}

// systemPrompt instructs the model to act as a quote labeler returning
// strict JSON. Labels outside the schema are clamped at the boundary.
const systemPrompt = `You are a customer-interview quote labeler. Score one quote against one business criterion.

RULES:
1. Judge only what the quote explicitly says - never infer beyond it.
2. relevance_score is 0-5: how directly the quote speaks to the criterion.
3. sentiment is one of: positive, negative, neutral, mixed.
4. stakeholder_role is one of: executive, budget_holder, champion, end_user, it.
5. decision_impact is one of: deal_tipping_point, differentiator, blocker, high_salience, medium_salience, low_salience.
   Use deal_tipping_point ONLY when the quote explicitly names this as decisive in a purchase or renewal decision.
6. perspective_shifting is true only when the speaker describes the insight as changing how they think.
7. Return ONLY the JSON object, no additional text.

JSON SCHEMA:
{
  "relevance_score": 3.5,
  "sentiment": "negative",
  "stakeholder_role": "executive",
  "decision_impact": "differentiator",
  "perspective_shifting": false,
  "reasoning": "one sentence"
}`

// BuildPrompt constructs the user prompt for a label request
func BuildPrompt(req LabelRequest) string {
	prompt := fmt.Sprintf("Criterion: %s\n", req.Criterion)
	if req.DealStatus != "" {
		prompt += fmt.Sprintf("Deal outcome: %s\n", req.DealStatus)
	}
	prompt += fmt.Sprintf("\nQuote:\n%q\n", req.Text)
	return prompt
}

// ParseLabel decodes the collaborator's JSON response, tolerating markdown
// code fences, and clamps out-of-range values to the nearest valid bound.
// Corrections are reported so callers can log the clamp events for audit.
func ParseLabel(raw string) (*QuoteLabel, []string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var label QuoteLabel
	if err := json.Unmarshal([]byte(cleaned), &label); err != nil {
		return nil, nil, fmt.Errorf("decode label JSON: %w", err)
	}

	var corrections []string
	if label.RelevanceScore < 0 {
		corrections = append(corrections, "relevance_score below 0, clamped")
		label.RelevanceScore = 0
	}
	if label.RelevanceScore > 5 {
		corrections = append(corrections, "relevance_score above 5, clamped")
		label.RelevanceScore = 5
	}
	if !label.Sentiment.Valid() {
		corrections = append(corrections, "unrecognized sentiment "+string(label.Sentiment)+", defaulted to neutral")
		label.Sentiment = model.SentimentNeutral
	}
	return &label, corrections, nil
}
