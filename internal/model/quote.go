package model

import (
	"strings"
)

// Sentiment classifies the emotional polarity of a quote
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// Valid reports whether the sentiment is one of the four recognized values
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return true
	}
	return false
}

// Sentiments lists all recognized sentiment values in a stable order
var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed}

// StakeholderRole identifies the perspective of the person behind a quote
type StakeholderRole string

const (
	RoleExecutive    StakeholderRole = "executive"
	RoleBudgetHolder StakeholderRole = "budget_holder"
	RoleChampion     StakeholderRole = "champion"
	RoleEndUser      StakeholderRole = "end_user"
	RoleIT           StakeholderRole = "it"
	RoleUnknown      StakeholderRole = ""
)

// DecisionImpact grades how decisive a quote was in a purchase/renewal decision
type DecisionImpact string

const (
	ImpactDealTippingPoint DecisionImpact = "deal_tipping_point"
	ImpactDifferentiator   DecisionImpact = "differentiator"
	ImpactBlocker          DecisionImpact = "blocker"
	ImpactHighSalience     DecisionImpact = "high_salience"
	ImpactMediumSalience   DecisionImpact = "medium_salience"
	ImpactLowSalience      DecisionImpact = "low_salience"
	ImpactUnknown          DecisionImpact = ""
)

// ScoredQuote is an immutable record from the scored quote store: one
// interview quote labeled against a business criterion
type ScoredQuote struct {
	QuoteID        string    `json:"quote_id"`
	Text           string    `json:"text"`
	Criterion      string    `json:"criterion"`                 // business dimension the quote is evaluated against
	RelevanceScore float64   `json:"relevance_score"`           // 0-5
	Sentiment      Sentiment `json:"sentiment"`
	InterviewID    string    `json:"interview_id"`              // composite of (interviewee, company)
	Company        string    `json:"company"`
	Interviewee    string    `json:"interviewee"`
	DealStatus     string    `json:"deal_status,omitempty"`

	// Label enrichments from the external scoring collaborator
	StakeholderRole     StakeholderRole `json:"stakeholder_role,omitempty"`
	DecisionImpact      DecisionImpact  `json:"decision_impact,omitempty"`
	PerspectiveShifting bool            `json:"perspective_shifting,omitempty"`
}

// DeriveInterviewID builds the composite interview key from interviewee and
// company. Uniqueness of a human source is defined by this pair, never by
// quote count.
func DeriveInterviewID(interviewee, company string) string {
	norm := func(v string) string {
		return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(v))), " ")
	}
	return norm(interviewee) + "::" + norm(company)
}

// Normalize clamps out-of-range relevance scores and defaults unrecognized
// sentiments, returning the list of corrections applied so callers can log
// them for audit. Validation happens here at the ingestion boundary, not in
// the aggregation stages.
func (q *ScoredQuote) Normalize() []string {
	var corrections []string

	if q.RelevanceScore < 0 {
		corrections = append(corrections, "relevance_score below 0, clamped")
		q.RelevanceScore = 0
	}
	if q.RelevanceScore > 5 {
		corrections = append(corrections, "relevance_score above 5, clamped")
		q.RelevanceScore = 5
	}
	if !q.Sentiment.Valid() {
		corrections = append(corrections, "unrecognized sentiment "+string(q.Sentiment)+", defaulted to neutral")
		q.Sentiment = SentimentNeutral
	}
	if q.InterviewID == "" {
		q.InterviewID = DeriveInterviewID(q.Interviewee, q.Company)
	}

	return corrections
}

// WordCount returns the number of whitespace-separated words in the quote text
func (q ScoredQuote) WordCount() int {
	return len(strings.Fields(q.Text))
}
