package model

import "time"

// RelationshipType describes how a raw theme relates to a canonical theme
type RelationshipType string

const (
	RelMergedInto RelationshipType = "merged_into" // raw theme absorbed by an existing canonical
	RelEvidenceOf RelationshipType = "evidence_of" // raw theme seeded its own canonical
)

// Valid reports whether the relationship type is recognized
func (r RelationshipType) Valid() bool {
	return r == RelMergedInto || r == RelEvidenceOf
}

// AnalystDecision is the curation state of a theme mapping
type AnalystDecision string

const (
	DecisionPending  AnalystDecision = "pending"
	DecisionApproved AnalystDecision = "approved"
	DecisionDenied   AnalystDecision = "denied"
	DecisionEdited   AnalystDecision = "edited"
)

// Valid reports whether the decision is one of the four recognized states
func (d AnalystDecision) Valid() bool {
	switch d {
	case DecisionPending, DecisionApproved, DecisionDenied, DecisionEdited:
		return true
	}
	return false
}

// decisionTransitions is the closed transition table for curation decisions.
// Approved and denied are terminal for direct re-decision; an edit re-opens
// either of them into the re-review loop (edited -> pending -> ...).
var decisionTransitions = map[AnalystDecision][]AnalystDecision{
	DecisionPending:  {DecisionApproved, DecisionDenied, DecisionEdited},
	DecisionEdited:   {DecisionPending, DecisionApproved, DecisionDenied},
	DecisionApproved: {DecisionEdited},
	DecisionDenied:   {DecisionEdited},
}

// CanTransition reports whether moving from d to next is a legal curation
// state change
func (d AnalystDecision) CanTransition(next AnalystDecision) bool {
	for _, allowed := range decisionTransitions[d] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ThemeMapping is a confidence-scored link from a raw theme to a canonical
// theme carrying the analyst's curation decision. Unique per
// (client_id, raw_theme_id, canonical_id).
type ThemeMapping struct {
	MappingID   string           `json:"mapping_id"`
	ClientID    string           `json:"client_id"`
	RawThemeID  string           `json:"raw_theme_id"`
	CanonicalID string           `json:"canonical_id"`

	RelationshipType RelationshipType `json:"relationship_type"`
	ConfidenceScore  float64          `json:"confidence_score"` // 0-1 similarity confidence
	AnalystDecision  AnalystDecision  `json:"analyst_decision"`
	AnalystNotes     string           `json:"analyst_notes,omitempty"`
	MergeRationale   string           `json:"merge_rationale,omitempty"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DecisionRecord is one entry in the append-only curation history for a
// mapping. Later decisions win, but earlier ones are never overwritten.
type DecisionRecord struct {
	MappingID string          `json:"mapping_id"`
	Decision  AnalystDecision `json:"decision"`
	Notes     string          `json:"notes,omitempty"`
	DecidedAt time.Time       `json:"decided_at"`
}

// QuoteCuration is the parallel per-quote curation state at the presentation
// layer. The featured flag is orthogonal to approve/deny and marks especially
// strong evidence.
type QuoteCuration struct {
	ClientID string          `json:"client_id"`
	QuoteID  string          `json:"quote_id"`
	Decision AnalystDecision `json:"decision"`
	Featured bool            `json:"featured"`
}
