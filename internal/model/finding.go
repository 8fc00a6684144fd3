package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// Priority tiers a finding by its final confidence score
type Priority string

const (
	PriorityHigh     Priority = "priority" // confidence >= 4.0
	PriorityStandard Priority = "standard" // confidence >= 3.0
	PriorityLow      Priority = "low"      // retained for audit, never surfaced downstream
)

// Finding is a confidence-scored, cross-validated observation derived from a
// cluster of scored quotes sharing a criterion and pattern. Findings are
// recomputed from their inputs, never patched.
type Finding struct {
	FindingID string `json:"finding_id"` // stable hash of (criterion, pattern signature)
	Criterion string `json:"criterion"`
	Statement string `json:"statement"`

	BaseScore                int     `json:"base_score"` // satisfied evaluation criteria, 2-8
	StakeholderMultiplier    float64 `json:"stakeholder_multiplier"`
	DecisionImpactMultiplier float64 `json:"decision_impact_multiplier"`
	EvidenceMultiplier       float64 `json:"evidence_multiplier"`
	Confidence               float64 `json:"confidence"` // 0-10

	Priority           Priority `json:"priority"`
	SourceInterviewIDs []string `json:"source_interview_ids"` // >= 2 unless single-source alert
	SupportingQuoteIDs []string `json:"supporting_quote_ids"`

	// Strategic alert escape hatch: a single-source finding may only be
	// materialized with an explicit urgency flag and is excluded from normal
	// aggregation unless it meets the elevated confidence floor.
	SingleSourceAlert bool `json:"single_source_alert,omitempty"`
	UrgencyFlag       bool `json:"urgency_flag,omitempty"`
}

// FindingKey derives the stable natural identifier for a finding so that
// re-running the scorer on unchanged input upserts rather than duplicates.
func FindingKey(criterion, patternSignature string) string {
	sum := sha256.Sum256([]byte(criterion + "\x00" + patternSignature))
	return hex.EncodeToString(sum[:])[:16]
}
