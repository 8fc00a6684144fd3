package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chorus-insights/chorus/internal/model"
)

// UpsertFinding writes a finding keyed by its natural identifier. Re-running
// the scorer on unchanged input overwrites with identical values.
func (s *SQLiteStore) UpsertFinding(ctx context.Context, clientID string, f model.Finding) error {
	interviews, err := json.Marshal(f.SourceInterviewIDs)
	if err != nil {
		return fmt.Errorf("marshal source interviews: %w", err)
	}
	quotes, err := json.Marshal(f.SupportingQuoteIDs)
	if err != nil {
		return fmt.Errorf("marshal supporting quotes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO findings (client_id, finding_id, criterion, statement, base_score,
			stakeholder_mult, decision_impact_mult, evidence_mult, confidence, priority,
			source_interviews, supporting_quotes, single_source_alert, urgency_flag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id, finding_id) DO UPDATE SET
			criterion = excluded.criterion,
			statement = excluded.statement,
			base_score = excluded.base_score,
			stakeholder_mult = excluded.stakeholder_mult,
			decision_impact_mult = excluded.decision_impact_mult,
			evidence_mult = excluded.evidence_mult,
			confidence = excluded.confidence,
			priority = excluded.priority,
			source_interviews = excluded.source_interviews,
			supporting_quotes = excluded.supporting_quotes,
			single_source_alert = excluded.single_source_alert,
			urgency_flag = excluded.urgency_flag
	`, clientID, f.FindingID, f.Criterion, f.Statement, f.BaseScore,
		f.StakeholderMultiplier, f.DecisionImpactMultiplier, f.EvidenceMultiplier,
		f.Confidence, string(f.Priority), string(interviews), string(quotes),
		boolToInt(f.SingleSourceAlert), boolToInt(f.UrgencyFlag))
	if err != nil {
		return fmt.Errorf("upsert finding %s: %w", f.FindingID, err)
	}
	return nil
}

// ListFindings returns all findings for a client ordered by finding id
func (s *SQLiteStore) ListFindings(ctx context.Context, clientID string) ([]model.Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT finding_id, criterion, statement, base_score, stakeholder_mult,
			decision_impact_mult, evidence_mult, confidence, priority,
			source_interviews, supporting_quotes, single_source_alert, urgency_flag
		FROM findings WHERE client_id = ? ORDER BY finding_id
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var findings []model.Finding
	for rows.Next() {
		var f model.Finding
		var priority, interviews, quotes string
		var singleSource, urgency int
		if err := rows.Scan(&f.FindingID, &f.Criterion, &f.Statement, &f.BaseScore,
			&f.StakeholderMultiplier, &f.DecisionImpactMultiplier, &f.EvidenceMultiplier,
			&f.Confidence, &priority, &interviews, &quotes, &singleSource, &urgency); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Priority = model.Priority(priority)
		f.SingleSourceAlert = singleSource != 0
		f.UrgencyFlag = urgency != 0
		if err := json.Unmarshal([]byte(interviews), &f.SourceInterviewIDs); err != nil {
			return nil, fmt.Errorf("unmarshal source interviews: %w", err)
		}
		if err := json.Unmarshal([]byte(quotes), &f.SupportingQuoteIDs); err != nil {
			return nil, fmt.Errorf("unmarshal supporting quotes: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}
