package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chorus-insights/chorus/internal/model"
)

// InsertMapping creates a theme mapping. The (client, raw, canonical) triple
// is unique; absorbing the same raw theme against the same canonical twice
// is a caller bug and surfaces as a constraint error.
func (s *SQLiteStore) InsertMapping(ctx context.Context, m model.ThemeMapping) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO themes_mapping (client_id, mapping_id, raw_theme_id, canonical_id,
			relationship_type, confidence_score, analyst_decision, analyst_notes,
			merge_rationale, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ClientID, m.MappingID, m.RawThemeID, m.CanonicalID, string(m.RelationshipType),
		m.ConfidenceScore, string(m.AnalystDecision), m.AnalystNotes, m.MergeRationale,
		m.Version, m.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert mapping %s: %w", m.MappingID, err)
	}
	return nil
}

// GetMapping loads one mapping
func (s *SQLiteStore) GetMapping(ctx context.Context, clientID, mappingID string) (*model.ThemeMapping, error) {
	row := s.db.QueryRowContext(ctx, mappingSelect+
		` WHERE client_id = ? AND mapping_id = ?`, clientID, mappingID)
	return scanMapping(row, clientID)
}

// ListMappingsByCanonical returns mappings for a canonical theme, optionally
// filtered by decision state (empty decision means all)
func (s *SQLiteStore) ListMappingsByCanonical(ctx context.Context, clientID, canonicalID string, decision model.AnalystDecision) ([]model.ThemeMapping, error) {
	query := mappingSelect + ` WHERE client_id = ? AND canonical_id = ?`
	args := []any{clientID, canonicalID}
	if decision != "" {
		query += ` AND analyst_decision = ?`
		args = append(args, string(decision))
	}
	query += ` ORDER BY mapping_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.ThemeMapping
	for rows.Next() {
		m, err := scanMapping(rows, clientID)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, *m)
	}
	return mappings, rows.Err()
}

// ListPendingMappings returns every mapping awaiting review for a client,
// including edited ones re-entering the review loop
func (s *SQLiteStore) ListPendingMappings(ctx context.Context, clientID string) ([]model.ThemeMapping, error) {
	rows, err := s.db.QueryContext(ctx, mappingSelect+
		` WHERE client_id = ? AND analyst_decision IN ('pending', 'edited') ORDER BY mapping_id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list pending mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.ThemeMapping
	for rows.Next() {
		m, err := scanMapping(rows, clientID)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, *m)
	}
	return mappings, rows.Err()
}

// UpdateMappingDecision applies a decision under an optimistic version
// check, recording it in the append-only history in the same transaction.
// A stale version means another curator decided first: ErrVersionConflict.
func (s *SQLiteStore) UpdateMappingDecision(ctx context.Context, clientID, mappingID string, version int64, decision model.AnalystDecision, notes string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin decision update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := tx.ExecContext(ctx, `
		UPDATE themes_mapping
		SET analyst_decision = ?, analyst_notes = ?, version = version + 1, updated_at = ?
		WHERE client_id = ? AND mapping_id = ? AND version = ?
	`, string(decision), notes, now, clientID, mappingID, version)
	if err != nil {
		return fmt.Errorf("update mapping %s: %w", mappingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mapping rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mapping %s at version %d: %w", mappingID, version, ErrVersionConflict)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO mapping_decisions (client_id, mapping_id, decision, notes, decided_at)
		VALUES (?, ?, ?, ?, ?)
	`, clientID, mappingID, string(decision), notes, now); err != nil {
		return fmt.Errorf("record decision history: %w", err)
	}

	return tx.Commit()
}

// ListDecisionHistory returns the full, never-overwritten decision trail for
// a mapping in chronological order
func (s *SQLiteStore) ListDecisionHistory(ctx context.Context, clientID, mappingID string) ([]model.DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mapping_id, decision, COALESCE(notes, ''), decided_at
		FROM mapping_decisions
		WHERE client_id = ? AND mapping_id = ?
		ORDER BY id
	`, clientID, mappingID)
	if err != nil {
		return nil, fmt.Errorf("list decision history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.DecisionRecord
	for rows.Next() {
		var r model.DecisionRecord
		var decision, decidedAt string
		if err := rows.Scan(&r.MappingID, &decision, &r.Notes, &decidedAt); err != nil {
			return nil, fmt.Errorf("scan decision record: %w", err)
		}
		r.Decision = model.AnalystDecision(decision)
		if r.DecidedAt, err = time.Parse(time.RFC3339Nano, decidedAt); err != nil {
			return nil, fmt.Errorf("parse decided_at: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SetQuoteCuration records the per-quote curation state. The featured flag
// marks especially strong evidence and is independent of approve/deny.
func (s *SQLiteStore) SetQuoteCuration(ctx context.Context, c model.QuoteCuration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quote_curation (client_id, quote_id, decision, featured, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (client_id, quote_id) DO UPDATE SET
			decision = excluded.decision,
			featured = excluded.featured,
			updated_at = excluded.updated_at
	`, c.ClientID, c.QuoteID, string(c.Decision), boolToInt(c.Featured),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set quote curation %s: %w", c.QuoteID, err)
	}
	return nil
}

// GetQuoteCuration loads the curation state for a quote, defaulting to
// pending when no decision has been recorded yet
func (s *SQLiteStore) GetQuoteCuration(ctx context.Context, clientID, quoteID string) (*model.QuoteCuration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT decision, featured FROM quote_curation
		WHERE client_id = ? AND quote_id = ?
	`, clientID, quoteID)

	c := model.QuoteCuration{ClientID: clientID, QuoteID: quoteID, Decision: model.DecisionPending}
	var decision string
	var featured int
	err := row.Scan(&decision, &featured)
	if err == sql.ErrNoRows {
		return &c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan quote curation: %w", err)
	}
	c.Decision = model.AnalystDecision(decision)
	c.Featured = featured != 0
	return &c, nil
}

const mappingSelect = `
	SELECT mapping_id, raw_theme_id, canonical_id, relationship_type, confidence_score,
		analyst_decision, COALESCE(analyst_notes, ''), COALESCE(merge_rationale, ''),
		version, updated_at
	FROM themes_mapping`

func scanMapping(row rowScanner, clientID string) (*model.ThemeMapping, error) {
	var m model.ThemeMapping
	var rel, decision, updatedAt string
	err := row.Scan(&m.MappingID, &m.RawThemeID, &m.CanonicalID, &rel, &m.ConfidenceScore,
		&decision, &m.AnalystNotes, &m.MergeRationale, &m.Version, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan mapping: %w", err)
	}
	m.ClientID = clientID
	m.RelationshipType = model.RelationshipType(rel)
	m.AnalystDecision = model.AnalystDecision(decision)
	if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &m, nil
}
