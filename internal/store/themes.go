package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chorus-insights/chorus/internal/model"
)

// InsertRawTheme appends a raw theme. Raw themes are immutable audit
// records: a duplicate insert is silently ignored and reported via the
// boolean so callers can skip the mapping step.
func (s *SQLiteStore) InsertRawTheme(ctx context.Context, t model.RawTheme) (bool, error) {
	quotes, err := json.Marshal(t.SupportingQuoteIDs)
	if err != nil {
		return false, fmt.Errorf("marshal supporting quotes: %w", err)
	}
	coverage, err := json.Marshal(t.CompanyCoverage)
	if err != nil {
		return false, fmt.Errorf("marshal company coverage: %w", err)
	}
	diversity, err := json.Marshal(t.Diversity)
	if err != nil {
		return false, fmt.Errorf("marshal diversity metrics: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO themes_raw (client_id, raw_theme_id, subject, statement,
			source, supporting_quotes, company_coverage, diversity, dominant_sentiment,
			impact_score, evidence_strength, single_company_alert, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ClientID, t.RawThemeID, t.Subject, t.Statement, string(t.Source),
		string(quotes), string(coverage), string(diversity), string(t.DominantSentiment),
		t.ImpactScore, t.EvidenceStrength, boolToInt(t.SingleCompanyAlert),
		t.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("insert raw theme %s: %w", t.RawThemeID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("raw theme rows affected: %w", err)
	}
	return n > 0, nil
}

// GetRawTheme loads one raw theme
func (s *SQLiteStore) GetRawTheme(ctx context.Context, clientID, rawThemeID string) (*model.RawTheme, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT raw_theme_id, subject, statement, source, supporting_quotes,
			company_coverage, diversity, dominant_sentiment, impact_score,
			evidence_strength, single_company_alert, created_at
		FROM themes_raw WHERE client_id = ? AND raw_theme_id = ?
	`, clientID, rawThemeID)

	var t model.RawTheme
	var source, quotes, coverage, diversity, sentiment, createdAt string
	var alert int
	err := row.Scan(&t.RawThemeID, &t.Subject, &t.Statement, &source, &quotes,
		&coverage, &diversity, &sentiment, &t.ImpactScore, &t.EvidenceStrength,
		&alert, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan raw theme: %w", err)
	}

	t.ClientID = clientID
	t.Source = model.ThemeSource(source)
	t.DominantSentiment = model.Sentiment(sentiment)
	t.SingleCompanyAlert = alert != 0
	if err := json.Unmarshal([]byte(quotes), &t.SupportingQuoteIDs); err != nil {
		return nil, fmt.Errorf("unmarshal supporting quotes: %w", err)
	}
	if err := json.Unmarshal([]byte(coverage), &t.CompanyCoverage); err != nil {
		return nil, fmt.Errorf("unmarshal company coverage: %w", err)
	}
	if err := json.Unmarshal([]byte(diversity), &t.Diversity); err != nil {
		return nil, fmt.Errorf("unmarshal diversity metrics: %w", err)
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &t, nil
}

// InsertCanonicalTheme creates a canonical theme
func (s *SQLiteStore) InsertCanonicalTheme(ctx context.Context, t model.CanonicalTheme) error {
	coverage, err := json.Marshal(orEmpty(t.CompaniesCovered))
	if err != nil {
		return fmt.Errorf("marshal companies covered: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO themes_canonical (client_id, canonical_id, subject, canonical_statement,
			primary_facet, dominant_sentiment, evidence_count, companies_covered,
			confidence_score, analyst_notes, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ClientID, t.CanonicalID, t.Subject, t.CanonicalStatement, t.PrimaryFacet,
		string(t.DominantSentiment), t.EvidenceCount, string(coverage),
		t.ConfidenceScore, t.AnalystNotes, t.Version,
		t.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert canonical theme %s: %w", t.CanonicalID, err)
	}
	return nil
}

// GetCanonicalTheme loads one canonical theme
func (s *SQLiteStore) GetCanonicalTheme(ctx context.Context, clientID, canonicalID string) (*model.CanonicalTheme, error) {
	row := s.db.QueryRowContext(ctx, canonicalSelect+` WHERE client_id = ? AND canonical_id = ?`,
		clientID, canonicalID)
	return scanCanonical(row, clientID)
}

// ListCanonicalBySubject returns the canonical themes sharing a subject,
// the candidate set the deduplicator scores new raw themes against
func (s *SQLiteStore) ListCanonicalBySubject(ctx context.Context, clientID, subject string) ([]model.CanonicalTheme, error) {
	rows, err := s.db.QueryContext(ctx, canonicalSelect+
		` WHERE client_id = ? AND subject = ? ORDER BY canonical_id`, clientID, subject)
	if err != nil {
		return nil, fmt.Errorf("list canonical themes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var themes []model.CanonicalTheme
	for rows.Next() {
		t, err := scanCanonical(rows, clientID)
		if err != nil {
			return nil, err
		}
		themes = append(themes, *t)
	}
	return themes, rows.Err()
}

// ListCanonicalThemes returns every canonical theme for a client
func (s *SQLiteStore) ListCanonicalThemes(ctx context.Context, clientID string) ([]model.CanonicalTheme, error) {
	rows, err := s.db.QueryContext(ctx, canonicalSelect+
		` WHERE client_id = ? ORDER BY confidence_score DESC, canonical_id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list canonical themes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var themes []model.CanonicalTheme
	for rows.Next() {
		t, err := scanCanonical(rows, clientID)
		if err != nil {
			return nil, err
		}
		themes = append(themes, *t)
	}
	return themes, rows.Err()
}

// UpdateCanonicalAggregates writes recomputed aggregates with an optimistic
// version check. A stale version returns ErrVersionConflict.
func (s *SQLiteStore) UpdateCanonicalAggregates(ctx context.Context, t *model.CanonicalTheme) error {
	coverage, err := json.Marshal(orEmpty(t.CompaniesCovered))
	if err != nil {
		return fmt.Errorf("marshal companies covered: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE themes_canonical
		SET evidence_count = ?, companies_covered = ?, confidence_score = ?,
			analyst_notes = ?, version = version + 1, updated_at = ?
		WHERE client_id = ? AND canonical_id = ? AND version = ?
	`, t.EvidenceCount, string(coverage), t.ConfidenceScore, t.AnalystNotes,
		t.UpdatedAt.UTC().Format(time.RFC3339Nano), t.ClientID, t.CanonicalID, t.Version)
	if err != nil {
		return fmt.Errorf("update canonical theme %s: %w", t.CanonicalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("canonical rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("canonical theme %s at version %d: %w", t.CanonicalID, t.Version, ErrVersionConflict)
	}
	t.Version++
	return nil
}

const canonicalSelect = `
	SELECT canonical_id, subject, canonical_statement, COALESCE(primary_facet, ''),
		dominant_sentiment, evidence_count, companies_covered, confidence_score,
		COALESCE(analyst_notes, ''), version, updated_at
	FROM themes_canonical`

func scanCanonical(row rowScanner, clientID string) (*model.CanonicalTheme, error) {
	var t model.CanonicalTheme
	var sentiment, coverage, updatedAt string
	err := row.Scan(&t.CanonicalID, &t.Subject, &t.CanonicalStatement, &t.PrimaryFacet,
		&sentiment, &t.EvidenceCount, &coverage, &t.ConfidenceScore, &t.AnalystNotes,
		&t.Version, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan canonical theme: %w", err)
	}
	t.ClientID = clientID
	t.DominantSentiment = model.Sentiment(sentiment)
	if err := json.Unmarshal([]byte(coverage), &t.CompaniesCovered); err != nil {
		return nil, fmt.Errorf("unmarshal companies covered: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &t, nil
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
