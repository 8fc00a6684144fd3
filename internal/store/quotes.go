package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chorus-insights/chorus/internal/model"
)

// SaveQuotes snapshots scored quotes for a client run. Re-saving the same
// quote is an upsert keyed by (client, quote), so re-runs are idempotent.
func (s *SQLiteStore) SaveQuotes(ctx context.Context, clientID string, quotes []model.ScoredQuote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save quotes: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO quotes (client_id, quote_id, text, criterion, relevance_score, sentiment,
			interview_id, company, interviewee, deal_status, stakeholder_role, decision_impact,
			perspective_shifting)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id, quote_id) DO UPDATE SET
			text = excluded.text,
			criterion = excluded.criterion,
			relevance_score = excluded.relevance_score,
			sentiment = excluded.sentiment,
			interview_id = excluded.interview_id,
			company = excluded.company,
			interviewee = excluded.interviewee,
			deal_status = excluded.deal_status,
			stakeholder_role = excluded.stakeholder_role,
			decision_impact = excluded.decision_impact,
			perspective_shifting = excluded.perspective_shifting,
			unscored_reason = NULL
	`)
	if err != nil {
		return fmt.Errorf("prepare quote upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx, clientID, q.QuoteID, q.Text, q.Criterion,
			q.RelevanceScore, string(q.Sentiment), q.InterviewID, q.Company, q.Interviewee,
			q.DealStatus, string(q.StakeholderRole), string(q.DecisionImpact),
			boolToInt(q.PerspectiveShifting)); err != nil {
			return fmt.Errorf("upsert quote %s: %w", q.QuoteID, err)
		}
	}
	return tx.Commit()
}

// MarkUnscored records that a quote could not be labeled and is excluded
// from aggregation for this run
func (s *SQLiteStore) MarkUnscored(ctx context.Context, clientID, quoteID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (client_id, quote_id, text, criterion, relevance_score, sentiment,
			interview_id, company, interviewee, unscored_reason)
		VALUES (?, ?, '', '', 0, 'neutral', '', '', '', ?)
		ON CONFLICT (client_id, quote_id) DO UPDATE SET unscored_reason = excluded.unscored_reason
	`, clientID, quoteID, reason)
	if err != nil {
		return fmt.Errorf("mark quote %s unscored: %w", quoteID, err)
	}
	return nil
}

// GetQuote loads one scored quote
func (s *SQLiteStore) GetQuote(ctx context.Context, clientID, quoteID string) (*model.ScoredQuote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT quote_id, text, criterion, relevance_score, sentiment, interview_id,
			company, interviewee, COALESCE(deal_status, ''), COALESCE(stakeholder_role, ''),
			COALESCE(decision_impact, ''), perspective_shifting
		FROM quotes WHERE client_id = ? AND quote_id = ?
	`, clientID, quoteID)
	return scanQuote(row)
}

// ListQuotes returns all scored (not unscored-excluded) quotes for a client
func (s *SQLiteStore) ListQuotes(ctx context.Context, clientID string) ([]model.ScoredQuote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT quote_id, text, criterion, relevance_score, sentiment, interview_id,
			company, interviewee, COALESCE(deal_status, ''), COALESCE(stakeholder_role, ''),
			COALESCE(decision_impact, ''), perspective_shifting
		FROM quotes
		WHERE client_id = ? AND unscored_reason IS NULL
		ORDER BY quote_id
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var quotes []model.ScoredQuote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (*model.ScoredQuote, error) {
	var q model.ScoredQuote
	var sentiment, role, impact string
	var shifting int
	err := row.Scan(&q.QuoteID, &q.Text, &q.Criterion, &q.RelevanceScore, &sentiment,
		&q.InterviewID, &q.Company, &q.Interviewee, &q.DealStatus, &role, &impact, &shifting)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan quote: %w", err)
	}
	q.Sentiment = model.Sentiment(sentiment)
	q.StakeholderRole = model.StakeholderRole(role)
	q.DecisionImpact = model.DecisionImpact(impact)
	q.PerspectiveShifting = shifting != 0
	return &q, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
