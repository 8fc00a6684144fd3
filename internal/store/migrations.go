package store

import "fmt"

// migrate creates all tables if they don't exist. The DDL is idempotent so
// opening an existing database is a no-op.
func (s *SQLiteStore) migrate() error {
	statements := []string{
		// Scored quote snapshots per client run. Quotes are produced once
		// and never mutated; unscored quotes carry the exclusion reason.
		`CREATE TABLE IF NOT EXISTS quotes (
			client_id        TEXT NOT NULL,
			quote_id         TEXT NOT NULL,
			text             TEXT NOT NULL,
			criterion        TEXT NOT NULL,
			relevance_score  REAL NOT NULL,
			sentiment        TEXT NOT NULL,
			interview_id     TEXT NOT NULL,
			company          TEXT NOT NULL,
			interviewee      TEXT NOT NULL,
			deal_status      TEXT,
			stakeholder_role TEXT,
			decision_impact  TEXT,
			perspective_shifting INTEGER NOT NULL DEFAULT 0,
			unscored_reason  TEXT,
			stored_at        DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (client_id, quote_id)
		)`,

		// Findings are derived deterministically; re-runs upsert on the
		// natural key rather than duplicating.
		`CREATE TABLE IF NOT EXISTS findings (
			client_id            TEXT NOT NULL,
			finding_id           TEXT NOT NULL,
			criterion            TEXT NOT NULL,
			statement            TEXT NOT NULL,
			base_score           INTEGER NOT NULL,
			stakeholder_mult     REAL NOT NULL,
			decision_impact_mult REAL NOT NULL,
			evidence_mult        REAL NOT NULL,
			confidence           REAL NOT NULL,
			priority             TEXT NOT NULL,
			source_interviews    TEXT NOT NULL,
			supporting_quotes    TEXT NOT NULL,
			single_source_alert  INTEGER NOT NULL DEFAULT 0,
			urgency_flag         INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (client_id, finding_id)
		)`,

		// Raw themes are append-only: INSERT OR IGNORE, never UPDATE.
		`CREATE TABLE IF NOT EXISTS themes_raw (
			client_id            TEXT NOT NULL,
			raw_theme_id         TEXT NOT NULL,
			subject              TEXT NOT NULL,
			statement            TEXT NOT NULL,
			source               TEXT NOT NULL CHECK (source IN ('research','discovered','interview')),
			supporting_quotes    TEXT NOT NULL,
			company_coverage     TEXT NOT NULL,
			diversity            TEXT NOT NULL,
			dominant_sentiment   TEXT NOT NULL,
			impact_score         REAL NOT NULL,
			evidence_strength    REAL NOT NULL,
			single_company_alert INTEGER NOT NULL DEFAULT 0,
			created_at           DATETIME NOT NULL,
			PRIMARY KEY (client_id, raw_theme_id)
		)`,

		`CREATE TABLE IF NOT EXISTS themes_canonical (
			client_id           TEXT NOT NULL,
			canonical_id        TEXT NOT NULL,
			subject             TEXT NOT NULL,
			canonical_statement TEXT NOT NULL,
			primary_facet       TEXT,
			dominant_sentiment  TEXT NOT NULL,
			evidence_count      INTEGER NOT NULL DEFAULT 0,
			companies_covered   TEXT NOT NULL DEFAULT '[]',
			confidence_score    REAL NOT NULL DEFAULT 0,
			analyst_notes       TEXT,
			version             INTEGER NOT NULL DEFAULT 1,
			updated_at          DATETIME NOT NULL,
			PRIMARY KEY (client_id, canonical_id)
		)`,

		`CREATE TABLE IF NOT EXISTS themes_mapping (
			client_id         TEXT NOT NULL,
			mapping_id        TEXT NOT NULL,
			raw_theme_id      TEXT NOT NULL,
			canonical_id      TEXT NOT NULL,
			relationship_type TEXT NOT NULL CHECK (relationship_type IN ('merged_into','evidence_of')),
			confidence_score  REAL NOT NULL,
			analyst_decision  TEXT NOT NULL CHECK (analyst_decision IN ('pending','approved','denied','edited')),
			analyst_notes     TEXT,
			merge_rationale   TEXT,
			version           INTEGER NOT NULL DEFAULT 1,
			updated_at        DATETIME NOT NULL,
			PRIMARY KEY (client_id, mapping_id),
			UNIQUE (client_id, raw_theme_id, canonical_id)
		)`,

		// Append-only decision history: conflicting decisions over time are
		// resolved last-writer-wins, but nothing is ever overwritten here.
		`CREATE TABLE IF NOT EXISTS mapping_decisions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id  TEXT NOT NULL,
			mapping_id TEXT NOT NULL,
			decision   TEXT NOT NULL,
			notes      TEXT,
			decided_at DATETIME NOT NULL
		)`,

		// Per-quote curation state at the presentation layer. The featured
		// flag is orthogonal to the decision.
		`CREATE TABLE IF NOT EXISTS quote_curation (
			client_id TEXT NOT NULL,
			quote_id  TEXT NOT NULL,
			decision  TEXT NOT NULL CHECK (decision IN ('pending','approved','denied','edited')),
			featured  INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (client_id, quote_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_canonical_subject ON themes_canonical(client_id, subject)`,
		`CREATE INDEX IF NOT EXISTS idx_mapping_canonical ON themes_mapping(client_id, canonical_id)`,
		`CREATE INDEX IF NOT EXISTS idx_mapping_decision ON themes_mapping(client_id, analyst_decision)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_mapping ON mapping_decisions(client_id, mapping_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap DDL: %w", err)
		}
	}
	return nil
}
