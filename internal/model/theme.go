package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// ThemeSource records where a raw theme came from
type ThemeSource string

const (
	SourceResearch   ThemeSource = "research"
	SourceDiscovered ThemeSource = "discovered"
	SourceInterview  ThemeSource = "interview"
)

// Valid reports whether the source is one of the three recognized values
func (s ThemeSource) Valid() bool {
	switch s {
	case SourceResearch, SourceDiscovered, SourceInterview:
		return true
	}
	return false
}

// DiversityMetrics quantifies how spread out a theme's evidence is across
// companies, people, and sentiment. Each metric is in [0,1].
type DiversityMetrics struct {
	CompanyDiversity     float64 `json:"company_diversity"`     // distinct companies / total quotes
	IntervieweeDiversity float64 `json:"interviewee_diversity"` // distinct interviewees / total quotes
	SentimentBalance     float64 `json:"sentiment_balance"`     // 1 - normalized sentiment skew
	QuoteBalance         float64 `json:"quote_balance"`         // evenness of per-interview quote counts
}

// RawTheme is an unedited, audit-preserved theme exactly as assembled.
// Raw themes are append-only: corrections happen on the canonical layer via
// mappings, never by editing the raw record.
type RawTheme struct {
	RawThemeID string      `json:"raw_theme_id"` // stable hash of (client, subject, evidence fingerprint)
	ClientID   string      `json:"client_id"`
	Subject    string      `json:"subject"`
	Statement  string      `json:"statement"`
	Source     ThemeSource `json:"source"`

	SupportingQuoteIDs []string         `json:"supporting_quote_ids"`
	CompanyCoverage    []string         `json:"company_coverage"`
	Diversity          DiversityMetrics `json:"diversity_metrics"`
	DominantSentiment  Sentiment        `json:"dominant_sentiment"`
	ImpactScore        float64          `json:"impact_score"`
	EvidenceStrength   float64          `json:"evidence_strength"`
	CreatedAt          time.Time        `json:"created_at"`

	// Single-company strategic alerts are the only themes allowed below the
	// two-company cross-validation floor.
	SingleCompanyAlert bool `json:"single_company_alert,omitempty"`
}

// RawThemeKey derives the stable natural identifier for a raw theme from its
// client, subject and evidence fingerprint, keeping assembler re-runs
// idempotent.
func RawThemeKey(clientID, subject string, supportingQuoteIDs []string) string {
	ids := append([]string(nil), supportingQuoteIDs...)
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(clientID + "\x00" + subject + "\x00" + strings.Join(ids, ",")))
	return hex.EncodeToString(sum[:])[:16]
}

// CanonicalTheme is a deduplicated, analyst-curated parent theme aggregating
// one or more raw themes. Aggregates are recomputed from approved mappings
// only; direct edits are limited to analyst notes.
type CanonicalTheme struct {
	CanonicalID        string    `json:"canonical_id"`
	ClientID           string    `json:"client_id"`
	Subject            string    `json:"subject"`
	CanonicalStatement string    `json:"canonical_statement"`
	PrimaryFacet       string    `json:"primary_facet"`
	DominantSentiment  Sentiment `json:"dominant_sentiment"`

	EvidenceCount    int      `json:"evidence_count"`
	CompaniesCovered []string `json:"companies_covered"`
	ConfidenceScore  float64  `json:"confidence_score"`
	AnalystNotes     string   `json:"analyst_notes,omitempty"`

	// Optimistic concurrency: mutations must present the version they read.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
