package export

import (
	"context"
	"fmt"
	"sort"

	"github.com/chorus-insights/chorus/internal/model"
	"go.uber.org/zap"
)

// Store is the read surface the exporter needs from the persistence layer
type Store interface {
	ListCanonicalThemes(ctx context.Context, clientID string) ([]model.CanonicalTheme, error)
	ListMappingsByCanonical(ctx context.Context, clientID, canonicalID string, decision model.AnalystDecision) ([]model.ThemeMapping, error)
	GetRawTheme(ctx context.Context, clientID, rawThemeID string) (*model.RawTheme, error)
	GetQuote(ctx context.Context, clientID, quoteID string) (*model.ScoredQuote, error)
	GetQuoteCuration(ctx context.Context, clientID, quoteID string) (*model.QuoteCuration, error)
}

// Exporter builds the downstream report from curated state. Only themes with
// at least one approved mapping surface, and only quotes an analyst has not
// denied are attached as evidence.
type Exporter struct {
	store Store
	log   *zap.Logger
}

// NewExporter creates an exporter over the given store
func NewExporter(store Store, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{store: store, log: log}
}

// Quote is one attributed piece of evidence in the export
type Quote struct {
	QuoteID        string          `json:"quote_id"`
	Text           string          `json:"text"`
	Interviewee    string          `json:"interviewee"`
	Company        string          `json:"company"`
	RelevanceScore float64         `json:"relevance_score"`
	Sentiment      model.Sentiment `json:"sentiment"`
	Featured       bool            `json:"featured,omitempty"`
}

// Theme is one approved canonical theme with its curated evidence
type Theme struct {
	CanonicalID        string          `json:"canonical_id"`
	Subject            string          `json:"subject"`
	CanonicalStatement string          `json:"canonical_statement"`
	DominantSentiment  model.Sentiment `json:"dominant_sentiment"`
	EvidenceCount      int             `json:"evidence_count"`
	CompaniesCovered   []string        `json:"companies_covered"`
	ConfidenceScore    float64         `json:"confidence_score"`
	Quotes             []Quote         `json:"quotes"`
}

// Report is the complete export for one client
type Report struct {
	ClientID string  `json:"client_id"`
	Themes   []Theme `json:"themes"`
}

// Build assembles the report for one client from approved state only
func (e *Exporter) Build(ctx context.Context, rc model.RunContext) (*Report, error) {
	canonicals, err := e.store.ListCanonicalThemes(ctx, rc.ClientID)
	if err != nil {
		return nil, fmt.Errorf("list canonical themes: %w", err)
	}

	report := &Report{ClientID: rc.ClientID, Themes: []Theme{}}

	for _, ct := range canonicals {
		approved, err := e.store.ListMappingsByCanonical(ctx, rc.ClientID, ct.CanonicalID, model.DecisionApproved)
		if err != nil {
			return nil, fmt.Errorf("list mappings: %w", err)
		}
		if len(approved) == 0 {
			continue
		}

		quotes, err := e.collectQuotes(ctx, rc.ClientID, approved)
		if err != nil {
			return nil, err
		}

		report.Themes = append(report.Themes, Theme{
			CanonicalID:        ct.CanonicalID,
			Subject:            ct.Subject,
			CanonicalStatement: ct.CanonicalStatement,
			DominantSentiment:  ct.DominantSentiment,
			EvidenceCount:      ct.EvidenceCount,
			CompaniesCovered:   ct.CompaniesCovered,
			ConfidenceScore:    ct.ConfidenceScore,
			Quotes:             quotes,
		})
	}

	// Strongest themes first; ID tiebreak keeps the order stable.
	sort.SliceStable(report.Themes, func(i, j int) bool {
		if report.Themes[i].ConfidenceScore != report.Themes[j].ConfidenceScore {
			return report.Themes[i].ConfidenceScore > report.Themes[j].ConfidenceScore
		}
		return report.Themes[i].CanonicalID < report.Themes[j].CanonicalID
	})

	return report, nil
}

// collectQuotes gathers the deduplicated evidence quotes behind a set of
// approved mappings, dropping analyst-denied quotes and flagging featured
// ones
func (e *Exporter) collectQuotes(ctx context.Context, clientID string, mappings []model.ThemeMapping) ([]Quote, error) {
	seen := make(map[string]bool)
	var quotes []Quote

	for _, m := range mappings {
		raw, err := e.store.GetRawTheme(ctx, clientID, m.RawThemeID)
		if err != nil {
			return nil, fmt.Errorf("get raw theme: %w", err)
		}
		for _, qid := range raw.SupportingQuoteIDs {
			if seen[qid] {
				continue
			}
			seen[qid] = true

			q, err := e.store.GetQuote(ctx, clientID, qid)
			if err != nil {
				// Evidence referenced by an approved theme should always
				// resolve; skip and log rather than failing the export.
				e.log.Warn("export quote missing",
					zap.String("quote_id", qid),
					zap.Error(err))
				continue
			}

			cur, err := e.store.GetQuoteCuration(ctx, clientID, qid)
			if err != nil {
				return nil, fmt.Errorf("get quote curation: %w", err)
			}
			if cur.Decision == model.DecisionDenied {
				continue
			}

			quotes = append(quotes, Quote{
				QuoteID:        q.QuoteID,
				Text:           q.Text,
				Interviewee:    q.Interviewee,
				Company:        q.Company,
				RelevanceScore: q.RelevanceScore,
				Sentiment:      q.Sentiment,
				Featured:       cur.Featured,
			})
		}
	}

	// Featured evidence leads.
	sort.SliceStable(quotes, func(i, j int) bool {
		if quotes[i].Featured != quotes[j].Featured {
			return quotes[i].Featured
		}
		return quotes[i].QuoteID < quotes[j].QuoteID
	})

	return quotes, nil
}
