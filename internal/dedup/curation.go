package dedup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/chorus-insights/chorus/internal/model"
	"go.uber.org/zap"
)

// Curator applies analyst decisions to theme mappings and keeps canonical
// aggregates consistent with the approved evidence. Concurrent decisions on
// the same mapping are serialized by the store's optimistic version check;
// every decision lands in the append-only history regardless of outcome.
type Curator struct {
	store Store
	log   *zap.Logger
}

// NewCurator creates a curator over the given store
func NewCurator(store Store, log *zap.Logger) *Curator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Curator{store: store, log: log}
}

// Decide applies a curation decision to a mapping. The transition table is
// enforced here, at the single point that mutates decisions; the canonical
// theme's aggregates are recomputed afterwards from approved mappings only.
func (c *Curator) Decide(ctx context.Context, rc model.RunContext, mappingID string, decision model.AnalystDecision, notes string) (*model.ThemeMapping, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("unknown analyst decision %q", decision)
	}

	mapping, err := c.store.GetMapping(ctx, rc.ClientID, mappingID)
	if err != nil {
		return nil, fmt.Errorf("load mapping: %w", err)
	}

	if !mapping.AnalystDecision.CanTransition(decision) {
		return nil, fmt.Errorf("illegal decision transition %s -> %s on mapping %s",
			mapping.AnalystDecision, decision, mappingID)
	}

	if err := c.store.UpdateMappingDecision(ctx, rc.ClientID, mappingID, mapping.Version, decision, notes); err != nil {
		return nil, fmt.Errorf("apply decision: %w", err)
	}

	c.log.Info("curation decision applied",
		zap.String("mapping_id", mappingID),
		zap.String("from", string(mapping.AnalystDecision)),
		zap.String("to", string(decision)))

	if err := c.RecomputeAggregates(ctx, rc, mapping.CanonicalID); err != nil {
		return nil, fmt.Errorf("recompute aggregates: %w", err)
	}

	return c.store.GetMapping(ctx, rc.ClientID, mappingID)
}

// RecomputeAggregates rebuilds a canonical theme's evidence count, company
// coverage, and confidence score from its approved mappings. Denied mappings
// stay on record but contribute nothing.
func (c *Curator) RecomputeAggregates(ctx context.Context, rc model.RunContext, canonicalID string) error {
	canonical, err := c.store.GetCanonicalTheme(ctx, rc.ClientID, canonicalID)
	if err != nil {
		return fmt.Errorf("load canonical theme: %w", err)
	}

	approved, err := c.store.ListMappingsByCanonical(ctx, rc.ClientID, canonicalID, model.DecisionApproved)
	if err != nil {
		return fmt.Errorf("list approved mappings: %w", err)
	}

	evidenceCount := 0
	companySet := make(map[string]bool)
	var confidenceSum float64

	for _, m := range approved {
		raw, err := c.store.GetRawTheme(ctx, rc.ClientID, m.RawThemeID)
		if err != nil {
			return fmt.Errorf("load raw theme %s: %w", m.RawThemeID, err)
		}
		evidenceCount += len(raw.SupportingQuoteIDs)
		for _, company := range raw.CompanyCoverage {
			companySet[company] = true
		}
		confidenceSum += m.ConfidenceScore
	}

	companies := make([]string, 0, len(companySet))
	for company := range companySet {
		companies = append(companies, company)
	}
	sort.Strings(companies)

	canonical.EvidenceCount = evidenceCount
	canonical.CompaniesCovered = companies
	if len(approved) > 0 {
		canonical.ConfidenceScore = confidenceSum / float64(len(approved))
	} else {
		canonical.ConfidenceScore = 0
	}
	canonical.UpdatedAt = time.Now().UTC()

	return c.store.UpdateCanonicalAggregates(ctx, canonical)
}
