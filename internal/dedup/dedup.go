package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/chorus-insights/chorus/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence surface the deduplicator and curator need. The
// SQLite store implements it; tests may substitute their own.
type Store interface {
	InsertRawTheme(ctx context.Context, t model.RawTheme) (bool, error)
	GetRawTheme(ctx context.Context, clientID, rawThemeID string) (*model.RawTheme, error)

	InsertCanonicalTheme(ctx context.Context, t model.CanonicalTheme) error
	GetCanonicalTheme(ctx context.Context, clientID, canonicalID string) (*model.CanonicalTheme, error)
	ListCanonicalBySubject(ctx context.Context, clientID, subject string) ([]model.CanonicalTheme, error)
	UpdateCanonicalAggregates(ctx context.Context, t *model.CanonicalTheme) error

	InsertMapping(ctx context.Context, m model.ThemeMapping) error
	GetMapping(ctx context.Context, clientID, mappingID string) (*model.ThemeMapping, error)
	ListMappingsByCanonical(ctx context.Context, clientID, canonicalID string, decision model.AnalystDecision) ([]model.ThemeMapping, error)
	UpdateMappingDecision(ctx context.Context, clientID, mappingID string, version int64, decision model.AnalystDecision, notes string) error
}

// Deduplicator collapses raw themes, possibly produced across multiple runs,
// into stable canonical themes while preserving full audit lineage
type Deduplicator struct {
	store  Store
	scorer SimilarityScorer
	cfg    model.DedupConfig
	log    *zap.Logger
}

// NewDeduplicator creates a deduplicator over the given store and similarity
// scorer. A nil scorer gets the lexical default.
func NewDeduplicator(store Store, scorer SimilarityScorer, cfg model.DedupConfig, log *zap.Logger) *Deduplicator {
	if scorer == nil {
		scorer = NewLexicalScorer()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Deduplicator{store: store, scorer: scorer, cfg: cfg, log: log}
}

// Absorb persists a raw theme and links it to the canonical layer: if the
// best similarity against existing canonicals sharing the subject clears the
// merge threshold, a pending merged_into mapping is suggested; otherwise a
// new canonical theme is created with a pending evidence_of self-mapping.
// Absorb is idempotent: re-absorbing an identical raw theme changes nothing.
func (d *Deduplicator) Absorb(ctx context.Context, rc model.RunContext, raw model.RawTheme) (*model.ThemeMapping, error) {
	inserted, err := d.store.InsertRawTheme(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("insert raw theme: %w", err)
	}
	if !inserted {
		d.log.Debug("raw theme already absorbed",
			zap.String("raw_theme_id", raw.RawThemeID),
			zap.String("client_id", rc.ClientID))
		return nil, nil
	}

	canonicals, err := d.store.ListCanonicalBySubject(ctx, rc.ClientID, raw.Subject)
	if err != nil {
		return nil, fmt.Errorf("list canonical themes: %w", err)
	}

	var best *model.CanonicalTheme
	var bestSim Similarity
	for i := range canonicals {
		sim := d.scorer.Score(raw, canonicals[i])
		if best == nil || sim.Combined > bestSim.Combined {
			best = &canonicals[i]
			bestSim = sim
		}
	}

	now := time.Now().UTC()

	if best != nil && bestSim.Combined >= d.cfg.MergeThreshold {
		mapping := model.ThemeMapping{
			MappingID:        uuid.NewString(),
			ClientID:         rc.ClientID,
			RawThemeID:       raw.RawThemeID,
			CanonicalID:      best.CanonicalID,
			RelationshipType: model.RelMergedInto,
			ConfidenceScore:  bestSim.Combined,
			AnalystDecision:  model.DecisionPending,
			MergeRationale:   bestSim.Rationale(),
			Version:          1,
			UpdatedAt:        now,
		}
		if err := d.store.InsertMapping(ctx, mapping); err != nil {
			return nil, fmt.Errorf("insert merge mapping: %w", err)
		}
		d.log.Info("merge suggested",
			zap.String("raw_theme_id", raw.RawThemeID),
			zap.String("canonical_id", best.CanonicalID),
			zap.Float64("similarity", bestSim.Combined))
		return &mapping, nil
	}

	canonical := model.CanonicalTheme{
		CanonicalID:        uuid.NewString(),
		ClientID:           rc.ClientID,
		Subject:            raw.Subject,
		CanonicalStatement: raw.Statement,
		PrimaryFacet:       raw.Subject,
		DominantSentiment:  raw.DominantSentiment,
		Version:            1,
		UpdatedAt:          now,
	}
	if err := d.store.InsertCanonicalTheme(ctx, canonical); err != nil {
		return nil, fmt.Errorf("insert canonical theme: %w", err)
	}

	mapping := model.ThemeMapping{
		MappingID:        uuid.NewString(),
		ClientID:         rc.ClientID,
		RawThemeID:       raw.RawThemeID,
		CanonicalID:      canonical.CanonicalID,
		RelationshipType: model.RelEvidenceOf,
		ConfidenceScore:  1.0,
		AnalystDecision:  model.DecisionPending,
		MergeRationale:   "seeded new canonical theme",
		Version:          1,
		UpdatedAt:        now,
	}
	if err := d.store.InsertMapping(ctx, mapping); err != nil {
		return nil, fmt.Errorf("insert seed mapping: %w", err)
	}
	d.log.Info("canonical theme created",
		zap.String("raw_theme_id", raw.RawThemeID),
		zap.String("canonical_id", canonical.CanonicalID),
		zap.String("subject", raw.Subject))
	return &mapping, nil
}
