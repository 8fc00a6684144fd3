package pipeline

import (
	"context"
	"fmt"

	"github.com/chorus-insights/chorus/internal/assemble"
	"github.com/chorus-insights/chorus/internal/cache"
	"github.com/chorus-insights/chorus/internal/dedup"
	"github.com/chorus-insights/chorus/internal/llm"
	"github.com/chorus-insights/chorus/internal/model"
	"github.com/chorus-insights/chorus/internal/score"
	"github.com/chorus-insights/chorus/internal/store"
	"github.com/chorus-insights/chorus/internal/worker"
	"go.uber.org/zap"
)

// Pipeline orchestrates a full run from scored quotes to curation-ready
// canonical themes. Each client run is independent: the only shared state
// between concurrent runs is the store, and every write there is keyed by
// client and idempotent by natural key.
type Pipeline struct {
	store     *store.SQLiteStore
	labeler   *worker.BatchLabeler // nil when no provider is configured
	scorer    *score.Scorer
	assembler *assemble.Assembler
	dedup     *dedup.Deduplicator
	curator   *dedup.Curator
	cfg       *model.Config
	log       *zap.Logger
}

// New creates a pipeline over an open store. The LLM labeler is wired only
// when a provider is configured; without one the input quotes must arrive
// pre-labeled.
func New(cfg *model.Config, st *store.SQLiteStore, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var labeler *worker.BatchLabeler
	if cfg.LLM.Provider != "" {
		provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			return nil, fmt.Errorf("label: %w", err)
		}
		var c cache.Cache
		if cfg.Cache.Enabled && cfg.Cache.Dir != "" {
			c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		} else if cfg.Cache.Enabled {
			c = cache.NewMemoryCache(cfg.Cache.MemoryTTL, cfg.Cache.MemoryTTL)
		}
		limiter := worker.NewLimiter(cfg.Concurrency.RequestsPerSecond, cfg.Concurrency.Burst)
		labeler = worker.NewBatchLabeler(provider, limiter, c, cfg.Concurrency, cfg.LLM.PromptVersion, log)
	}

	return &Pipeline{
		store:     st,
		labeler:   labeler,
		scorer:    score.NewScorer(cfg.Scoring, log),
		assembler: assemble.NewAssembler(cfg.Assembly, log),
		dedup:     dedup.NewDeduplicator(st, nil, cfg.Dedup, log),
		curator:   dedup.NewCurator(st, log),
		cfg:       cfg,
		log:       log,
	}, nil
}

// RunSummary reports what one pipeline run produced
type RunSummary struct {
	QuotesIn        int `json:"quotes_in"`
	QuotesLabeled   int `json:"quotes_labeled"`
	QuotesUnscored  int `json:"quotes_unscored"`
	Findings        int `json:"findings"`
	Suppressed      int `json:"suppressed"`
	ThemesEmitted   int `json:"themes_emitted"`
	ThemesTarget    int `json:"themes_target"`
	MergesSuggested int `json:"merges_suggested"`
	NewCanonicals   int `json:"new_canonicals"`
}

// Run executes label -> score -> assemble -> dedup -> persist for one
// client's quotes. Errors carry the failing stage name so callers can tell a
// store outage at ingestion from one at the canonical layer.
func (p *Pipeline) Run(ctx context.Context, rc model.RunContext, quotes []model.ScoredQuote) (*RunSummary, error) {
	summary := &RunSummary{QuotesIn: len(quotes)}

	scored, err := p.label(ctx, rc, quotes, summary)
	if err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}

	if err := p.store.SaveQuotes(ctx, rc.ClientID, scored); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	findings, err := p.scoreStage(ctx, rc, scored)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	summary.Findings = len(findings)

	result := p.assembler.Assemble(rc, findings, scored)
	summary.Suppressed = result.Suppressed
	summary.ThemesEmitted = len(result.Themes)
	summary.ThemesTarget = result.Target.Themes

	for _, theme := range result.Themes {
		mapping, err := p.dedup.Absorb(ctx, rc, theme)
		if err != nil {
			return nil, fmt.Errorf("dedup: %w", err)
		}
		if mapping == nil {
			continue // already absorbed on a previous run
		}
		switch mapping.RelationshipType {
		case model.RelMergedInto:
			summary.MergesSuggested++
		case model.RelEvidenceOf:
			summary.NewCanonicals++
		}
	}

	p.log.Info("run complete",
		zap.String("client_id", rc.ClientID),
		zap.Int("quotes_in", summary.QuotesIn),
		zap.Int("findings", summary.Findings),
		zap.Int("themes", summary.ThemesEmitted),
		zap.Int("merges_suggested", summary.MergesSuggested))

	return summary, nil
}

// label normalizes every quote and, when a collaborator is wired, fills in
// missing labels concurrently. Quotes whose labeling fails after retries are
// marked unscored and excluded from aggregation, never retried here.
func (p *Pipeline) label(ctx context.Context, rc model.RunContext, quotes []model.ScoredQuote, summary *RunSummary) ([]model.ScoredQuote, error) {
	normalized := make([]model.ScoredQuote, 0, len(quotes))
	for _, q := range quotes {
		for _, c := range q.Normalize() {
			p.log.Warn("quote corrected at ingestion",
				zap.String("quote_id", q.QuoteID),
				zap.String("correction", c))
		}
		normalized = append(normalized, q)
	}

	if p.labeler == nil {
		return normalized, nil
	}

	var needLabels []model.ScoredQuote
	byID := make(map[string]int, len(normalized))
	for i, q := range normalized {
		byID[q.QuoteID] = i
		if q.StakeholderRole == model.RoleUnknown && q.DecisionImpact == model.ImpactUnknown {
			needLabels = append(needLabels, q)
		}
	}
	if len(needLabels) == 0 {
		return normalized, nil
	}

	results := p.labeler.LabelQuotes(ctx, rc.ClientID, needLabels)

	failed := make(map[string]bool)
	for _, r := range results {
		if r.Error != nil {
			p.log.Warn("quote labeling failed",
				zap.String("quote_id", r.Quote.QuoteID),
				zap.Error(r.Error))
			if err := p.store.MarkUnscored(ctx, rc.ClientID, r.Quote.QuoteID, r.Error.Error()); err != nil {
				return nil, err
			}
			failed[r.Quote.QuoteID] = true
			summary.QuotesUnscored++
			continue
		}
		if r.Label == nil {
			continue
		}
		i := byID[r.Quote.QuoteID]
		normalized[i].RelevanceScore = r.Label.RelevanceScore
		normalized[i].Sentiment = r.Label.Sentiment
		normalized[i].StakeholderRole = r.Label.StakeholderRole
		normalized[i].DecisionImpact = r.Label.DecisionImpact
		normalized[i].PerspectiveShifting = r.Label.PerspectiveShifting
		summary.QuotesLabeled++
	}

	kept := normalized[:0]
	for _, q := range normalized {
		if !failed[q.QuoteID] {
			kept = append(kept, q)
		}
	}
	return kept, nil
}

// scoreStage clusters quotes into candidates and scores each into at most
// one finding, persisting the emitted ones
func (p *Pipeline) scoreStage(ctx context.Context, rc model.RunContext, quotes []model.ScoredQuote) ([]model.Finding, error) {
	candidates := score.BuildCandidates(quotes)

	var findings []model.Finding
	for _, c := range candidates {
		f, ok := p.scorer.Score(c)
		if !ok {
			continue
		}
		if err := p.store.UpsertFinding(ctx, rc.ClientID, *f); err != nil {
			return nil, err
		}
		findings = append(findings, *f)
	}
	return findings, nil
}

// Curator exposes the curation workflow behind the same construction point
// as the run pipeline
func (p *Pipeline) Curator() *dedup.Curator {
	return p.curator
}
