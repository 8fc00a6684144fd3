package score

import (
	"fmt"
	"sort"

	"github.com/chorus-insights/chorus/internal/model"
	"go.uber.org/zap"
)

// EvaluationCriterion is one of the independent dimensions a candidate
// finding is judged against. The base score is the count of satisfied
// criteria.
type EvaluationCriterion string

const (
	CriterionNovelty           EvaluationCriterion = "novelty"
	CriterionActionability     EvaluationCriterion = "actionability"
	CriterionSpecificity       EvaluationCriterion = "specificity"
	CriterionMateriality       EvaluationCriterion = "materiality"
	CriterionRecurrence        EvaluationCriterion = "recurrence"
	CriterionStakeholderWeight EvaluationCriterion = "stakeholder_weight"
	CriterionTension           EvaluationCriterion = "tension"
	CriterionQuantification    EvaluationCriterion = "quantification"
)

// Candidate is a cluster of scored quotes sharing a criterion and pattern,
// ready to be turned into at most one finding.
type Candidate struct {
	Criterion        string
	PatternSignature string
	Statement        string
	Quotes           []model.ScoredQuote
	CriteriaMet      []EvaluationCriterion
	UrgencyFlag      bool
}

// stakeholderMultipliers maps roles to their confidence multipliers.
// Unknown roles fall back to the neutral 1.0.
var stakeholderMultipliers = map[model.StakeholderRole]float64{
	model.RoleExecutive:    1.5,
	model.RoleBudgetHolder: 1.5,
	model.RoleChampion:     1.3,
	model.RoleEndUser:      1.0,
	model.RoleIT:           1.0,
}

// impactMultipliers maps decision-impact grades to their confidence
// multipliers
var impactMultipliers = map[model.DecisionImpact]float64{
	model.ImpactDealTippingPoint: 2.0,
	model.ImpactDifferentiator:   1.5,
	model.ImpactBlocker:          1.5,
	model.ImpactHighSalience:     1.4,
	model.ImpactMediumSalience:   1.2,
	model.ImpactLowSalience:      1.0,
}

// Scorer turns candidate quote clusters into findings with reproducible
// confidence values
type Scorer struct {
	cfg model.ScoringConfig
	log *zap.Logger
}

// NewScorer creates a scorer with the given configuration
func NewScorer(cfg model.ScoringConfig, log *zap.Logger) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scorer{cfg: cfg, log: log}
}

// Score produces at most one finding from a candidate. The boolean reports
// whether a finding was emitted; a false return is expected suppression
// (insufficient evidence), never an error.
func (s *Scorer) Score(c Candidate) (*model.Finding, bool) {
	interviews := distinctInterviews(c.Quotes)
	base := baseScore(c.CriteriaMet)

	if base < s.cfg.MinCriteria {
		s.log.Debug("finding suppressed",
			zap.String("criterion", c.Criterion),
			zap.String("reason", "too few evaluation criteria met"),
			zap.Int("criteria_met", base))
		return nil, false
	}

	if longestQuoteWords(c.Quotes) < s.cfg.MinQuoteWords {
		s.log.Debug("finding suppressed",
			zap.String("criterion", c.Criterion),
			zap.String("reason", "no substantial discussion"),
			zap.Int("min_words", s.cfg.MinQuoteWords))
		return nil, false
	}

	singleSource := len(interviews) < s.cfg.MinInterviews

	stakeholder := s.stakeholderMultiplier(c)
	impact := s.impactMultiplier(c)
	evidence := evidenceMultiplier(c.Quotes)

	confidence := clamp(float64(base)*stakeholder*impact*evidence, 0, 10)

	if singleSource {
		// Strategic alerts are the only path below the cross-validation
		// floor, and they need both an urgency flag and elevated confidence.
		if !c.UrgencyFlag || confidence < s.cfg.AlertConfidenceFloor {
			s.log.Debug("finding suppressed",
				zap.String("criterion", c.Criterion),
				zap.String("reason", "below cross-validation floor"),
				zap.Int("interviews", len(interviews)))
			return nil, false
		}
	}

	f := &model.Finding{
		FindingID:                model.FindingKey(c.Criterion, c.PatternSignature),
		Criterion:                c.Criterion,
		Statement:                c.Statement,
		BaseScore:                base,
		StakeholderMultiplier:    stakeholder,
		DecisionImpactMultiplier: impact,
		EvidenceMultiplier:       evidence,
		Confidence:               confidence,
		Priority:                 s.tier(confidence),
		SourceInterviewIDs:       interviews,
		SupportingQuoteIDs:       quoteIDs(c.Quotes),
		SingleSourceAlert:        singleSource,
		UrgencyFlag:              c.UrgencyFlag,
	}
	return f, true
}

// stakeholderMultiplier picks the maximum multiplier among contributing
// quotes. Unknown roles default to neutral and are logged for audit.
func (s *Scorer) stakeholderMultiplier(c Candidate) float64 {
	mult := 1.0
	for _, q := range c.Quotes {
		m, ok := stakeholderMultipliers[q.StakeholderRole]
		if !ok {
			if q.StakeholderRole != model.RoleUnknown {
				s.log.Info("unrecognized stakeholder role, using neutral multiplier",
					zap.String("role", string(q.StakeholderRole)),
					zap.String("quote_id", q.QuoteID))
			}
			m = 1.0
		}
		if m > mult {
			mult = m
		}
	}
	return mult
}

// impactMultiplier picks the maximum decision-impact multiplier among
// contributing quotes, defaulting unknown grades to neutral
func (s *Scorer) impactMultiplier(c Candidate) float64 {
	mult := 1.0
	for _, q := range c.Quotes {
		m, ok := impactMultipliers[q.DecisionImpact]
		if !ok {
			if q.DecisionImpact != model.ImpactUnknown {
				s.log.Info("unrecognized decision impact, using neutral multiplier",
					zap.String("impact", string(q.DecisionImpact)),
					zap.String("quote_id", q.QuoteID))
			}
			m = 1.0
		}
		if m > mult {
			mult = m
		}
	}
	return mult
}

// evidenceMultiplier returns 1.3 for strongly polarized sentiment or
// perspective-shifting quotes, 1.0 for standard evidence
func evidenceMultiplier(quotes []model.ScoredQuote) float64 {
	if len(quotes) == 0 {
		return 1.0
	}

	for _, q := range quotes {
		if q.PerspectiveShifting {
			return 1.3
		}
	}

	positive, negative := 0, 0
	for _, q := range quotes {
		switch q.Sentiment {
		case model.SentimentPositive:
			positive++
		case model.SentimentNegative:
			negative++
		}
	}
	total := float64(len(quotes))
	if float64(positive)/total >= 0.8 || float64(negative)/total >= 0.8 {
		return 1.3
	}
	return 1.0
}

func (s *Scorer) tier(confidence float64) model.Priority {
	switch {
	case confidence >= s.cfg.PriorityFloor:
		return model.PriorityHigh
	case confidence >= s.cfg.StandardFloor:
		return model.PriorityStandard
	default:
		return model.PriorityLow
	}
}

// baseScore counts distinct satisfied criteria, clamped to the rubric's
// 8-criterion ceiling
func baseScore(met []EvaluationCriterion) int {
	seen := make(map[EvaluationCriterion]bool, len(met))
	for _, c := range met {
		seen[c] = true
	}
	n := len(seen)
	if n > 8 {
		n = 8
	}
	return n
}

func distinctInterviews(quotes []model.ScoredQuote) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, q := range quotes {
		if !seen[q.InterviewID] {
			seen[q.InterviewID] = true
			ids = append(ids, q.InterviewID)
		}
	}
	sort.Strings(ids)
	return ids
}

func longestQuoteWords(quotes []model.ScoredQuote) int {
	longest := 0
	for _, q := range quotes {
		if n := q.WordCount(); n > longest {
			longest = n
		}
	}
	return longest
}

func quoteIDs(quotes []model.ScoredQuote) []string {
	ids := make([]string, len(quotes))
	for i, q := range quotes {
		ids[i] = q.QuoteID
	}
	sort.Strings(ids)
	return ids
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Describe renders the multiplier breakdown for audit output
func Describe(f *model.Finding) string {
	return fmt.Sprintf("base=%d stakeholder=%.1f impact=%.1f evidence=%.1f -> confidence=%.2f (%s)",
		f.BaseScore, f.StakeholderMultiplier, f.DecisionImpactMultiplier, f.EvidenceMultiplier,
		f.Confidence, f.Priority)
}
