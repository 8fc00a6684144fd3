package assemble

import (
	"sort"
	"time"

	"github.com/chorus-insights/chorus/internal/model"
	"go.uber.org/zap"
)

// Assembler partitions the evidence pool into themes such that no single
// interview or company dominates, and the number of themes emitted is
// justified by the actual coverage of the data.
type Assembler struct {
	cfg model.AssemblyConfig
	log *zap.Logger

	// now is injectable so that re-runs on unchanged input produce
	// identical aggregates in tests.
	now func() time.Time
}

// NewAssembler creates an assembler with the given configuration
func NewAssembler(cfg model.AssemblyConfig, log *zap.Logger) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{cfg: cfg, log: log, now: time.Now}
}

// Result carries the emitted themes plus the transparent count decision
type Result struct {
	Themes     []model.RawTheme
	Target     Target
	Suppressed int // candidates dropped for failing the company floor
}

// Assemble builds raw themes for one client run. Findings are grouped by
// criterion into theme candidates, ranked by diversity-weighted evidence,
// and the top candidates up to the data-driven target are emitted. Candidates
// below the two-company floor are suppressed unless they qualify as
// single-company strategic alerts.
func (a *Assembler) Assemble(rc model.RunContext, findings []model.Finding, quotes []model.ScoredQuote) Result {
	quoteByID := make(map[string]model.ScoredQuote, len(quotes))
	for _, q := range quotes {
		quoteByID[q.QuoteID] = q
	}

	interviews := make(map[string]bool)
	companies := make(map[string]bool)
	for _, q := range quotes {
		interviews[q.InterviewID] = true
		companies[q.Company] = true
	}

	candidates := a.buildCandidates(findings, quoteByID, len(quotes), len(interviews))

	target := ThemeCountTarget(TargetInput{
		Companies:      len(companies),
		TotalFindings:  len(findings),
		PatternDensity: patternDensity(len(findings), len(quotes)),
		AvgConfidence:  avgConfidence(findings),
	})

	// Strongest evidence first; ID tiebreak keeps re-runs bit-for-bit equal.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].weightedScore != candidates[j].weightedScore {
			return candidates[i].weightedScore > candidates[j].weightedScore
		}
		return candidates[i].subject < candidates[j].subject
	})

	alertBudget := AlertTarget(findings, a.cfg.AlertImpactFloor, a.cfg.MaxAlerts)

	var themes []model.RawTheme
	suppressed := 0
	for _, c := range candidates {
		if len(themes) >= target.Themes+alertBudget {
			break
		}

		if len(c.companySet) < a.cfg.MinCompanies {
			// The single-company escape hatch exists only for urgent issues
			// with alert-grade impact, and only within the alert budget.
			if !c.urgent || c.impactScore < a.cfg.AlertImpactFloor || alertBudget <= 0 {
				suppressed++
				a.log.Debug("theme suppressed",
					zap.String("subject", c.subject),
					zap.String("reason", "below company coverage floor"),
					zap.Int("companies", len(c.companySet)))
				continue
			}
			alertBudget--
			themes = append(themes, a.materialize(rc, c, true))
			continue
		}

		if len(themes)-countAlerts(themes) >= target.Themes {
			continue
		}
		themes = append(themes, a.materialize(rc, c, false))
	}

	return Result{Themes: themes, Target: target, Suppressed: suppressed}
}

// candidate is an in-progress theme before the emission decision
type candidate struct {
	subject       string
	statement     string
	findings      []model.Finding
	evidence      []model.ScoredQuote
	companySet    map[string]bool
	weightedScore float64
	impactScore   float64
	strength      float64
	urgent        bool
}

// buildCandidates groups findings by criterion and assembles each group's
// capped, diversity-weighted evidence set
func (a *Assembler) buildCandidates(findings []model.Finding, quoteByID map[string]model.ScoredQuote, totalQuotes, totalInterviews int) []candidate {
	groups := make(map[string][]model.Finding)
	var subjects []string
	for _, f := range findings {
		if _, ok := groups[f.Criterion]; !ok {
			subjects = append(subjects, f.Criterion)
		}
		groups[f.Criterion] = append(groups[f.Criterion], f)
	}
	sort.Strings(subjects)

	poolCounts := make(map[string]int)
	for _, q := range quoteByID {
		poolCounts[q.InterviewID]++
	}

	candidates := make([]candidate, 0, len(subjects))
	for _, subject := range subjects {
		group := groups[subject]
		sort.Slice(group, func(i, j int) bool { return group[i].FindingID < group[j].FindingID })

		evidence := a.capEvidence(group, quoteByID)

		c := candidate{
			subject:    subject,
			findings:   group,
			evidence:   evidence,
			companySet: make(map[string]bool),
		}
		for _, q := range evidence {
			c.companySet[q.Company] = true
		}

		var weighted float64
		for _, q := range evidence {
			w := DiversityWeight(poolCounts[q.InterviewID], totalQuotes, totalInterviews,
				a.cfg.WeightFloor, a.cfg.WeightCeil)
			weighted += q.RelevanceScore * w
		}
		c.weightedScore = weighted
		if len(evidence) > 0 {
			c.strength = clamp01(weighted / (float64(len(evidence)) * 5.0))
		}

		for _, f := range group {
			if f.Confidence > c.impactScore {
				c.impactScore = f.Confidence
			}
			if f.UrgencyFlag {
				c.urgent = true
			}
		}
		c.statement = themeStatement(group)

		candidates = append(candidates, c)
	}
	return candidates
}

// capEvidence collects the supporting quotes of a finding group, ranked by
// relevance within each interview and capped at K quotes per interview. This
// is the domination guard: a verbose interview can never contribute more
// than K quotes to one theme.
func (a *Assembler) capEvidence(group []model.Finding, quoteByID map[string]model.ScoredQuote) []model.ScoredQuote {
	perInterview := make(map[string][]model.ScoredQuote)
	seen := make(map[string]bool)
	var interviewOrder []string

	for _, f := range group {
		for _, id := range f.SupportingQuoteIDs {
			q, ok := quoteByID[id]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			if _, ok := perInterview[q.InterviewID]; !ok {
				interviewOrder = append(interviewOrder, q.InterviewID)
			}
			perInterview[q.InterviewID] = append(perInterview[q.InterviewID], q)
		}
	}
	sort.Strings(interviewOrder)

	var evidence []model.ScoredQuote
	for _, iid := range interviewOrder {
		ranked := perInterview[iid]
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].RelevanceScore != ranked[j].RelevanceScore {
				return ranked[i].RelevanceScore > ranked[j].RelevanceScore
			}
			return ranked[i].QuoteID < ranked[j].QuoteID
		})
		if len(ranked) > a.cfg.MaxQuotesPerInterview {
			ranked = ranked[:a.cfg.MaxQuotesPerInterview]
		}
		evidence = append(evidence, ranked...)
	}
	return evidence
}

// materialize freezes a candidate into an immutable raw theme record
func (a *Assembler) materialize(rc model.RunContext, c candidate, alert bool) model.RawTheme {
	ids := make([]string, len(c.evidence))
	for i, q := range c.evidence {
		ids[i] = q.QuoteID
	}
	sort.Strings(ids)

	coverage := make([]string, 0, len(c.companySet))
	for company := range c.companySet {
		coverage = append(coverage, company)
	}
	sort.Strings(coverage)

	return model.RawTheme{
		RawThemeID:         model.RawThemeKey(rc.ClientID, c.subject, ids),
		ClientID:           rc.ClientID,
		Subject:            c.subject,
		Statement:          c.statement,
		Source:             model.SourceInterview,
		SupportingQuoteIDs: ids,
		CompanyCoverage:    coverage,
		Diversity:          ComputeDiversity(c.evidence),
		DominantSentiment:  dominantSentiment(c.evidence),
		ImpactScore:        c.impactScore,
		EvidenceStrength:   c.strength,
		CreatedAt:          a.now().UTC(),
		SingleCompanyAlert: alert,
	}
}

func dominantSentiment(quotes []model.ScoredQuote) model.Sentiment {
	counts := make(map[model.Sentiment]int)
	for _, q := range quotes {
		counts[q.Sentiment]++
	}
	best := model.SentimentNeutral
	bestCount := -1
	for _, s := range model.Sentiments {
		if counts[s] > bestCount {
			best = s
			bestCount = counts[s]
		}
	}
	return best
}

func themeStatement(group []model.Finding) string {
	// The highest-confidence finding speaks for the theme.
	best := group[0]
	for _, f := range group[1:] {
		if f.Confidence > best.Confidence {
			best = f
		}
	}
	return best.Statement
}

func patternDensity(findings, quotes int) float64 {
	if quotes == 0 {
		return 0
	}
	return float64(findings) / float64(quotes)
}

func avgConfidence(findings []model.Finding) float64 {
	if len(findings) == 0 {
		return 0
	}
	var sum float64
	for _, f := range findings {
		sum += f.Confidence
	}
	return sum / float64(len(findings))
}

func countAlerts(themes []model.RawTheme) int {
	n := 0
	for _, t := range themes {
		if t.SingleCompanyAlert {
			n++
		}
	}
	return n
}
