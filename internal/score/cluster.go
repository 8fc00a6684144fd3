package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chorus-insights/chorus/internal/model"
)

// polarity buckets sentiments into the sign that drives pattern clustering
func polarity(s model.Sentiment) string {
	switch s {
	case model.SentimentPositive:
		return "positive"
	case model.SentimentNegative:
		return "negative"
	default:
		return "neutral"
	}
}

// BuildCandidates clusters scored quotes into finding candidates. A cluster
// is all quotes sharing a criterion and sentiment polarity; the pattern
// signature of the cluster is the stable natural key the scorer hashes into
// a finding identifier.
func BuildCandidates(quotes []model.ScoredQuote) []Candidate {
	type key struct {
		criterion string
		polarity  string
	}

	groups := make(map[key][]model.ScoredQuote)
	var order []key
	for _, q := range quotes {
		k := key{criterion: q.Criterion, polarity: polarity(q.Sentiment)}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], q)
	}
	// Deterministic candidate order regardless of input order.
	sort.Slice(order, func(i, j int) bool {
		if order[i].criterion != order[j].criterion {
			return order[i].criterion < order[j].criterion
		}
		return order[i].polarity < order[j].polarity
	})

	candidates := make([]Candidate, 0, len(order))
	for _, k := range order {
		cluster := groups[k]
		sort.Slice(cluster, func(i, j int) bool { return cluster[i].QuoteID < cluster[j].QuoteID })

		candidates = append(candidates, Candidate{
			Criterion:        k.criterion,
			PatternSignature: k.criterion + "/" + k.polarity,
			Statement:        clusterStatement(k.criterion, k.polarity, cluster),
			Quotes:           cluster,
			CriteriaMet:      evaluateCriteria(cluster),
			UrgencyFlag:      anyBlocker(cluster),
		})
	}
	return candidates
}

// evaluateCriteria checks each of the eight evaluation dimensions against
// the cluster's quotes. Every check is a cheap structural heuristic over the
// labels the external collaborator already produced.
func evaluateCriteria(quotes []model.ScoredQuote) []EvaluationCriterion {
	var met []EvaluationCriterion

	// Recurrence: the pattern shows up repeatedly.
	if len(quotes) >= 3 {
		met = append(met, CriterionRecurrence)
	}

	// Stakeholder weight: someone with budget or executive view said it.
	for _, q := range quotes {
		if q.StakeholderRole == model.RoleExecutive || q.StakeholderRole == model.RoleBudgetHolder ||
			q.StakeholderRole == model.RoleChampion {
			met = append(met, CriterionStakeholderWeight)
			break
		}
	}

	// Materiality: tied to a deal outcome.
	for _, q := range quotes {
		if q.DecisionImpact == model.ImpactDealTippingPoint ||
			q.DecisionImpact == model.ImpactDifferentiator ||
			q.DecisionImpact == model.ImpactBlocker {
			met = append(met, CriterionMateriality)
			break
		}
	}

	// Actionability: at least one quote is highly relevant to the criterion.
	for _, q := range quotes {
		if q.RelevanceScore >= 4.0 {
			met = append(met, CriterionActionability)
			break
		}
	}

	// Specificity: the discussion is substantial rather than throwaway.
	totalWords := 0
	for _, q := range quotes {
		totalWords += q.WordCount()
	}
	if len(quotes) > 0 && totalWords/len(quotes) >= 25 {
		met = append(met, CriterionSpecificity)
	}

	// Tension: both polarities present inside the cluster (mixed quotes).
	hasMixed := false
	for _, q := range quotes {
		if q.Sentiment == model.SentimentMixed {
			hasMixed = true
			break
		}
	}
	if hasMixed {
		met = append(met, CriterionTension)
	}

	// Quantification: numbers in the quote text.
	for _, q := range quotes {
		if strings.ContainsAny(q.Text, "0123456789") {
			met = append(met, CriterionQuantification)
			break
		}
	}

	// Novelty: a quote the interviewee framed as perspective shifting.
	for _, q := range quotes {
		if q.PerspectiveShifting {
			met = append(met, CriterionNovelty)
			break
		}
	}

	return met
}

// anyBlocker flags clusters containing deal-blocking language as urgent,
// which is what allows a single-source strategic alert through
func anyBlocker(quotes []model.ScoredQuote) bool {
	for _, q := range quotes {
		if q.DecisionImpact == model.ImpactBlocker || q.DecisionImpact == model.ImpactDealTippingPoint {
			return true
		}
	}
	return false
}

func clusterStatement(criterion, polarity string, quotes []model.ScoredQuote) string {
	companies := make(map[string]bool)
	for _, q := range quotes {
		companies[q.Company] = true
	}
	return fmt.Sprintf("%s sentiment on %s across %d quotes from %d companies",
		polarity, criterion, len(quotes), len(companies))
}
