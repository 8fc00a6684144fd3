package assemble

import (
	"math"
	"sort"

	"github.com/chorus-insights/chorus/internal/model"
)

// ComputeDiversity derives the four bounded diversity metrics for a theme's
// evidence set. All metrics are in [0,1]; an empty evidence set scores zero
// across the board.
func ComputeDiversity(quotes []model.ScoredQuote) model.DiversityMetrics {
	if len(quotes) == 0 {
		return model.DiversityMetrics{}
	}

	companies := make(map[string]bool)
	interviewees := make(map[string]bool)
	perInterview := make(map[string]int)
	sentiments := make(map[model.Sentiment]int)

	for _, q := range quotes {
		companies[q.Company] = true
		interviewees[q.Interviewee] = true
		perInterview[q.InterviewID]++
		sentiments[q.Sentiment]++
	}

	total := float64(len(quotes))
	return model.DiversityMetrics{
		CompanyDiversity:     float64(len(companies)) / total,
		IntervieweeDiversity: float64(len(interviewees)) / total,
		SentimentBalance:     sentimentBalance(sentiments, len(quotes)),
		QuoteBalance:         quoteBalance(perInterview),
	}
}

// sentimentBalance is 1 minus the normalized skew of the sentiment
// distribution: a perfectly even split over the four sentiments scores 1.0,
// a single-sentiment pool scores 0.0.
func sentimentBalance(counts map[model.Sentiment]int, total int) float64 {
	if total == 0 {
		return 0
	}

	buckets := float64(len(model.Sentiments))
	even := float64(total) / buckets

	// Sum of absolute deviations from the even split, normalized by the
	// worst case (everything in one bucket).
	var deviation float64
	for _, s := range model.Sentiments {
		deviation += math.Abs(float64(counts[s]) - even)
	}
	worst := float64(total)-even + even*(buckets-1)
	if worst == 0 {
		return 1
	}
	return 1 - deviation/worst
}

// quoteBalance measures evenness of per-interview quote counts: one minus a
// normalized Gini-like dispersion. Equal contributions score 1.0.
func quoteBalance(perInterview map[string]int) float64 {
	n := len(perInterview)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return 1
	}

	counts := make([]float64, 0, n)
	var total float64
	for _, c := range perInterview {
		counts = append(counts, float64(c))
		total += float64(c)
	}
	sort.Float64s(counts)

	// Gini coefficient over sorted counts.
	var cum float64
	for i, c := range counts {
		cum += c * float64(2*(i+1)-n-1)
	}
	gini := cum / (float64(n) * total)

	// Normalize: the maximum attainable Gini for n sources is (n-1)/n.
	maxGini := float64(n-1) / float64(n)
	if maxGini == 0 {
		return 1
	}
	return clamp01(1 - gini/maxGini)
}

// DiversityWeight derives the bounded multiplier applied to a quote's
// relevance score from its interview's share of the evidence pool. Interviews
// contributing exactly their fair share weigh 1.0; verbose interviews are
// suppressed and rare voices amplified, clamped to [floor, ceil] so no quote
// moves beyond the configured bounds.
func DiversityWeight(interviewQuotes, totalQuotes, totalInterviews int, floor, ceil float64) float64 {
	if interviewQuotes <= 0 || totalQuotes <= 0 || totalInterviews <= 0 {
		return 1.0
	}
	fairShare := float64(totalQuotes) / float64(totalInterviews)
	weight := fairShare / float64(interviewQuotes)
	if weight < floor {
		return floor
	}
	if weight > ceil {
		return ceil
	}
	return weight
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
