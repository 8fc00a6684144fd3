package dedup

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/chorus-insights/chorus/internal/model"
)

// Similarity is the component breakdown behind a merge suggestion. Combined
// is the single [0,1] value the merge threshold is compared against; the
// components feed the mapping's merge rationale.
type Similarity struct {
	Statement          float64
	KeywordOverlap     float64
	SentimentAlignment float64
	Combined           float64
}

// Rationale renders the breakdown for the mapping's merge_rationale field
func (s Similarity) Rationale() string {
	return fmt.Sprintf("statement=%.2f keywords=%.2f sentiment=%.2f combined=%.2f",
		s.Statement, s.KeywordOverlap, s.SentimentAlignment, s.Combined)
}

// SimilarityScorer decides how alike a raw theme and a canonical theme are.
// The concrete algorithm (lexical, TF-IDF, embeddings) is swappable without
// touching the dedup or curation logic.
type SimilarityScorer interface {
	Score(raw model.RawTheme, canonical model.CanonicalTheme) Similarity
}

// LexicalScorer is the default scorer: normalized statement similarity
// (token Jaccard or normalized Levenshtein, whichever is higher), shared
// keyword overlap, and sentiment alignment, combined with fixed weights.
type LexicalScorer struct {
	StatementWeight float64
	KeywordWeight   float64
	SentimentWeight float64
}

// NewLexicalScorer returns the default lexical scorer
func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{
		StatementWeight: 0.6,
		KeywordWeight:   0.25,
		SentimentWeight: 0.15,
	}
}

// Score computes the similarity breakdown between a raw and canonical theme
func (s *LexicalScorer) Score(raw model.RawTheme, canonical model.CanonicalTheme) Similarity {
	statement := statementSimilarity(raw.Statement, canonical.CanonicalStatement)
	keywords := keywordOverlap(raw.Statement, canonical.CanonicalStatement)
	sentiment := sentimentAlignment(raw.DominantSentiment, canonical.DominantSentiment)

	combined := s.StatementWeight*statement + s.KeywordWeight*keywords + s.SentimentWeight*sentiment
	if combined > 1 {
		combined = 1
	}
	if combined < 0 {
		combined = 0
	}

	return Similarity{
		Statement:          statement,
		KeywordOverlap:     keywords,
		SentimentAlignment: sentiment,
		Combined:           combined,
	}
}

// statementSimilarity takes the higher of token Jaccard and normalized
// Levenshtein over normalized statements
func statementSimilarity(a, b string) float64 {
	aNorm := normalizeStatement(a)
	bNorm := normalizeStatement(b)
	if aNorm == "" || bNorm == "" {
		return 0
	}
	if aNorm == bNorm {
		return 1
	}
	j := tokenJaccard(aNorm, bNorm)
	l := normalizedLevenshtein(aNorm, bNorm)
	if j > l {
		return j
	}
	return l
}

// keywordOverlap is Jaccard over the non-stopword token sets
func keywordOverlap(a, b string) float64 {
	return setJaccard(keywords(a), keywords(b))
}

// sentimentAlignment scores matching dominant sentiments 1.0, a neutral or
// mixed side against a polarized one 0.5, and opposite polarities 0.0
func sentimentAlignment(a, b model.Sentiment) float64 {
	if a == b {
		return 1
	}
	aPolar := a == model.SentimentPositive || a == model.SentimentNegative
	bPolar := b == model.SentimentPositive || b == model.SentimentNegative
	if aPolar && bPolar {
		return 0
	}
	return 0.5
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {},
	"on": {}, "or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "with": {},
	"across": {}, "about": {},
}

func keywords(v string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(normalizeStatement(v)) {
		if _, stop := stopwords[t]; stop {
			continue
		}
		if len(t) < 3 {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

func normalizeStatement(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(v))
	lastSpace := false
	for _, r := range v {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r), r == '-', r == '_', r == '/':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func tokenJaccard(a, b string) float64 {
	aSet := make(map[string]struct{})
	for _, t := range strings.Fields(a) {
		aSet[t] = struct{}{}
	}
	bSet := make(map[string]struct{})
	for _, t := range strings.Fields(b) {
		bSet[t] = struct{}{}
	}
	return setJaccard(aSet, bSet)
}

func setJaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func normalizedLevenshtein(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	if len(ar) == 0 && len(br) == 0 {
		return 1
	}
	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = minOf(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	dist := prev[len(br)]
	return 1 - float64(dist)/float64(maxLen)
}

func minOf(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
