package ranking

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/revalida/internal/config"
	"github.com/hyperjump/revalida/internal/models"
)

// Ranker scales keyword scores by how well a question's stem and options match the
// analyzed query, and drops questions that contain a negated term.
type Ranker struct {
	config config.RankingConfig
}

// NewRanker creates a Ranker. A nil cfg uses the defaults; zero fields are defaulted.
func NewRanker(cfg *config.RankingConfig) *Ranker {
	var c config.RankingConfig
	if cfg != nil {
		c = *cfg
	}
	config.ApplyRankingDefaults(&c)
	return &Ranker{config: c}
}

// Excluded reports whether the stem or any option of q contains a negated term.
func (r *Ranker) Excluded(query *AnalyzedQuery, q *models.Question) bool {
	if len(query.NegatedTerms) == 0 {
		return false
	}
	return countMatchingTerms(query.NegatedTerms, questionText(q)) > 0
}

// Score returns keywordScore scaled by the stem and option match scores.
func (r *Ranker) Score(query *AnalyzedQuery, q *models.Question, keywordScore float64) float64 {
	tokens := query.Tokens()
	stem := r.textScore(query, tokens, strings.ToLower(q.Stem), true)
	options := r.textScore(query, tokens, strings.ToLower(optionsText(q.Options)), false)
	return keywordScore * (1 + r.config.StemWeight*stem + r.config.OptionsWeight*options)
}

// Rerank removes excluded results, rescores the rest and sorts them by score
// (stable, so keyword order breaks ties). Ranks are renumbered from 1.
func (r *Ranker) Rerank(query *AnalyzedQuery, results []*models.SearchResult) []*models.SearchResult {
	kept := results[:0]
	for _, res := range results {
		if res.Question == nil || r.Excluded(query, res.Question) {
			continue
		}
		res.Score = r.Score(query, res.Question, res.Score)
		kept = append(kept, res)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	for i, res := range kept {
		res.Rank = i + 1
	}
	return kept
}

// textScore scores lowercase text: an exact phrase match scores PhraseMatchScore,
// term coverage scores up to AllTermsScore (plus InOrderBonus when every term appears
// in query order). With positional, a first match within PositionBoostRunes runes is
// boosted.
func (r *Ranker) textScore(query *AnalyzedQuery, tokens []string, text string, positional bool) float64 {
	if text == "" {
		return 0
	}
	score := 0.0
	first := -1
	for _, phrase := range query.Phrases {
		if i := strings.Index(text, phrase); i >= 0 {
			score = max(score, r.config.PhraseMatchScore)
			first = earliest(first, i)
		}
	}
	if len(tokens) > 0 {
		matched := countMatchingTerms(tokens, text)
		termScore := r.config.AllTermsScore * float64(matched) / float64(len(tokens))
		if matched == len(tokens) && len(tokens) > 1 && termsInOrder(tokens, text) {
			termScore += r.config.InOrderBonus
		}
		score = max(score, termScore)
		for _, t := range tokens {
			if i := indexWordPrefix(text, t, 0); i >= 0 {
				first = earliest(first, i)
			}
		}
	}
	if positional && score > 0 && first >= 0 && utf8.RuneCountInString(text[:first]) < r.config.PositionBoostRunes {
		score *= r.config.PositionBoostMultiplier
	}
	return score
}

func earliest(a, b int) int {
	if a < 0 || b < a {
		return b
	}
	return a
}

func questionText(q *models.Question) string {
	return strings.ToLower(q.Stem + "\n" + optionsText(q.Options))
}

func optionsText(o models.Options) string {
	parts := make([]string, 0, len(models.Letters))
	for _, letter := range models.Letters {
		if text := o.Get(letter); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
