package sentiment

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Result is the sentiment verdict attached to an article before it is
// persisted.
type Result struct {
	Label     string   `json:"label"` // positive, negative, neutral
	Score     float64  `json:"score"` // 0..1
	Rationale []string `json:"rationale,omitempty"`
}

// Labels produced by the analyzer.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Analyzer is a weighted-lexicon sentiment tagger. It is deliberately
// shallow: headlines are short and the verdict only steers display, so a
// keyword lexicon beats the cost of a model call here.
type Analyzer struct {
	positive map[string]float64
	negative map[string]float64
	negation []string
}

var nonWord = regexp.MustCompile(`[^\w\s]`)
var multiSpace = regexp.MustCompile(`\s+`)

// NewAnalyzer creates an analyzer with the built-in news lexicon.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		positive: map[string]float64{
			"best": 2.0, "breakthrough": 1.8, "good": 1.5, "success": 1.8, "innovat": 1.7,
			"growth": 1.6, "improve": 1.5, "gain": 1.5, "positive": 1.6, "optimis": 1.5,
			"hope": 1.4, "win": 1.7, "surge": 1.6, "rise": 1.5, "record": 1.5,
			"expand": 1.5, "advance": 1.6, "boost": 1.5, "strong": 1.4, "revolution": 1.8,
		},
		negative: map[string]float64{
			"scandal": 1.8, "fraud": 2.0, "corrup": 1.9, "allegation": 1.8, "crisis": 1.7,
			"problem": 1.5, "fail": 1.8, "drop": 1.6, "decline": 1.5, "cut": 1.4,
			"recession": 1.7, "fear": 1.6, "concern": 1.5, "warn": 1.6, "risk": 1.5,
			"loss": 1.6, "damage": 1.7, "accident": 1.8, "crash": 1.8, "layoff": 1.7,
		},
		negation: []string{"not", "no ", "never", "without", "lack"},
	}
}

// Analyze scores a title plus optional snippet. The title carries a 1.5x
// weight since headlines condense the editorial slant.
func (a *Analyzer) Analyze(title, snippet string) Result {
	title = preprocess(title)
	snippet = preprocess(snippet)

	total := a.score(title)*1.5 + a.score(snippet)

	if a.hasNegation(title + " " + snippet) {
		total *= -0.7
	}

	normalized := normalize(total)

	label := LabelNeutral
	switch {
	case normalized >= 0.6:
		label = LabelPositive
	case normalized <= 0.4:
		label = LabelNegative
	}

	return Result{
		Label:     label,
		Score:     normalized,
		Rationale: a.rationale(title+" "+snippet, 5),
	}
}

func preprocess(text string) string {
	text = nonWord.ReplaceAllString(text, " ")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(strings.ToLower(text))
}

func (a *Analyzer) score(text string) float64 {
	score := 0.0
	for _, word := range strings.Fields(text) {
		for lex, weight := range a.positive {
			if strings.Contains(word, lex) {
				score += weight
				break
			}
		}
		for lex, weight := range a.negative {
			if strings.Contains(word, lex) {
				score -= weight
				break
			}
		}
	}
	return score
}

func (a *Analyzer) hasNegation(text string) bool {
	for _, neg := range a.negation {
		if strings.Contains(text, neg) {
			return true
		}
	}
	return false
}

// normalize squashes the raw score into 0..1 via a sigmoid.
func normalize(score float64) float64 {
	n := 1 / (1 + math.Exp(-score/10))
	return math.Max(0, math.Min(1, n))
}

// rationale returns up to topN lexicon hits, strongest first, prefixed with
// their polarity.
func (a *Analyzer) rationale(text string, topN int) []string {
	type hit struct {
		token  string
		weight float64
	}
	var hits []hit
	for lex, weight := range a.positive {
		if strings.Contains(text, lex) {
			hits = append(hits, hit{"+" + lex, weight})
		}
	}
	for lex, weight := range a.negative {
		if strings.Contains(text, lex) {
			hits = append(hits, hit{"-" + lex, weight})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].weight != hits[j].weight {
			return hits[i].weight > hits[j].weight
		}
		return hits[i].token < hits[j].token
	})

	if len(hits) > topN {
		hits = hits[:topN]
	}
	tokens := make([]string, 0, len(hits))
	for _, h := range hits {
		tokens = append(tokens, h.token)
	}
	return tokens
}
