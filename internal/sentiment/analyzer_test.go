package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze_Positive(t *testing.T) {
	a := NewAnalyzer()

	res := a.Analyze("Record growth as startup wins major breakthrough", "")

	assert.Equal(t, LabelPositive, res.Label)
	assert.GreaterOrEqual(t, res.Score, 0.6)
	assert.NotEmpty(t, res.Rationale)
	assert.Contains(t, res.Rationale, "+breakthrough")
}

func TestAnalyze_Negative(t *testing.T) {
	a := NewAnalyzer()

	res := a.Analyze("Fraud scandal deepens as losses mount", "Regulators warn of crisis")

	assert.Equal(t, LabelNegative, res.Label)
	assert.LessOrEqual(t, res.Score, 0.4)
	assert.Contains(t, res.Rationale, "-fraud")
}

func TestAnalyze_NeutralWhenNoLexiconHits(t *testing.T) {
	a := NewAnalyzer()

	res := a.Analyze("Committee publishes quarterly schedule", "")

	assert.Equal(t, LabelNeutral, res.Label)
	assert.InDelta(t, 0.5, res.Score, 0.01)
	assert.Empty(t, res.Rationale)
}

func TestAnalyze_TitleWeighsMoreThanSnippet(t *testing.T) {
	a := NewAnalyzer()

	inTitle := a.Analyze("success", "")
	inSnippet := a.Analyze("", "success")

	assert.Greater(t, inTitle.Score, inSnippet.Score)
}

func TestAnalyze_NegationDampensScore(t *testing.T) {
	a := NewAnalyzer()

	plain := a.Analyze("Strong growth and success story", "")
	negated := a.Analyze("Strong growth and success story it is not", "")

	assert.Less(t, negated.Score, plain.Score)
}

func TestAnalyze_RationaleCapped(t *testing.T) {
	a := NewAnalyzer()

	res := a.Analyze(
		"best breakthrough success innovation growth improvement gain",
		"win surge rise record expansion",
	)

	assert.LessOrEqual(t, len(res.Rationale), 5)
}
