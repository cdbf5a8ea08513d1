package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt_KnownLanguages(t *testing.T) {
	assert.Contains(t, systemPrompt("malayalam"), "Malayalam")
	assert.Contains(t, systemPrompt("english"), "Kerala")
	assert.Contains(t, systemPrompt("hindi"), "केरल")
}

func TestSystemPrompt_FallsBackToEnglish(t *testing.T) {
	assert.Equal(t, systemPrompts["english"], systemPrompt("tamil"))
	assert.Equal(t, systemPrompts["english"], systemPrompt(""))
}

func TestSystemPrompt_CaseInsensitive(t *testing.T) {
	assert.Equal(t, systemPrompts["malayalam"], systemPrompt("Malayalam"))
}

func TestErrorMessage_FallsBackToEnglish(t *testing.T) {
	assert.Equal(t, errorMessages["english"], errorMessage("unknown"))
	assert.NotEmpty(t, errorMessage("malayalam"))
}

func TestTrustScore(t *testing.T) {
	assert.InDelta(t, 0.8075, trustScore(0.85), 1e-9)
	assert.Equal(t, 0.95, trustScore(1.0))
	assert.Equal(t, 0.95, trustScore(2.0))
	assert.Equal(t, 0.0, trustScore(0))
}

func TestExtractTips(t *testing.T) {
	content := "Intro line\nTip: water in the morning\nSuggestion: rotate crops\nTry: neem oil\nTip: mulch beds\nplain line"
	tips := extractTips(content)
	assert.Len(t, tips, 3)
	assert.Equal(t, "Tip: water in the morning", tips[0])
}

func TestExtractRecommendations(t *testing.T) {
	content := "You should test soil pH first.\nIt is important to drain paddies.\nYou must not overwater.\nnothing here"
	recs := extractRecommendations(content)
	assert.Len(t, recs, 2)
	assert.Equal(t, "You should test soil pH first.", recs[0])
}

func TestFallbackAnswer(t *testing.T) {
	s := &Service{}
	ans := s.FallbackAnswer("english")
	assert.Equal(t, errorMessages["english"], ans.Text)
	assert.Equal(t, 0.0, ans.TrustScore)
}
