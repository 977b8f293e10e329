package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOutcome_CleanJSON(t *testing.T) {
	out := parseOutcome(`{"is_relevant": true, "confidence": 0.87, "travel_keyword": false, "auction_keyword": true, "reasoning": "gala with silent auction"}`)
	assert.True(t, out.IsRelevant)
	assert.InDelta(t, 0.87, out.Confidence, 0.001)
	assert.False(t, out.TravelKeyword)
	assert.True(t, out.AuctionKeyword)
	assert.Equal(t, "gala with silent auction", out.Reasoning)
}

func TestParseOutcome_JSONWithSurroundingProse(t *testing.T) {
	out := parseOutcome("Here is my assessment:\n```json\n{\"is_relevant\": true, \"confidence\": 0.7}\n```\nLet me know.")
	assert.True(t, out.IsRelevant)
	assert.InDelta(t, 0.7, out.Confidence, 0.001)
}

func TestParseOutcome_ConfidenceClamped(t *testing.T) {
	out := parseOutcome(`{"is_relevant": true, "confidence": 1.4}`)
	assert.InDelta(t, 1.0, out.Confidence, 0.001)

	out = parseOutcome(`{"is_relevant": false, "confidence": -0.2}`)
	assert.InDelta(t, 0.0, out.Confidence, 0.001)
}

func TestParseOutcome_MalformedDegrades(t *testing.T) {
	out := parseOutcome("I cannot answer that.")
	assert.False(t, out.IsRelevant)
	assert.Zero(t, out.Confidence)
	assert.Equal(t, "unparsable model output", out.Reasoning)
}

func TestParseOutcome_TruncatedJSON(t *testing.T) {
	out := parseOutcome(`{"is_relevant": true, "confi`)
	assert.False(t, out.IsRelevant)
	assert.Zero(t, out.Confidence)
}

func TestNewClient_DefaultMaxTokens(t *testing.T) {
	c := NewClient("key", Config{Model: "claude-sonnet-4-5"})
	sc, ok := c.(*sdkClient)
	assert.True(t, ok)
	assert.Equal(t, int64(1024), sc.cfg.MaxTokens)
}
