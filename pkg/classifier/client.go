// Package classifier wraps the LLM call that judges whether a candidate
// record describes an upcoming fundraising event.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/eventscout/internal/model"
)

// Client defines the classification operation used by the pipeline.
type Client interface {
	// Classify judges one candidate. The outcome is immutable once
	// produced; the pipeline caches it keyed by URL, title and the
	// threshold variant in effect.
	Classify(ctx context.Context, candidate model.CandidateRecord) (*model.ClassificationOutcome, error)
}

// Config holds model settings for the classifier.
type Config struct {
	Model     string
	MaxTokens int64
}

const systemPrompt = `You judge search results for a fundraising-event lead pipeline.
Given a search result (URL, title, snippet), decide whether it describes an
upcoming nonprofit fundraising event such as a gala, auction, or benefit dinner.
Respond with only a JSON object:
{"is_relevant": bool, "confidence": 0.0-1.0, "travel_keyword": bool,
 "auction_keyword": bool, "reasoning": "one sentence"}
travel_keyword is true when the event mentions travel packages or trips;
auction_keyword when it mentions a live or silent auction.`

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
	cfg    Config
}

// NewClient creates a classifier backed by the Anthropic SDK.
func NewClient(apiKey string, cfg Config) Client {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
		cfg: cfg,
	}
}

func (c *sdkClient) Classify(ctx context.Context, candidate model.CandidateRecord) (*model.ClassificationOutcome, error) {
	prompt := fmt.Sprintf("URL: %s\nTitle: %s\nSnippet: %s\nExtracted date: %s",
		candidate.URL, candidate.Title, candidate.Snippet, candidate.Event.DateText)

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.cfg.Model),
		MaxTokens: c.cfg.MaxTokens,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "classifier: create message")
	}

	var text string
	for _, b := range msg.Content {
		text += b.Text
	}

	outcome := parseOutcome(text)
	outcome.Model = string(msg.Model)
	outcome.ClassifiedAt = time.Now().UTC()
	return outcome, nil
}

type rawOutcome struct {
	IsRelevant     bool    `json:"is_relevant"`
	Confidence     float64 `json:"confidence"`
	TravelKeyword  bool    `json:"travel_keyword"`
	AuctionKeyword bool    `json:"auction_keyword"`
	Reasoning      string  `json:"reasoning"`
}

// parseOutcome decodes the model's JSON answer leniently: malformed
// output degrades to a non-relevant, zero-confidence outcome rather
// than failing the candidate.
func parseOutcome(text string) *model.ClassificationOutcome {
	text = strings.TrimSpace(text)
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var raw rawOutcome
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		zap.L().Warn("classifier: unparsable model output", zap.Error(err))
		return &model.ClassificationOutcome{
			Reasoning: "unparsable model output",
		}
	}

	if raw.Confidence < 0 {
		raw.Confidence = 0
	}
	if raw.Confidence > 1 {
		raw.Confidence = 1
	}

	return &model.ClassificationOutcome{
		IsRelevant:     raw.IsRelevant,
		Confidence:     raw.Confidence,
		TravelKeyword:  raw.TravelKeyword,
		AuctionKeyword: raw.AuctionKeyword,
		Reasoning:      raw.Reasoning,
	}
}
