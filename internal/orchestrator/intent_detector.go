package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"marketing-insights-backend/internal/dto"
	"marketing-insights-backend/internal/lexicon"
	"marketing-insights-backend/internal/service"
)

// Query intents. Multi runs both branches and merges their answers.
const (
	IntentAnalytics = "analytics"
	IntentSEO       = "seo"
	IntentMulti     = "multi"
)

const intentSystemMessage = `You are a query classifier for a marketing insights system.

Classify the user's question into exactly one intent:
- "analytics": questions about website traffic, users, sessions, conversions (Google Analytics data)
- "seo": questions about page health, broken links, titles, meta descriptions (site crawl data)
- "multi": questions that need both traffic data and site health data

Return a JSON object:
{"intent": "analytics", "confidence": 0.9}`

// IntentDetector classifies queries in two tiers: a keyword pass first,
// then an LLM fallback for queries no keyword list recognizes. Unresolvable
// queries default to analytics.
type IntentDetector struct {
	llm service.LLMService
}

func NewIntentDetector(llm service.LLMService) *IntentDetector {
	return &IntentDetector{llm: llm}
}

func (d *IntentDetector) Detect(ctx context.Context, query string) string {
	analyticsMatch := lexicon.MatchesAny(query, lexicon.AnalyticsKeywords)
	seoMatch := lexicon.MatchesAny(query, lexicon.SEOKeywords)

	switch {
	case analyticsMatch && seoMatch:
		return IntentMulti
	case analyticsMatch:
		return IntentAnalytics
	case seoMatch:
		return IntentSEO
	}

	// Keyword tier saw nothing; ask the model.
	prompt := fmt.Sprintf("Classify this query: %s", query)
	var decision dto.IntentDecision
	if err := d.llm.GenerateStructured(ctx, prompt, intentSystemMessage, 0.0, &decision); err != nil {
		log.Warn().Err(err).Msg("Intent classification failed, defaulting to analytics")
		return IntentAnalytics
	}

	switch decision.Intent {
	case IntentAnalytics, IntentSEO, IntentMulti:
		log.Info().Str("intent", decision.Intent).Float64("confidence", decision.Confidence).Msg("LLM classified query intent")
		return decision.Intent
	default:
		log.Warn().Str("intent", decision.Intent).Msg("Unknown intent from classifier, defaulting to analytics")
		return IntentAnalytics
	}
}
