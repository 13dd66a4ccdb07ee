package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"marketing-insights-backend/internal/agent"
	"marketing-insights-backend/internal/dto"
	"marketing-insights-backend/internal/lexicon"
	"marketing-insights-backend/internal/model"
	"marketing-insights-backend/internal/service"
)

// Orchestrator classifies each query, routes it to the analytics branch,
// the SEO branch, or both, and assembles the final response envelope.
type Orchestrator struct {
	detector  *IntentDetector
	analytics *agent.AnalyticsAgent
	seo       *agent.SEOAgent
	llm       service.LLMService
	ga4       service.GA4Service
}

func NewOrchestrator(detector *IntentDetector, analytics *agent.AnalyticsAgent, seo *agent.SEOAgent, llm service.LLMService, ga4 service.GA4Service) *Orchestrator {
	return &Orchestrator{
		detector:  detector,
		analytics: analytics,
		seo:       seo,
		llm:       llm,
		ga4:       ga4,
	}
}

// ProcessQuery runs the full pipeline for one request and returns the
// branch result plus the intent it was routed to.
func (o *Orchestrator) ProcessQuery(ctx context.Context, req dto.QueryRequest, requestID string) (model.AgentResult, string) {
	intent := o.detector.Detect(ctx, req.Query)
	log.Info().Str("request_id", requestID).Str("intent", intent).Msg("Routing query")

	// Comparison queries are probed up front: if the property has no recent
	// analytics data at all, no period comparison can succeed, and both
	// branches would otherwise burn LLM calls discovering that.
	if intent != IntentSEO && lexicon.MatchesAny(req.Query, lexicon.ComparisonKeywords) {
		if !o.hasRecentAnalyticsData(ctx, req.PropertyID, requestID) {
			return model.AgentResult{
				Success: true,
				Answer:  agent.ComparisonUnavailableAnswer,
				Data: map[string]interface{}{
					"current_period":  nil,
					"previous_period": nil,
				},
				Metadata: map[string]interface{}{
					"request_id": requestID,
					"comparison": "unavailable",
				},
			}, intent
		}
	}

	switch intent {
	case IntentSEO:
		return o.seo.ProcessQuery(ctx, req.Query, req.SpreadsheetID, requestID), intent
	case IntentMulti:
		return o.processMulti(ctx, req, requestID), intent
	default:
		return o.analytics.ProcessQuery(ctx, req.Query, req.PropertyID, requestID), intent
	}
}

// hasRecentAnalyticsData probes the last seven days with a minimal report.
// Any failure counts as "no data": probe errors must not fail the request,
// only steer it to the fixed comparison-unavailable answer.
func (o *Orchestrator) hasRecentAnalyticsData(ctx context.Context, propertyID, requestID string) bool {
	propID := propertyID
	if propID == "" {
		propID = o.ga4.DefaultPropertyID()
	}
	if propID == "" {
		return false
	}

	outcome, err := o.ga4.RunReport(ctx, propID, []string{"activeUsers"}, nil, "7daysAgo", "today", 10)
	if err != nil {
		log.Warn().Err(err).Str("request_id", requestID).Msg("Comparison pre-check probe failed")
		return false
	}
	if !outcome.IsShaped() {
		log.Warn().Str("request_id", requestID).Str("reason", outcome.Malformed).Msg("Comparison pre-check probe returned malformed data")
		return false
	}
	return outcome.Shaped.RowCount > 0
}

// processMulti fans the query out to both branches concurrently. A panic in
// either branch is converted into a failed result for that branch only.
func (o *Orchestrator) processMulti(ctx context.Context, req dto.QueryRequest, requestID string) model.AgentResult {
	var analyticsResult, seoResult model.AgentResult
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("request_id", requestID).Msg("Analytics branch panicked")
				analyticsResult = model.FailedAgentResult(fmt.Sprintf("analytics branch panicked: %v", r))
			}
		}()
		analyticsResult = o.analytics.ProcessQuery(ctx, req.Query, req.PropertyID, requestID)
	}()
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("request_id", requestID).Msg("SEO branch panicked")
				seoResult = model.FailedAgentResult(fmt.Sprintf("seo branch panicked: %v", r))
			}
		}()
		seoResult = o.seo.ProcessQuery(ctx, req.Query, req.SpreadsheetID, requestID)
	}()
	wg.Wait()

	return o.mergeResults(ctx, req.Query, analyticsResult, seoResult, requestID)
}

func (o *Orchestrator) mergeResults(ctx context.Context, query string, analyticsResult, seoResult model.AgentResult, requestID string) model.AgentResult {
	analyticsHasData := hasUsableData(analyticsResult)
	seoHasData := hasUsableData(seoResult)

	answer := o.narrateMerged(ctx, query, analyticsResult, seoResult, analyticsHasData, seoHasData)
	answer += "\n\nConfidence: " + multiConfidence(analyticsHasData, seoHasData).Level

	return model.AgentResult{
		Success: true,
		Answer:  answer,
		Data:    mergedData(analyticsResult, seoResult),
		Metadata: map[string]interface{}{
			"request_id":         requestID,
			"analytics_has_data": analyticsHasData,
			"seo_has_data":       seoHasData,
		},
	}
}

func (o *Orchestrator) narrateMerged(ctx context.Context, query string, analyticsResult, seoResult model.AgentResult, analyticsHasData, seoHasData bool) string {
	onlyHealthy := seoHasData && seoHasOnlyHealthyPages(seoResult)

	var systemMessage, prompt string
	if !analyticsHasData && seoHasData {
		crawlConstraint := ""
		if onlyHealthy {
			crawlConstraint = "\n6. The SEO data shows ONLY 200 status codes with no 4xx or 5xx errors. You MUST explicitly state that there are no crawl errors in the provided SEO data. Do NOT mention crawl issues or negative impact from crawlability."
		}
		systemMessage = `You are a confident digital marketing analyst.
When analytics data is unavailable but SEO data exists, you MUST:
1. Start with: "Based on available SEO data and limited analytics signals:"
2. Provide a structured response with these exact bullet points:
   - SEO Health Summary: (summarize the SEO findings)
   - Traffic Visibility Status: (infer from SEO issues what traffic impact might be)
   - Likely Impact: (explain business implications)
3. Keep the tone confident and actionable
4. NEVER say "not possible" or "cannot analyze"
5. Use SEO signals to make reasonable inferences about traffic patterns` + crawlConstraint

		prompt = fmt.Sprintf(`Query: %s

SEO answer:
%s

Generate a confident, structured response following the exact bullet point format.`, query, seoResult.Answer)
	} else {
		systemMessage = `You are a marketing insights analyst. Combine an analytics answer and an SEO answer into one coherent response.
Keep the numbers exactly as given. Do not invent data that neither answer contains.`

		var constraints []string
		if !analyticsHasData {
			constraints = append(constraints, "Analytics data is unavailable. State this explicitly and describe any traffic impact as an inference rather than a measurement.")
		}
		if !seoHasData {
			constraints = append(constraints, "SEO data is unavailable. State this explicitly and base conclusions only on the analytics findings.")
		}
		if onlyHealthy {
			constraints = append(constraints, "The SEO crawl found only pages with 200 status codes and no crawl errors. Do not claim any pages are broken.")
		}
		if len(constraints) > 0 {
			systemMessage += "\n\nConstraints:\n- " + strings.Join(constraints, "\n- ")
		}

		prompt = fmt.Sprintf(`Query: %s

Analytics answer:
%s

SEO answer:
%s

Combined response:`, query, orFallback(analyticsResult.Answer, "No analytics data available"), orFallback(seoResult.Answer, "No SEO data available"))
	}

	merged, err := o.llm.GenerateText(ctx, prompt, systemMessage, 0.5)
	if err != nil {
		log.Error().Err(err).Msg("Failed to merge branch answers, concatenating")
		return fmt.Sprintf("**Analytics:**\n%s\n\n**SEO:**\n%s",
			orFallback(analyticsResult.Answer, "Analytics data is unavailable."),
			orFallback(seoResult.Answer, "SEO data is unavailable."))
	}
	return merged
}

func orFallback(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// hasUsableData reports whether a branch produced actual rows to reason
// about, as opposed to a failure, an empty dataset, or a fixed explanation.
func hasUsableData(result model.AgentResult) bool {
	if !result.Success || result.DataStatus == agent.NoSEODataStatus {
		return false
	}
	switch data := result.Data.(type) {
	case *model.Report:
		return data != nil && data.RowCount > 0
	case []model.SheetRow:
		return len(data) > 0
	case map[string]float64:
		return len(data) > 0
	default:
		return false
	}
}

// seoHasOnlyHealthyPages reports whether the SEO branch's data shows 200
// status codes and no 4xx or 5xx. The merge prompt uses it to keep the
// combined answer from inventing crawl errors. A status-code group-by
// yields a map like {"200": 21}; raw row lists are checked per row.
func seoHasOnlyHealthyPages(result model.AgentResult) bool {
	switch data := result.Data.(type) {
	case map[string]float64:
		has200 := false
		for key := range data {
			code, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			if code >= 400 {
				return false
			}
			if key == "200" {
				has200 = true
			}
		}
		return has200
	case []model.SheetRow:
		seenStatus := false
		for _, row := range data {
			for col, value := range row {
				if !strings.Contains(strings.ToLower(col), "status") {
					continue
				}
				v := strings.TrimSpace(value)
				if v == "" {
					continue
				}
				seenStatus = true
				if v != "200" {
					return false
				}
			}
		}
		return seenStatus
	default:
		return false
	}
}

// mergedData keeps both branch payloads, and a failed branch's error text
// under its own key so the caller can see what went missing.
func mergedData(analyticsResult, seoResult model.AgentResult) map[string]interface{} {
	data := map[string]interface{}{
		"analytics": analyticsResult.Data,
		"seo":       seoResult.Data,
	}
	if analyticsResult.Error != "" {
		data["analytics_error"] = analyticsResult.Error
	}
	if seoResult.Error != "" {
		data["seo_error"] = seoResult.Error
	}
	return data
}

// multiConfidence grades a merged answer by which branches contributed
// real data.
func multiConfidence(analyticsHasData, seoHasData bool) agent.Confidence {
	switch {
	case analyticsHasData && seoHasData:
		return agent.Confidence{Level: "High", Reason: "Both analytics and SEO data contributed to this answer."}
	case analyticsHasData:
		return agent.Confidence{Level: "Medium", Reason: "Only analytics data was available; SEO conclusions are inferred."}
	case seoHasData:
		return agent.Confidence{Level: "Medium", Reason: "Only SEO data was available; traffic conclusions are inferred."}
	default:
		return agent.Confidence{Level: "Low", Reason: "Neither branch returned usable data."}
	}
}
