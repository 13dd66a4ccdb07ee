package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"marketing-insights-backend/internal/dto"
	"marketing-insights-backend/internal/lexicon"
	"marketing-insights-backend/internal/model"
	"marketing-insights-backend/internal/schema"
	"marketing-insights-backend/internal/service"
)

const planSystemMessage = `You are a GA4 query translator. Convert natural language queries into GA4 query plans.

Available metrics include: activeUsers, sessions, pageViews, bounceRate, totalRevenue, conversions, etc.
Available dimensions include: date, country, city, deviceCategory, pagePath, source, medium, etc.

Return a JSON object with:
- metrics: array of metric names
- dimensions: array of dimension names (optional)
- start_date: date in format 'YYYY-MM-DD' or relative like '7daysAgo', '30daysAgo', 'yesterday', 'today'
- end_date: date in same format
- limit: number of rows (default 100)

Example input: "How many users visited last week?"
Example output:
{
  "metrics": ["activeUsers"],
  "dimensions": ["date"],
  "start_date": "7daysAgo",
  "end_date": "yesterday",
  "limit": 100
}`

const narrationSystemMessage = `You are a data analyst. Convert GA4 data into clear, natural language answers.
Be specific with numbers and insights. If the data shows trends, mention them.`

// ComparisonUnavailableAnswer is the fixed narration used whenever a period
// comparison cannot be carried out, whether the probe, the initial report,
// or the re-check before narration failed.
const ComparisonUnavailableAnswer = "Comparison could not be performed because analytics data is unavailable for one or both periods. " +
	"This typically indicates that GA4 has not yet started collecting data for your property, or the selected time range contains no recorded traffic. " +
	"Please verify your GA4 tracking setup and ensure sufficient data has been collected before attempting period comparisons."

// AnalyticsAgent answers questions about GA4 analytics data. It is
// constructed with its collaborators so tests can substitute fakes.
type AnalyticsAgent struct {
	llm service.LLMService
	ga4 service.GA4Service
}

func NewAnalyticsAgent(llm service.LLMService, ga4 service.GA4Service) *AnalyticsAgent {
	return &AnalyticsAgent{llm: llm, ga4: ga4}
}

// ProcessQuery runs the analytics pipeline: intent pre-check, plan
// generation and validation, report execution with empty-data fallback,
// comparative-period analysis, narration, trend and alert annotation, and a
// confidence line. All failures come back as a failed AgentResult.
func (a *AnalyticsAgent) ProcessQuery(ctx context.Context, query, propertyID, requestID string) model.AgentResult {
	propID := propertyID
	if propID == "" {
		propID = a.ga4.DefaultPropertyID()
	}
	if propID == "" {
		log.Warn().Str("request_id", requestID).Msg("No property ID available")
		return model.FailedAgentResult("No property ID provided and no default configured")
	}

	if msg, ok := validateQueryIntent(query); !ok {
		return model.AgentResult{
			Success: false,
			Error:   "QUERY_VALIDATION_FAILED",
			Answer:  msg,
		}
	}

	plan := a.generateQueryPlan(ctx, query)
	plan.PropertyID = propID

	if errMsg, ok := validateQueryPlan(plan); !ok {
		return model.FailedAgentResult("Invalid query plan: " + errMsg)
	}

	outcome, err := a.ga4.RunReport(ctx, propID, plan.Metrics, plan.Dimensions, plan.StartDate, plan.EndDate, plan.Limit)
	if err != nil {
		return model.FailedAgentResult(err.Error())
	}
	if !outcome.IsShaped() {
		log.Error().Str("request_id", requestID).Str("reason", outcome.Malformed).Msg("GA4 data is not a shaped report")
		return comparisonUnavailableResult(requestID)
	}
	report := outcome.Shaped

	log.Info().Str("request_id", requestID).Int("rows", report.RowCount).Msg("GA4 query returned rows")

	// Empty-result fallback: one retry on a fixed conservative plan.
	if report.RowCount == 0 {
		log.Warn().Str("request_id", requestID).Msg("Initial query returned empty data, attempting safe fallback")
		// The plan keeps the requested metrics; the note tells the reader
		// the data came from the conservative 30-day query.
		if fallback := a.runFallbackReport(ctx, propID); fallback != nil && fallback.RowCount > 0 {
			report = fallback
			plan.UsedFallback = true
			plan.FallbackNote = "Using available data from the last 30 days"
		}

		if report.RowCount == 0 {
			explanation := emptyDataExplanation(plan)
			explanation += "\n\n---\n**Confidence Level:** Low\n**Reason:** No analytics data available for the specified period."
			return model.AgentResult{Success: true, Answer: explanation, Data: report}
		}
	}

	var comparative *model.Report
	if report.RowCount > 0 && !plan.UsedFallback {
		comparative = a.fetchComparativePeriod(ctx, propID, plan, requestID)
		if comparative != nil && len(comparative.Rows) == 0 {
			log.Warn().Str("request_id", requestID).Msg("Comparative period has no valid rows, aborting comparison")
			return comparisonUnavailableResult(requestID)
		}
	}

	answer := a.narrate(ctx, query, plan, report)

	if comparative != nil {
		// Re-check row validity right before the comparison is narrated;
		// the adapter may have produced an inconsistent shape since the
		// initial check.
		if len(report.Rows) == 0 {
			return comparisonUnavailableResult(requestID)
		}
		if trend := trendSummary(report, comparative, plan); trend != "" {
			answer += "\n\n" + trend
		}
	}

	if alerts := thresholdAlerts(report, comparative, plan); alerts != "" {
		answer += "\n\n" + alerts
	}

	if plan.UsedFallback {
		answer = fmt.Sprintf("**Note:** %s\n\n%s", plan.FallbackNote, answer)
	}

	confidence := analyticsConfidence(report, plan)
	answer += fmt.Sprintf("\n\nConfidence: %s", confidence.Level)

	return model.AgentResult{
		Success:  true,
		Answer:   answer,
		Data:     report,
		Metadata: map[string]interface{}{"query_plan": plan},
	}
}

// validateQueryIntent rejects underspecified queries before any model call:
// the text must name both a metric and a time period.
func validateQueryIntent(query string) (string, bool) {
	hasMetric := lexicon.MatchesAny(query, lexicon.MetricKeywords)
	hasTime := lexicon.MatchesAny(query, lexicon.TimeKeywords)

	switch {
	case !hasMetric && !hasTime:
		return missingBothMessage, false
	case !hasMetric:
		return missingMetricMessage, false
	case !hasTime:
		return missingTimeMessage, false
	}
	return "", true
}

func validateQueryPlan(plan dto.QueryPlan) (string, bool) {
	if len(plan.Metrics) == 0 {
		return "plan contains no metrics", false
	}
	if ok, invalid := schema.ValidateMetrics(plan.Metrics); !ok {
		return "Invalid metrics: " + strings.Join(invalid, ", "), false
	}
	if len(plan.Dimensions) > 0 {
		if ok, invalid := schema.ValidateDimensions(plan.Dimensions); !ok {
			return "Invalid dimensions: " + strings.Join(invalid, ", "), false
		}
	}
	return "", true
}

func (a *AnalyticsAgent) generateQueryPlan(ctx context.Context, query string) dto.QueryPlan {
	prompt := fmt.Sprintf("Query: %s\n\nGenerate the GA4 query plan:", query)

	var plan dto.QueryPlan
	if err := a.llm.GenerateStructured(ctx, prompt, planSystemMessage, 0.3, &plan); err != nil {
		log.Error().Err(err).Msg("Failed to generate query plan, using default")
		return dto.QueryPlan{
			Metrics:   []string{"activeUsers"},
			StartDate: "30daysAgo",
			EndDate:   "today",
			Limit:     100,
		}
	}

	if plan.StartDate == "" {
		plan.StartDate = "30daysAgo"
	}
	if plan.EndDate == "" {
		plan.EndDate = "today"
	}
	if plan.Limit <= 0 {
		plan.Limit = 100
	}
	return plan
}

func (a *AnalyticsAgent) runFallbackReport(ctx context.Context, propertyID string) *model.Report {
	log.Info().Msg("Executing fallback query: activeUsers by date, last 30 days")
	outcome, err := a.ga4.RunReport(ctx, propertyID, []string{"activeUsers"}, []string{"date"}, "30daysAgo", "today", 100)
	if err != nil {
		log.Error().Err(err).Msg("Fallback query failed")
		return nil
	}
	if !outcome.IsShaped() {
		log.Error().Str("reason", outcome.Malformed).Msg("Fallback query returned malformed data")
		return nil
	}
	log.Info().Int("rows", outcome.Shaped.RowCount).Msg("Fallback query returned rows")
	return outcome.Shaped
}

// previousPeriod maps the plan's date window onto the window immediately
// before it. Only the common trailing windows are distinguished; anything
// else falls back to the 7-day mapping.
func previousPeriod(startDate string) (string, string) {
	switch {
	case strings.Contains(startDate, "7daysAgo"):
		return "14daysAgo", "8daysAgo"
	case strings.Contains(startDate, "30daysAgo"):
		return "60daysAgo", "31daysAgo"
	default:
		return "14daysAgo", "8daysAgo"
	}
}

func (a *AnalyticsAgent) fetchComparativePeriod(ctx context.Context, propertyID string, plan dto.QueryPlan, requestID string) *model.Report {
	prevStart, prevEnd := previousPeriod(plan.StartDate)
	log.Info().Str("request_id", requestID).Str("start", prevStart).Str("end", prevEnd).Msg("Fetching comparative period")

	// Same metrics, no dimensions: the comparison is aggregate-only.
	outcome, err := a.ga4.RunReport(ctx, propertyID, plan.Metrics, nil, prevStart, prevEnd, 100)
	if err != nil {
		log.Warn().Err(err).Str("request_id", requestID).Msg("Could not fetch comparative period")
		return nil
	}
	if !outcome.IsShaped() || len(outcome.Shaped.Rows) == 0 {
		log.Debug().Str("request_id", requestID).Msg("Comparative period returned no usable rows")
		return nil
	}
	return outcome.Shaped
}

func (a *AnalyticsAgent) narrate(ctx context.Context, query string, plan dto.QueryPlan, report *model.Report) string {
	rows := report.Rows
	if len(rows) > 20 {
		rows = rows[:20]
	}

	now := time.Now()
	dataSummary := fmt.Sprintf(`
Query: %s

Metrics: %s
Dimensions: %s
Date Range: %s to %s

Data (%d rows):
%s
`, query,
		strings.Join(plan.Metrics, ", "),
		strings.Join(plan.Dimensions, ", "),
		service.ResolveRelativeDate(plan.StartDate, now),
		service.ResolveRelativeDate(plan.EndDate, now),
		report.RowCount,
		formatRowsForLLM(rows))

	prompt := dataSummary + "\nProvide a clear, concise answer to the query:"

	answer, err := a.llm.GenerateText(ctx, prompt, narrationSystemMessage, 0.5)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate answer")
		return fmt.Sprintf("Found %d results for your query.", report.RowCount)
	}
	return answer
}

func formatRowsForLLM(rows []map[string]string) string {
	if len(rows) == 0 {
		return "No data"
	}
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%v", row))
	}
	return b.String()
}

func comparisonUnavailableResult(requestID string) model.AgentResult {
	if requestID == "" {
		requestID = "unknown"
	}
	return model.AgentResult{
		Success: true,
		Answer:  ComparisonUnavailableAnswer,
		Data: map[string]interface{}{
			"current_period":  nil,
			"previous_period": nil,
		},
		Metadata: map[string]interface{}{
			"request_id": requestID,
			"comparison": "unavailable",
		},
	}
}

func emptyDataExplanation(plan dto.QueryPlan) string {
	dateRange := fmt.Sprintf("%s to %s", plan.StartDate, plan.EndDate)
	return fmt.Sprintf(`No analytics data was found for the requested period (%s).

This could be due to several reasons:

• **New GA4 Property**: If your GA4 property was recently created, it may not have accumulated data yet. Data collection typically begins once the tracking code is properly installed.

• **No Website Traffic**: There may have been no visitors to your website during the selected time period, or tracking may not be capturing events.

• **Date Range Issue**: The selected date range might be outside of your property's data collection period. GA4 properties only retain data from their creation date forward.

• **Property Configuration**: Double-check that you're querying the correct GA4 property ID and that data collection is properly configured.

• **Permission Limits**: Your service account may not have sufficient permissions to access all data, or certain filters might be blocking data visibility.

**Recommendations:**
- Verify your GA4 tracking code is properly installed
- Check that the property ID (%s) is correct
- Try a broader date range (e.g., last 30 days)
- Ensure your GA4 property is actively collecting data

If you believe this is an error, please verify your GA4 setup and try again.`, dateRange, plan.PropertyID)
}

const missingBothMessage = `Your query needs to be more specific for analytics analysis.

Please include:
• **A metric** (e.g., users, sessions, traffic, pageviews, conversions)
• **A time period** (e.g., last 7 days, yesterday, this month, last week)

**Examples of valid queries:**
- "How many users visited last week?"
- "Show me sessions for the past 30 days"
- "What was the traffic yesterday?"
- "Total pageviews this month"

Please rephrase your query with both a metric and time period.`

const missingMetricMessage = `Your query is missing a specific metric to analyze.

Please specify what you want to measure:
• **Users/Visitors**: "How many users..."
• **Sessions**: "How many sessions..."
• **Traffic**: "What was the traffic..."
• **Pageviews**: "Show me pageviews..."
• **Conversions**: "How many conversions..."

**Example:** "How many users visited {your_time_period}?"

Please rephrase your query to include a metric.`

const missingTimeMessage = `Your query is missing a time period.

Please specify when you want to analyze:
• **Recent**: "last 7 days", "yesterday", "today"
• **Specific period**: "last week", "this month", "last month"
• **Date range**: "between Jan 1 and Jan 31"

**Example:** "{your_metric} in the last 7 days"

Please rephrase your query to include a time period.`
