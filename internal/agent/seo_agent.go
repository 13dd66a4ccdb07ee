package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"marketing-insights-backend/internal/dto"
	"marketing-insights-backend/internal/model"
	"marketing-insights-backend/internal/service"
)

// NoSEODataStatus marks a response produced from an empty spreadsheet.
const NoSEODataStatus = "NO_SEO_DATA"

// SEOAgent answers questions about site-crawl exports read from a
// spreadsheet. Columns are discovered at read time; every downstream step
// is constrained to the categories the discovered columns can support.
type SEOAgent struct {
	llm    service.LLMService
	sheets service.SheetsService
}

func NewSEOAgent(llm service.LLMService, sheets service.SheetsService) *SEOAgent {
	return &SEOAgent{llm: llm, sheets: sheets}
}

func (a *SEOAgent) ProcessQuery(ctx context.Context, query, spreadsheetID, requestID string) model.AgentResult {
	log.Info().Str("request_id", requestID).Msg("Reading SEO data from Sheets")
	rows, err := a.sheets.ReadSheet(ctx, spreadsheetID, "")
	if err != nil {
		return model.FailedAgentResult(err.Error())
	}

	if len(rows) == 0 {
		return model.AgentResult{
			Success:    true,
			Answer:     noSEODataExplanation,
			Data:       []model.SheetRow{},
			DataStatus: NoSEODataStatus,
		}
	}

	columns := sortedColumns(rows[0])
	scope := AnalyzeColumns(columns)
	if scope.LimitedScope {
		log.Warn().Str("request_id", requestID).Str("scope", scope.ScopeMessage).Msg("Limited SEO data")
	}

	operations := a.determineOperations(ctx, query, columns, scope)
	processedRows, aggregates := applyOperations(rows, operations)

	var answer string
	if aggregates != nil {
		answer = a.narrateSEO(ctx, query, fmt.Sprintf("Aggregated results:\n%v", aggregates), operations, scope)
	} else {
		sample := processedRows
		if len(sample) > 5 {
			sample = sample[:5]
		}
		answer = a.narrateSEO(ctx, query, fmt.Sprintf("Found %d results. Sample:\n%v", len(processedRows), sample), operations, scope)
	}

	// Risk scoring applies only to row lists, never to aggregates, and must
	// never fail the request.
	if aggregates == nil && len(processedRows) > 0 {
		if riskReport := ComputeRiskScores(processedRows); riskReport != nil {
			answer += riskSummary(riskReport)
		}
	}

	confidence := seoConfidence(scope, processedRows, aggregates)
	answer += fmt.Sprintf("\n\nConfidence: %s", confidence.Level)

	var data interface{}
	if aggregates != nil {
		data = aggregates
	} else {
		data = processedRows
	}

	return model.AgentResult{
		Success: true,
		Answer:  answer,
		Data:    data,
		Metadata: map[string]interface{}{
			"operations":   operations,
			"column_scope": scope.AvailableCategories,
		},
	}
}

func sortedColumns(row model.SheetRow) []string {
	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

func (a *SEOAgent) determineOperations(ctx context.Context, query string, columns []string, scope ColumnScopeAnalysis) dto.SheetOperations {
	scopeNote := ""
	if scope.LimitedScope {
		scopeNote = "\n\nIMPORTANT: " + scope.ScopeMessage
	}

	systemMessage := fmt.Sprintf(`You are an SEO data analyst. Analyze queries about Screaming Frog SEO data.

Available columns: %s

Common SEO columns include:
- Address/URL: Page URL
- Status Code: HTTP status (200, 404, etc.)
- Title: Page title
- Meta Description: Meta description
- H1: H1 heading
- Word Count: Content length
- Indexability: Whether page is indexable%s

Return a JSON object with:
- filters: object with column->value pairs (optional)
- group_by: column name to group by (optional)
- aggregate_column: column to aggregate (optional)
- operation: 'count', 'sum', 'avg', 'min', 'max' (default: 'count')
- limit: number of results (default: 100)

Example input: "Show me pages with 404 errors"
Example output:
{
  "filters": {"Status Code": "404"},
  "limit": 100
}`, strings.Join(columns, ", "), scopeNote)

	prompt := fmt.Sprintf("Query: %s\n\nDetermine the operations needed:", query)

	var operations dto.SheetOperations
	if err := a.llm.GenerateStructured(ctx, prompt, systemMessage, 0.3, &operations); err != nil {
		log.Error().Err(err).Msg("Failed to understand SEO query, using default operations")
		return dto.SheetOperations{Limit: 100}
	}
	if operations.Limit <= 0 {
		operations.Limit = 100
	}
	return operations
}

// applyOperations filters, then either groups into aggregates or truncates
// to the plan's limit. Exactly one of the returns is non-nil.
func applyOperations(rows []model.SheetRow, operations dto.SheetOperations) ([]model.SheetRow, map[string]float64) {
	result := rows
	if len(operations.Filters) > 0 {
		result = service.FilterRows(result, operations.Filters)
	}

	if operations.GroupBy != "" {
		return nil, service.AggregateRows(result, operations.GroupBy, operations.AggregateColumn, operations.Operation)
	}

	limit := operations.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (a *SEOAgent) narrateSEO(ctx context.Context, query, dataSummary string, operations dto.SheetOperations, scope ColumnScopeAnalysis) string {
	baseMessage := "You are an SEO analyst. Convert SEO data into clear, actionable insights."

	var scopeRestriction string
	if scope.LimitedScope {
		scopeRestriction = fmt.Sprintf(`

CRITICAL CONSTRAINTS:
%s

You MUST:
- Base insights ONLY on columns that exist in the data
- NEVER mention or infer data about: %s
- Focus exclusively on: %s
- If asked about unavailable data, clearly state it's not in the dataset`,
			scope.ScopeMessage,
			strings.Join(scope.UnavailableCategories, ", "),
			strings.Join(scope.AvailableCategories, ", "))
	} else {
		scopeRestriction = "\n\nHighlight important issues and provide specific recommendations when relevant."
	}

	prompt := fmt.Sprintf(`
Query: %s

Operations applied: %+v

Data:
%s

Provide a clear, actionable answer to the query:`, query, operations, dataSummary)

	answer, err := a.llm.GenerateText(ctx, prompt, baseMessage+scopeRestriction, 0.5)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate SEO answer")
		return "Analysis complete: " + dataSummary
	}
	return answer
}

// seoConfidence grades the answer by category coverage first, result size
// second.
func seoConfidence(scope ColumnScopeAnalysis, rows []model.SheetRow, aggregates map[string]float64) Confidence {
	availableCount := len(scope.AvailableCategories)

	dataCount := 1 // aggregates count as a single data point
	if aggregates == nil {
		dataCount = len(rows)
	}

	switch {
	case availableCount == 0:
		return Confidence{Level: "Low", Reason: "No recognized SEO data categories available."}
	case availableCount == 1 && scope.HasCrawlability:
		return Confidence{Level: "Medium", Reason: "Only crawlability/status code data available. Cannot assess content, performance, or accessibility."}
	case availableCount <= 2:
		return Confidence{Level: "Medium", Reason: "Limited SEO data scope. Only " + strings.Join(scope.AvailableCategories, ", ") + " available."}
	case dataCount < 10:
		return Confidence{Level: "Medium", Reason: "Full SEO categories available but limited data points (fewer than 10 URLs)."}
	default:
		return Confidence{Level: "High", Reason: fmt.Sprintf("Comprehensive SEO data available across %d categories with sufficient sample size.", availableCount)}
	}
}

const noSEODataExplanation = `NO_SEO_DATA: The Google Sheets spreadsheet appears to be empty or contains no data rows.

This could be due to several reasons:

• **Empty Spreadsheet**: The sheet may not have been populated with SEO crawl data yet.

• **Wrong Sheet Selection**: If the spreadsheet has multiple tabs, the default tab might be empty. Specify the correct sheet name if needed.

• **Export Issue**: If you exported from Screaming Frog or another tool, the export may not have completed successfully.

• **Permission Issue**: The service account may not have access to the correct spreadsheet or specific sheets within it.

**Recommendations:**
- Verify the spreadsheet ID is correct
- Check that the spreadsheet contains SEO crawl data (from Screaming Frog, Sitebulb, etc.)
- Ensure the service account has "Viewer" access to the spreadsheet
- If using multiple sheets/tabs, specify the sheet name in your query

**Expected Data Format:**
A typical SEO crawl export should include columns like:
- Address/URL
- Status Code
- Title
- Meta Description
- H1/H2 headings
- Word Count
- Indexability status

Please populate the spreadsheet with SEO data and try again.`
