package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketing-insights-backend/internal/agent"
	"marketing-insights-backend/internal/model"
)

func fullCrawlRow(address, status string) model.SheetRow {
	return model.SheetRow{
		"Address":                  address,
		"Status Code":              status,
		"Title":                    "Example title",
		"PSI Error":                "",
		"WCAG Violations":          "",
		"Best Practice Violations": "",
	}
}

func TestSEOProcessQueryEmptySheet(t *testing.T) {
	llm := &fakeLLM{}
	sheets := &fakeSheets{rows: []model.SheetRow{}}
	a := agent.NewSEOAgent(llm, sheets)

	result := a.ProcessQuery(context.Background(), "show me broken pages", "sheet-1", "req-1")

	require.True(t, result.Success)
	assert.Equal(t, agent.NoSEODataStatus, result.DataStatus)
	assert.Contains(t, result.Answer, "NO_SEO_DATA")
	assert.Contains(t, result.Answer, "Screaming Frog")
	assert.Zero(t, llm.structuredCalls, "empty sheet never reaches the LLM")
	assert.Zero(t, llm.textCalls)
}

func TestSEOProcessQueryReadFailure(t *testing.T) {
	sheets := &fakeSheets{err: assert.AnError}
	a := agent.NewSEOAgent(&fakeLLM{}, sheets)

	result := a.ProcessQuery(context.Background(), "show me broken pages", "sheet-1", "req-1")

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestSEOProcessQueryFiltersAndScoresRows(t *testing.T) {
	llm := &fakeLLM{
		structuredJSON: `{"filters": {"Status Code": "404"}, "limit": 100}`,
		textResponse:   "You have 2 broken pages that should be fixed.",
	}
	rows := []model.SheetRow{
		fullCrawlRow("https://example.com/", "200"),
		fullCrawlRow("https://example.com/missing", "404"),
		fullCrawlRow("https://example.com/gone", "404"),
	}
	a := agent.NewSEOAgent(llm, &fakeSheets{rows: rows})

	result := a.ProcessQuery(context.Background(), "show me pages with 404 errors", "sheet-1", "req-1")

	require.True(t, result.Success)
	processed, ok := result.Data.([]model.SheetRow)
	require.True(t, ok)
	assert.Len(t, processed, 2)
	assert.Contains(t, result.Answer, "You have 2 broken pages that should be fixed.")
	assert.Contains(t, result.Answer, "**Risk Assessment:**")
	assert.Contains(t, result.Answer, "No critical SEO risks detected", "all filtered rows are clean, so the summary reassures")
	assert.Contains(t, result.Answer, "Confidence: Medium")
	assert.Equal(t, []string{"crawlability", "content", "performance", "accessibility"}, result.Metadata["column_scope"])
}

func TestSEOProcessQueryGroupByReturnsAggregates(t *testing.T) {
	llm := &fakeLLM{
		structuredJSON: `{"group_by": "Status Code", "operation": "count", "limit": 100}`,
		textResponse:   "Most pages return 200, with a handful of 404s.",
	}
	rows := []model.SheetRow{
		fullCrawlRow("https://example.com/", "200"),
		fullCrawlRow("https://example.com/a", "200"),
		fullCrawlRow("https://example.com/missing", "404"),
	}
	a := agent.NewSEOAgent(llm, &fakeSheets{rows: rows})

	result := a.ProcessQuery(context.Background(), "count pages by status code", "sheet-1", "req-1")

	require.True(t, result.Success)
	aggregates, ok := result.Data.(map[string]float64)
	require.True(t, ok)
	assert.Equal(t, float64(2), aggregates["200"])
	assert.Equal(t, float64(1), aggregates["404"])
	assert.NotContains(t, result.Answer, "**Risk Assessment:**", "aggregates are never risk-scored")
}

func TestSEOProcessQueryLLMFailureUsesDefaultOperations(t *testing.T) {
	llm := &fakeLLM{
		structuredErr: assert.AnError,
		textErr:       assert.AnError,
	}
	rows := []model.SheetRow{fullCrawlRow("https://example.com/", "200")}
	a := agent.NewSEOAgent(llm, &fakeSheets{rows: rows})

	result := a.ProcessQuery(context.Background(), "how is my site doing", "sheet-1", "req-1")

	require.True(t, result.Success)
	processed, ok := result.Data.([]model.SheetRow)
	require.True(t, ok)
	assert.Len(t, processed, 1)
	assert.Contains(t, result.Answer, "Analysis complete:")
}

func TestAnalyzeColumns(t *testing.T) {
	t.Run("crawl data only", func(t *testing.T) {
		scope := agent.AnalyzeColumns([]string{"Address", "Status Code"})

		assert.True(t, scope.LimitedScope)
		assert.Equal(t, []string{"crawlability"}, scope.AvailableCategories)
		assert.Contains(t, scope.ScopeMessage, "content, performance, accessibility")
	})

	t.Run("full export", func(t *testing.T) {
		scope := agent.AnalyzeColumns([]string{
			"Address", "Status Code", "Title", "Meta Description",
			"PSI Score", "WCAG Violations",
		})

		assert.False(t, scope.LimitedScope)
		assert.Len(t, scope.AvailableCategories, 4)
		assert.Empty(t, scope.ScopeMessage)
	})
}

func TestComputeRiskScores(t *testing.T) {
	t.Run("weights and levels", func(t *testing.T) {
		rows := []model.SheetRow{
			{
				"Address":                  "https://example.com/slow",
				"PSI Error":                "Failed to load",
				"WCAG Violations":          "",
				"Best Practice Violations": "minify CSS",
			},
			{
				"Address":                  "https://example.com/ok",
				"PSI Error":                "none",
				"WCAG Violations":          "0",
				"Best Practice Violations": "n/a",
			},
			{
				"Address":                  "https://example.com/a11y",
				"WCAG Violations":          "2 contrast failures",
				"All Violations":           "2 contrast failures",
				"Best Practice Violations": "",
			},
		}

		report := agent.ComputeRiskScores(rows)

		require.NotNil(t, report)
		assert.Equal(t, 3, report.TotalCount)
		assert.Equal(t, 1, report.HighCount)
		assert.Equal(t, 1, report.MediumCount)
		assert.Equal(t, 1, report.LowCount)

		top := report.ScoredURLs[0]
		assert.Equal(t, "https://example.com/slow", top.URL)
		assert.Equal(t, 4, top.Score)
		assert.Equal(t, "High", top.Level)

		// Two violation columns still count once.
		second := report.ScoredURLs[1]
		assert.Equal(t, "https://example.com/a11y", second.URL)
		assert.Equal(t, 2, second.Score)
		assert.Equal(t, "Medium", second.Level)
	})

	t.Run("score stays between 0 and 6", func(t *testing.T) {
		rows := []model.SheetRow{
			{
				"Address":                  "https://example.com/worst",
				"PSI Error":                "Lighthouse timeout",
				"PSI Score":                "12",
				"WCAG Violations":          "5 failures",
				"All Violations":           "7 failures",
				"Best Practice Violations": "missing alt text",
			},
			{
				"Address":   "https://example.com/fast",
				"PSI Score": "95",
			},
		}

		report := agent.ComputeRiskScores(rows)

		require.NotNil(t, report)
		for _, scored := range report.ScoredURLs {
			assert.GreaterOrEqual(t, scored.Score, 0)
			assert.LessOrEqual(t, scored.Score, 6)
		}
		assert.Equal(t, 6, report.ScoredURLs[0].Score)
		assert.Equal(t, "High", report.ScoredURLs[0].Level)

		// A good PSI score is not a PSI error.
		fast := report.ScoredURLs[1]
		assert.Equal(t, "https://example.com/fast", fast.URL)
		assert.Equal(t, 0, fast.Score)
		assert.Equal(t, "Low", fast.Level)
	})

	t.Run("rows without a URL score as Unknown URL", func(t *testing.T) {
		rows := []model.SheetRow{
			{"PSI Error": "Failed to load"},
			{"Address": "https://example.com/", "PSI Error": ""},
		}

		report := agent.ComputeRiskScores(rows)

		require.NotNil(t, report)
		assert.Equal(t, 2, report.TotalCount)
		assert.Equal(t, "Unknown URL", report.ScoredURLs[0].URL)
		assert.Equal(t, 3, report.ScoredURLs[0].Score)
	})

	t.Run("no rows returns nil", func(t *testing.T) {
		assert.Nil(t, agent.ComputeRiskScores(nil))
	})
}
