package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketing-insights-backend/internal/agent"
	"marketing-insights-backend/internal/dto"
	"marketing-insights-backend/internal/model"
	"marketing-insights-backend/internal/orchestrator"
)

// Branch goroutines share these fakes, so every method takes the lock.

type fakeLLM struct {
	mu                sync.Mutex
	textResponse      string
	textErr           error
	structuredJSON    string
	structuredErr     error
	textCalls         int
	structuredCalls   int
	lastSystemMessage string
}

func (f *fakeLLM) GenerateText(_ context.Context, _, systemMessage string, _ float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls++
	f.lastSystemMessage = systemMessage
	return f.textResponse, f.textErr
}

func (f *fakeLLM) systemMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSystemMessage
}

func (f *fakeLLM) GenerateStructured(_ context.Context, _, _ string, _ float64, out interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.structuredCalls++
	if f.structuredErr != nil {
		return f.structuredErr
	}
	return json.Unmarshal([]byte(f.structuredJSON), out)
}

type fakeGA4 struct {
	mu              sync.Mutex
	defaultProperty string
	outcomes        []model.ReportOutcome
	err             error
	callCount       int
}

func (f *fakeGA4) RunReport(_ context.Context, _ string, _, _ []string, _, _ string, _ int64) (model.ReportOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if f.err != nil {
		return model.ReportOutcome{}, f.err
	}
	if len(f.outcomes) == 0 {
		return model.ReportOutcome{}, errors.New("no outcome queued")
	}
	next := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return next, nil
}

func (f *fakeGA4) DefaultPropertyID() string {
	return f.defaultProperty
}

func (f *fakeGA4) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

type fakeSheets struct {
	mu   sync.Mutex
	rows []model.SheetRow
	err  error
}

func (f *fakeSheets) ReadSheet(_ context.Context, _, _ string) ([]model.SheetRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows, f.err
}

func (f *fakeSheets) RefreshDefaultSnapshot(_ context.Context) error {
	return nil
}

func shaped(rows ...map[string]string) model.ReportOutcome {
	return model.ShapedOutcome(&model.Report{Rows: rows, RowCount: len(rows)})
}

func newOrchestrator(llm *fakeLLM, ga4 *fakeGA4, sheets *fakeSheets) *orchestrator.Orchestrator {
	return orchestrator.NewOrchestrator(
		orchestrator.NewIntentDetector(llm),
		agent.NewAnalyticsAgent(llm, ga4),
		agent.NewSEOAgent(llm, sheets),
		llm,
		ga4,
	)
}

func TestIntentDetectorKeywordTier(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"analytics keywords", "how many users visited last week", orchestrator.IntentAnalytics},
		{"seo keywords", "show me broken links", orchestrator.IntentSEO},
		{"both keyword sets", "did the 404 pages hurt my traffic", orchestrator.IntentMulti},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{}
			d := orchestrator.NewIntentDetector(llm)

			got := d.Detect(context.Background(), tt.query)

			assert.Equal(t, tt.want, got)
			assert.Zero(t, llm.structuredCalls, "keyword tier must not reach the LLM")
		})
	}
}

func TestIntentDetectorLLMFallback(t *testing.T) {
	t.Run("respects the model's classification", func(t *testing.T) {
		llm := &fakeLLM{structuredJSON: `{"intent": "seo", "confidence": 0.85}`}
		d := orchestrator.NewIntentDetector(llm)

		got := d.Detect(context.Background(), "is my homepage healthy")

		assert.Equal(t, orchestrator.IntentSEO, got)
		assert.Equal(t, 1, llm.structuredCalls)
	})

	t.Run("defaults to analytics on classifier error", func(t *testing.T) {
		llm := &fakeLLM{structuredErr: assert.AnError}
		d := orchestrator.NewIntentDetector(llm)

		assert.Equal(t, orchestrator.IntentAnalytics, d.Detect(context.Background(), "is my homepage healthy"))
	})

	t.Run("defaults to analytics on unknown intent", func(t *testing.T) {
		llm := &fakeLLM{structuredJSON: `{"intent": "weather", "confidence": 0.4}`}
		d := orchestrator.NewIntentDetector(llm)

		assert.Equal(t, orchestrator.IntentAnalytics, d.Detect(context.Background(), "is my homepage healthy"))
	})
}

func TestProcessQueryComparisonPreCheckShortCircuits(t *testing.T) {
	llm := &fakeLLM{}
	ga4 := &fakeGA4{
		defaultProperty: "123456789",
		outcomes:        []model.ReportOutcome{shaped()},
	}
	o := newOrchestrator(llm, ga4, &fakeSheets{})

	result, intent := o.ProcessQuery(context.Background(), dto.QueryRequest{
		Query: "compare users this week vs last week",
	}, "req-1")

	assert.Equal(t, orchestrator.IntentAnalytics, intent)
	require.True(t, result.Success)
	assert.Equal(t, agent.ComparisonUnavailableAnswer, result.Answer)
	assert.Equal(t, "unavailable", result.Metadata["comparison"])
	assert.Equal(t, 1, ga4.calls(), "only the probe runs when it finds no data")
	assert.Zero(t, llm.structuredCalls)
	assert.Zero(t, llm.textCalls)
}

func TestProcessQueryComparisonPreCheckPassesThrough(t *testing.T) {
	llm := &fakeLLM{
		structuredJSON: `{"metrics": ["activeUsers"], "dimensions": ["date"], "start_date": "7daysAgo", "end_date": "today", "limit": 100}`,
		textResponse:   "Users grew week over week.",
	}
	ga4 := &fakeGA4{
		defaultProperty: "123456789",
		outcomes: []model.ReportOutcome{
			shaped(map[string]string{"date": "20260825", "activeUsers": "10"}), // probe
			shaped(map[string]string{"date": "20260825", "activeUsers": "10"}), // report
			shaped(map[string]string{"activeUsers": "8"}),                      // comparative
		},
	}
	o := newOrchestrator(llm, ga4, &fakeSheets{})

	result, intent := o.ProcessQuery(context.Background(), dto.QueryRequest{
		Query: "compare users this week vs last week",
	}, "req-1")

	assert.Equal(t, orchestrator.IntentAnalytics, intent)
	require.True(t, result.Success)
	assert.Contains(t, result.Answer, "Users grew week over week.")
	assert.Equal(t, 3, ga4.calls())
}

func TestProcessQueryMultiMergesBothBranches(t *testing.T) {
	llm := &fakeLLM{
		structuredJSON: `{"metrics": ["activeUsers"], "dimensions": ["date"], "start_date": "7daysAgo", "end_date": "today", "limit": 100}`,
		textResponse:   "Traffic is healthy and the crawl found no broken pages.",
	}
	ga4 := &fakeGA4{
		defaultProperty: "123456789",
		outcomes: []model.ReportOutcome{
			shaped(map[string]string{"date": "20260825", "activeUsers": "10"}),
			shaped(map[string]string{"activeUsers": "8"}),
		},
	}
	sheets := &fakeSheets{rows: []model.SheetRow{
		{"Address": "https://example.com/", "Status Code": "200"},
	}}
	o := newOrchestrator(llm, ga4, sheets)

	result, intent := o.ProcessQuery(context.Background(), dto.QueryRequest{
		Query: "how is my traffic this week and which pages are broken",
	}, "req-1")

	assert.Equal(t, orchestrator.IntentMulti, intent)
	require.True(t, result.Success)
	assert.Contains(t, result.Answer, "Traffic is healthy and the crawl found no broken pages.")
	assert.Contains(t, result.Answer, "Confidence: High")
	assert.Equal(t, true, result.Metadata["analytics_has_data"])
	assert.Equal(t, true, result.Metadata["seo_has_data"])

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data, "analytics")
	assert.Contains(t, data, "seo")
}

func TestProcessQueryMultiPreservesFailedBranchError(t *testing.T) {
	llm := &fakeLLM{
		structuredJSON: `{"metrics": ["activeUsers"], "dimensions": ["date"], "start_date": "7daysAgo", "end_date": "today", "limit": 100}`,
		textResponse:   "The crawl looks clean; analytics data was unavailable.",
	}
	ga4 := &fakeGA4{
		defaultProperty: "123456789",
		err:             errors.New("ga4: quota exceeded"),
	}
	sheets := &fakeSheets{rows: []model.SheetRow{
		{"Address": "https://example.com/", "Status Code": "200"},
	}}
	o := newOrchestrator(llm, ga4, sheets)

	result, intent := o.ProcessQuery(context.Background(), dto.QueryRequest{
		Query: "how is my traffic this week and which pages are broken",
	}, "req-1")

	assert.Equal(t, orchestrator.IntentMulti, intent)
	require.True(t, result.Success)
	assert.Contains(t, result.Answer, "Confidence: Medium")
	assert.Equal(t, false, result.Metadata["analytics_has_data"])
	assert.Equal(t, true, result.Metadata["seo_has_data"])

	// The merge falls back to the SEO-only instruction set.
	assert.Contains(t, llm.systemMessage(), "Based on available SEO data and limited analytics signals:")
	assert.Contains(t, llm.systemMessage(), `NEVER say "not possible" or "cannot analyze"`)

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data["analytics_error"], "quota exceeded")
	assert.NotContains(t, data, "seo_error")
}

func TestProcessQueryMultiSurvivesEmptyBranches(t *testing.T) {
	llm := &fakeLLM{
		structuredJSON: `{"metrics": ["activeUsers"], "dimensions": ["date"], "start_date": "7daysAgo", "end_date": "today", "limit": 100}`,
		textResponse:   "No data is available from either source yet.",
	}
	ga4 := &fakeGA4{
		defaultProperty: "123456789",
		outcomes:        []model.ReportOutcome{shaped(), shaped()}, // initial + fallback, both empty
	}
	o := newOrchestrator(llm, ga4, &fakeSheets{rows: []model.SheetRow{}})

	result, intent := o.ProcessQuery(context.Background(), dto.QueryRequest{
		Query: "how is my traffic this week and which pages are broken",
	}, "req-1")

	assert.Equal(t, orchestrator.IntentMulti, intent)
	require.True(t, result.Success)
	assert.Contains(t, result.Answer, "No data is available from either source yet.")
	assert.Contains(t, result.Answer, "Confidence: Low")
	assert.Contains(t, llm.systemMessage(), "Analytics data is unavailable.")
	assert.Contains(t, llm.systemMessage(), "SEO data is unavailable.")
}
