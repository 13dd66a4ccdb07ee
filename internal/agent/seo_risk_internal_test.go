package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketing-insights-backend/internal/model"
)

func TestRiskSummary(t *testing.T) {
	t.Run("all low rows get the reassurance line", func(t *testing.T) {
		report := &model.RiskReport{
			ScoredURLs: []model.RiskScore{{URL: "https://example.com/", Score: 0, Level: "Low"}},
			LowCount:   1,
			TotalCount: 1,
		}

		summary := riskSummary(report)

		assert.Equal(t, "\n\n**Risk Assessment:**\nNo critical SEO risks detected. Crawlability is healthy, but ongoing monitoring is recommended.", summary)
	})

	t.Run("high risk rows get counts and a recommendation", func(t *testing.T) {
		report := &model.RiskReport{
			ScoredURLs: []model.RiskScore{
				{URL: "https://example.com/broken", Score: 5, Level: "High"},
				{URL: "https://example.com/", Score: 0, Level: "Low"},
			},
			HighCount:  1,
			LowCount:   1,
			TotalCount: 2,
		}

		summary := riskSummary(report)

		assert.Contains(t, summary, "1 high-risk, 0 medium-risk, 1 low-risk URLs (of 2 scored)")
		assert.Contains(t, summary, "1. https://example.com/broken (score 5, High risk)")
		assert.Contains(t, summary, "Prioritize fixing the high-risk URLs")
		assert.NotContains(t, summary, "No critical SEO risks detected")
	})
}
