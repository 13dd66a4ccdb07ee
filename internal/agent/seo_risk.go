package agent

import (
	"fmt"
	"sort"
	"strings"

	"marketing-insights-backend/internal/model"
)

// ColumnScopeAnalysis records which SEO categories the discovered sheet
// columns can support. Narration and confidence both honor it.
type ColumnScopeAnalysis struct {
	AvailableCategories   []string
	UnavailableCategories []string
	LimitedScope          bool
	ScopeMessage          string
	HasCrawlability       bool
	HasContent            bool
	HasPerformance        bool
	HasAccessibility      bool
}

var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"crawlability", []string{"status", "address", "url"}},
	{"content", []string{"title", "meta description", "h1", "h2", "word count"}},
	{"performance", []string{"psi", "pagespeed", "load time"}},
	{"accessibility", []string{"wcag", "aria", "alt text", "contrast"}},
}

// AnalyzeColumns maps lowercased column names onto the four SEO categories.
// A category is available when any of its keywords appears in a column name.
func AnalyzeColumns(columns []string) ColumnScopeAnalysis {
	normalized := make([]string, len(columns))
	for i, col := range columns {
		normalized[i] = strings.ToLower(col)
	}

	hasKeyword := func(keywords []string) bool {
		for _, col := range normalized {
			for _, kw := range keywords {
				if strings.Contains(col, kw) {
					return true
				}
			}
		}
		return false
	}

	analysis := ColumnScopeAnalysis{}
	for _, cat := range categoryKeywords {
		if hasKeyword(cat.keywords) {
			analysis.AvailableCategories = append(analysis.AvailableCategories, cat.name)
			switch cat.name {
			case "crawlability":
				analysis.HasCrawlability = true
			case "content":
				analysis.HasContent = true
			case "performance":
				analysis.HasPerformance = true
			case "accessibility":
				analysis.HasAccessibility = true
			}
		} else {
			analysis.UnavailableCategories = append(analysis.UnavailableCategories, cat.name)
		}
	}

	analysis.LimitedScope = len(analysis.AvailableCategories) < len(categoryKeywords)
	if analysis.LimitedScope {
		analysis.ScopeMessage = fmt.Sprintf(
			"This dataset only contains %s data. Analysis of %s is not possible with the available columns.",
			strings.Join(analysis.AvailableCategories, ", "),
			strings.Join(analysis.UnavailableCategories, ", "))
	}
	return analysis
}

// Values treated as "no issue" when checking failure columns.
var riskPlaceholders = map[string]struct{}{
	"":     {},
	"0":    {},
	"none": {},
	"n/a":  {},
}

func isRealIssue(value string) bool {
	_, placeholder := riskPlaceholders[strings.ToLower(strings.TrimSpace(value))]
	return !placeholder
}

// Fixed failure columns checked by the scorer. Each group contributes its
// weight at most once per row regardless of how many columns match.
var (
	psiErrorFields      = []string{"psi error"}
	wcagViolationFields = []string{"wcag* violations", "wcag violations", "all violations"}
	bestPracticeFields  = []string{"best practice violations"}
)

func hasIssueIn(row model.SheetRow, fields []string) bool {
	for col, value := range row {
		lower := strings.ToLower(col)
		for _, field := range fields {
			if lower == field && isRealIssue(value) {
				return true
			}
		}
	}
	return false
}

// ComputeRiskScores scores every row on three fixed signals: a PSI error
// adds 3, any WCAG violation column adds 2, best-practice violations add 1,
// so a row's score stays within 0 to 6. Rows without a URL column are still
// scored under "Unknown URL".
func ComputeRiskScores(rows []model.SheetRow) *model.RiskReport {
	report := &model.RiskReport{}
	for _, row := range rows {
		url := extractURL(row)
		if url == "" {
			url = "Unknown URL"
		}

		score := 0
		if hasIssueIn(row, psiErrorFields) {
			score += 3
		}
		if hasIssueIn(row, wcagViolationFields) {
			score += 2
		}
		if hasIssueIn(row, bestPracticeFields) {
			score++
		}

		level := "Low"
		switch {
		case score >= 3:
			level = "High"
			report.HighCount++
		case score >= 1:
			level = "Medium"
			report.MediumCount++
		default:
			report.LowCount++
		}

		report.ScoredURLs = append(report.ScoredURLs, model.RiskScore{URL: url, Score: score, Level: level})
	}

	if len(report.ScoredURLs) == 0 {
		return nil
	}
	report.TotalCount = len(report.ScoredURLs)
	sort.SliceStable(report.ScoredURLs, func(i, j int) bool {
		return report.ScoredURLs[i].Score > report.ScoredURLs[j].Score
	})
	return report
}

func extractURL(row model.SheetRow) string {
	for _, candidate := range []string{"Address", "URL", "Url", "address", "url"} {
		if v, ok := row[candidate]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	for col, v := range row {
		if strings.Contains(strings.ToLower(col), "url") && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncateURL(url string) string {
	if len(url) <= 60 {
		return url
	}
	return url[:57] + "..."
}

// riskSummary renders the scored URLs as a markdown block appended to the
// narrated answer.
func riskSummary(report *model.RiskReport) string {
	if report.HighCount == 0 && report.MediumCount == 0 {
		return "\n\n**Risk Assessment:**\nNo critical SEO risks detected. Crawlability is healthy, but ongoing monitoring is recommended."
	}

	var b strings.Builder
	b.WriteString("\n\n**Risk Assessment:**\n")
	b.WriteString(fmt.Sprintf("- %d high-risk, %d medium-risk, %d low-risk URLs (of %d scored)\n",
		report.HighCount, report.MediumCount, report.LowCount, report.TotalCount))

	top := report.ScoredURLs
	if len(top) > 3 {
		top = top[:3]
	}
	if len(top) > 0 && top[0].Score > 0 {
		b.WriteString("\nTop URLs needing attention:\n")
		for i, scored := range top {
			if scored.Score == 0 {
				break
			}
			b.WriteString(fmt.Sprintf("%d. %s (score %d, %s risk)\n", i+1, truncateURL(scored.URL), scored.Score, scored.Level))
		}
	}

	if report.HighCount > 0 {
		b.WriteString("\nRecommendation: Prioritize fixing the high-risk URLs above before addressing medium-risk pages.")
	} else {
		b.WriteString("\nRecommendation: Address the medium-risk issues above to improve overall site health.")
	}
	return b.String()
}
