package agent

import (
	"fmt"
	"strconv"
	"strings"

	"marketing-insights-backend/internal/dto"
	"marketing-insights-backend/internal/model"
)

// Confidence is the assessed reliability of an answer. Computed fresh per
// response, never persisted.
type Confidence struct {
	Level  string // Low | Medium | High
	Reason string
}

// sumMetric totals a metric across rows. Missing and non-numeric values are
// skipped, not zero-filled.
func sumMetric(rows []map[string]string, metric string) float64 {
	var sum float64
	for _, row := range rows {
		raw, ok := row[metric]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			continue
		}
		sum += v
	}
	return sum
}

// trendSummary compares each plan metric's aggregate between the current
// and previous periods. Change beyond +-5% gets a rising/falling indicator;
// metrics with a zero previous-period sum are silently omitted rather than
// reported as undefined.
func trendSummary(current, previous *model.Report, plan dto.QueryPlan) string {
	if len(current.Rows) == 0 || len(previous.Rows) == 0 || len(plan.Metrics) == 0 {
		return ""
	}

	var trends []string
	for _, metric := range plan.Metrics {
		currentVal := sumMetric(current.Rows, metric)
		prevVal := sumMetric(previous.Rows, metric)
		if prevVal <= 0 || currentVal < 0 {
			continue
		}

		percentChange := (currentVal - prevVal) / prevVal * 100

		var indicator string
		switch {
		case percentChange > 5:
			indicator = "↑"
		case percentChange < -5:
			indicator = "↓"
		default:
			indicator = "→"
		}

		magnitude := percentChange
		if magnitude < 0 {
			magnitude = -magnitude
		}
		trends = append(trends, fmt.Sprintf("%s: %s %.1f%% vs previous period", metric, indicator, magnitude))
	}

	if len(trends) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("**Trend Analysis:**")
	for _, t := range trends {
		b.WriteString("\n- " + t)
	}
	return b.String()
}

// thresholdAlerts emits alerts for concerning metrics: an average bounce
// rate above 70%, and a user/session drop of more than 20% against the
// previous period.
func thresholdAlerts(current, previous *model.Report, plan dto.QueryPlan) string {
	if len(current.Rows) == 0 {
		return ""
	}

	var alerts []string

	if containsMetric(plan.Metrics, "bounceRate") {
		var sum float64
		var count int
		for _, row := range current.Rows {
			raw, ok := row["bounceRate"]
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				continue
			}
			sum += v
			count++
		}
		if count > 0 && sum/float64(count) > 0.70 {
			alerts = append(alerts, "**Alert**: Bounce rate exceeds 70% - consider improving page engagement")
		}
	}

	if previous != nil && len(previous.Rows) > 0 {
		if metric, ok := firstUserMetric(plan.Metrics); ok {
			currentVal := sumMetric(current.Rows, metric)
			prevVal := sumMetric(previous.Rows, metric)
			if prevVal > 0 {
				dropPct := (currentVal - prevVal) / prevVal * 100
				if dropPct < -20 {
					alerts = append(alerts, fmt.Sprintf("**Alert**: %s dropped %.1f%% vs previous period", metric, -dropPct))
				}
			}
		}
	}

	if len(alerts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("**Alerts:**")
	for _, a := range alerts {
		b.WriteString("\n- " + a)
	}
	return b.String()
}

func containsMetric(metrics []string, name string) bool {
	for _, m := range metrics {
		if m == name {
			return true
		}
	}
	return false
}

func firstUserMetric(metrics []string) (string, bool) {
	for _, m := range metrics {
		if strings.Contains(strings.ToLower(m), "user") || m == "sessions" {
			return m, true
		}
	}
	return "", false
}

// analyticsConfidence is the deterministic rule ladder over the executed
// report and plan. The >=100-row branch and the final default produce the
// same level through different conditions; both are kept so the ladder's
// shape stays explicit.
func analyticsConfidence(report *model.Report, plan dto.QueryPlan) Confidence {
	rowCount := report.RowCount
	usedFallbackMetrics := containsMetric(plan.Metrics, "sessions") || containsMetric(plan.Metrics, "totalUsers")
	originalHadActiveUsers := containsMetric(plan.OriginalMetrics, "activeUsers")

	switch {
	case rowCount == 0:
		return Confidence{Level: "Low", Reason: "No data available for analysis."}
	case rowCount < 10:
		return Confidence{Level: "Medium", Reason: "Limited data points available (fewer than 10 rows)."}
	case usedFallbackMetrics && originalHadActiveUsers:
		return Confidence{Level: "Medium", Reason: "Using fallback metrics (sessions/totalUsers) as primary metrics returned no data."}
	case rowCount >= 100:
		return Confidence{Level: "High", Reason: "Comprehensive data available with sufficient sample size."}
	default:
		return Confidence{Level: "High", Reason: "Complete data available for the requested period."}
	}
}
