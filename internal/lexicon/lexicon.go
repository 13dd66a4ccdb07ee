// Package lexicon holds the fixed keyword vocabularies shared by intent
// classification and the analytics pre-checks. Keeping them in one place
// stops the routing layer and the branch validation from drifting apart.
package lexicon

import "strings"

// AnalyticsKeywords route a query toward the analytics branch.
var AnalyticsKeywords = []string{
	"users", "sessions", "traffic", "visits", "visitors",
	"pageviews", "bounce", "conversion", "revenue",
	"ga4", "google analytics", "analytics",
	"how many", "what's the", "show me traffic",
}

// SEOKeywords route a query toward the SEO branch.
var SEOKeywords = []string{
	"seo", "pages", "404", "broken", "links",
	"meta", "title", "description", "heading",
	"indexability", "crawl", "sitemap",
	"screaming frog", "technical seo",
}

// MetricKeywords mark a query as naming a measurable quantity.
var MetricKeywords = []string{
	"users", "user", "sessions", "session", "traffic", "visitors", "visitor",
	"active users", "pageviews", "pageview", "views", "bounce", "conversions",
	"conversion", "revenue", "engagement",
}

// TimeKeywords mark a query as naming a time period.
var TimeKeywords = []string{
	"today", "yesterday", "last", "past", "previous", "this week", "this month",
	"last week", "last month", "days ago", "daysago", "weeks ago", "months ago",
	"since", "between", "from", "to", "during", "in", "on",
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// ComparisonKeywords mark a query as asking for a period comparison.
var ComparisonKeywords = []string{
	"compare", "vs", "versus", "difference", "change", "compared",
}

// MatchesAny reports whether any keyword occurs as a substring of the
// lower-cased query.
func MatchesAny(query string, keywords []string) bool {
	q := strings.ToLower(query)
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
