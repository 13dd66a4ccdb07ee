// Package schema holds the GA4 metric and dimension allowlists. LLM-generated
// query plans are checked against these before anything reaches the Data API,
// so a model cannot inject arbitrary field names into a report request.
package schema

// ValidMetrics is the GA4 Data API metric allowlist.
// Reference: https://developers.google.com/analytics/devguides/reporting/data/v1/api-schema
var ValidMetrics = map[string]struct{}{
	// User metrics
	"activeUsers": {},
	"newUsers":    {},
	"totalUsers":  {},

	// Session metrics
	"sessions":               {},
	"sessionsPerUser":        {},
	"averageSessionDuration": {},
	"engagementRate":         {},
	"bounceRate":             {},

	// Page/Screen metrics
	"screenPageViews":           {},
	"screenPageViewsPerSession": {},

	// Event metrics
	"eventCount":       {},
	"eventsPerSession": {},
	"conversions":      {},

	// Engagement metrics
	"engagedSessions":        {},
	"userEngagementDuration": {},

	// E-commerce metrics
	"totalRevenue":    {},
	"purchaseRevenue": {},
	"transactions":    {},
	"addToCarts":      {},

	// Aliases the LLM commonly emits
	"users":     {},
	"pageviews": {},
	"pageViews": {},
}

// ValidDimensions is the GA4 Data API dimension allowlist.
var ValidDimensions = map[string]struct{}{
	// Time
	"date":      {},
	"year":      {},
	"month":     {},
	"week":      {},
	"day":       {},
	"hour":      {},
	"yearMonth": {},
	"yearWeek":  {},

	// Geography
	"country":   {},
	"city":      {},
	"region":    {},
	"continent": {},

	// Technology
	"browser":             {},
	"deviceCategory":      {},
	"operatingSystem":     {},
	"platform":            {},
	"mobileDeviceBranding": {},
	"mobileDeviceModel":   {},

	// Page/Screen
	"pagePath":          {},
	"pageTitle":         {},
	"landingPage":       {},
	"hostName":          {},
	"unifiedScreenName": {},

	// Traffic source
	"source":              {},
	"medium":              {},
	"campaign":            {},
	"campaignName":        {},
	"sessionSource":       {},
	"sessionMedium":       {},
	"sessionCampaignName": {},
	"firstUserSource":     {},
	"firstUserMedium":     {},

	// User
	"newVsReturning": {},
	"userAgeBracket": {},
	"userGender":     {},
	"language":       {},

	// Event
	"eventName": {},

	// Alias
	"pageURL": {},
}

// Validate checks names against an allowlist. It returns ok=true iff every
// name is allowed; invalid names come back deduplicated, in input order.
func Validate(names []string, allowlist map[string]struct{}) (bool, []string) {
	var invalid []string
	seen := make(map[string]struct{})
	for _, name := range names {
		if _, ok := allowlist[name]; ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		invalid = append(invalid, name)
	}
	return len(invalid) == 0, invalid
}

// ValidateMetrics validates metric names against the metric allowlist.
func ValidateMetrics(metrics []string) (bool, []string) {
	return Validate(metrics, ValidMetrics)
}

// ValidateDimensions validates dimension names against the dimension allowlist.
func ValidateDimensions(dimensions []string) (bool, []string) {
	return Validate(dimensions, ValidDimensions)
}
