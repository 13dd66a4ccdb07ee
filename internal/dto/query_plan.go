package dto

// QueryPlan is the structured GA4 query the LLM derives from a natural
// language question. Only the json-tagged fields come from the model; the
// rest is bookkeeping the analytics branch attaches while executing.
type QueryPlan struct {
	Metrics    []string `json:"metrics"`
	Dimensions []string `json:"dimensions"`
	StartDate  string   `json:"start_date"` // "YYYY-MM-DD", "today", "yesterday", "NdaysAgo"
	EndDate    string   `json:"end_date"`
	Limit      int64    `json:"limit"`

	PropertyID      string   `json:"-"`
	UsedFallback    bool     `json:"-"`
	FallbackNote    string   `json:"-"`
	OriginalMetrics []string `json:"-"`
}

// SheetOperations is the structured plan the LLM derives for an SEO query:
// which rows to keep, how to group them, and how to reduce each group.
type SheetOperations struct {
	Filters         map[string]interface{} `json:"filters,omitempty"`
	GroupBy         string                 `json:"group_by,omitempty"`
	AggregateColumn string                 `json:"aggregate_column,omitempty"`
	Operation       string                 `json:"operation,omitempty"` // count | sum | avg | min | max
	Limit           int                    `json:"limit,omitempty"`
}

// IntentDecision is the LLM fallback classification for ambiguous queries.
type IntentDecision struct {
	Intent     string  `json:"intent"` // analytics | seo | multi
	Confidence float64 `json:"confidence"`
}
