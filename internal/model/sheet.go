package model

// SheetRow is one spreadsheet row keyed by column header. The column set
// varies per spreadsheet and is discovered at read time, so consumers must
// branch on the columns that are actually present.
type SheetRow map[string]string

// RiskScore is the deterministic 0-6 severity score for a single URL.
type RiskScore struct {
	URL   string `json:"url"`
	Score int    `json:"score"`
	Level string `json:"risk_level"` // Low | Medium | High
}

// RiskReport aggregates per-URL risk scores, sorted by score descending.
type RiskReport struct {
	ScoredURLs  []RiskScore `json:"scored_urls"`
	HighCount   int         `json:"high_count"`
	MediumCount int         `json:"medium_count"`
	LowCount    int         `json:"low_count"`
	TotalCount  int         `json:"total_count"`
}
