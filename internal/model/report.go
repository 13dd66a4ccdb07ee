package model

// Report is a tabular analytics report. Every value is the stringified
// form returned by the GA4 Data API; rows keep the order the API reported.
type Report struct {
	Rows             []map[string]string `json:"rows"`
	RowCount         int                 `json:"row_count"`
	DimensionHeaders []string            `json:"dimension_headers"`
	MetricHeaders    []string            `json:"metric_headers"`
}

// ReportOutcome is the tagged result of a report call. Exactly one of the
// two states holds: Shaped carries a well-formed report (possibly with zero
// rows, which is valid data), or Malformed records why the upstream payload
// was unusable. Consumers must branch on IsShaped before touching Shaped.
type ReportOutcome struct {
	Shaped    *Report
	Malformed string
}

func (o ReportOutcome) IsShaped() bool {
	return o.Shaped != nil
}

func ShapedOutcome(r *Report) ReportOutcome {
	return ReportOutcome{Shaped: r}
}

func MalformedOutcome(reason string) ReportOutcome {
	return ReportOutcome{Malformed: reason}
}
